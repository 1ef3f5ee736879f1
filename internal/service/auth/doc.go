// Package auth validates the bearer tokens issued by the external identity
// provider. Tokens are never minted here; the service only verifies their
// signature, time claims and issuer, and extracts the user they identify.
package auth
