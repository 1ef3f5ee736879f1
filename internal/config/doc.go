// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config file and CAROUSEL_-prefixed environment
// variables. It provides type-safe access to the settings of the server,
// the AI providers, the generation orchestrator, export storage and the
// progress cache while keeping configuration details separate from
// business logic.
package config
