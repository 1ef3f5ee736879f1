// Package generation defines the boundary between the application core and
// external AI content-generation services.
//
// Providers implement the TextGenerator and ImageGenerator capability
// interfaces; a Registry holds every configured provider and resolves the
// one to use by name, so call sites never branch on a vendor. Provider
// failures are reported as *ProviderError values whose Kind decides whether
// a caller may retry.
package generation
