// Package gemini adapts Google's Gemini API to the generation.TextGenerator
// interface.
//
// The adapter translates a provider-neutral TextRequest into a
// GenerateContent call, asks for a JSON response when the request needs
// structured output, and maps Gemini failures (safety blocks, quota errors,
// bad credentials, deadlines) onto generation.ProviderError kinds. It does
// not retry; retry policy belongs to the caller.
package gemini
