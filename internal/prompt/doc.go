// Package prompt turns a user's topic into the structured instruction sent to
// a text-generation provider, and post-processes generated slides into design
// guidance.
//
// Everything in this package is pure: no I/O, no provider calls and no
// errors for well-formed input. Content types are classified by keyword
// matching in a fixed priority order (educational, tips, promotional,
// inspirational, storytelling); the first category with a matching keyword
// wins, so a prompt such as "how to share tips" is educational.
package prompt
