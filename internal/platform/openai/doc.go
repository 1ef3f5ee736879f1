// Package openai implements generation.TextGenerator over the chat
// completions API and generation.ImageGenerator over the images API.
package openai
