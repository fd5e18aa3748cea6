// Package gemini implements the generation.Generator interface using
// Google's Gemini API. It renders prompt templates for each operation,
// calls the model with retry and exponential backoff for transient
// failures, and converts the model's JSON responses into domain types.
package gemini
