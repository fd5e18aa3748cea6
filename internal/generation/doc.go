// Package generation defines the interface for the AI services that
// back the app's long-latency operations: workout-plan generation and
// editing, meal parsing, coaching chat, and audio transcription. This
// interface is the boundary between the application core and external
// LLM providers; the production implementation lives in
// internal/platform/gemini.
package generation
