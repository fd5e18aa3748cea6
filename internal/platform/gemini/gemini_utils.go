package gemini

import (
	"errors"
	"strings"

	"github.com/macrofit/coach-api/internal/generation"
)

// extractJSON strips markdown code fences from a model response. The
// model is asked for bare JSON but sometimes wraps it in ```json
// fences anyway.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	return trimmed
}

// isPermanent reports whether a generation error should not be
// retried. Blocked content and malformed responses will not get
// better on a second attempt.
func isPermanent(err error) bool {
	return errors.Is(err, generation.ErrContentBlocked) ||
		errors.Is(err, generation.ErrInvalidResponse) ||
		errors.Is(err, generation.ErrEmptyInput)
}
