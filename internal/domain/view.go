package domain

// ViewKind identifies one of the app's screens for the purposes of
// state persistence and result routing. The subsystem never renders a
// view; it only files state and results under these keys.
type ViewKind string

// The views that start long-latency operations.
const (
	ViewWorkoutPlan ViewKind = "workout_plan"
	ViewMacroChat   ViewKind = "macro_chat"
	ViewCoachChat   ViewKind = "coach_chat"
	ViewVoiceLog    ViewKind = "voice_log"
)

// Valid reports whether v is a known view kind.
func (v ViewKind) Valid() bool {
	switch v {
	case ViewWorkoutPlan, ViewMacroChat, ViewCoachChat, ViewVoiceLog:
		return true
	}
	return false
}
