package service

import (
	"encoding/json"
	"fmt"

	"github.com/macrofit/coach-api/internal/domain"
)

// Durable state shapes for each view. State is stored as JSON and
// result payloads are folded in without re-decoding the domain
// objects they contain.

type workoutPlanState struct {
	Plan json.RawMessage `json:"plan,omitempty"`
}

type macroChatState struct {
	Entries []json.RawMessage `json:"entries,omitempty"`
}

type coachChatState struct {
	History []json.RawMessage `json:"history,omitempty"`
}

type voiceLogState struct {
	Transcripts []json.RawMessage `json:"transcripts,omitempty"`
}

// applyPayload folds a consumed result payload into a view's durable
// state: the workout plan view replaces its plan, the chat and log
// views append. Undecodable prior state is treated as empty rather
// than blocking the new result.
func applyPayload(view domain.ViewKind, state, payload json.RawMessage) (json.RawMessage, error) {
	switch view {
	case domain.ViewWorkoutPlan:
		var s workoutPlanState
		decodeState(state, &s)
		s.Plan = payload
		return marshalState(s)

	case domain.ViewMacroChat:
		var s macroChatState
		decodeState(state, &s)
		s.Entries = append(s.Entries, payload)
		return marshalState(s)

	case domain.ViewCoachChat:
		var s coachChatState
		decodeState(state, &s)
		s.History = append(s.History, payload)
		return marshalState(s)

	case domain.ViewVoiceLog:
		var s voiceLogState
		decodeState(state, &s)
		s.Transcripts = append(s.Transcripts, payload)
		return marshalState(s)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
}

func decodeState(state json.RawMessage, dst any) {
	if len(state) == 0 {
		return
	}
	// Best effort; the stores already reject undecodable snapshots.
	_ = json.Unmarshal(state, dst)
}

func marshalState(s any) (json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode view state: %w", err)
	}
	return data, nil
}

// coachHistory decodes the coach chat state's history into domain
// messages for the generator. Undecodable turns are skipped.
func coachHistory(state json.RawMessage) []domain.ChatMessage {
	var s coachChatState
	decodeState(state, &s)

	history := make([]domain.ChatMessage, 0, len(s.History))
	for _, raw := range s.History {
		var msg domain.ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		history = append(history, msg)
	}
	return history
}
