package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"text/template"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/macrofit/coach-api/internal/config"
	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/generation"
)

// Generator implements generation.Generator against the Gemini API.
type Generator struct {
	logger  *slog.Logger
	config  config.LLMConfig
	prompts *promptSet
	client  *genai.Client
	model   string
}

// compile-time interface check
var _ generation.Generator = (*Generator)(nil)

// New creates a Gemini-backed generator.
func New(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	prompts, err := compilePrompts()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt templates: %v", generation.ErrInvalidConfig, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:  logger.With(slog.String("component", "gemini_generator")),
		config:  cfg,
		prompts: prompts,
		client:  client,
		model:   cfg.ModelName,
	}, nil
}

// GenerateWorkoutPlan creates a new training plan for the request.
func (g *Generator) GenerateWorkoutPlan(
	ctx context.Context,
	req generation.WorkoutPlanRequest,
) (*domain.WorkoutPlan, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", generation.ErrEmptyInput)
	}
	if req.Goal == "" {
		return nil, fmt.Errorf("%w: goal is required", generation.ErrEmptyInput)
	}
	if req.DaysPerWeek < 1 || req.DaysPerWeek > 7 {
		return nil, fmt.Errorf("%w: days per week must be between 1 and 7", generation.ErrEmptyInput)
	}

	prompt, err := renderPrompt(g.prompts.workoutPlan, req)
	if err != nil {
		return nil, err
	}

	text, err := g.generateWithRetry(ctx, "workout_plan", genai.Text(prompt), jsonResponseConfig())
	if err != nil {
		return nil, err
	}

	var schema planSchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse plan JSON: %v", generation.ErrInvalidResponse, err)
	}

	return schema.toDomain(req.UserID)
}

// EditWorkoutPlan applies a free-text instruction to an existing plan.
func (g *Generator) EditWorkoutPlan(
	ctx context.Context,
	plan *domain.WorkoutPlan,
	instruction string,
) (*domain.WorkoutPlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is required", generation.ErrEmptyInput)
	}
	if instruction == "" {
		return nil, fmt.Errorf("%w: edit instruction is required", generation.ErrEmptyInput)
	}

	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode current plan: %w", err)
	}

	prompt, err := renderPrompt(g.prompts.workoutEdit, struct {
		PlanJSON    string
		Instruction string
	}{
		PlanJSON:    string(planJSON),
		Instruction: instruction,
	})
	if err != nil {
		return nil, err
	}

	text, err := g.generateWithRetry(ctx, "workout_edit", genai.Text(prompt), jsonResponseConfig())
	if err != nil {
		return nil, err
	}

	var schema planSchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse plan JSON: %v", generation.ErrInvalidResponse, err)
	}

	revised, err := schema.toDomain(plan.UserID)
	if err != nil {
		return nil, err
	}
	return editedPlan(revised, plan), nil
}

// ParseMeal turns a free-text meal description into a structured entry.
func (g *Generator) ParseMeal(ctx context.Context, description string) (*domain.MealEntry, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: meal description is required", generation.ErrEmptyInput)
	}

	prompt, err := renderPrompt(g.prompts.meal, struct{ Description string }{Description: description})
	if err != nil {
		return nil, err
	}

	text, err := g.generateWithRetry(ctx, "meal_parse", genai.Text(prompt), jsonResponseConfig())
	if err != nil {
		return nil, err
	}

	var schema mealSchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse meal JSON: %v", generation.ErrInvalidResponse, err)
	}

	return schema.toDomain(description)
}

// CoachReply produces the coach's next message for a conversation.
func (g *Generator) CoachReply(
	ctx context.Context,
	history []domain.ChatMessage,
) (*domain.ChatMessage, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: conversation history is required", generation.ErrEmptyInput)
	}

	prompt, err := renderPrompt(g.prompts.coach, struct{ History []domain.ChatMessage }{History: history})
	if err != nil {
		return nil, err
	}

	text, err := g.generateWithRetry(ctx, "coach_chat", genai.Text(prompt), nil)
	if err != nil {
		return nil, err
	}

	reply, err := domain.NewChatMessage(domain.ChatRoleCoach, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
	}
	return reply, nil
}

// Transcribe converts an audio recording into text.
func (g *Generator) Transcribe(
	ctx context.Context,
	audio []byte,
	mimeType string,
) (*domain.Transcript, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: audio data is required", generation.ErrEmptyInput)
	}
	if mimeType == "" {
		return nil, fmt.Errorf("%w: audio mime type is required", generation.ErrEmptyInput)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePromptText),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	text, err := g.generateWithRetry(ctx, "transcription", contents, jsonResponseConfig())
	if err != nil {
		return nil, err
	}

	var schema transcriptSchema
	if err := json.Unmarshal([]byte(extractJSON(text)), &schema); err != nil {
		return nil, fmt.Errorf("%w: failed to parse transcript JSON: %v", generation.ErrInvalidResponse, err)
	}

	return schema.toDomain()
}

// generateWithRetry calls the Gemini API with exponential backoff and
// jitter. Transient failures are retried up to config.MaxRetries
// extra attempts; permanent failures return immediately.
func (g *Generator) generateWithRetry(
	ctx context.Context,
	operation string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	maxRetries := g.config.MaxRetries
	if maxRetries < 0 {
		g.logger.WarnContext(ctx, "invalid max retries, using default", slog.Int("max_retries", 3))
		maxRetries = 3
	}
	baseDelaySeconds := g.config.RetryDelaySeconds
	if baseDelaySeconds < 1 {
		g.logger.WarnContext(ctx, "invalid retry delay, using default", slog.Int("base_delay_seconds", 2))
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		g.logger.DebugContext(ctx, "calling gemini",
			slog.String("operation", operation),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", maxRetries+1))

		text, err := g.generateOnce(ctx, contents, cfg)
		if err == nil {
			return text, nil
		}
		lastErr = err

		g.logger.WarnContext(ctx, "gemini call failed",
			slog.String("operation", operation),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()))

		if isPermanent(err) {
			return "", err
		}
		if attempt >= maxRetries {
			break
		}

		// delay = base * 2^attempt, scaled by jitter in [0.5, 1.0)
		backoff := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitter := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoff * jitter * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, context.Cause(ctx))
		}
	}

	return "", fmt.Errorf("%w: exceeded %d attempts: %v",
		generation.ErrTransientFailure, maxRetries+1, lastErr)
}

// generateOnce performs a single Gemini call and validates the shape
// of the response.
func (g *Generator) generateOnce(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrInvalidResponse)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", generation.ErrInvalidResponse)
	}
	return text, nil
}

func jsonResponseConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return buf.String(), nil
}
