package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrofit/coach-api/internal/config"
	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/generation"
	"github.com/macrofit/coach-api/internal/lifecycle"
	"github.com/macrofit/coach-api/internal/platform/sqlite"
	"github.com/macrofit/coach-api/internal/recovery"
	"github.com/macrofit/coach-api/internal/service"
	"github.com/macrofit/coach-api/internal/service/auth"
	"github.com/macrofit/coach-api/internal/task"
)

// stubGenerator answers instantly with canned domain objects so the
// router can be exercised without the Gemini API.
type stubGenerator struct{}

func (stubGenerator) GenerateWorkoutPlan(
	ctx context.Context,
	req generation.WorkoutPlanRequest,
) (*domain.WorkoutPlan, error) {
	return domain.NewWorkoutPlan(req.UserID, "Stub Plan", []domain.WorkoutDay{
		{Title: "Day 1", Exercises: []domain.Exercise{{Name: "Squat", Sets: 3, Reps: "5"}}},
	})
}

func (stubGenerator) EditWorkoutPlan(
	ctx context.Context,
	plan *domain.WorkoutPlan,
	instruction string,
) (*domain.WorkoutPlan, error) {
	revised := *plan
	revised.Title = "Edited Stub Plan"
	return &revised, nil
}

func (stubGenerator) ParseMeal(ctx context.Context, description string) (*domain.MealEntry, error) {
	return domain.NewMealEntry(description, []domain.MealItem{
		{Name: "eggs", Macros: domain.Macros{Calories: 150, Protein: 12, Fat: 10}},
	}, domain.Macros{Calories: 150, Protein: 12, Fat: 10})
}

func (stubGenerator) CoachReply(
	ctx context.Context,
	history []domain.ChatMessage,
) (*domain.ChatMessage, error) {
	return domain.NewChatMessage(domain.ChatRoleCoach, "Keep it up.")
}

func (stubGenerator) Transcribe(
	ctx context.Context,
	audio []byte,
	mimeType string,
) (*domain.Transcript, error) {
	return domain.NewTranscript("one banana", 2.0)
}

// newTestApplication wires a full application over a temp SQLite file
// and the stub generator.
func newTestApplication(t *testing.T) *application {
	t.Helper()

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "error"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "coach.db")},
		Auth: config.AuthConfig{
			JWTSecret:            "test-jwt-secret-thats-at-least-32-chars",
			TokenLifetimeMinutes: 60,
		},
		LLM: config.LLMConfig{GeminiAPIKey: "unused", ModelName: "stub"},
		Retention: config.RetentionConfig{
			ResultMaxAge:    24 * time.Hour,
			ViewStateMaxAge: 7 * 24 * time.Hour,
			TaskRetention:   10 * time.Minute,
			StaleThreshold:  5 * time.Minute,
			SweepInterval:   time.Minute,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(cfg.Database.Path)
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))

	registry := task.NewRegistry(logger)
	resultStore := sqlite.NewResultStore(db)
	viewStateStore := sqlite.NewViewStateStore(db)
	reconciler := recovery.NewReconciler(registry, resultStore, viewStateStore, logger)
	hooks := lifecycle.NewHooks(resultStore, viewStateStore, lifecycle.Retention{
		Results:   cfg.Retention.ResultMaxAge,
		ViewState: cfg.Retention.ViewStateMaxAge,
	}, logger)
	jwtService, err := auth.NewJWTService(cfg.Auth)
	require.NoError(t, err)

	app := &application{
		config:           cfg,
		logger:           logger,
		db:               db,
		registry:         registry,
		resultStore:      resultStore,
		viewStateStore:   viewStateStore,
		generator:        stubGenerator{},
		reconciler:       reconciler,
		hooks:            hooks,
		jwtService:       jwtService,
		operationService: service.NewOperationService(registry, resultStore, viewStateStore, stubGenerator{}, logger),
		viewService:      service.NewViewService(viewStateStore, reconciler, logger),
	}
	t.Cleanup(app.cleanup)

	return app
}

func authToken(t *testing.T, app *application) string {
	t.Helper()

	token, err := app.jwtService.GenerateToken(context.Background(), uuid.New())
	require.NoError(t, err)
	return token
}

func doRequest(
	t *testing.T,
	router http.Handler,
	method, path, token string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()

	rec := doRequest(t, router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAPIRequiresAuth(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()

	rec := doRequest(t, router, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMealParseRoundTrip(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()
	token := authToken(t, app)

	rec := doRequest(t, router, http.MethodPost, "/api/views/macro_chat/operations", token,
		map[string]string{"description": "two eggs and toast"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var started struct {
		TaskID string `json:"task_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	require.NotEmpty(t, started.TaskID)

	// Poll the view until the result is reconciled into its state.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doRequest(t, router, http.MethodGet, "/api/views/macro_chat/state", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var state struct {
			Loading bool            `json:"loading"`
			State   json.RawMessage `json:"state"`
			Error   string          `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
		require.Empty(t, state.Error)

		if !state.Loading {
			var s struct {
				Entries []json.RawMessage `json:"entries"`
			}
			require.NoError(t, json.Unmarshal(state.State, &s))
			if len(s.Entries) == 1 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatal("meal parse result never reached the view state")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The task shows up in the registry list until eviction.
	rec = doRequest(t, router, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Tasks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Tasks, 1)
	assert.Equal(t, started.TaskID, list.Tasks[0].ID)
	assert.Equal(t, "completed", list.Tasks[0].Status)
}

func TestLifecycleEndpointsRoundTrip(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()
	token := authToken(t, app)

	rec := doRequest(t, router, http.MethodPost, "/api/lifecycle/background", token, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/lifecycle/foreground", token, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCancelUnknownTaskRoute(t *testing.T) {
	app := newTestApplication(t)
	router := app.setupRouter()
	token := authToken(t, app)

	rec := doRequest(t, router, http.MethodDelete, "/api/tasks/meal_parse_nope", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
