package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrofit/coach-api/internal/api/shared"
	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/generation"
	"github.com/macrofit/coach-api/internal/service"
	"github.com/macrofit/coach-api/internal/task"
)

// fakeStarter records the last call and returns a canned task id or
// error.
type fakeStarter struct {
	id     string
	err    error
	method string
	input  string
	userID uuid.UUID
}

func (f *fakeStarter) StartWorkoutGeneration(
	ctx context.Context,
	req generation.WorkoutPlanRequest,
) (string, error) {
	f.method = "generate"
	f.input = req.Goal
	f.userID = req.UserID
	return f.id, f.err
}

func (f *fakeStarter) StartWorkoutEdit(ctx context.Context, instruction string) (string, error) {
	f.method = "edit"
	f.input = instruction
	return f.id, f.err
}

func (f *fakeStarter) StartMealParse(ctx context.Context, description string) (string, error) {
	f.method = "meal"
	f.input = description
	return f.id, f.err
}

func (f *fakeStarter) StartCoachChat(ctx context.Context, message string) (string, error) {
	f.method = "chat"
	f.input = message
	return f.id, f.err
}

func (f *fakeStarter) StartTranscription(
	ctx context.Context,
	audio []byte,
	mimeType string,
) (string, error) {
	f.method = "transcribe"
	f.input = string(audio)
	return f.id, f.err
}

type fakeViewReader struct {
	state *service.ViewState
	err   error
}

func (f *fakeViewReader) GetState(
	ctx context.Context,
	view domain.ViewKind,
) (*service.ViewState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

type fakeDirectory struct {
	tasks     []task.Task
	cancelled string
	cancelOK  bool
}

func (f *fakeDirectory) Snapshot() []task.Task { return f.tasks }
func (f *fakeDirectory) Cancel(id string) bool {
	f.cancelled = id
	return f.cancelOK
}

type fakeHooks struct {
	background int
	foreground int
}

func (f *fakeHooks) EnterBackground(ctx context.Context) { f.background++ }
func (f *fakeHooks) EnterForeground(ctx context.Context) { f.foreground++ }

func newTestRouter(
	ops *OperationHandler,
	views *ViewHandler,
	tasks *TaskHandler,
	lifecycle *LifecycleHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Post("/views/{view}/operations", ops.Start)
	r.Get("/views/{view}/state", views.GetState)
	r.Get("/tasks", tasks.List)
	r.Delete("/tasks/{id}", tasks.Cancel)
	r.Post("/lifecycle/background", lifecycle.Background)
	r.Post("/lifecycle/foreground", lifecycle.Foreground)
	return r
}

func doJSON(
	t *testing.T,
	router http.Handler,
	method, path string,
	body any,
	ctxUser *uuid.UUID,
) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if ctxUser != nil {
		ctx := context.WithValue(req.Context(), shared.UserIDContextKey, *ctxUser)
		req = req.WithContext(ctx)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func newHandlers(starter *fakeStarter, reader *fakeViewReader, dir *fakeDirectory, hooks *fakeHooks) http.Handler {
	return newTestRouter(
		NewOperationHandler(starter),
		NewViewHandler(reader),
		NewTaskHandler(dir),
		NewLifecycleHandler(hooks),
	)
}

func TestStartMealParse(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{id: "meal_parse_abc"}
	router := newHandlers(starter, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	rec := doJSON(t, router, http.MethodPost, "/views/macro_chat/operations",
		MealParseRequest{Description: "two eggs"}, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp StartOperationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "meal_parse_abc", resp.TaskID)
	assert.Equal(t, "meal", starter.method)
	assert.Equal(t, "two eggs", starter.input)
}

func TestStartUnknownView(t *testing.T) {
	t.Parallel()

	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	rec := doJSON(t, router, http.MethodPost, "/views/settings/operations",
		MealParseRequest{Description: "x"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartValidationFailure(t *testing.T) {
	t.Parallel()

	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	rec := doJSON(t, router, http.MethodPost, "/views/macro_chat/operations",
		MealParseRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartMalformedBody(t *testing.T) {
	t.Parallel()

	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	req := httptest.NewRequest(http.MethodPost, "/views/macro_chat/operations",
		bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartWorkoutGenerationRequiresAuth(t *testing.T) {
	t.Parallel()

	router := newHandlers(&fakeStarter{id: "x"}, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	body := WorkoutPlanOperationRequest{Operation: "generate", Goal: "strength", DaysPerWeek: 3}
	rec := doJSON(t, router, http.MethodPost, "/views/workout_plan/operations", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartWorkoutGeneration(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{id: "workout_generation_abc"}
	router := newHandlers(starter, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})
	userID := uuid.New()

	body := WorkoutPlanOperationRequest{Operation: "generate", Goal: "strength", DaysPerWeek: 3}
	rec := doJSON(t, router, http.MethodPost, "/views/workout_plan/operations", body, &userID)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "generate", starter.method)
	assert.Equal(t, userID, starter.userID)
}

func TestStartWorkoutEdit(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{id: "workout_edit_abc"}
	router := newHandlers(starter, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	body := WorkoutPlanOperationRequest{Operation: "edit", Instruction: "add a deload week"}
	rec := doJSON(t, router, http.MethodPost, "/views/workout_plan/operations", body, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "edit", starter.method)
	assert.Equal(t, "add a deload week", starter.input)
}

func TestStartTranscription(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{id: "transcription_abc"}
	router := newHandlers(starter, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	body := TranscriptionRequest{
		Audio:    base64.StdEncoding.EncodeToString([]byte("fake audio")),
		MimeType: "audio/m4a",
	}
	rec := doJSON(t, router, http.MethodPost, "/views/voice_log/operations", body, nil)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "transcribe", starter.method)
	assert.Equal(t, "fake audio", starter.input)
}

func TestStartServiceErrorMapping(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{err: service.ErrNoPlan}
	router := newHandlers(starter, &fakeViewReader{}, &fakeDirectory{}, &fakeHooks{})

	body := WorkoutPlanOperationRequest{Operation: "edit", Instruction: "more legs"}
	rec := doJSON(t, router, http.MethodPost, "/views/workout_plan/operations", body, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetViewState(t *testing.T) {
	t.Parallel()

	reader := &fakeViewReader{state: &service.ViewState{
		View:    "macro_chat",
		State:   json.RawMessage(`{"entries":[]}`),
		Loading: true,
	}}
	router := newHandlers(&fakeStarter{}, reader, &fakeDirectory{}, &fakeHooks{})

	rec := doJSON(t, router, http.MethodGet, "/views/macro_chat/state", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var state service.ViewState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "macro_chat", state.View)
	assert.True(t, state.Loading)
}

func TestGetViewStateUnknownView(t *testing.T) {
	t.Parallel()

	reader := &fakeViewReader{err: service.ErrUnknownView}
	router := newHandlers(&fakeStarter{}, reader, &fakeDirectory{}, &fakeHooks{})

	rec := doJSON(t, router, http.MethodGet, "/views/settings/state", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetViewStateInternalError(t *testing.T) {
	t.Parallel()

	reader := &fakeViewReader{err: errors.New("disk on fire")}
	router := newHandlers(&fakeStarter{}, reader, &fakeDirectory{}, &fakeHooks{})

	rec := doJSON(t, router, http.MethodGet, "/views/macro_chat/state", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	started := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	completed := started.Add(3 * time.Second)
	dir := &fakeDirectory{tasks: []task.Task{
		{ID: "meal_parse_1", Kind: task.KindMealParse, Status: task.StatusRunning, StartedAt: started},
		{
			ID:          "coach_chat_2",
			Kind:        task.KindCoachChat,
			Status:      task.StatusCompleted,
			StartedAt:   started,
			CompletedAt: completed,
		},
	}}
	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, dir, &fakeHooks{})

	rec := doJSON(t, router, http.MethodGet, "/tasks", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TaskListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 2)
	assert.Equal(t, "running", resp.Tasks[0].Status)
	assert.Nil(t, resp.Tasks[0].CompletedAt)
	require.NotNil(t, resp.Tasks[1].CompletedAt)
	assert.Equal(t, completed, *resp.Tasks[1].CompletedAt)
}

func TestCancelTask(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{cancelOK: true}
	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, dir, &fakeHooks{})

	rec := doJSON(t, router, http.MethodDelete, "/tasks/meal_parse_1", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "meal_parse_1", dir.cancelled)
}

func TestCancelUnknownTask(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{cancelOK: false}
	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, dir, &fakeHooks{})

	rec := doJSON(t, router, http.MethodDelete, "/tasks/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	t.Parallel()

	hooks := &fakeHooks{}
	router := newHandlers(&fakeStarter{}, &fakeViewReader{}, &fakeDirectory{}, hooks)

	rec := doJSON(t, router, http.MethodPost, "/lifecycle/background", nil, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, hooks.background)

	rec = doJSON(t, router, http.MethodPost, "/lifecycle/foreground", nil, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, hooks.foreground)
}
