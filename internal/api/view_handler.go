package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/macrofit/coach-api/internal/api/shared"
	"github.com/macrofit/coach-api/internal/domain"
	"github.com/macrofit/coach-api/internal/platform/logger"
	"github.com/macrofit/coach-api/internal/service"
)

// ViewReader is the slice of the view service the handler needs.
type ViewReader interface {
	GetState(ctx context.Context, view domain.ViewKind) (*service.ViewState, error)
}

// ViewHandler serves reconciled view state.
type ViewHandler struct {
	views ViewReader
}

// NewViewHandler creates a new ViewHandler.
func NewViewHandler(views ViewReader) *ViewHandler {
	return &ViewHandler{views: views}
}

// GetState handles GET /views/{view}/state. The read runs the
// reconciliation pass first, so results of work finished while the
// client was away are folded in before the state is returned.
func (h *ViewHandler) GetState(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), slog.Default())

	view := domain.ViewKind(chi.URLParam(r, "view"))
	state, err := h.views.GetState(r.Context(), view)
	if err != nil {
		log.Warn("failed to get view state",
			slog.String("view_kind", string(view)),
			slog.String("error", err.Error()))
		shared.RespondWithError(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, state)
}
