package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kirillkom/card-catalog/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrNoCardDetected),
		domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUserNotFound),
		domain.IsKind(err, domain.ErrCatalogNotFound),
		domain.IsKind(err, domain.ErrCardNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUserExists):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrOverloaded),
		domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status code. Server-side failures are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	resp := errorResponse{Error: err.Error()}
	if stage, ok := domain.StageOf(err); ok {
		resp.Stage = string(stage)
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"stage", resp.Stage,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			resp.Error = "internal error"
		}
	}
	writeJSON(w, status, resp)
}
