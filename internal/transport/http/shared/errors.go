package shared

import (
	"errors"
	"log/slog"
	"net/http"

	"devcycle/internal/domain/workflow"
	"devcycle/internal/requestctx"
	"devcycle/internal/transport/http/api"
)

// FailWorkflow maps workflow sentinel errors onto the response envelope.
// Anything unrecognised is logged and reported as "<op>_failed".
func FailWorkflow(w http.ResponseWriter, r *http.Request, op string, err error) {
	requestID := requestctx.GetRequestID(r.Context())
	switch {
	case errors.Is(err, workflow.ErrItemNotFound):
		api.Fail(w, http.StatusNotFound, "item_not_found", err.Error(), requestID)
	case errors.Is(err, workflow.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, workflow.ErrVersionConflict):
		api.Fail(w, http.StatusConflict, "version_conflict", err.Error(), requestID)
	case errors.Is(err, workflow.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, workflow.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	default:
		slog.Warn(op+" failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, op+"_failed", "internal error", requestID)
	}
}
