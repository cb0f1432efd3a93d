package activityhandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"devcycle/internal/domain/activity"
	"devcycle/internal/domain/auth"
	"devcycle/internal/transport/http/api"
	"devcycle/internal/transport/http/middleware"
	"devcycle/internal/transport/http/shared"
)

type Service interface {
	Count(ctx context.Context, filter activity.Filter) (int, error)
	List(ctx context.Context, filter activity.Filter, limit, offset int) ([]activity.Entry, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermActivityRead, h.Perms)).Get("/activity", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	page := shared.ParsePagination(r, shared.FeedPages)
	filter := activity.Filter{
		Action:     strings.TrimSpace(r.URL.Query().Get("action")),
		EntityType: strings.TrimSpace(r.URL.Query().Get("entity_type")),
		EntityID:   shared.QueryID(r, "entity_id", v),
		ActorID:    shared.QueryID(r, "actor_id", v),
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("activity count failed", "err", err)
	}
	entries, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("activity list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "activity_list_failed", "failed to list recent actions", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}
