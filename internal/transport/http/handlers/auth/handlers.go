package authhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devcycle/internal/domain/auth"
	"devcycle/internal/transport/http/api"
	"devcycle/internal/transport/http/middleware"
)

// Handler exposes the identity carried by the caller's token. Tokens are
// issued elsewhere; see the server's token subcommand for local use.
type Handler struct {
	Perms *auth.StaticPermissions
}

func NewHandler(perms *auth.StaticPermissions) *Handler {
	return &Handler{Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/auth/me", h.handleMe)
}

type meResponse struct {
	UserID      int64    `json:"user_id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, meResponse{
		UserID:      user.UserID,
		Role:        user.RoleName,
		Permissions: h.Perms.Granted(user.RoleName),
	}, middleware.GetRequestID(r.Context()))
}
