package levelinghandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"devcycle/internal/domain/auth"
	"devcycle/internal/domain/leveling"
	"devcycle/internal/domain/workflow"
	"devcycle/internal/transport/http/api"
	"devcycle/internal/transport/http/middleware"
	"devcycle/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, in leveling.CreateInput) (int64, error)
	Get(ctx context.Context, id int64) (leveling.Leveling, error)
	Update(ctx context.Context, id int64, in leveling.UpdateInput) (leveling.Leveling, error)
	Submit(ctx context.Context, id, expectedVersion int64) (leveling.Leveling, error)
	List(ctx context.Context, f leveling.ListFilter) (leveling.ListResult, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cl", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermLevelingRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermLevelingWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermLevelingRead, h.Perms)).Get("/{id}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermLevelingWrite, h.Perms)).Put("/{id}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermLevelingSubmit, h.Perms)).Post("/{id}/submit", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermLevelingRead, h.Perms)).Get("/{id}/scorecard.pdf", h.handleScorecard)
	})
}

type createPayload struct {
	EmployeeID   *int64 `json:"employee_id"`
	SupervisorID *int64 `json:"supervisor_id"`
	DepartmentID *int64 `json:"department_id"`
	CycleID      *int64 `json:"cycle_id"`
}

type itemPayload struct {
	ID            *int64 `json:"id"`
	AssignedLevel *int   `json:"assigned_level"`
	Weight        *int   `json:"weight"`
	Justification string `json:"justification"`
}

type updatePayload struct {
	ExpectedVersion int64          `json:"expected_version"`
	Items           *[]itemPayload `json:"items"`
}

type submitPayload struct {
	ExpectedVersion int64 `json:"expected_version"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	q := r.URL.Query()
	status := strings.ToUpper(strings.TrimSpace(q.Get("status")))
	v.Enum("status", status, []string{string(workflow.StatusDraft), string(workflow.StatusPendingAM)}, "must be DRAFT or PENDING_AM")
	page := shared.ParsePagination(r, shared.HeaderPages)
	filter := leveling.ListFilter{
		EmployeeID:   shared.QueryID(r, "employee_id", v),
		SupervisorID: shared.QueryID(r, "supervisor_id", v),
		CycleID:      shared.QueryID(r, "cycle_id", v),
		Status:       status,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	res, err := h.Service.List(r.Context(), filter)
	if err != nil {
		shared.FailWorkflow(w, r, "leveling_list", err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(res.Total))
	api.Success(w, res.Headers, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.PositiveID("employee_id", payload.EmployeeID)
	v.PositiveID("supervisor_id", payload.SupervisorID)
	v.PositiveID("department_id", payload.DepartmentID)
	v.PositiveID("cycle_id", payload.CycleID)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.Create(r.Context(), leveling.CreateInput{
		EmployeeID:   *payload.EmployeeID,
		SupervisorID: *payload.SupervisorID,
		DepartmentID: *payload.DepartmentID,
		CycleID:      *payload.CycleID,
	})
	if err != nil {
		shared.FailWorkflow(w, r, "leveling_create", err)
		return
	}
	api.Created(w, map[string]int64{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParseID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "id must be a positive integer", middleware.GetRequestID(r.Context()))
		return
	}
	lv, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.FailWorkflow(w, r, "leveling_get", err)
		return
	}
	api.Success(w, lv, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParseID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "id must be a positive integer", middleware.GetRequestID(r.Context()))
		return
	}
	var payload updatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	if payload.ExpectedVersion < 0 {
		v.Add("expected_version", "must not be negative")
	}
	if payload.Items == nil {
		v.Add("items", "is required")
	}
	var items []leveling.ItemUpdate
	if payload.Items != nil {
		items = make([]leveling.ItemUpdate, 0, len(*payload.Items))
		for i, item := range *payload.Items {
			field := fmt.Sprintf("items[%d]", i)
			v.PositiveID(field+".id", item.ID)
			if item.AssignedLevel == nil {
				v.Add(field+".assigned_level", "is required")
			} else {
				v.Range(field+".assigned_level", *item.AssignedLevel, 0, leveling.MaxLevel)
			}
			if item.Weight == nil {
				v.Add(field+".weight", "is required")
			} else {
				v.Range(field+".weight", *item.Weight, 0, leveling.MaxWeight)
			}
			if v.HasIssues() {
				continue
			}
			items = append(items, leveling.ItemUpdate{
				ID:            *item.ID,
				AssignedLevel: *item.AssignedLevel,
				Weight:        *item.Weight,
				Justification: item.Justification,
			})
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	lv, err := h.Service.Update(r.Context(), id, leveling.UpdateInput{ExpectedVersion: payload.ExpectedVersion, Items: items})
	if err != nil {
		shared.FailWorkflow(w, r, "leveling_update", err)
		return
	}
	api.Success(w, lv, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParseID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "id must be a positive integer", middleware.GetRequestID(r.Context()))
		return
	}
	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	if payload.ExpectedVersion < 0 {
		api.Fail(w, http.StatusBadRequest, "validation_error", "expected_version must not be negative", middleware.GetRequestID(r.Context()))
		return
	}

	lv, err := h.Service.Submit(r.Context(), id, payload.ExpectedVersion)
	if err != nil {
		shared.FailWorkflow(w, r, "leveling_submit", err)
		return
	}
	api.Success(w, lv, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleScorecard(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParseID(r, "id")
	if !ok {
		api.Fail(w, http.StatusBadRequest, "validation_error", "id must be a positive integer", middleware.GetRequestID(r.Context()))
		return
	}
	lv, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.FailWorkflow(w, r, "leveling_scorecard", err)
		return
	}

	var buf bytes.Buffer
	if err := leveling.RenderScorecard(&buf, lv); err != nil {
		slog.Warn("scorecard render failed", "err", err, "headerId", id)
		api.Fail(w, http.StatusInternalServerError, "leveling_scorecard_failed", "failed to render scorecard", middleware.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=scorecard-%d.pdf", id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("scorecard write failed", "err", err)
	}
}
