package devplanhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"devcycle/internal/domain/auth"
	"devcycle/internal/domain/devplan"
	"devcycle/internal/domain/workflow"
	"devcycle/internal/transport/http/api"
	"devcycle/internal/transport/http/middleware"
	"devcycle/internal/transport/http/shared"
)

type Service interface {
	Create(ctx context.Context, in devplan.CreateInput) (int64, error)
	Get(ctx context.Context, id int64) (devplan.Plan, error)
	Update(ctx context.Context, id int64, in devplan.UpdateInput) (devplan.Plan, error)
	Submit(ctx context.Context, id, expectedVersion int64) (devplan.Plan, error)
	List(ctx context.Context, f devplan.ListFilter) (devplan.ListResult, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
}

func NewHandler(service Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/idp", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermDevPlanRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermDevPlanWrite, h.Perms)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermDevPlanRead, h.Perms)).Get("/{id}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermDevPlanWrite, h.Perms)).Put("/{id}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermDevPlanSubmit, h.Perms)).Post("/{id}/submit", h.handleSubmit)
	})
}

type createPayload struct {
	CLHeaderID   *int64 `json:"cl_header_id"`
	EmployeeID   *int64 `json:"employee_id"`
	SupervisorID *int64 `json:"supervisor_id"`
	CycleID      *int64 `json:"cycle_id"`
}

// itemPayload omits id for new items.
type itemPayload struct {
	ID                  *int64 `json:"id"`
	CompetencyID        *int64 `json:"competency_id"`
	CurrentLevel        int    `json:"current_level"`
	TargetLevel         int    `json:"target_level"`
	DevelopmentActivity string `json:"development_activity"`
	DevelopmentType     string `json:"development_type"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
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
	status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
	v.Enum("status", status, []string{string(workflow.StatusDraft), string(workflow.StatusPendingAM)}, "must be DRAFT or PENDING_AM")
	page := shared.ParsePagination(r, shared.HeaderPages)
	filter := devplan.ListFilter{
		EmployeeID:   shared.QueryID(r, "employee_id", v),
		SupervisorID: shared.QueryID(r, "supervisor_id", v),
		CycleID:      shared.QueryID(r, "cycle_id", v),
		CLHeaderID:   shared.QueryID(r, "cl_header_id", v),
		Status:       status,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	res, err := h.Service.List(r.Context(), filter)
	if err != nil {
		shared.FailWorkflow(w, r, "devplan_list", err)
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
	v.PositiveID("cl_header_id", payload.CLHeaderID)
	v.PositiveID("employee_id", payload.EmployeeID)
	v.PositiveID("supervisor_id", payload.SupervisorID)
	v.PositiveID("cycle_id", payload.CycleID)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	id, err := h.Service.Create(r.Context(), devplan.CreateInput{
		CLHeaderID:   *payload.CLHeaderID,
		EmployeeID:   *payload.EmployeeID,
		SupervisorID: *payload.SupervisorID,
		CycleID:      *payload.CycleID,
	})
	if err != nil {
		shared.FailWorkflow(w, r, "devplan_create", err)
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
	plan, err := h.Service.Get(r.Context(), id)
	if err != nil {
		shared.FailWorkflow(w, r, "devplan_get", err)
		return
	}
	api.Success(w, plan, middleware.GetRequestID(r.Context()))
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
	var items []devplan.ItemInput
	if payload.Items != nil {
		items = make([]devplan.ItemInput, 0, len(*payload.Items))
		for i, item := range *payload.Items {
			items = append(items, validateItem(v, fmt.Sprintf("items[%d]", i), item))
		}
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	plan, err := h.Service.Update(r.Context(), id, devplan.UpdateInput{ExpectedVersion: payload.ExpectedVersion, Items: items})
	if err != nil {
		shared.FailWorkflow(w, r, "devplan_update", err)
		return
	}
	api.Success(w, plan, middleware.GetRequestID(r.Context()))
}

func validateItem(v *shared.Validator, field string, item itemPayload) devplan.ItemInput {
	in := devplan.ItemInput{
		CurrentLevel:        item.CurrentLevel,
		TargetLevel:         item.TargetLevel,
		DevelopmentActivity: strings.TrimSpace(item.DevelopmentActivity),
		DevelopmentType:     strings.TrimSpace(item.DevelopmentType),
		StartDate:           strings.TrimSpace(item.StartDate),
		EndDate:             strings.TrimSpace(item.EndDate),
	}
	if item.ID != nil {
		v.PositiveID(field+".id", item.ID)
		in.ID = *item.ID
	} else {
		v.PositiveID(field+".competency_id", item.CompetencyID)
		v.Range(field+".current_level", item.CurrentLevel, 0, devplan.MaxLevel)
		v.Range(field+".target_level", item.TargetLevel, 0, devplan.MaxLevel)
	}
	if item.CompetencyID != nil {
		in.CompetencyID = *item.CompetencyID
	}
	start := v.OptionalDate(field+".start_date", in.StartDate)
	end := v.OptionalDate(field+".end_date", in.EndDate)
	v.DateOrder(field+".start_date", start, field+".end_date", end)
	return in
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

	plan, err := h.Service.Submit(r.Context(), id, payload.ExpectedVersion)
	if err != nil {
		shared.FailWorkflow(w, r, "devplan_submit", err)
		return
	}
	api.Success(w, plan, middleware.GetRequestID(r.Context()))
}
