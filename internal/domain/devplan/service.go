package devplan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"devcycle/internal/domain/workflow"
	"devcycle/internal/platform/db"
	"devcycle/internal/platform/metrics"
	"devcycle/internal/platform/querier"
	"devcycle/internal/requestctx"
)

const (
	MaxLevel   = 255
	dateLayout = "2006-01-02"
)

type Options struct {
	StrictItemMatch bool
}

type Service struct {
	DB      querier.Pool
	Events  workflow.Emitter
	Metrics *metrics.Collector
	Options Options
}

func NewService(pool querier.Pool, events workflow.Emitter, m *metrics.Collector, opts Options) *Service {
	if events == nil {
		events = workflow.NopEmitter{}
	}
	return &Service{DB: pool, Events: events, Metrics: m, Options: opts}
}

// Create starts an empty DRAFT plan for an existing leveling. Each leveling
// has at most one plan.
func (s *Service) Create(ctx context.Context, in CreateInput) (id int64, err error) {
	defer func() { s.Metrics.ObserveOperation("devplan.create", err) }()

	if in.CLHeaderID <= 0 || in.EmployeeID <= 0 || in.SupervisorID <= 0 || in.CycleID <= 0 {
		return 0, fmt.Errorf("%w: leveling, employee, supervisor and cycle are required", ErrInvalidInput)
	}

	err = db.WithTx(ctx, s.DB, func(tx querier.Querier) error {
		exists, err := levelingExists(ctx, tx, in.CLHeaderID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrCLNotFound
		}
		id, err = insertHeader(ctx, tx, in)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrPlanExists
		}
		return 0, err
	}

	s.emit(ctx, workflow.ActionDevPlanCreated, Header{ID: id, EmployeeID: in.EmployeeID, SupervisorID: in.SupervisorID}, map[string]any{
		"cl_header_id": in.CLHeaderID,
		"cycle_id":     in.CycleID,
	})
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Plan, error) {
	if id <= 0 {
		return Plan{}, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	return load(ctx, s.DB, id)
}

// Update reconciles a batch of items: entries with an id are updated in place
// when they belong to the plan, entries without one are inserted.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (out Plan, err error) {
	defer func() { s.Metrics.ObserveOperation("devplan.update", err) }()

	if err := validateUpdate(id, in); err != nil {
		return Plan{}, err
	}

	var summary UpdateSummary
	err = db.WithTx(ctx, s.DB, func(tx querier.Querier) error {
		version, _, err := lockHeader(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion > 0 && in.ExpectedVersion != version {
			return ErrVersionConflict
		}
		for _, item := range in.Items {
			if item.ID == 0 {
				if err := insertItem(ctx, tx, id, item); err != nil {
					return err
				}
				summary.Inserted++
				continue
			}
			ok, err := updateItem(ctx, tx, id, item)
			if err != nil {
				return err
			}
			if !ok {
				if s.Options.StrictItemMatch {
					return fmt.Errorf("%w: item %d", ErrItemNotFound, item.ID)
				}
				slog.Debug("idp item not on header", "headerId", id, "itemId", item.ID)
				summary.Unmatched++
				continue
			}
			summary.Updated++
		}
		if err := touchHeader(ctx, tx, id); err != nil {
			return err
		}
		out, err = load(ctx, tx, id)
		return err
	})
	if err != nil {
		return Plan{}, err
	}

	s.emit(ctx, workflow.ActionDevPlanUpdated, out.Header, map[string]any{
		"inserted":  summary.Inserted,
		"updated":   summary.Updated,
		"unmatched": summary.Unmatched,
	})
	return out, nil
}

// Submit moves the plan to PENDING_AM; resubmission is a no-op for events.
func (s *Service) Submit(ctx context.Context, id, expectedVersion int64) (out Plan, err error) {
	defer func() { s.Metrics.ObserveOperation("devplan.submit", err) }()

	if id <= 0 {
		return Plan{}, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}

	var previous workflow.Status
	err = db.WithTx(ctx, s.DB, func(tx querier.Querier) error {
		version, status, err := lockHeader(ctx, tx, id)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && expectedVersion != version {
			return ErrVersionConflict
		}
		previous = status
		if err := setStatus(ctx, tx, id, workflow.StatusPendingAM); err != nil {
			return err
		}
		out, err = load(ctx, tx, id)
		return err
	})
	if err != nil {
		return Plan{}, err
	}

	if previous != workflow.StatusPendingAM {
		s.emit(ctx, workflow.ActionDevPlanSubmitted, out.Header, map[string]any{
			"from":  string(previous),
			"items": len(out.Items),
		})
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) (ListResult, error) {
	total, err := countHeaders(ctx, s.DB, f)
	if err != nil {
		return ListResult{}, err
	}
	headers, err := listHeaders(ctx, s.DB, f)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Headers: headers, Total: total}, nil
}

func validateUpdate(id int64, in UpdateInput) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	for i, item := range in.Items {
		if item.ID < 0 {
			return fmt.Errorf("%w: item %d id must be positive", ErrInvalidInput, i)
		}
		if item.ID == 0 && item.CompetencyID <= 0 {
			return fmt.Errorf("%w: item %d needs a competency", ErrInvalidInput, i)
		}
		if item.CurrentLevel < 0 || item.CurrentLevel > MaxLevel || item.TargetLevel < 0 || item.TargetLevel > MaxLevel {
			return fmt.Errorf("%w: item %d levels must be between 0 and %d", ErrInvalidInput, i, MaxLevel)
		}
		start, err := parseDate(item.StartDate)
		if err != nil {
			return fmt.Errorf("%w: item %d start date: %v", ErrInvalidInput, i, err)
		}
		end, err := parseDate(item.EndDate)
		if err != nil {
			return fmt.Errorf("%w: item %d end date: %v", ErrInvalidInput, i, err)
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			return fmt.Errorf("%w: item %d ends before it starts", ErrInvalidInput, i)
		}
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, raw)
}

func (s *Service) emit(ctx context.Context, action string, h Header, details map[string]any) {
	if s.Events == nil {
		return
	}
	s.Events.Emit(ctx, workflow.Event{
		Action:       action,
		EntityType:   workflow.EntityDevPlan,
		EntityID:     h.ID,
		EmployeeID:   h.EmployeeID,
		SupervisorID: h.SupervisorID,
		ActorID:      requestctx.GetActorID(ctx),
		RequestID:    requestctx.GetRequestID(ctx),
		Details:      details,
	})
}
