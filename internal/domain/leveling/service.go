package leveling

import (
	"context"
	"fmt"
	"log/slog"

	"devcycle/internal/domain/catalog"
	"devcycle/internal/domain/workflow"
	"devcycle/internal/platform/db"
	"devcycle/internal/platform/metrics"
	"devcycle/internal/platform/querier"
	"devcycle/internal/requestctx"
)

type Options struct {
	// StrictItemMatch turns an item id that does not belong to the header
	// into ErrItemNotFound instead of a silent no-op.
	StrictItemMatch bool
	// RequireBalancedWeights rejects Submit unless item weights sum to 100.
	RequireBalancedWeights bool
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

// Create inserts a DRAFT header and one item per competency mapped to the
// employee's position. An employee without a position gets an empty leveling.
func (s *Service) Create(ctx context.Context, in CreateInput) (id int64, err error) {
	defer func() { s.Metrics.ObserveOperation("leveling.create", err) }()

	if in.EmployeeID <= 0 || in.SupervisorID <= 0 || in.DepartmentID <= 0 || in.CycleID <= 0 {
		return 0, fmt.Errorf("%w: employee, supervisor, department and cycle are required", ErrInvalidInput)
	}

	var preloaded int
	err = db.WithTx(ctx, s.DB, func(tx querier.Querier) error {
		headerID, err := insertHeader(ctx, tx, in)
		if err != nil {
			return err
		}
		reqs, err := catalog.EmployeeRequirements(ctx, tx, in.EmployeeID)
		if err != nil {
			return err
		}
		for _, req := range reqs {
			if err := insertPreloadedItem(ctx, tx, headerID, req); err != nil {
				return err
			}
		}
		id = headerID
		preloaded = len(reqs)
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}

	s.emit(ctx, workflow.ActionLevelingCreated, Header{ID: id, EmployeeID: in.EmployeeID, SupervisorID: in.SupervisorID}, map[string]any{
		"cycle_id": in.CycleID,
		"items":    preloaded,
	})
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Leveling, error) {
	if id <= 0 {
		return Leveling{}, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	return load(ctx, s.DB, id)
}

// Update applies a partial batch of item edits. Items not named are left
// untouched; the header timestamp and version move even when nothing matched.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (out Leveling, err error) {
	defer func() { s.Metrics.ObserveOperation("leveling.update", err) }()

	if err := validateUpdate(id, in); err != nil {
		return Leveling{}, err
	}

	matched := 0
	err = db.WithTx(ctx, s.DB, func(tx querier.Querier) error {
		version, _, err := lockHeader(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.ExpectedVersion > 0 && in.ExpectedVersion != version {
			return ErrVersionConflict
		}
		for _, item := range in.Items {
			ok, err := updateItem(ctx, tx, id, item)
			if err != nil {
				return err
			}
			if !ok {
				if s.Options.StrictItemMatch {
					return fmt.Errorf("%w: item %d", ErrItemNotFound, item.ID)
				}
				slog.Debug("cl item not on header", "headerId", id, "itemId", item.ID)
				continue
			}
			matched++
		}
		if err := touchHeader(ctx, tx, id); err != nil {
			return err
		}
		out, err = load(ctx, tx, id)
		return err
	})
	if err != nil {
		return Leveling{}, err
	}

	s.emit(ctx, workflow.ActionLevelingUpdated, out.Header, map[string]any{
		"items":   len(in.Items),
		"matched": matched,
	})
	return out, nil
}

// Submit moves the header to PENDING_AM. Resubmitting is allowed and emits
// no second event.
func (s *Service) Submit(ctx context.Context, id, expectedVersion int64) (out Leveling, err error) {
	defer func() { s.Metrics.ObserveOperation("leveling.submit", err) }()

	if id <= 0 {
		return Leveling{}, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
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

		if s.Options.RequireBalancedWeights {
			count, total, err := weightSummary(ctx, tx, id)
			if err != nil {
				return err
			}
			if count == 0 || total != MaxWeight {
				return fmt.Errorf("%w (got %d across %d items)", ErrWeightsUnbalanced, total, count)
			}
		}

		if err := setStatus(ctx, tx, id, workflow.StatusPendingAM); err != nil {
			return err
		}
		out, err = load(ctx, tx, id)
		return err
	})
	if err != nil {
		return Leveling{}, err
	}

	if previous != workflow.StatusPendingAM {
		s.emit(ctx, workflow.ActionLevelingSubmitted, out.Header, map[string]any{
			"from":        string(previous),
			"total_score": out.TotalScore.String(),
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
	for _, item := range in.Items {
		if item.ID <= 0 {
			return fmt.Errorf("%w: item id must be positive", ErrInvalidInput)
		}
		if item.Weight < 0 || item.Weight > MaxWeight {
			return fmt.Errorf("%w: item %d weight must be between 0 and %d", ErrInvalidInput, item.ID, MaxWeight)
		}
		if item.AssignedLevel < 0 || item.AssignedLevel > MaxLevel {
			return fmt.Errorf("%w: item %d assigned level must be between 0 and %d", ErrInvalidInput, item.ID, MaxLevel)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action string, h Header, details map[string]any) {
	if s.Events == nil {
		return
	}
	s.Events.Emit(ctx, workflow.Event{
		Action:       action,
		EntityType:   workflow.EntityLeveling,
		EntityID:     h.ID,
		EmployeeID:   h.EmployeeID,
		SupervisorID: h.SupervisorID,
		ActorID:      requestctx.GetActorID(ctx),
		RequestID:    requestctx.GetRequestID(ctx),
		Details:      details,
	})
}
