package workflow

import "context"

const (
	EntityLeveling = "cl_header"
	EntityDevPlan  = "idp_header"
)

const (
	ActionLevelingCreated   = "leveling.created"
	ActionLevelingUpdated   = "leveling.updated"
	ActionLevelingSubmitted = "leveling.submitted"
	ActionDevPlanCreated    = "devplan.created"
	ActionDevPlanUpdated    = "devplan.updated"
	ActionDevPlanSubmitted  = "devplan.submitted"
)

// Event describes a committed workflow mutation.
type Event struct {
	Action       string
	EntityType   string
	EntityID     int64
	EmployeeID   int64
	SupervisorID int64
	ActorID      int64
	RequestID    string
	Details      map[string]any
}

// Emitter receives events after commit. Implementations must not block the
// caller and must swallow their own failures.
type Emitter interface {
	Emit(ctx context.Context, evt Event)
}

type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) {}
