package notifications

const (
	TypeLevelingCreated   = "leveling_created"
	TypeLevelingSubmitted = "leveling_submitted"
	TypeDevPlanCreated    = "devplan_created"
	TypeDevPlanSubmitted  = "devplan_submitted"
)
