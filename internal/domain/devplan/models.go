package devplan

import (
	"time"

	"devcycle/internal/domain/workflow"
)

type Header struct {
	ID           int64           `json:"id"`
	CLHeaderID   int64           `json:"cl_header_id"`
	EmployeeID   int64           `json:"employee_id"`
	SupervisorID int64           `json:"supervisor_id"`
	CycleID      int64           `json:"cycle_id"`
	Status       workflow.Status `json:"status"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Item struct {
	ID                  int64           `json:"id"`
	HeaderID            int64           `json:"idp_header_id"`
	CompetencyID        int64           `json:"competency_id"`
	CompetencyName      string          `json:"competency_name"`
	CurrentLevel        int             `json:"current_level"`
	TargetLevel         int             `json:"target_level"`
	DevelopmentActivity string          `json:"development_activity"`
	DevelopmentType     string          `json:"development_type"`
	StartDate           string          `json:"start_date,omitempty"`
	EndDate             string          `json:"end_date,omitempty"`
	Status              workflow.Status `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type Plan struct {
	Header
	Items []Item `json:"items"`
}

type CreateInput struct {
	CLHeaderID   int64
	EmployeeID   int64
	SupervisorID int64
	CycleID      int64
}

// ItemInput updates the item with ID in place, or inserts a new item when ID
// is zero. Dates are YYYY-MM-DD or empty.
type ItemInput struct {
	ID                  int64
	CompetencyID        int64
	CurrentLevel        int
	TargetLevel         int
	DevelopmentActivity string
	DevelopmentType     string
	StartDate           string
	EndDate             string
}

type UpdateInput struct {
	ExpectedVersion int64
	Items           []ItemInput
}

type ListFilter struct {
	EmployeeID   int64
	SupervisorID int64
	CycleID      int64
	CLHeaderID   int64
	Status       string
	Limit        int
	Offset       int
}

type ListResult struct {
	Headers []Header
	Total   int
}

// UpdateSummary counts what a batch did.
type UpdateSummary struct {
	Inserted  int
	Updated   int
	Unmatched int
}
