package leveling

import (
	"time"

	"devcycle/internal/domain/workflow"
)

type Header struct {
	ID                 int64           `json:"id"`
	EmployeeID         int64           `json:"employee_id"`
	SupervisorID       int64           `json:"supervisor_id"`
	DepartmentID       int64           `json:"department_id"`
	CycleID            int64           `json:"cycle_id"`
	Status             workflow.Status `json:"status"`
	RequiresAMApproval bool            `json:"requires_am_approval"`
	Version            int64           `json:"version"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type Item struct {
	ID                     int64     `json:"id"`
	HeaderID               int64     `json:"cl_header_id"`
	CompetencyID           int64     `json:"competency_id"`
	CompetencyName         string    `json:"competency_name"`
	MPLRLevel              int       `json:"mplr_level"`
	AssignedLevel          int       `json:"assigned_level"`
	Weight                 int       `json:"weight"`
	Justification          string    `json:"justification"`
	Score                  Score     `json:"score"`
	SupportingDocumentPath string    `json:"supporting_document_path,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Leveling is a header with its items and the scorecard totals.
type Leveling struct {
	Header
	Items       []Item `json:"items"`
	TotalWeight int    `json:"total_weight"`
	TotalScore  Score  `json:"total_score"`
}

type CreateInput struct {
	EmployeeID   int64
	SupervisorID int64
	DepartmentID int64
	CycleID      int64
}

type ItemUpdate struct {
	ID            int64
	AssignedLevel int
	Weight        int
	Justification string
}

type UpdateInput struct {
	// ExpectedVersion, when positive, must match the stored header version.
	ExpectedVersion int64
	Items           []ItemUpdate
}

type ListFilter struct {
	EmployeeID   int64
	SupervisorID int64
	CycleID      int64
	Status       string
	Limit        int
	Offset       int
}

type ListResult struct {
	Headers []Header
	Total   int
}

func newLeveling(header Header, items []Item) Leveling {
	if items == nil {
		items = []Item{}
	}
	totalWeight, totalScore := Summarize(items)
	return Leveling{Header: header, Items: items, TotalWeight: totalWeight, TotalScore: totalScore}
}
