package workflow

// Status is the open-ended status text shared by CL and IDP headers and IDP
// items. Values outside the known set come from other parts of the approval
// chain and are carried through unchanged.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPendingAM Status = "PENDING_AM"

	ItemStatusNotStarted Status = "NOT_STARTED"
)

func (s Status) Known() bool {
	switch s {
	case StatusDraft, StatusPendingAM, ItemStatusNotStarted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
