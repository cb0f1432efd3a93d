package leveling

import (
	"fmt"

	"devcycle/internal/domain/workflow"
)

var (
	ErrNotFound          = workflow.ErrNotFound
	ErrItemNotFound      = workflow.ErrItemNotFound
	ErrInvalidInput      = workflow.ErrInvalidInput
	ErrVersionConflict   = workflow.ErrVersionConflict
	ErrDuplicate         = fmt.Errorf("%w: a leveling already exists for this employee and cycle", workflow.ErrConflict)
	ErrWeightsUnbalanced = fmt.Errorf("%w: item weights must sum to 100 before submission", workflow.ErrConflict)
)
