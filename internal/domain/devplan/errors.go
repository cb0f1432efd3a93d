package devplan

import (
	"fmt"

	"devcycle/internal/domain/workflow"
)

var (
	ErrNotFound        = workflow.ErrNotFound
	ErrItemNotFound    = workflow.ErrItemNotFound
	ErrInvalidInput    = workflow.ErrInvalidInput
	ErrVersionConflict = workflow.ErrVersionConflict
	ErrCLNotFound      = fmt.Errorf("%w: referenced competency leveling does not exist", workflow.ErrNotFound)
	ErrPlanExists      = fmt.Errorf("%w: a development plan already exists for this leveling", workflow.ErrConflict)
)
