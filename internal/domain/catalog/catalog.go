// Package catalog reads the externally owned position and competency tables.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"devcycle/internal/platform/querier"
)

// Requirement is one competency mapped to a position with its required level.
type Requirement struct {
	CompetencyID  int64
	RequiredLevel int
}

// EmployeePosition returns the employee's position id, or 0 when the employee
// is unknown or holds no position.
func EmployeePosition(ctx context.Context, q querier.Querier, employeeID int64) (int64, error) {
	var positionID int64
	err := q.QueryRow(ctx, "SELECT COALESCE(position_id, 0) FROM users WHERE id = $1", employeeID).Scan(&positionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup employee position: %w", err)
	}
	return positionID, nil
}

// PositionRequirements lists the competencies mapped to a position, ordered
// by competency id.
func PositionRequirements(ctx context.Context, q querier.Querier, positionID int64) ([]Requirement, error) {
	rows, err := q.Query(ctx, `
    SELECT competency_id, required_level
    FROM position_competencies
    WHERE position_id = $1
    ORDER BY competency_id
  `, positionID)
	if err != nil {
		return nil, fmt.Errorf("list position competencies: %w", err)
	}
	defer rows.Close()

	var out []Requirement
	for rows.Next() {
		var req Requirement
		if err := rows.Scan(&req.CompetencyID, &req.RequiredLevel); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// EmployeeRequirements combines both lookups. An employee without a position
// yields no requirements.
func EmployeeRequirements(ctx context.Context, q querier.Querier, employeeID int64) ([]Requirement, error) {
	positionID, err := EmployeePosition(ctx, q, employeeID)
	if err != nil || positionID == 0 {
		return nil, err
	}
	return PositionRequirements(ctx, q, positionID)
}
