package leveling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"devcycle/internal/domain/catalog"
	"devcycle/internal/domain/workflow"
	"devcycle/internal/platform/querier"
)

const headerColumns = "id, employee_id, supervisor_id, department_id, cycle_id, status, requires_am_approval, version, created_at, updated_at"

func insertHeader(ctx context.Context, q querier.Querier, in CreateInput) (int64, error) {
	var id int64
	if err := q.QueryRow(ctx, `
    INSERT INTO cl_headers (employee_id, supervisor_id, department_id, cycle_id, status, requires_am_approval)
    VALUES ($1,$2,$3,$4,$5,false)
    RETURNING id
  `, in.EmployeeID, in.SupervisorID, in.DepartmentID, in.CycleID, string(workflow.StatusDraft)).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert cl header: %w", err)
	}
	return id, nil
}

// insertPreloadedItem seeds an item from a position requirement: assigned
// level starts at the required level, weight and score at zero.
func insertPreloadedItem(ctx context.Context, q querier.Querier, headerID int64, req catalog.Requirement) error {
	_, err := q.Exec(ctx, `
    INSERT INTO cl_items (cl_header_id, competency_id, mplr_level, assigned_level, weight, justification, score)
    VALUES ($1,$2,$3,$3,0,'',0)
  `, headerID, req.CompetencyID, req.RequiredLevel)
	if err != nil {
		return fmt.Errorf("insert cl item for competency %d: %w", req.CompetencyID, err)
	}
	return nil
}

func getHeader(ctx context.Context, q querier.Querier, id int64) (Header, error) {
	var h Header
	var status string
	err := q.QueryRow(ctx, "SELECT "+headerColumns+" FROM cl_headers WHERE id = $1", id).
		Scan(&h.ID, &h.EmployeeID, &h.SupervisorID, &h.DepartmentID, &h.CycleID, &status, &h.RequiresAMApproval, &h.Version, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Header{}, ErrNotFound
	}
	if err != nil {
		return Header{}, fmt.Errorf("get cl header: %w", err)
	}
	h.Status = workflow.Status(status)
	return h, nil
}

func listItems(ctx context.Context, q querier.Querier, headerID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
    SELECT i.id, i.cl_header_id, i.competency_id, COALESCE(c.name, ''), i.mplr_level, i.assigned_level, i.weight,
           i.justification, (i.score * 100)::bigint, COALESCE(i.supporting_document_path, ''), i.created_at, i.updated_at
    FROM cl_items i
    LEFT JOIN competencies c ON c.id = i.competency_id
    WHERE i.cl_header_id = $1
    ORDER BY i.id
  `, headerID)
	if err != nil {
		return nil, fmt.Errorf("list cl items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var score int64
		if err := rows.Scan(&item.ID, &item.HeaderID, &item.CompetencyID, &item.CompetencyName, &item.MPLRLevel, &item.AssignedLevel, &item.Weight,
			&item.Justification, &score, &item.SupportingDocumentPath, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.Score = Score(score)
		items = append(items, item)
	}
	return items, rows.Err()
}

func load(ctx context.Context, q querier.Querier, id int64) (Leveling, error) {
	header, err := getHeader(ctx, q, id)
	if err != nil {
		return Leveling{}, err
	}
	items, err := listItems(ctx, q, id)
	if err != nil {
		return Leveling{}, err
	}
	return newLeveling(header, items), nil
}

// lockHeader takes a row lock on the header for the rest of the transaction.
func lockHeader(ctx context.Context, q querier.Querier, id int64) (int64, workflow.Status, error) {
	var version int64
	var status string
	err := q.QueryRow(ctx, "SELECT version, status FROM cl_headers WHERE id = $1 FOR UPDATE", id).Scan(&version, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("lock cl header: %w", err)
	}
	return version, workflow.Status(status), nil
}

// updateItem writes the evaluator fields and the derived score in one
// statement. The score is bound as hundredths from the same weight and level
// written alongside it.
func updateItem(ctx context.Context, q querier.Querier, headerID int64, item ItemUpdate) (bool, error) {
	score := ComputeScore(item.Weight, item.AssignedLevel)
	tag, err := q.Exec(ctx, `
    UPDATE cl_items
    SET assigned_level = $1, weight = $2, justification = $3, score = $4::numeric / 100, updated_at = now()
    WHERE id = $5 AND cl_header_id = $6
  `, item.AssignedLevel, item.Weight, item.Justification, score.Hundredths(), item.ID, headerID)
	if err != nil {
		return false, fmt.Errorf("update cl item %d: %w", item.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func touchHeader(ctx context.Context, q querier.Querier, id int64) error {
	if _, err := q.Exec(ctx, "UPDATE cl_headers SET updated_at = now(), version = version + 1 WHERE id = $1", id); err != nil {
		return fmt.Errorf("touch cl header: %w", err)
	}
	return nil
}

func setStatus(ctx context.Context, q querier.Querier, id int64, status workflow.Status) error {
	if _, err := q.Exec(ctx, "UPDATE cl_headers SET status = $1, updated_at = now(), version = version + 1 WHERE id = $2", string(status), id); err != nil {
		return fmt.Errorf("set cl header status: %w", err)
	}
	return nil
}

func weightSummary(ctx context.Context, q querier.Querier, id int64) (int64, int64, error) {
	var count, total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(1), COALESCE(SUM(weight), 0) FROM cl_items WHERE cl_header_id = $1", id).Scan(&count, &total); err != nil {
		return 0, 0, fmt.Errorf("sum cl item weights: %w", err)
	}
	return count, total, nil
}

func buildListQuery(prefix string, f ListFilter) (string, []any) {
	query := prefix + " FROM cl_headers WHERE 1=1"
	var args []any
	if f.EmployeeID > 0 {
		args = append(args, f.EmployeeID)
		query += fmt.Sprintf(" AND employee_id = $%d", len(args))
	}
	if f.SupervisorID > 0 {
		args = append(args, f.SupervisorID)
		query += fmt.Sprintf(" AND supervisor_id = $%d", len(args))
	}
	if f.CycleID > 0 {
		args = append(args, f.CycleID)
		query += fmt.Sprintf(" AND cycle_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	return query, args
}

func countHeaders(ctx context.Context, q querier.Querier, f ListFilter) (int, error) {
	query, args := buildListQuery("SELECT COUNT(1)", f)
	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count cl headers: %w", err)
	}
	return total, nil
}

func listHeaders(ctx context.Context, q querier.Querier, f ListFilter) ([]Header, error) {
	query, args := buildListQuery("SELECT "+headerColumns, f)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cl headers: %w", err)
	}
	defer rows.Close()

	headers := []Header{}
	for rows.Next() {
		var h Header
		var status string
		if err := rows.Scan(&h.ID, &h.EmployeeID, &h.SupervisorID, &h.DepartmentID, &h.CycleID, &status, &h.RequiresAMApproval, &h.Version, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.Status = workflow.Status(status)
		headers = append(headers, h)
	}
	return headers, rows.Err()
}
