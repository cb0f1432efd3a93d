package devplan

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"devcycle/internal/domain/workflow"
	"devcycle/internal/platform/querier"
)

const headerColumns = "id, cl_header_id, employee_id, supervisor_id, cycle_id, status, version, created_at, updated_at"

func levelingExists(ctx context.Context, q querier.Querier, clHeaderID int64) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM cl_headers WHERE id = $1)", clHeaderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cl header: %w", err)
	}
	return exists, nil
}

func insertHeader(ctx context.Context, q querier.Querier, in CreateInput) (int64, error) {
	var id int64
	if err := q.QueryRow(ctx, `
    INSERT INTO idp_headers (cl_header_id, employee_id, supervisor_id, cycle_id, status)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, in.CLHeaderID, in.EmployeeID, in.SupervisorID, in.CycleID, string(workflow.StatusDraft)).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert idp header: %w", err)
	}
	return id, nil
}

func getHeader(ctx context.Context, q querier.Querier, id int64) (Header, error) {
	var h Header
	var status string
	err := q.QueryRow(ctx, "SELECT "+headerColumns+" FROM idp_headers WHERE id = $1", id).
		Scan(&h.ID, &h.CLHeaderID, &h.EmployeeID, &h.SupervisorID, &h.CycleID, &status, &h.Version, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Header{}, ErrNotFound
	}
	if err != nil {
		return Header{}, fmt.Errorf("get idp header: %w", err)
	}
	h.Status = workflow.Status(status)
	return h, nil
}

func listItems(ctx context.Context, q querier.Querier, headerID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `
    SELECT i.id, i.idp_header_id, i.competency_id, COALESCE(c.name, ''), i.current_level, i.target_level,
           i.development_activity, i.development_type,
           COALESCE(to_char(i.start_date, 'YYYY-MM-DD'), ''), COALESCE(to_char(i.end_date, 'YYYY-MM-DD'), ''),
           i.status, i.created_at, i.updated_at
    FROM idp_items i
    LEFT JOIN competencies c ON c.id = i.competency_id
    WHERE i.idp_header_id = $1
    ORDER BY i.id
  `, headerID)
	if err != nil {
		return nil, fmt.Errorf("list idp items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var item Item
		var status string
		if err := rows.Scan(&item.ID, &item.HeaderID, &item.CompetencyID, &item.CompetencyName, &item.CurrentLevel, &item.TargetLevel,
			&item.DevelopmentActivity, &item.DevelopmentType, &item.StartDate, &item.EndDate,
			&status, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		item.Status = workflow.Status(status)
		items = append(items, item)
	}
	return items, rows.Err()
}

func load(ctx context.Context, q querier.Querier, id int64) (Plan, error) {
	header, err := getHeader(ctx, q, id)
	if err != nil {
		return Plan{}, err
	}
	items, err := listItems(ctx, q, id)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Header: header, Items: items}, nil
}

func lockHeader(ctx context.Context, q querier.Querier, id int64) (int64, workflow.Status, error) {
	var version int64
	var status string
	err := q.QueryRow(ctx, "SELECT version, status FROM idp_headers WHERE id = $1 FOR UPDATE", id).Scan(&version, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("lock idp header: %w", err)
	}
	return version, workflow.Status(status), nil
}

// updateItem only touches the activity fields; levels and competency are
// fixed once an item exists.
func updateItem(ctx context.Context, q querier.Querier, headerID int64, item ItemInput) (bool, error) {
	tag, err := q.Exec(ctx, `
    UPDATE idp_items
    SET development_activity = $1, development_type = $2,
        start_date = NULLIF($3, '')::date, end_date = NULLIF($4, '')::date, updated_at = now()
    WHERE id = $5 AND idp_header_id = $6
  `, item.DevelopmentActivity, item.DevelopmentType, item.StartDate, item.EndDate, item.ID, headerID)
	if err != nil {
		return false, fmt.Errorf("update idp item %d: %w", item.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func insertItem(ctx context.Context, q querier.Querier, headerID int64, item ItemInput) error {
	_, err := q.Exec(ctx, `
    INSERT INTO idp_items (idp_header_id, competency_id, current_level, target_level, development_activity, development_type, start_date, end_date, status)
    VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7, '')::date,NULLIF($8, '')::date,$9)
  `, headerID, item.CompetencyID, item.CurrentLevel, item.TargetLevel, item.DevelopmentActivity, item.DevelopmentType,
		item.StartDate, item.EndDate, string(workflow.ItemStatusNotStarted))
	if err != nil {
		return fmt.Errorf("insert idp item for competency %d: %w", item.CompetencyID, err)
	}
	return nil
}

func touchHeader(ctx context.Context, q querier.Querier, id int64) error {
	if _, err := q.Exec(ctx, "UPDATE idp_headers SET updated_at = now(), version = version + 1 WHERE id = $1", id); err != nil {
		return fmt.Errorf("touch idp header: %w", err)
	}
	return nil
}

func setStatus(ctx context.Context, q querier.Querier, id int64, status workflow.Status) error {
	if _, err := q.Exec(ctx, "UPDATE idp_headers SET status = $1, updated_at = now(), version = version + 1 WHERE id = $2", string(status), id); err != nil {
		return fmt.Errorf("set idp header status: %w", err)
	}
	return nil
}

func buildListQuery(prefix string, f ListFilter) (string, []any) {
	query := prefix + " FROM idp_headers WHERE 1=1"
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", column, len(args))
	}
	if f.EmployeeID > 0 {
		add("employee_id", f.EmployeeID)
	}
	if f.SupervisorID > 0 {
		add("supervisor_id", f.SupervisorID)
	}
	if f.CycleID > 0 {
		add("cycle_id", f.CycleID)
	}
	if f.CLHeaderID > 0 {
		add("cl_header_id", f.CLHeaderID)
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	return query, args
}

func countHeaders(ctx context.Context, q querier.Querier, f ListFilter) (int, error) {
	query, args := buildListQuery("SELECT COUNT(1)", f)
	var total int
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count idp headers: %w", err)
	}
	return total, nil
}

func listHeaders(ctx context.Context, q querier.Querier, f ListFilter) ([]Header, error) {
	query, args := buildListQuery("SELECT "+headerColumns, f)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list idp headers: %w", err)
	}
	defer rows.Close()

	headers := []Header{}
	for rows.Next() {
		var h Header
		var status string
		if err := rows.Scan(&h.ID, &h.CLHeaderID, &h.EmployeeID, &h.SupervisorID, &h.CycleID, &status, &h.Version, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.Status = workflow.Status(status)
		headers = append(headers, h)
	}
	return headers, rows.Err()
}
