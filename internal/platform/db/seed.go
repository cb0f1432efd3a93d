package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"devcycle/internal/platform/querier"
)

type seedCompetency struct {
	Name          string
	RequiredLevel int
}

var demoCompetencies = []seedCompetency{
	{Name: "Technical Expertise", RequiredLevel: 3},
	{Name: "Communication", RequiredLevel: 2},
	{Name: "Ownership", RequiredLevel: 3},
}

// Seed loads a small demo catalog: one position mapped to a few competencies,
// an employee holding that position and a supervisor. Safe to run repeatedly.
func Seed(ctx context.Context, pool querier.Pool) error {
	return WithTx(ctx, pool, func(tx querier.Querier) error {
		positionID, err := ensurePosition(ctx, tx, "Software Engineer")
		if err != nil {
			return err
		}

		for _, c := range demoCompetencies {
			competencyID, err := ensureCompetency(ctx, tx, c.Name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
        INSERT INTO position_competencies (position_id, competency_id, required_level)
        VALUES ($1,$2,$3)
        ON CONFLICT (position_id, competency_id) DO NOTHING
      `, positionID, competencyID, c.RequiredLevel); err != nil {
				return err
			}
		}

		if err := ensureUser(ctx, tx, "Demo Supervisor", "supervisor@example.com", 0); err != nil {
			return err
		}
		return ensureUser(ctx, tx, "Demo Employee", "employee@example.com", positionID)
	})
}

func ensurePosition(ctx context.Context, q querier.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, "SELECT id FROM positions WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = q.QueryRow(ctx, "INSERT INTO positions (name) VALUES ($1) RETURNING id", name).Scan(&id)
	return id, err
}

func ensureCompetency(ctx context.Context, q querier.Querier, name string) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, "SELECT id FROM competencies WHERE name = $1", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = q.QueryRow(ctx, "INSERT INTO competencies (name) VALUES ($1) RETURNING id", name).Scan(&id)
	return id, err
}

func ensureUser(ctx context.Context, q querier.Querier, name, email string, positionID int64) error {
	var count int
	if err := q.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE email = $1", email).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	var position any
	if positionID > 0 {
		position = positionID
	}
	_, err := q.Exec(ctx, "INSERT INTO users (name, email, position_id) VALUES ($1,$2,$3)", name, email, position)
	return err
}
