package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"devcycle/internal/platform/querier"
)

// RollbackTimeout bounds the rollback issued after a failed unit of work.
var RollbackTimeout = 5 * time.Second

// WithTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back exactly once otherwise, including when fn panics or ctx
// has been cancelled. Rollback runs on a context detached from ctx.
func WithTx(ctx context.Context, pool querier.Pool, fn func(tx querier.Querier) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	finished := false
	defer func() {
		if !finished {
			rollback(ctx, tx)
		}
	}()

	if err := fn(tx); err != nil {
		finished = true
		rollback(ctx, tx)
		return err
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RollbackTimeout)
	defer cancel()
	if err := tx.Rollback(rbCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		slog.Warn("tx rollback failed", "err", err)
	}
}
