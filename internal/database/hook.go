package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// queryHook is a bun.QueryHook that logs query timing with zap.
// Expected no-row results stay at debug level.
type queryHook struct {
	logger *zap.Logger
}

func newQueryHook(logger *zap.Logger) *queryHook {
	return &queryHook{logger: logger.Named("query")}
}

func (h *queryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)

	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.logger.Error("Query failed",
			zap.String("query", event.Query),
			zap.Duration("elapsed", elapsed),
			zap.Error(event.Err))

		return
	}

	h.logger.Debug("Query completed",
		zap.String("query", event.Query),
		zap.Duration("elapsed", elapsed))
}
