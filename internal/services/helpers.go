package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"siteworks/internal/observability"

	contextutils "siteworks/internal/utils"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rollbackUnlessDone is deferred after BeginTx; it is a no-op once the transaction committed
func rollbackUnlessDone(ctx context.Context, tx *sql.Tx, logger *observability.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Warn(ctx, "Failed to rollback transaction", map[string]interface{}{"error": err.Error()})
	}
}

// validateCoordinates accepts either no coordinates or a complete in-range pair
func validateCoordinates(lat, lon *float64) error {
	if lat == nil && lon == nil {
		return nil
	}
	if lat == nil || lon == nil {
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"latitude and longitude must be given together", "")
	}
	if *lat < -90 || *lat > 90 {
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"latitude out of range", "latitude must be within [-90, 90]")
	}
	if *lon < -180 || *lon > 180 {
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			"longitude out of range", "longitude must be within [-180, 180]")
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
