package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include query variables in spans (dev only)
	SlowQueryThresh time.Duration // default: 200ms
	DBSystem        string        // default: "postgresql"
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

type queryStartKey struct{}

// registrar is an ordered gorm callback waiting for its function
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

// RegisterDBTracing adds otelgorm spans to every query and logs the queries
// slower than the configured threshold.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, tp trace.TracerProvider, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled")
		return nil
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if tp != nil {
		opts = append(opts, otelgorm.WithTracerProvider(tp))
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		slowQuery(tx, cfg.SlowQueryThresh, logger)
	}

	cb := db.Callback()
	callbacks := []struct {
		name string
		r    registrar
		fn   func(*gorm.DB)
	}{
		{"telemetry:before_create", cb.Create().Before("gorm:create"), before},
		{"telemetry:before_query", cb.Query().Before("gorm:query"), before},
		{"telemetry:before_update", cb.Update().Before("gorm:update"), before},
		{"telemetry:before_delete", cb.Delete().Before("gorm:delete"), before},
		{"telemetry:before_row", cb.Row().Before("gorm:row"), before},
		{"telemetry:before_raw", cb.Raw().Before("gorm:raw"), before},
		{"telemetry:after_create", cb.Create().After("gorm:create"), after},
		{"telemetry:after_query", cb.Query().After("gorm:query"), after},
		{"telemetry:after_update", cb.Update().After("gorm:update"), after},
		{"telemetry:after_delete", cb.Delete().After("gorm:delete"), after},
		{"telemetry:after_row", cb.Row().After("gorm:row"), after},
		{"telemetry:after_raw", cb.Raw().After("gorm:raw"), after},
	}
	for _, c := range callbacks {
		if err := c.r.Register(c.name, c.fn); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func slowQuery(tx *gorm.DB, thresh time.Duration, logger *zap.Logger) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	if elapsed <= thresh {
		return
	}

	logger.Warn("Slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("duration", elapsed),
		zap.Int64("rows_affected", tx.Statement.RowsAffected),
		zap.Bool("failed", tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound)),
	)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.String("db.sql.table", tx.Statement.Table),
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
		))
	}
}
