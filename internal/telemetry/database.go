package telemetry

import (
	"errors"
	"strings"
	"time"

	"github.com/zfogg/unify/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SlowQueryThreshold is the duration above which statements are logged
const SlowQueryThreshold = 250 * time.Millisecond

const (
	spanKey  = "telemetry:span"
	startKey = "telemetry:start"

	maxStatementLen = 500
)

// GORMTracingPlugin wraps every gorm statement in a span named after its SQL
// verb and logs statements slower than SlowQueryThreshold
func GORMTracingPlugin() gorm.Plugin {
	return newGORMTracer(SlowQueryThreshold)
}

type gormTracer struct {
	tracer trace.Tracer
	slow   time.Duration
}

func newGORMTracer(slow time.Duration) *gormTracer {
	return &gormTracer{tracer: otel.Tracer(ServiceName + "/gorm"), slow: slow}
}

func (t *gormTracer) Name() string { return "telemetry:tracing" }

func (t *gormTracer) Initialize(db *gorm.DB) error {
	const before, after = "telemetry:before", "telemetry:after"
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register(before, t.before),
		cb.Create().After("gorm:create").Register(after, t.after),
		cb.Query().Before("gorm:query").Register(before, t.before),
		cb.Query().After("gorm:query").Register(after, t.after),
		cb.Update().Before("gorm:update").Register(before, t.before),
		cb.Update().After("gorm:update").Register(after, t.after),
		cb.Delete().Before("gorm:delete").Register(before, t.before),
		cb.Delete().After("gorm:delete").Register(after, t.after),
		cb.Row().Before("gorm:row").Register(before, t.before),
		cb.Row().After("gorm:row").Register(after, t.after),
		cb.Raw().Before("gorm:raw").Register(before, t.before),
		cb.Raw().After("gorm:raw").Register(after, t.after),
	)
}

// before starts a provisional span; after renames it once the SQL is known
func (t *gormTracer) before(db *gorm.DB) {
	db.InstanceSet(startKey, time.Now())
	if db.Statement.Context == nil {
		return
	}
	_, span := t.tracer.Start(db.Statement.Context, "db",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", dbSystem(db))),
	)
	db.InstanceSet(spanKey, span)
}

func (t *gormTracer) after(db *gorm.DB) {
	sql := db.Statement.SQL.String()
	op := sqlVerb(sql)
	table := db.Statement.Table

	var elapsed time.Duration
	if v, ok := db.InstanceGet(startKey); ok {
		if start, ok := v.(time.Time); ok {
			elapsed = time.Since(start)
		}
	}
	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)

	if v, ok := db.InstanceGet(spanKey); ok {
		if span, ok := v.(trace.Span); ok {
			span.SetName("db." + strings.ToLower(op))
			span.SetAttributes(
				attribute.String("db.operation", op),
				attribute.String("db.sql.table", table),
				attribute.String("db.statement", truncateSQL(sql)),
				attribute.Int64("db.rows_affected", db.RowsAffected),
			)
			if failed {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
			span.End()
		}
	}

	if t.slow >= 0 && elapsed >= t.slow {
		logger.Log.Warn("Slow query",
			zap.String("operation", op),
			zap.String("table", table),
			zap.Duration("duration", elapsed),
			zap.Int64("rows", db.RowsAffected),
			zap.String("sql", truncateSQL(sql)),
		)
	}
}

// sqlVerb returns the upper-cased first keyword of sql, or "RAW"
func sqlVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "RAW"
	}
	switch verb := strings.ToUpper(fields[0]); verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH":
		return verb
	}
	return "RAW"
}

func truncateSQL(sql string) string {
	if len(sql) <= maxStatementLen {
		return sql
	}
	return sql[:maxStatementLen] + "..."
}

func dbSystem(db *gorm.DB) string {
	if db.Dialector == nil {
		return "unknown"
	}
	if name := db.Dialector.Name(); name != "postgres" {
		return name
	}
	return "postgresql"
}
