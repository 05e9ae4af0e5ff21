// Package gormtrace records a client span for every SQL statement GORM
// executes. Spans are named after the SQL operation and carry a sanitized
// copy of the statement.
package gormtrace

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"traced-user-service/pkg/tracing"
)

const (
	pluginName  = "otel:tracing"
	instanceKey = "otel:span"
)

// Option customises the plugin.
type Option func(*Plugin)

// WithQuerySanitizer replaces the statement sanitizer. Passing nil records
// statements verbatim.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(p *Plugin) { p.sanitize = fn }
}

// WithoutStatement omits db.statement from spans.
func WithoutStatement() Option {
	return func(p *Plugin) { p.omitStatement = true }
}

// Plugin is a gorm.Plugin that traces statements.
type Plugin struct {
	tracer        trace.Tracer
	sanitize      func(string) string
	omitStatement bool
	system        attribute.KeyValue
}

var _ gorm.Plugin = (*Plugin)(nil)

// New returns a Plugin whose spans come from tp.
func New(tp trace.TracerProvider, opts ...Option) *Plugin {
	p := &Plugin{
		tracer:   tp.Tracer(tracing.InstrumentationName + "/gorm"),
		sanitize: SanitizeQuery,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements gorm.Plugin.
func (p *Plugin) Name() string {
	return pluginName
}

// Initialize implements gorm.Plugin by registering callbacks around each
// GORM processor.
func (p *Plugin) Initialize(db *gorm.DB) error {
	p.system = dbSystem(db.Dialector.Name())

	cb := db.Callback()
	hooks := []struct {
		op       string
		anchor   string
		register func(op, anchor string) error
	}{
		{"create", "gorm:create", func(op, anchor string) error {
			if err := cb.Create().Before(anchor).Register(pluginName+":before_"+op, p.before(op)); err != nil {
				return err
			}
			return cb.Create().After(anchor).Register(pluginName+":after_"+op, p.after)
		}},
		{"query", "gorm:query", func(op, anchor string) error {
			if err := cb.Query().Before(anchor).Register(pluginName+":before_"+op, p.before(op)); err != nil {
				return err
			}
			return cb.Query().After(anchor).Register(pluginName+":after_"+op, p.after)
		}},
		{"update", "gorm:update", func(op, anchor string) error {
			if err := cb.Update().Before(anchor).Register(pluginName+":before_"+op, p.before(op)); err != nil {
				return err
			}
			return cb.Update().After(anchor).Register(pluginName+":after_"+op, p.after)
		}},
		{"delete", "gorm:delete", func(op, anchor string) error {
			if err := cb.Delete().Before(anchor).Register(pluginName+":before_"+op, p.before(op)); err != nil {
				return err
			}
			return cb.Delete().After(anchor).Register(pluginName+":after_"+op, p.after)
		}},
		{"row", "gorm:row", func(op, anchor string) error {
			if err := cb.Row().Before(anchor).Register(pluginName+":before_"+op, p.before(op)); err != nil {
				return err
			}
			return cb.Row().After(anchor).Register(pluginName+":after_"+op, p.after)
		}},
		{"raw", "gorm:raw", func(op, anchor string) error {
			if err := cb.Raw().Before(anchor).Register(pluginName+":before_"+op, p.before(op)); err != nil {
				return err
			}
			return cb.Raw().After(anchor).Register(pluginName+":after_"+op, p.after)
		}},
	}

	for _, h := range hooks {
		if err := h.register(h.op, h.anchor); err != nil {
			return err
		}
	}
	return nil
}

// spanState is kept on the statement between the before and after hooks.
type spanState struct {
	span   trace.Span
	parent context.Context
}

func (p *Plugin) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil {
			return
		}
		parent := db.Statement.Context
		if parent == nil {
			parent = context.Background()
		}

		// the real name is only known once the SQL has been built
		ctx, span := p.tracer.Start(parent, "gorm."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(p.system),
		)
		db.Statement.Context = ctx
		db.InstanceSet(instanceKey, &spanState{span: span, parent: parent})
	}
}

func (p *Plugin) after(db *gorm.DB) {
	if db.Statement == nil {
		return
	}
	v, ok := db.InstanceGet(instanceKey)
	if !ok {
		return
	}
	state, ok := v.(*spanState)
	if !ok {
		return
	}
	span := state.span
	defer span.End()
	db.Statement.Context = state.parent

	query := db.Statement.SQL.String()
	span.SetName(spanName(query))

	attrs := make([]attribute.KeyValue, 0, 4)
	if op := extractOperation(query); op != "" {
		attrs = append(attrs, semconv.DBOperation(op))
	}
	if !p.omitStatement && query != "" {
		if p.sanitize != nil {
			query = p.sanitize(query)
		}
		attrs = append(attrs, semconv.DBStatement(query))
	}
	if db.Statement.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", db.Statement.Table))
	}
	attrs = append(attrs, attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	span.SetAttributes(attrs...)

	// an empty result is an answer, not a failure
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}

func dbSystem(dialect string) attribute.KeyValue {
	switch dialect {
	case "postgres":
		return semconv.DBSystemPostgreSQL
	case "sqlite", "sqlite3":
		return semconv.DBSystemSqlite
	default:
		return semconv.DBSystemKey.String(dialect)
	}
}
