// Package target issues the idempotent DDL and DML statements that
// reconstruct a table's state in the target Postgres database, generalized
// from the teacher's Applier connect/exec/close lifecycle
// (internal/apply/apply.go) to a pooled pgx connection instead of
// database/sql.
package target

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"dmsreplay/internal/codec"
	"dmsreplay/internal/source"
)

// OpColumn and TimestampColumn are the two DMS metadata columns that
// accompany every exported table. They are always declared on the target
// table and always stripped before building an insert/upsert value list.
const (
	OpColumn        = "Op"
	TimestampColumn = "_dms_ingestion_timestamp"
)

// Operator issues DDL/DML against the target database.
type Operator struct {
	pool *pgxpool.Pool
	log  *zap.Logger

	statements int
	lastErr    error
}

// New wraps an already-connected pool.
func New(pool *pgxpool.Pool, log *zap.Logger) *Operator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Operator{pool: pool, log: log}
}

// Ping verifies connectivity before any table replay begins, mirroring the
// teacher's Connect-then-ping preflight.
func (o *Operator) Ping(ctx context.Context) error {
	if err := o.pool.Ping(ctx); err != nil {
		return fmt.Errorf("target: ping: %w", err)
	}
	return nil
}

// Close releases the pool.
func (o *Operator) Close() {
	o.pool.Close()
}

// ExecutedStatementCount returns how many statements this operator has run.
func (o *Operator) ExecutedStatementCount() int { return o.statements }

// LastError returns the most recent execution error, if any.
func (o *Operator) LastError() error { return o.lastErr }

// CreateSchema issues CREATE SCHEMA IF NOT EXISTS.
func (o *Operator) CreateSchema(ctx context.Context, schema string) error {
	stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", codec.QuoteIdentifier(schema))
	return o.exec(ctx, stmt)
}

// CreateTable issues CREATE TABLE IF NOT EXISTS with the Op/timestamp
// metadata columns declared first, the source columns in ordinal order,
// and a PRIMARY KEY clause when pk is non-empty, matching the source's
// TableQuery::CreateTable text.
func (o *Operator) CreateTable(ctx context.Context, schema, table string, columns []source.Column, pk []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s.%s (",
		codec.QuoteIdentifier(schema), codec.QuoteIdentifier(table))

	b.WriteString(codec.QuoteIdentifier(OpColumn))
	b.WriteString(" varchar, ")
	b.WriteString(codec.QuoteIdentifier(TimestampColumn))
	b.WriteString(" varchar")

	for _, c := range columns {
		b.WriteString(", ")
		b.WriteString(codec.QuoteIdentifier(c.Name))
		b.WriteString(" ")
		b.WriteString(c.DataType)
	}

	if len(pk) > 0 {
		b.WriteString(", PRIMARY KEY (")
		quoted := make([]string, len(pk))
		for i, col := range pk {
			quoted[i] = codec.QuoteIdentifier(col)
		}
		b.WriteString(strings.Join(quoted, ", "))
		b.WriteString(")")
	}

	b.WriteString(")")
	return o.exec(ctx, b.String())
}

// DropMetadataColumns removes the Op/timestamp bookkeeping columns once a
// replay is fully verified. This is opt-in -- see Open Question #1 in
// DESIGN.md -- and is never called implicitly by the replay driver.
func (o *Operator) DropMetadataColumns(ctx context.Context, schema, table string) error {
	stmt := fmt.Sprintf(
		"ALTER TABLE %s.%s DROP COLUMN IF EXISTS %s, DROP COLUMN IF EXISTS %s",
		codec.QuoteIdentifier(schema), codec.QuoteIdentifier(table),
		codec.QuoteIdentifier(OpColumn), codec.QuoteIdentifier(TimestampColumn),
	)
	return o.exec(ctx, stmt)
}

// RunSQL executes an arbitrary statement, for callers that need an escape
// hatch outside the typed operations.
func (o *Operator) RunSQL(ctx context.Context, stmt string) error {
	return o.exec(ctx, stmt)
}

func (o *Operator) exec(ctx context.Context, stmt string) error {
	start := time.Now()
	_, err := o.pool.Exec(ctx, stmt)
	elapsed := time.Since(start)
	o.statements++
	if err != nil {
		o.lastErr = err
		o.log.Error("statement failed",
			zap.String("statement", truncate(stmt, 120)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return fmt.Errorf("target: exec failed: %w\n  statement: %s", err, truncate(stmt, 200))
	}
	o.log.Debug("statement ok",
		zap.String("statement", truncate(stmt, 120)),
		zap.Duration("elapsed", elapsed))
	return nil
}

// truncate caps a statement's display length the way the teacher's
// truncateSQL helper does, so long bulk_insert statements don't flood logs.
func truncate(stmt string, maxLen int) string {
	stmt = strings.TrimSpace(stmt)
	if maxLen <= 0 {
		maxLen = 60
	}
	if len(stmt) > maxLen {
		return stmt[:maxLen-3] + "..."
	}
	return stmt
}
