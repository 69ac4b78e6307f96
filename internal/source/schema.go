// Package source reads table, column, and primary-key metadata from a
// Postgres information_schema, generalized from the teacher's
// registry-style MySQL introspecter to a single Postgres-only reader.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Column describes one source column as declared in information_schema,
// with array types normalized to their Postgres "text[]"-style spelling.
type Column struct {
	Name     string
	DataType string
	Ordinal  int
}

// TableMode selects how TablesInSchema filters the catalog, mirroring the
// source's IncludeTables/ExcludeTables/AllTables modes.
type TableMode int

const (
	ModeAllTables TableMode = iota
	ModeIncludeTables
	ModeExcludeTables
)

// Reader queries a Postgres source database's catalog.
type Reader struct {
	pool *pgxpool.Pool
}

// NewReader wraps an already-connected pool.
func NewReader(pool *pgxpool.Pool) *Reader {
	return &Reader{pool: pool}
}

// TablesInSchema lists base tables in schema, filtered per mode against
// names. An empty names list with ModeIncludeTables/ModeExcludeTables
// behaves like ModeAllTables.
func (r *Reader) TablesInSchema(ctx context.Context, schema string, mode TableMode, names []string) ([]string, error) {
	query := `SELECT table_name FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE'`
	args := []any{schema}

	switch mode {
	case ModeIncludeTables:
		if len(names) > 0 {
			query += fmt.Sprintf(" AND table_name IN (%s)", placeholders(len(names), 2))
			args = append(args, toAny(names)...)
		}
	case ModeExcludeTables:
		if len(names) > 0 {
			query += fmt.Sprintf(" AND table_name NOT IN (%s)", placeholders(len(names), 2))
			args = append(args, toAny(names)...)
		}
	}
	query += " ORDER BY table_name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("source: list tables in schema %q: %w", schema, err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("source: scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns a table's columns in ordinal order, with DMS's ARRAY
// data_type normalized to "text[]" the way the target operator expects.
func (r *Reader) Columns(ctx context.Context, schema, table string) ([]Column, error) {
	const query = `
		SELECT column_name, data_type, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("source: columns for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Ordinal); err != nil {
			return nil, fmt.Errorf("source: scan column: %w", err)
		}
		if strings.EqualFold(c.DataType, "ARRAY") {
			c.DataType = "text[]"
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// PrimaryKey returns the ordered primary-key column names for schema.table,
// joining pg_index/pg_attribute the way the source's FindPrimaryKey query
// does.
func (r *Reader) PrimaryKey(ctx context.Context, schema, table string) ([]string, error) {
	const query = `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = ($1 || '.' || $2)::regclass AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)`

	rows, err := r.pool.Query(ctx, query, schema, table)
	if err != nil {
		return nil, fmt.Errorf("source: primary key for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("source: scan pk column: %w", err)
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

func placeholders(n, start int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
