package target

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dmsreplay/internal/artifact"
	"dmsreplay/internal/codec"
)

// BulkInsert writes a LOAD artifact's rows in chunks of rowsPerChunk,
// stripping the Op/timestamp metadata columns from the value list.
// throttle, when non-zero, is slept between chunks -- the caller decides
// whether this table is in the DELAYABLE_CONFIG set.
func (o *Operator) BulkInsert(ctx context.Context, schema, table string, batch *artifact.Batch, rowsPerChunk int, throttle time.Duration) error {
	if rowsPerChunk <= 0 {
		rowsPerChunk = 1
	}
	cols := dataColumns(batch.Columns)
	if len(cols) == 0 {
		return nil
	}

	for start := 0; start < len(batch.Rows); start += rowsPerChunk {
		end := min(start+rowsPerChunk, len(batch.Rows))
		stmt := buildInsert(schema, table, cols, batch.Rows[start:end])
		if err := o.exec(ctx, stmt); err != nil {
			return err
		}
		if throttle > 0 && end < len(batch.Rows) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(throttle):
			}
		}
	}
	return nil
}

func buildInsert(schema, table string, cols []string, rows []artifact.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s.%s (%s) VALUES ",
		codec.QuoteIdentifier(schema), codec.QuoteIdentifier(table), quoteColumns(cols))

	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(codec.Encode(row[col]))
		}
		b.WriteString(")")
	}
	return b.String()
}

// dataColumns filters the DMS metadata columns out of a batch's column
// list, preserving declared order.
func dataColumns(all []string) []string {
	out := make([]string, 0, len(all))
	for _, c := range all {
		if c == OpColumn || c == TimestampColumn {
			continue
		}
		out = append(out, c)
	}
	return out
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = codec.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}
