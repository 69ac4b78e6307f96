package target

import (
	"context"
	"fmt"
	"strings"

	"dmsreplay/internal/artifact"
	"dmsreplay/internal/codec"
)

// opCode reads the DMS Op column out of a row, defaulting to insert ("I")
// when absent.
func opCode(row artifact.Row) string {
	cell, ok := row[OpColumn]
	if !ok || cell.Kind != codec.KindString {
		return "I"
	}
	return strings.ToUpper(strings.TrimSpace(cell.Str))
}

// Upsert applies one CDC artifact's rows against the target table,
// dispatching per row on the Op column: "D" deletes by primary key, "U"
// inserts with an ON CONFLICT DO UPDATE against the primary key, anything
// else is a plain insert.
func (o *Operator) Upsert(ctx context.Context, schema, table string, batch *artifact.Batch, pk []string) error {
	cols := dataColumns(batch.Columns)
	if len(cols) == 0 {
		return nil
	}

	for _, row := range batch.Rows {
		var stmt string
		switch opCode(row) {
		case "D":
			s, err := buildDelete(schema, table, pk, row)
			if err != nil {
				return err
			}
			stmt = s
		case "U":
			stmt = buildUpsert(schema, table, cols, pk, row)
		default:
			stmt = buildInsert(schema, table, cols, []artifact.Row{row})
		}
		if err := o.exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// buildDelete renders a DELETE keyed on a tuple comparison of the primary
// key columns. This corrects the source's defective single-column,
// comma-joined predicate (`pk_csv = 'v1,v2'`, which compares a composite
// key against a literal string and can never match) into a valid
// parenthesized tuple comparison.
func buildDelete(schema, table string, pk []string, row artifact.Row) (string, error) {
	if len(pk) == 0 {
		return "", fmt.Errorf("target: delete requires a primary key for %s.%s", schema, table)
	}

	quotedCols := make([]string, len(pk))
	values := make([]string, len(pk))
	for i, col := range pk {
		quotedCols[i] = codec.QuoteIdentifier(col)
		values[i] = codec.Encode(row[col])
	}

	return fmt.Sprintf("DELETE FROM %s.%s WHERE (%s) = (%s)",
		codec.QuoteIdentifier(schema), codec.QuoteIdentifier(table),
		strings.Join(quotedCols, ", "), strings.Join(values, ", ")), nil
}

// buildUpsert renders a single-row INSERT ... ON CONFLICT (pk...) DO
// UPDATE SET, updating every non-primary-key column to the incoming value.
func buildUpsert(schema, table string, cols, pk []string, row artifact.Row) string {
	pkSet := make(map[string]bool, len(pk))
	for _, c := range pk {
		pkSet[c] = true
	}

	insert := buildInsert(schema, table, cols, []artifact.Row{row})

	if len(pk) == 0 {
		return insert
	}

	quotedPK := make([]string, len(pk))
	for i, c := range pk {
		quotedPK[i] = codec.QuoteIdentifier(c)
	}

	var sets []string
	for _, col := range cols {
		if pkSet[col] {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = %s", codec.QuoteIdentifier(col), codec.Encode(row[col])))
	}

	if len(sets) == 0 {
		return insert
	}

	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s",
		insert, strings.Join(quotedPK, ", "), strings.Join(sets, ", "))
}
