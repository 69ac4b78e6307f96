// Package codec turns a typed cell value read from a Parquet artifact into
// the literal SQL fragment the target operator embeds directly into an
// INSERT/UPDATE/DELETE statement. Values are rendered as literals, not bind
// parameters, matching how the source system builds its statements.
package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the cell value variants a Parquet column can hold.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindInt64
	KindFloat64
	KindDecimal
	KindDate
	KindTimestamp
	KindBool
	KindBinary
	KindArray
	KindJSON
)

// Cell is a single typed value read from an artifact column.
type Cell struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Dec   decimal.Decimal
	Time  time.Time
	Bool  bool
	Bytes []byte
	// Strs holds the element values of an array-kind cell, already rendered
	// to their text form.
	Strs []string
}

// String builds a string-kind cell.
func String(v string) Cell { return Cell{Kind: KindString, Str: v} }

// Int64 builds an int64-kind cell.
func Int64(v int64) Cell { return Cell{Kind: KindInt64, Int: v} }

// Float64 builds a float64-kind cell.
func Float64(v float64) Cell { return Cell{Kind: KindFloat64, Float: v} }

// Decimal builds a decimal-kind cell.
func Decimal(v decimal.Decimal) Cell { return Cell{Kind: KindDecimal, Dec: v} }

// Date builds a date-kind cell.
func Date(v time.Time) Cell { return Cell{Kind: KindDate, Time: v} }

// Timestamp builds a timestamp-kind cell.
func Timestamp(v time.Time) Cell { return Cell{Kind: KindTimestamp, Time: v} }

// Bool builds a bool-kind cell.
func Bool(v bool) Cell { return Cell{Kind: KindBool, Bool: v} }

// Binary builds a binary-kind cell.
func Binary(v []byte) Cell { return Cell{Kind: KindBinary, Bytes: v} }

// Array builds an array-of-text-kind cell from already-stringified elements.
func Array(v []string) Cell { return Cell{Kind: KindArray, Strs: v} }

// JSON builds a cell holding raw JSON text, rendered as a quoted string
// literal rather than parsed into the engine's own type.
func JSON(v string) Cell { return Cell{Kind: KindJSON, Str: v} }

// Null is the nil-valued cell, independent of its declared column type.
var Null = Cell{Kind: KindNull}

const dateLayout = "2006-01-02"
const timestampLayout = "2006-01-02 15:04:05.999999"

// numCharsForGeometryCheck mirrors the fixed prefix window the detector
// inspects before giving up on a value being a geometry literal.
const numCharsForGeometryCheck = 30

// geometryKeywords is the set of WKT type names recognized as geometry
// literals. Extend this set as new DMS-exported geometry types are seen.
var geometryKeywords = map[string]bool{
	"MULTIPOLYGON": true,
}

const geometrySRID = 4326

// Encode renders a cell as the literal SQL fragment to embed in a
// generated statement.
func Encode(c Cell) string {
	switch c.Kind {
	case KindNull:
		return "NULL"
	case KindString:
		if wkt, ok := geometryLiteral(c.Str); ok {
			return wkt
		}
		return quoteString(c.Str)
	case KindInt64:
		return fmt.Sprintf("%d", c.Int)
	case KindFloat64:
		return fmt.Sprintf("%v", c.Float)
	case KindDecimal:
		return quoteString(c.Dec.String())
	case KindDate:
		return quoteString(c.Time.Format(dateLayout))
	case KindTimestamp:
		return quoteString(c.Time.Format(timestampLayout))
	case KindBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case KindBinary:
		return fmt.Sprintf("%v", c.Bytes)
	case KindArray:
		elems := make([]string, len(c.Strs))
		for i, s := range c.Strs {
			elems[i] = quoteString(s)
		}
		return "ARRAY[" + strings.Join(elems, ", ") + "]"
	case KindJSON:
		return quoteString(c.Str)
	default:
		return "NULL"
	}
}

// geometryLiteral inspects the first numCharsForGeometryCheck runes of raw
// (after trimming surrounding double quotes) for a recognized WKT geometry
// type keyword, and if found returns the ST_GeomFromText wrapper for the
// full raw value. The second result is false when raw is not a geometry
// literal and the caller should fall back to ordinary string quoting.
func geometryLiteral(raw string) (string, bool) {
	probe := raw
	if runes := []rune(probe); len(runes) > numCharsForGeometryCheck {
		probe = string(runes[:numCharsForGeometryCheck])
	}
	probe = strings.Trim(probe, `"`)

	paren := strings.Index(probe, "(")
	if paren < 0 {
		return "", false
	}
	keyword := probe[:paren]
	if !geometryKeywords[keyword] {
		return "", false
	}
	return fmt.Sprintf("ST_GeomFromText('%s', %d)", raw, geometrySRID), true
}

// quoteString wraps value in single quotes, doubling any embedded single
// quote, matching the teacher's QuoteString doubling convention generalized
// from MySQL backslash-escaping to plain standard-SQL quote doubling.
func quoteString(value string) string {
	var b strings.Builder
	b.Grow(len(value) + len(value)/10 + 2)
	b.WriteByte('\'')
	for _, r := range value {
		if r == '\'' {
			b.WriteString("''")
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// QuoteIdentifier double-quotes a Postgres identifier, doubling any
// embedded double quote, generalized from the teacher's backtick-based
// QuoteIdentifier to Postgres's quoting rules.
func QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, `"`, `""`)
	return `"` + name + `"`
}
