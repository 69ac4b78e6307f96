package codec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEncodeNull(t *testing.T) {
	assert.Equal(t, "NULL", Encode(Null))
}

func TestEncodeStringEscapesQuotes(t *testing.T) {
	assert.Equal(t, `'O''Brien'`, Encode(String("O'Brien")))
}

func TestEncodeStringPlain(t *testing.T) {
	assert.Equal(t, "'hello'", Encode(String("hello")))
}

func TestEncodeInt64(t *testing.T) {
	assert.Equal(t, "42", Encode(Int64(42)))
}

func TestEncodeDecimal(t *testing.T) {
	d := decimal.NewFromFloat(12.50)
	assert.Equal(t, "'12.5'", Encode(Decimal(d)))
}

func TestEncodeDate(t *testing.T) {
	tm := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "'2024-03-15'", Encode(Date(tm)))
}

func TestEncodeGeometryLiteral(t *testing.T) {
	raw := `MULTIPOLYGON(((0 0,1 1,1 0,0 0)))`
	got := Encode(String(raw))
	assert.Equal(t, "ST_GeomFromText('"+raw+"', 4326)", got)
}

func TestEncodeGeometryLiteralQuoted(t *testing.T) {
	raw := `"MULTIPOLYGON(((0 0,1 1,1 0,0 0)))"`
	got := Encode(String(raw))
	assert.Contains(t, got, "ST_GeomFromText(")
}

func TestEncodeNonGeometryStringUnaffected(t *testing.T) {
	got := Encode(String("POLYGON not recognized"))
	assert.Equal(t, "'POLYGON not recognized'", got)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"my""table"`, QuoteIdentifier(`my"table`))
}

func TestEncodeBool(t *testing.T) {
	assert.Equal(t, "true", Encode(Bool(true)))
	assert.Equal(t, "false", Encode(Bool(false)))
}

func TestEncodeArray(t *testing.T) {
	assert.Equal(t, "ARRAY['a', 'b''s']", Encode(Array([]string{"a", "b's"})))
}

func TestEncodeArrayEmpty(t *testing.T) {
	assert.Equal(t, "ARRAY[]", Encode(Array(nil)))
}

func TestEncodeJSON(t *testing.T) {
	assert.Equal(t, `'{"a":1}'`, Encode(JSON(`{"a":1}`)))
}
