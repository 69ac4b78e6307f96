package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xitongsys/parquet-go/parquet"

	"dmsreplay/internal/codec"
)

func TestLeafNameExtractsFinalSegment(t *testing.T) {
	assert.Equal(t, "Op", leafName("parquet_go_root.Op"))
	assert.Equal(t, "id", leafName("id"))
}

func TestToCellMapsPrimitives(t *testing.T) {
	assert.Equal(t, int64(7), toCell(int32(7), columnInfo{}).Int)
	assert.Equal(t, "hi", toCell("hi", columnInfo{}).Str)
	assert.True(t, toCell(nil, columnInfo{}).Kind == 0)
	assert.Equal(t, true, toCell(true, columnInfo{}).Bool)
}

func TestToCellDecimalUsesScale(t *testing.T) {
	decimalType := parquet.ConvertedType_DECIMAL
	cell := toCell(int32(1250), columnInfo{converted: &decimalType, scale: 2})
	assert.Equal(t, codec.KindDecimal, cell.Kind)
	assert.Equal(t, "12.5", cell.Dec.String())
}

func TestToCellDateConvertsDaysSinceEpoch(t *testing.T) {
	dateType := parquet.ConvertedType_DATE
	cell := toCell(int32(19797), columnInfo{converted: &dateType})
	assert.Equal(t, codec.KindDate, cell.Kind)
	assert.Equal(t, 2024, cell.Time.Year())
}

func TestToCellJSONConvertedType(t *testing.T) {
	jsonType := parquet.ConvertedType_JSON
	cell := toCell(`{"a":1}`, columnInfo{converted: &jsonType})
	assert.Equal(t, codec.KindJSON, cell.Kind)
	assert.Equal(t, `{"a":1}`, cell.Str)
}
