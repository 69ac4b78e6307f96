// Package artifact fetches one object from storage and decodes it into a
// typed row batch the replay driver can hand to the target operator.
package artifact

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"

	"dmsreplay/internal/codec"
)

// ObjectGetter is the subset of the S3 client needed to download one
// artifact's bytes.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Row is one decoded record, keyed by declared column name. Column order is
// carried by Batch.Columns, not by the map.
type Row map[string]codec.Cell

// Batch is the full decoded contents of one artifact, in row order as
// stored in the Parquet file.
type Batch struct {
	Columns []string
	Rows    []Row
}

// Fetch downloads the object at bucket/key and decodes it as a DMS Parquet
// export. The whole object is buffered in memory before decoding -- DMS
// artifacts are bounded per-table batches, so a second network round trip
// for random access is unnecessary, matching the source's synchronous
// cursor-then-decode approach.
func Fetch(ctx context.Context, client ObjectGetter, bucket, key string) (*Batch, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("artifact: get object %q: %w", key, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("artifact: read object %q: %w", key, err)
	}

	return Decode(raw)
}

// Decode parses raw Parquet bytes into a Batch, preserving declared column
// order from the file's own schema.
func Decode(raw []byte) (*Batch, error) {
	pf, err := buffer.NewBufferFileFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("artifact: open parquet buffer: %w", err)
	}

	pr, err := reader.NewParquetColumnReader(pf, 0)
	if err != nil {
		return nil, fmt.Errorf("artifact: open parquet reader: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	columns := pr.SchemaHandler.ValueColumns

	batch := &Batch{Columns: make([]string, 0, len(columns)), Rows: make([]Row, numRows)}
	for i := range batch.Rows {
		batch.Rows[i] = make(Row, len(columns))
	}

	for _, path := range columns {
		info := columnSchemaInfo(pr, path)
		batch.Columns = append(batch.Columns, info.name)

		cells, readErr := readColumnCells(pr, path, numRows, info)
		if readErr != nil {
			return nil, fmt.Errorf("artifact: read column %q: %w", info.name, readErr)
		}

		for i := 0; i < numRows && i < len(cells); i++ {
			batch.Rows[i][info.name] = cells[i]
		}
	}

	return batch, nil
}

// columnInfo carries the Parquet schema metadata toCell needs to pick the
// right Cell kind for a column, since parquet-go surfaces DECIMAL, DATE,
// TIMESTAMP, and JSON logical types as plain int32/int64/string Go values.
type columnInfo struct {
	name      string
	converted *parquet.ConvertedType
	scale     int32
	repeated  bool
}

// columnSchemaInfo resolves path's declared converted type, decimal scale,
// and repetition (LIST) status by matching the leaf schema element name.
// This assumes a flat DMS export schema, where repeated/array columns are
// declared as a single repeated leaf rather than the nested 3-level LIST
// group form; nested LIST groups would need to match on the full element
// chain instead of the bare leaf name.
func columnSchemaInfo(pr *reader.ParquetReader, path string) columnInfo {
	info := columnInfo{name: leafName(path)}

	for _, el := range pr.SchemaHandler.SchemaElements {
		if el.Name != info.name {
			continue
		}
		if el.ConvertedType != nil {
			info.converted = el.ConvertedType
		}
		if el.Scale != nil {
			info.scale = *el.Scale
		}
		break
	}

	if rl, err := pr.SchemaHandler.MaxRepetitionLevel(strings.Split(path, ".")); err == nil && rl > 0 {
		info.repeated = true
	}

	return info
}

// readColumnCells reads every value stored under path and maps it to one
// Cell per row. ReadColumnByPath caps each call at the requested count, so
// repeated calls accumulate the full column before rows are assembled.
// Repeated (LIST) columns start a new row each time the repetition level
// resets to zero; a flat per-value 1:1 mapping would desync row alignment
// the moment any row held more than one element.
func readColumnCells(pr *reader.ParquetReader, path string, numRows int, info columnInfo) ([]codec.Cell, error) {
	var rawValues []interface{}
	var repLevels []int32

	for {
		values, rls, _, err := pr.ReadColumnByPath(path, numRows)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			break
		}
		rawValues = append(rawValues, values...)
		repLevels = append(repLevels, rls...)
		if len(values) < numRows {
			break
		}
	}

	if !info.repeated {
		cells := make([]codec.Cell, len(rawValues))
		for i, v := range rawValues {
			cells[i] = toCell(v, info)
		}
		return cells, nil
	}

	var cells []codec.Cell
	var current []string
	for i, v := range rawValues {
		if i > 0 && repLevels[i] == 0 {
			cells = append(cells, codec.Array(current))
			current = nil
		}
		if v != nil {
			current = append(current, fmt.Sprintf("%v", v))
		}
	}
	if len(rawValues) > 0 {
		cells = append(cells, codec.Array(current))
	}
	return cells, nil
}

// leafName extracts the final segment of a parquet-go dotted schema path.
func leafName(path string) string {
	last := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			last = path[i+1:]
			break
		}
	}
	return last
}

// toCell maps a decoded parquet-go interface value to a codec.Cell. The
// column's converted type, when present, takes precedence over the raw Go
// type: DECIMAL, DATE, TIMESTAMP_MILLIS/MICROS, and JSON are all surfaced
// by parquet-go as plain int32/int64/string values, and would otherwise be
// misclassified as a bare integer or string.
func toCell(v any, info columnInfo) codec.Cell {
	if v == nil {
		return codec.Null
	}

	if info.converted != nil {
		switch *info.converted {
		case parquet.ConvertedType_DECIMAL:
			return codec.Decimal(decimal.New(toInt64(v), -info.scale))
		case parquet.ConvertedType_DATE:
			return codec.Date(epoch.AddDate(0, 0, int(toInt64(v))))
		case parquet.ConvertedType_TIMESTAMP_MILLIS:
			return codec.Timestamp(time.UnixMilli(toInt64(v)).UTC())
		case parquet.ConvertedType_TIMESTAMP_MICROS:
			micros := toInt64(v)
			return codec.Timestamp(time.Unix(micros/1_000_000, (micros%1_000_000)*1000).UTC())
		case parquet.ConvertedType_JSON:
			if s, ok := v.(string); ok {
				return codec.JSON(s)
			}
		}
	}

	switch val := v.(type) {
	case bool:
		return codec.Bool(val)
	case int32:
		return codec.Int64(int64(val))
	case int64:
		return codec.Int64(val)
	case float32:
		return codec.Float64(float64(val))
	case float64:
		return codec.Float64(val)
	case []byte:
		return codec.Binary(val)
	case string:
		return codec.String(val)
	default:
		return codec.String(fmt.Sprintf("%v", val))
	}
}

// epoch is the DATE logical type's day-zero reference.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int32:
		return int64(val)
	case int64:
		return val
	default:
		return 0
	}
}
