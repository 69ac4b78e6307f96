package locate

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReorderMovesLoadFirst(t *testing.T) {
	in := []Artifact{
		{Key: "a/CHANGE_1.parquet", Kind: KindChange},
		{Key: "a/LOAD00001.parquet", Kind: KindLoad},
		{Key: "a/CHANGE_2.parquet", Kind: KindChange},
		{Key: "a/LOAD00002.parquet", Kind: KindLoad},
	}
	out := Reorder(in)
	require.Len(t, out, 4)
	assert.True(t, out[0].IsLoad())
	assert.True(t, out[1].IsLoad())
	assert.False(t, out[2].IsLoad())
	assert.False(t, out[3].IsLoad())
}

func TestClassifyByKeySubstring(t *testing.T) {
	assert.Equal(t, KindLoad, classify("schema/table/LOAD00000001.parquet"))
	assert.Equal(t, KindChange, classify("schema/table/20240101-000000001.parquet"))
}

type fakeLister struct {
	pages  [][]types.Object
	calls  int
	inputs []*s3.ListObjectsV2Input
}

func (f *fakeLister) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.inputs = append(f.inputs, in)
	page := f.pages[f.calls]
	f.calls++
	truncated := f.calls < len(f.pages)
	var token *string
	if truncated {
		token = aws.String("next")
	}
	return &s3.ListObjectsV2Output{Contents: page, IsTruncated: aws.Bool(truncated), NextContinuationToken: token}, nil
}

func TestListPaginatesAcrossTokens(t *testing.T) {
	lister := &fakeLister{pages: [][]types.Object{
		{{Key: aws.String("s/t/LOAD00001.parquet")}},
		{{Key: aws.String("s/t/20240102-000000001.parquet")}},
	}}
	out, err := List(context.Background(), lister, Request{Mode: ModeDateAware, Bucket: "b", Schema: "s", Table: "t"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsLoad())
}

func TestListAbsolutePathSkipsNetworkCall(t *testing.T) {
	out, err := List(context.Background(), nil, Request{Mode: ModeAbsolutePath, AbsoluteKey: "schema/table/LOAD00001.parquet"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsLoad())
}

func TestListAbsolutePathRequiresKey(t *testing.T) {
	_, err := List(context.Background(), nil, Request{Mode: ModeAbsolutePath})
	assert.Error(t, err)
}

func TestWithinWindowKeepsLoadRegardlessOfDate(t *testing.T) {
	start := time.Now()
	assert.True(t, withinWindow(KindLoad, time.Time{}, &start, nil))
}

func TestWithinWindowFiltersChangeBeforeStart(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	assert.False(t, withinWindow(KindChange, before, &start, nil))
}

func TestTablePrefixJoinsNonEmptySegments(t *testing.T) {
	got := tablePrefix(Request{Prefix: "exports/", Database: "db", Schema: "public", Table: "orders"})
	assert.Equal(t, "exports/db/public/orders/", got)
}

func TestStartDatePathFormatsYearMonthDay(t *testing.T) {
	start := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "s/t/2024/03/05/", startDatePath("s/t/", start))
}

func TestListSetsStartAfterOnFirstPageOnly(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lister := &fakeLister{pages: [][]types.Object{
		{{Key: aws.String("s/t/20240102-000000001.parquet")}},
		{{Key: aws.String("s/t/20240103-000000001.parquet")}},
	}}
	_, err := List(context.Background(), lister, Request{Mode: ModeDateAware, Bucket: "b", Schema: "s", Table: "t", StartDate: &start})
	require.NoError(t, err)
	require.Len(t, lister.inputs, 2)
	require.NotNil(t, lister.inputs[0].StartAfter)
	assert.Equal(t, "s/t/2024/01/01/", *lister.inputs[0].StartAfter)
	assert.Nil(t, lister.inputs[1].StartAfter)
}

var _ = aws.String
