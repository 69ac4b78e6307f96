package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	report Report
	err    error
}

func (f fakeRunner) Run(ctx context.Context, opts Options) (Report, error) {
	return f.report, f.err
}

func TestVerifyReturnsRunnerReport(t *testing.T) {
	runner := fakeRunner{report: Report{Passed: true, Output: "ok"}}
	report, err := Verify(context.Background(), runner, Options{Schema: "public"})
	require.NoError(t, err)
	assert.True(t, report.Passed)
}

func TestVerifyPropagatesRunnerError(t *testing.T) {
	runner := fakeRunner{report: Report{Passed: false}, err: errors.New("diff mismatch")}
	_, err := Verify(context.Background(), runner, Options{})
	assert.Error(t, err)
}
