package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCapturesPerTaskErrorsWithoutCancellingSiblings(t *testing.T) {
	tasks := []Task[string]{
		func(ctx context.Context) (string, error) { return "ok-1", nil },
		func(ctx context.Context) (string, error) { return "", errors.New("table 2 failed") },
		func(ctx context.Context) (string, error) { return "ok-3", nil },
	}

	results, errs := Run(context.Background(), 2, tasks)

	require.Len(t, results, 3)
	assert.Equal(t, "ok-1", results[0])
	assert.Equal(t, "ok-3", results[2])
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
	assert.NoError(t, errs[2])
}

func TestRunHandlesEmptyTaskList(t *testing.T) {
	results, errs := Run[int](context.Background(), 4, nil)
	assert.Empty(t, results)
	assert.Empty(t, errs)
}

func TestRunDefaultsInvalidParallelismToOne(t *testing.T) {
	var ran int
	tasks := []Task[int]{
		func(ctx context.Context) (int, error) { ran++; return 1, nil },
	}
	results, errs := Run(context.Background(), 0, tasks)
	assert.Equal(t, 1, ran)
	assert.Equal(t, []int{1}, results)
	assert.NoError(t, errs[0])
}
