// Package verify hands off to an external chunked row-differ once replay
// has completed, mirroring the source's validate() call into
// rust_pgdatadiff -- the differ's own comparison algorithm is out of
// scope; this package only defines the invocation contract.
package verify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Options parameters a verification run, matching the fields the source
// builds its DiffPayload from.
type Options struct {
	SourceURL       string
	TargetURL       string
	Schema          string
	ChunkSize       int
	StartPosition   int
	MaxConnections  int
	IncludedTables  []string
	ExcludedTables  []string
}

// Report is the outcome of a verification run.
type Report struct {
	Passed bool
	Output string
}

// Runner invokes the external differ. The default implementation shells
// out to a binary on PATH; tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, opts Options) (Report, error)
}

// ProcessRunner invokes an external differ binary via exec.CommandContext,
// matching the source's use of an external, independently-versioned
// comparison tool rather than reimplementing row diffing in this engine.
type ProcessRunner struct {
	// BinaryPath is the differ executable, e.g. "pgdatadiff".
	BinaryPath string
}

// Run shells out to BinaryPath with flags derived from opts and reports
// success based on the process exit code.
func (p ProcessRunner) Run(ctx context.Context, opts Options) (Report, error) {
	args := []string{
		"--source-url", opts.SourceURL,
		"--target-url", opts.TargetURL,
		"--schema", opts.Schema,
		"--chunk-size", fmt.Sprintf("%d", opts.ChunkSize),
		"--start-position", fmt.Sprintf("%d", opts.StartPosition),
		"--max-connections", fmt.Sprintf("%d", opts.MaxConnections),
	}
	for _, t := range opts.IncludedTables {
		args = append(args, "--include-table", t)
	}
	for _, t := range opts.ExcludedTables {
		args = append(args, "--exclude-table", t)
	}

	cmd := exec.CommandContext(ctx, p.BinaryPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	report := Report{Output: out.String(), Passed: err == nil}
	if err != nil {
		return report, fmt.Errorf("verify: differ run failed: %w", err)
	}
	return report, nil
}

// Verify runs the configured Runner and returns its report. Unlike the
// source's validate(), which panics on a failed diff, a failed or erroring
// run here is returned as a normal (Report, error) pair; the caller (the
// CLI entrypoint) decides whether to treat a fatal-after-replay verify
// failure as a non-zero process exit.
func Verify(ctx context.Context, runner Runner, opts Options) (Report, error) {
	return runner.Run(ctx, opts)
}
