// Package replay drives one table's replay through an explicit state
// machine, turning the source's single long snapshot() loop
// (cdc_operator.rs) into named, independently observable states.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dmsreplay/internal/artifact"
	"dmsreplay/internal/locate"
	"dmsreplay/internal/source"
	"dmsreplay/internal/target"
)

// State is one stage of a table's replay lifecycle.
type State int

const (
	StateInit State = iota
	StateSchemaRead
	StateTableCreated
	StateArtifactsListed
	StateApplying
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSchemaRead:
		return "SCHEMA_READ"
	case StateTableCreated:
		return "TABLE_CREATED"
	case StateArtifactsListed:
		return "ARTIFACTS_LISTED"
	case StateApplying:
		return "APPLYING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ErrSchemaMismatch is returned when a LOAD artifact's declared columns
// diverge from the source table's introspected columns.
var ErrSchemaMismatch = errors.New("replay: schema of table does not match schema of artifact")

// Fetcher abstracts artifact download+decode so drivers can be tested
// without real object storage.
type Fetcher interface {
	Fetch(ctx context.Context, bucket, key string) (*artifact.Batch, error)
}

// Result is one table's outcome, regardless of success or failure.
type Result struct {
	Table   string
	State   State
	Elapsed time.Duration
	Err     error
}

// Driver replays a single table end to end.
type Driver struct {
	Bucket     string
	Schema     string
	Table      string
	RowsPerDF  int
	Throttle   time.Duration
	SourceMeta *source.Reader
	Target     *target.Operator
	Fetcher    Fetcher
	Log        *zap.Logger

	state State
}

// State reports the driver's current lifecycle stage.
func (d *Driver) State() State { return d.state }

func (d *Driver) transition(s State) {
	d.state = s
	if d.Log != nil {
		d.Log.Debug("state transition", zap.String("table", d.Table), zap.String("state", s.String()))
	}
}

// Run drives the table through SCHEMA_READ -> TABLE_CREATED ->
// ARTIFACTS_LISTED -> APPLYING -> DONE/FAILED, applying artifacts in the
// order List already produced (LOAD artifacts first).
func (d *Driver) Run(ctx context.Context, artifacts []locate.Artifact) Result {
	start := time.Now()
	d.transition(StateInit)

	columns, err := d.SourceMeta.Columns(ctx, d.Schema, d.Table)
	if err != nil {
		return d.fail(start, fmt.Errorf("replay: read columns: %w", err))
	}
	pk, err := d.SourceMeta.PrimaryKey(ctx, d.Schema, d.Table)
	if err != nil {
		return d.fail(start, fmt.Errorf("replay: read primary key: %w", err))
	}
	d.transition(StateSchemaRead)

	if err := d.Target.CreateTable(ctx, d.Schema, d.Table, columns, pk); err != nil {
		return d.fail(start, err)
	}
	d.transition(StateTableCreated)

	d.transition(StateArtifactsListed)

	d.transition(StateApplying)
	for _, a := range artifacts {
		batch, err := d.Fetcher.Fetch(ctx, d.Bucket, a.Key)
		if err != nil {
			return d.fail(start, fmt.Errorf("replay: fetch %q: %w", a.Key, err))
		}

		if a.IsLoad() {
			if err := validateSchema(batch, columns); err != nil {
				return d.fail(start, err)
			}
			if err := d.Target.BulkInsert(ctx, d.Schema, d.Table, batch, d.RowsPerDF, d.Throttle); err != nil {
				return d.fail(start, err)
			}
			continue
		}

		if err := d.Target.Upsert(ctx, d.Schema, d.Table, batch, pk); err != nil {
			return d.fail(start, err)
		}
	}

	d.transition(StateDone)
	elapsed := time.Since(start)
	if d.Log != nil {
		d.Log.Info("table replay finished", zap.String("table", d.Table), zap.Duration("elapsed", elapsed))
	}
	return Result{Table: d.Table, State: StateDone, Elapsed: elapsed}
}

func (d *Driver) fail(start time.Time, err error) Result {
	d.transition(StateFailed)
	elapsed := time.Since(start)
	if d.Log != nil {
		d.Log.Error("table replay failed", zap.String("table", d.Table), zap.Duration("elapsed", elapsed), zap.Error(err))
	}
	return Result{Table: d.Table, State: StateFailed, Elapsed: elapsed, Err: err}
}

// validateSchema fails fast when a LOAD artifact declares a data column
// the source table does not have, matching the source's has_schema_diff
// panic check (excluding the Op/_dms_ingestion_timestamp columns from the
// comparison).
func validateSchema(batch *artifact.Batch, columns []source.Column) error {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c.Name] = true
	}
	for _, name := range batch.Columns {
		if name == target.OpColumn || name == target.TimestampColumn {
			continue
		}
		if !known[name] {
			return fmt.Errorf("%w: artifact column %q not found in table", ErrSchemaMismatch, name)
		}
	}
	return nil
}
