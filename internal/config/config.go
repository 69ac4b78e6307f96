// Package config reads the environment-variable tunables the replay engine
// is driven by and freezes them into a single immutable snapshot at process
// start. No component re-reads os.Getenv after Load returns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Tuning is the frozen set of environment-sourced knobs that shape how
// aggressively the replay engine reads artifacts and writes to the target.
type Tuning struct {
	// NumBuffers is read from NUM_OF_BUFFERS. No component consults it: the
	// number of tables replayed concurrently comes from the CLI's
	// --max-parallel-tables flag instead.
	NumBuffers int
	// RowsPerChunk bounds how many rows are sent per bulk_insert statement
	// (ROWS_PER_DF).
	RowsPerChunk int
	// DelayInsert, when true, sleeps InsertDelayMillis between chunks for tables
	// named in DelayableTables (DELAY_INSERT).
	DelayInsert bool
	// InsertDelayMillis is the sleep duration applied between chunks when
	// DelayInsert is set (INSERT_DELAY, milliseconds).
	InsertDelayMillis int
	// DelayableTables is the set of "schema.table" fingerprints DelayInsert
	// applies to (DELAYABLE_CONFIG, comma-separated).
	DelayableTables map[string]bool
}

const (
	defaultNumBuffers  = 4
	defaultRowsPerDF   = 10000
	defaultInsertDelay = 0
)

// Load reads NUM_OF_BUFFERS, ROWS_PER_DF, DELAY_INSERT, INSERT_DELAY, and
// DELAYABLE_CONFIG from the environment and returns an immutable snapshot.
// Malformed numeric values fall back to their defaults rather than failing
// the whole process.
func Load() *Tuning {
	t := &Tuning{
		NumBuffers:        envInt("NUM_OF_BUFFERS", defaultNumBuffers),
		RowsPerChunk:      envInt("ROWS_PER_DF", defaultRowsPerDF),
		DelayInsert:       envBool("DELAY_INSERT"),
		InsertDelayMillis: envInt("INSERT_DELAY", defaultInsertDelay),
		DelayableTables:   envSet("DELAYABLE_CONFIG"),
	}
	return t
}

// ShouldDelay reports whether DelayInsert applies to the table identified
// by fingerprint, a "schema.table" string. An empty DelayableTables set
// throttles nothing -- membership must be named explicitly in
// DELAYABLE_CONFIG.
func (t *Tuning) ShouldDelay(fingerprint string) bool {
	if !t.DelayInsert {
		return false
	}
	return t.DelayableTables[fingerprint]
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return raw == "1" || raw == "true" || raw == "yes"
}

func envSet(key string) map[string]bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = true
		}
	}
	return set
}

// RunMode selects which phases a replay-and-verify invocation performs.
type RunMode struct {
	OnlyReplay bool
	OnlyVerify bool
}

// Validate rejects the combination the original tool panics on: a request
// that is simultaneously restricted to replay-only and verify-only.
func (m RunMode) Validate() error {
	if m.OnlyReplay && m.OnlyVerify {
		return fmt.Errorf("config: --only-replay and --only-verify are mutually exclusive")
	}
	return nil
}

// ShouldReplay reports whether the replay phase should run for this mode.
func (m RunMode) ShouldReplay() bool { return !m.OnlyVerify }

// ShouldVerify reports whether the verification phase should run for this mode.
func (m RunMode) ShouldVerify() bool { return !m.OnlyReplay }
