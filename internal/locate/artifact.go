// Package locate discovers the ordered set of DMS artifacts (a full LOAD
// export plus incremental CDC files) that make up one table's replay plan.
package locate

import (
	"strings"
	"time"
)

// Kind distinguishes a full-snapshot LOAD artifact from an incremental CDC
// artifact. DMS tags object keys with these substrings.
type Kind int

const (
	KindLoad Kind = iota
	KindChange
)

const loadMarker = "LOAD"

// Artifact is one object-storage reference the replay driver will fetch
// and decode, in the order it must be applied.
type Artifact struct {
	Key          string
	Kind         Kind
	LastModified time.Time
}

// IsLoad reports whether this artifact is a full-snapshot export, mirroring
// the source's is_load_file check on the object key.
func (a Artifact) IsLoad() bool { return a.Kind == KindLoad }

func classify(key string) Kind {
	if strings.Contains(key, loadMarker) {
		return KindLoad
	}
	return KindChange
}

// Mode selects how the artifact set for one table is discovered.
type Mode int

const (
	// ModeDateAware lists a date-partitioned prefix in object storage and
	// keeps LOAD artifacts plus CDC artifacts modified after StartDate (and,
	// if set, before StopDate).
	ModeDateAware Mode = iota
	// ModeFullLoadOnly lists the same prefix but restricts the result to
	// LOAD artifacts; no incremental CDC files are applied.
	ModeFullLoadOnly
	// ModeAbsolutePath addresses a single artifact directly by key, with
	// no listing call at all.
	ModeAbsolutePath
)

// Reorder moves every LOAD artifact to the front of the slice, preserving
// the relative order within each class, so the full snapshot always applies
// before any incremental change. It is a single-pass stable partition into
// LOAD and CDC artifacts, concatenated LOAD-first.
func Reorder(artifacts []Artifact) []Artifact {
	loads := make([]Artifact, 0, len(artifacts))
	changes := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if a.IsLoad() {
			loads = append(loads, a)
		} else {
			changes = append(changes, a)
		}
	}
	out := make([]Artifact, 0, len(artifacts))
	out = append(out, loads...)
	out = append(out, changes...)
	return out
}
