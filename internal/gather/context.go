// SPDX-License-Identifier: MPL-2.0

package gather

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

type (
	// Stats counts the outcome of every package operation in a run.
	Stats struct {
		Downloaded int
		Copied     int
		Skipped    int
		Failed     int
	}

	// LocalRef is a @local package reference and the first source file, by
	// base name, it was seen in.
	LocalRef struct {
		Name string
		File string
	}

	// Result is the outcome of a run.
	Result struct {
		Stats Stats
		// UnconfiguredLocal lists @local references with no [local] entry,
		// sorted by name.
		UnconfiguredLocal []LocalRef
	}

	// RunContext is the state of a single run. It is created by the run
	// that owns it and is not safe for concurrent use.
	RunContext struct {
		dest            string
		processed       map[string]struct{}
		configuredLocal map[string]struct{}
		discoveredLocal map[string]string
		stats           Stats
	}
)

// String formats the counters as "N downloaded, N copied, N skipped, N failed".
func (s Stats) String() string {
	return fmt.Sprintf("%d downloaded, %d copied, %d skipped, %d failed",
		s.Downloaded, s.Copied, s.Skipped, s.Failed)
}

// OK reports whether the run had no failures and no unconfigured local references.
func (r *Result) OK() bool {
	return r.Stats.Failed == 0 && len(r.UnconfiguredLocal) == 0
}

// NewRunContext returns the state for a run that gathers into dest, with
// the given names configured as local packages.
func NewRunContext(dest string, configuredLocal []string) *RunContext {
	rc := &RunContext{
		dest:            dest,
		processed:       make(map[string]struct{}),
		configuredLocal: make(map[string]struct{}, len(configuredLocal)),
		discoveredLocal: make(map[string]string),
	}
	for _, name := range configuredLocal {
		rc.configuredLocal[name] = struct{}{}
	}
	return rc
}

// Destination returns the cache root of the run.
func (rc *RunContext) Destination() string { return rc.dest }

// MarkProcessed records key as handled. It returns false when key was
// already recorded.
func (rc *RunContext) MarkProcessed(key string) bool {
	if _, ok := rc.processed[key]; ok {
		return false
	}
	rc.processed[key] = struct{}{}
	return true
}

// IsProcessed reports whether key has been handled in this run.
func (rc *RunContext) IsProcessed(key string) bool {
	_, ok := rc.processed[key]
	return ok
}

// Processed returns the handled keys, sorted.
func (rc *RunContext) Processed() []string {
	return slices.Sorted(maps.Keys(rc.processed))
}

// IsConfiguredLocal reports whether name has a [local] entry.
func (rc *RunContext) IsConfiguredLocal(name string) bool {
	_, ok := rc.configuredLocal[name]
	return ok
}

// RecordLocal notes a @local reference. Only the first file seen for a
// name is kept.
func (rc *RunContext) RecordLocal(name, file string) {
	if _, ok := rc.discoveredLocal[name]; !ok {
		rc.discoveredLocal[name] = file
	}
}

// Stats returns the counters so far.
func (rc *RunContext) Stats() Stats { return rc.stats }

// UnconfiguredLocal returns the recorded @local references whose name has
// no [local] entry, sorted by name.
func (rc *RunContext) UnconfiguredLocal() []LocalRef {
	var refs []LocalRef
	for name, file := range rc.discoveredLocal {
		if !rc.IsConfiguredLocal(name) {
			refs = append(refs, LocalRef{Name: name, File: file})
		}
	}
	slices.SortFunc(refs, func(a, b LocalRef) int { return cmp.Compare(a.Name, b.Name) })
	return refs
}

// Result assembles the terminal result of the run.
func (rc *RunContext) Result() *Result {
	return &Result{Stats: rc.stats, UnconfiguredLocal: rc.UnconfiguredLocal()}
}
