package cache

import "github.com/pkg/errors"

// SMCTracker records which compiled function wrote to which target address,
// so the driver can explain (and the debugtui can display) why a function
// was invalidated. It is a bookkeeping side table only — Cache itself
// invalidates on any write into a function's own bytes regardless of
// whether the tracker has seen that pair before.
type SMCTracker struct {
	sourceToTarget  map[uint16]uint16
	targetToSources map[uint16]map[uint16]struct{}
}

// NewSMCTracker returns an empty tracker.
func NewSMCTracker() *SMCTracker {
	return &SMCTracker{
		sourceToTarget:  make(map[uint16]uint16),
		targetToSources: make(map[uint16]map[uint16]struct{}),
	}
}

// Record notes that the function entered at source writes to target. Each
// source has at most one target: a second, different target recorded for a
// source already attributed to one is a structural bug (two unrelated
// self-modifying writes sharing a single originating instruction is not a
// configuration the decomposed function set should produce) and Record
// reports it as a fatal error naming the source address, rather than
// picking one arbitrarily (§3, §7).
func (t *SMCTracker) Record(source, target uint16) error {
	if existing, ok := t.sourceToTarget[source]; ok && existing != target {
		return errors.Errorf("cache: source %#04x already attributed to target %#04x, cannot also attribute to %#04x", source, existing, target)
	}
	t.sourceToTarget[source] = target
	if t.targetToSources[target] == nil {
		t.targetToSources[target] = make(map[uint16]struct{})
	}
	t.targetToSources[target][source] = struct{}{}
	return nil
}

// TargetsOf returns the address source is known to write to, as a
// single-element slice, or nil if source has recorded no write.
func (t *SMCTracker) TargetsOf(source uint16) []uint16 {
	target, ok := t.sourceToTarget[source]
	if !ok {
		return nil
	}
	return []uint16{target}
}

// SourceOf returns every function address known to write to target.
func (t *SMCTracker) SourceOf(target uint16) []uint16 {
	var out []uint16
	for s := range t.targetToSources[target] {
		out = append(out, s)
	}
	return out
}
