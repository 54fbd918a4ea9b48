// Package optimize scans a converted IR body so that self-modifying code
// (SMC) is visible to the cache's invalidation machinery instead of
// silently producing stale results. A direct Copy into a Memory address
// that also appears among the compiled function's own instruction bytes
// is, definitionally, this function rewriting itself; Rewrite reports that
// write as a (source, target) pair the cache can track, per §5, and leaves
// the body itself unchanged.
package optimize

import "sixtyfive/ir"

// SMCWrite names one write instruction, within a function compiled from
// entry, whose target address falls inside a function's own instruction
// bytes. The cache uses these to seed its SMC tracker.
type SMCWrite struct {
	// SourceAddr is the 6502 address of the instruction performing the
	// write (best-effort — the IR does not carry per-instruction source
	// addresses, so this is attached by the caller from the
	// decompile.DecompiledFunction instruction list, matched by index).
	SourceAddr uint16
	// TargetAddr is the address being written to.
	TargetAddr uint16
}

// Rewrite walks body and returns it unchanged (direct Memory reads/writes
// are always re-read from the bus at execution time in this design — see
// DESIGN.md's "optimize" entry for why no operand rewriting is needed) plus
// the set of writes whose target lies in selfAddrs, annotated with the
// source address sourceOf reports for the instruction at that index.
func Rewrite(body []ir.Instruction, selfAddrs map[uint16]struct{}, sourceOf func(index int) uint16) ([]ir.Instruction, []SMCWrite) {
	var writes []SMCWrite
	for i, in := range body {
		if in.Op != ir.OpCopy || in.Dst.Kind != ir.KindMemory {
			continue
		}
		// §4.F: only zero-page, non-indexed direct writes are in scope --
		// an indexed or out-of-page write's target can't be proven at
		// compile time, so it can't seed the tracker.
		if in.Dst.Index != nil || !in.Dst.SingleByteAddress {
			continue
		}
		if _, inBody := selfAddrs[in.Dst.Addr]; inBody {
			writes = append(writes, SMCWrite{SourceAddr: sourceOf(i), TargetAddr: in.Dst.Addr})
		}
	}
	return body, writes
}
