// Package customize applies per-function IR mutators before codegen: the
// standard customizer interleaves a debug string and an interrupt poll
// before every original 6502 instruction's IR, giving the execution core a
// place to both trace and yield between guest instructions (§4.G).
package customize

import (
	"fmt"

	"sixtyfive/decompile"
	"sixtyfive/ir"
)

// Mutator rewrites a function's IR body. runStarts[i] is the body index at
// which fn.Instructions[i]'s own IR run begins (as returned by
// convert.Convert), letting a mutator insert instructions immediately
// before a run without splitting a Label from the code it labels.
type Mutator func(fn *decompile.DecompiledFunction, body []ir.Instruction, runStarts []int) []ir.Instruction

// Pipeline runs each Mutator over body in order. Mutators that insert
// instructions invalidate runStarts for anything downstream in the same
// pipeline call; StandardDebugAndPoll is meant to run last for that reason.
func Pipeline(mutators ...Mutator) Mutator {
	return func(fn *decompile.DecompiledFunction, body []ir.Instruction, runStarts []int) []ir.Instruction {
		for _, m := range mutators {
			body = m(fn, body, runStarts)
		}
		return body
	}
}

// StandardDebugAndPoll is the default customizer: before the first
// instruction of each original 6502 instruction's IR run, it inserts a
// StoreDebugString naming the source address and mnemonic, followed by a
// PollForInterrupt continuing at that same address. Both are cheap no-ops
// unless a debug hook or a pending interrupt line makes them matter.
func StandardDebugAndPoll(fn *decompile.DecompiledFunction, body []ir.Instruction, runStarts []int) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(body)+2*len(fn.Instructions))
	starts := make(map[int]int, len(runStarts)) // body index -> fn.Instructions index
	for idx, at := range runStarts {
		starts[at] = idx
	}
	for i, in := range body {
		if idx, ok := starts[i]; ok {
			orig := fn.Instructions[idx]
			out = append(out,
				ir.StoreDebugString(fmt.Sprintf("$%04X %s", orig.Address, orig.Mnemonic)),
				ir.PollForInterrupt(orig.Address),
			)
		}
		out = append(out, in)
	}
	return out
}
