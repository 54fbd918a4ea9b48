// Package decompile walks a 6502 code region from an entry address,
// following fall-through and in-region branch targets, to produce a
// DecompiledFunction: an ordered instruction list plus the set of
// intra-function jump targets that need a label (§4.E).
package decompile

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"sixtyfive/disasm"
	"sixtyfive/mem"
)

// A DecompiledFunction is the decomposer's output for one entry address:
// an ordered instruction list, plus a map from every branch/jump target
// address that lies inside this body to the label identifier the
// converter should emit for it.
type DecompiledFunction struct {
	Entry        uint16
	Name         string
	Instructions []disasm.DisassembledInstruction
	Labels       map[uint16]string
}

// LabelFor returns the label identifier for target, and whether target is
// an intra-function branch destination at all.
func (f *DecompiledFunction) LabelFor(target uint16) (string, bool) {
	l, ok := f.Labels[target]
	return l, ok
}

// InstructionAddresses returns the set of every guest address occupied by
// any instruction byte in this function — opcode bytes and operand bytes
// alike. The cache (package cache) uses this set to compute the pages a
// compiled body touches, and the Hal uses it to recognize a
// self-modifying write into the currently-running body.
func (f *DecompiledFunction) InstructionAddresses() map[uint16]struct{} {
	addrs := make(map[uint16]struct{})
	for _, ins := range f.Instructions {
		for i := 0; i < ins.Size(); i++ {
			addrs[ins.Address+uint16(i)] = struct{}{}
		}
	}
	return addrs
}

func regionReader(regions []mem.CodeRegion) (disasm.ReadByte, func(uint16) bool) {
	inRegion := func(addr uint16) bool {
		for _, r := range regions {
			if addr >= r.Base && int(addr-r.Base) < len(r.Bytes) {
				return true
			}
		}
		return false
	}
	read := func(addr uint16) byte {
		for _, r := range regions {
			if addr >= r.Base && int(addr-r.Base) < len(r.Bytes) {
				return r.Bytes[addr-r.Base]
			}
		}
		return 0
	}
	return read, inRegion
}

// Decompose performs the reachability walk described in §4.E, starting at
// entry. Each address is visited at most once. A conditional branch
// contributes both its fall-through and its target; JSR contributes only
// its fall-through (the callee is compiled separately, on its own entry
// dispatch, never inlined into this walk); RTS/RTI/JMP/BRK are
// unconditional terminators and contribute no fall-through.
func Decompose(entry uint16, regions []mem.CodeRegion) (*DecompiledFunction, error) {
	read, inRegion := regionReader(regions)

	if !inRegion(entry) {
		return nil, errors.Errorf("decompile: entry address %#04x is not in any code region", entry)
	}

	visited := make(map[uint16]disasm.DisassembledInstruction)
	queue := []uint16{entry}

	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]

		if _, seen := visited[addr]; seen {
			continue
		}
		if !inRegion(addr) {
			continue
		}

		ins, err := disasm.Decode(addr, read)
		if err != nil {
			return nil, errors.Wrapf(err, "decompiling function at %#04x", entry)
		}
		visited[addr] = ins

		if !ins.IsUnconditionalTerminator() {
			queue = append(queue, addr+uint16(ins.Size()))
		}
		if ins.Target != nil && ins.Mnemonic != "JSR" {
			queue = append(queue, *ins.Target)
		}
	}

	addrs := make([]uint16, 0, len(visited))
	for a := range visited {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	instrs := make([]disasm.DisassembledInstruction, len(addrs))
	for i, a := range addrs {
		instrs[i] = visited[a]
	}

	labels := make(map[uint16]string)
	next := 0
	for _, ins := range instrs {
		if ins.Target == nil || ins.Mnemonic == "JSR" {
			continue
		}
		if _, inBody := visited[*ins.Target]; !inBody {
			continue
		}
		if _, has := labels[*ins.Target]; has {
			continue
		}
		labels[*ins.Target] = fmt.Sprintf("L%d", next)
		next++
	}

	return &DecompiledFunction{
		Entry:        entry,
		Name:         fmt.Sprintf("fn_%04x", entry),
		Instructions: instrs,
		Labels:       labels,
	}, nil
}
