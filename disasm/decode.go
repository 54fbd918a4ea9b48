package disasm

import "github.com/pkg/errors"

// ErrIllegalOpcode is wrapped with the offending address and byte by
// Decode when it encounters a byte that is not a documented 6502 opcode.
// This is a structural (fatal) error per spec §7 — the decomposer that
// drives Decode aborts on it rather than guessing.
var ErrIllegalOpcode = errors.New("disasm: illegal opcode")

// ReadByte reads one byte of guest memory at addr. Decode uses it instead
// of taking a *mem.Bus directly so it can run equally well over a live bus
// or over a raw code-region slice.
type ReadByte func(addr uint16) byte

// Decode disassembles the single instruction at addr, reading as many
// operand bytes as its addressing mode requires via read.
func Decode(addr uint16, read ReadByte) (DisassembledInstruction, error) {
	opByte := read(addr)
	info, ok := opcodes[opByte]
	if !ok {
		return DisassembledInstruction{}, errors.Wrapf(ErrIllegalOpcode, "address %#04x, byte %#02x", addr, opByte)
	}

	n := operandBytes(info.mode)
	operands := make([]byte, n)
	for i := 0; i < n; i++ {
		operands[i] = read(addr + 1 + uint16(i))
	}

	d := DisassembledInstruction{
		Address:  addr,
		Opcode:   opByte,
		Mnemonic: info.mnemonic,
		Mode:     info.mode,
		Operands: operands,
		Cycles:   info.cycles,
	}
	d.Target = resolveTarget(d)
	return d, nil
}

// resolveTarget computes the statically-known control-transfer destination
// for JMP/JSR (Absolute) and the eight relative branches. Indirect JMP has
// no statically-known destination — its pointer is dereferenced at
// runtime, and may itself be the subject of self-modifying code — so it is
// left nil.
func resolveTarget(d DisassembledInstruction) *uint16 {
	switch d.Mode {
	case Absolute:
		if d.Mnemonic == "JMP" || d.Mnemonic == "JSR" {
			t := word(d.Operands[0], d.Operands[1])
			return &t
		}
	case Relative:
		rel := int8(d.Operands[0])
		// The displacement is relative to the address of the
		// instruction immediately following this one.
		t := uint16(int32(d.Address) + int32(d.Size()) + int32(rel))
		return &t
	}
	return nil
}

func word(lo, hi byte) uint16 { return uint16(lo) | uint16(hi)<<8 }
