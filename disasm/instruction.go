// Package disasm turns raw 6502 code bytes into DisassembledInstruction
// records: opcode, mnemonic, addressing mode, operand bytes, cycle count,
// and (for control-transfer instructions with a statically known
// destination) a resolved target address.
//
// Full ROM-level disassembly and ROM loading are external collaborators
// (spec §1); this package is the lower-level mechanism the function
// decomposer (package decompile) uses to turn one instruction's worth of
// bytes, at a time, into something the IR converter can consume.
package disasm

// An AddressingMode names the rule a 6502 instruction uses to compute its
// effective operand address.
type AddressingMode int

const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
	Indirect        // JMP only
	Relative
)

func (m AddressingMode) String() string {
	switch m {
	case Implied:
		return "Implied"
	case Accumulator:
		return "Accumulator"
	case Immediate:
		return "Immediate"
	case ZeroPage:
		return "ZeroPage"
	case ZeroPageX:
		return "ZeroPageX"
	case ZeroPageY:
		return "ZeroPageY"
	case Absolute:
		return "Absolute"
	case AbsoluteX:
		return "AbsoluteX"
	case AbsoluteY:
		return "AbsoluteY"
	case IndexedIndirect:
		return "IndexedIndirect"
	case IndirectIndexed:
		return "IndirectIndexed"
	case Indirect:
		return "Indirect"
	case Relative:
		return "Relative"
	default:
		return "Unknown"
	}
}

// A DisassembledInstruction is the output of decoding a single instruction
// at a given CPU address.
type DisassembledInstruction struct {
	Address  uint16
	Opcode   byte
	Mnemonic string
	Mode     AddressingMode
	Operands []byte
	Cycles   byte

	// Target holds the statically-resolvable destination address for
	// control-transfer instructions (absolute JMP/JSR, relative
	// branches). It is nil for indirect JMP, whose destination can only
	// be known by reading memory at runtime, and for non-control-flow
	// instructions.
	Target *uint16
}

// Size returns the total instruction length in bytes, including the
// opcode byte.
func (d DisassembledInstruction) Size() int { return 1 + len(d.Operands) }

// IsUnconditionalTerminator reports whether this instruction ends a basic
// block without a deterministic fall-through: RTS, RTI, JMP, and BRK always
// transfer control elsewhere; JSR falls through at the callee's return, so
// it is not a terminator from the decomposer's point of view (§4.E).
func (d DisassembledInstruction) IsUnconditionalTerminator() bool {
	switch d.Mnemonic {
	case "RTS", "RTI", "JMP", "BRK":
		return true
	default:
		return false
	}
}

// IsConditionalBranch reports whether this is one of the eight relative
// branch instructions.
func (d DisassembledInstruction) IsConditionalBranch() bool {
	switch d.Mnemonic {
	case "BCC", "BCS", "BEQ", "BNE", "BMI", "BPL", "BVC", "BVS":
		return true
	default:
		return false
	}
}
