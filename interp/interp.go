// Package interp is a direct fetch-decode-execute 6502 interpreter. It
// shares no code with package convert; it exists to be a second,
// independently-written implementation of §4.D's flag and addressing
// rules, so the JIT path (convert/optimize/customize/codegen) can be
// checked against it as a correctness oracle, and so the driver has a
// working fallback when compilation itself is undesirable (e.g. a function
// executed only once).
package interp

import (
	"github.com/pkg/errors"

	"sixtyfive/cpu"
	"sixtyfive/disasm"
	"sixtyfive/mask"
)

// Step decodes and executes exactly one instruction at h.PC, advances h.PC
// (or, for control transfers, sets it to the destination), and returns the
// decoded instruction for tracing.
func Step(h *cpu.Hal) (disasm.DisassembledInstruction, error) {
	ins, err := disasm.Decode(h.PC, func(a uint16) byte { return h.Bus.Read(a) })
	if err != nil {
		return ins, errors.Wrapf(err, "interp: decoding at %#04x", h.PC)
	}
	next := h.PC + uint16(ins.Size())
	h.PC = next
	if err := execute(h, ins); err != nil {
		return ins, err
	}
	return ins, nil
}

// effectiveAddr resolves the memory address ins.Mode names. Implied,
// Accumulator, Immediate, Relative, and Indirect (JMP-only) have no
// ordinary effective address and are handled by their own instruction
// logic below.
func effectiveAddr(h *cpu.Hal, ins disasm.DisassembledInstruction) uint16 {
	switch ins.Mode {
	case disasm.ZeroPage:
		return uint16(ins.Operands[0])
	case disasm.ZeroPageX:
		return uint16(byte(ins.Operands[0] + h.X))
	case disasm.ZeroPageY:
		return uint16(byte(ins.Operands[0] + h.Y))
	case disasm.Absolute:
		return word(ins.Operands[0], ins.Operands[1])
	case disasm.AbsoluteX:
		return word(ins.Operands[0], ins.Operands[1]) + uint16(h.X)
	case disasm.AbsoluteY:
		return word(ins.Operands[0], ins.Operands[1]) + uint16(h.Y)
	case disasm.IndexedIndirect:
		zp := byte(ins.Operands[0] + h.X)
		lo := h.Bus.Read(uint16(zp))
		hi := h.Bus.Read(uint16(byte(zp + 1)))
		return word(lo, hi)
	case disasm.IndirectIndexed:
		zp := ins.Operands[0]
		lo := h.Bus.Read(uint16(zp))
		hi := h.Bus.Read(uint16(byte(zp + 1)))
		return word(lo, hi) + uint16(h.Y)
	default:
		return 0
	}
}

func word(lo, hi byte) uint16 { return uint16(lo) | uint16(hi)<<8 }

func operandValue(h *cpu.Hal, ins disasm.DisassembledInstruction) byte {
	if ins.Mode == disasm.Immediate {
		return ins.Operands[0]
	}
	if ins.Mode == disasm.Accumulator || ins.Mode == disasm.Implied {
		return h.A
	}
	return h.Bus.Read(effectiveAddr(h, ins))
}

func setZN(h *cpu.Hal, v byte) {
	h.SetFlag(cpu.Zero, v == 0)
	h.SetFlag(cpu.Negative, mask.IsSet(v, mask.I1)) // bit 7
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func execute(h *cpu.Hal, ins disasm.DisassembledInstruction) error {
	switch ins.Mnemonic {
	case "LDA":
		h.A = operandValue(h, ins)
		setZN(h, h.A)
	case "LDX":
		h.X = operandValue(h, ins)
		setZN(h, h.X)
	case "LDY":
		h.Y = operandValue(h, ins)
		setZN(h, h.Y)
	case "STA":
		h.Bus.Write(effectiveAddr(h, ins), h.A)
	case "STX":
		h.Bus.Write(effectiveAddr(h, ins), h.X)
	case "STY":
		h.Bus.Write(effectiveAddr(h, ins), h.Y)
	case "TAX":
		h.X = h.A
		setZN(h, h.X)
	case "TAY":
		h.Y = h.A
		setZN(h, h.Y)
	case "TXA":
		h.A = h.X
		setZN(h, h.A)
	case "TYA":
		h.A = h.Y
		setZN(h, h.A)
	case "TSX":
		h.X = h.SP // §4.D bugfix: TSX loads X, never Y.
		setZN(h, h.X)
	case "TXS":
		h.SP = h.X
	case "INX":
		h.X++
		setZN(h, h.X)
	case "INY":
		h.Y++
		setZN(h, h.Y)
	case "DEX":
		h.X--
		setZN(h, h.X)
	case "DEY":
		h.Y--
		setZN(h, h.Y)
	case "INC":
		addr := effectiveAddr(h, ins)
		v := h.Bus.Read(addr) + 1
		h.Bus.Write(addr, v)
		setZN(h, v)
	case "DEC":
		addr := effectiveAddr(h, ins)
		v := h.Bus.Read(addr) - 1
		h.Bus.Write(addr, v)
		setZN(h, v)
	case "ADC":
		adc(h, operandValue(h, ins))
	case "SBC":
		sbc(h, operandValue(h, ins))
	case "AND":
		h.A &= operandValue(h, ins)
		setZN(h, h.A)
	case "ORA":
		h.A |= operandValue(h, ins)
		setZN(h, h.A)
	case "EOR":
		h.A ^= operandValue(h, ins)
		setZN(h, h.A)
	case "CMP":
		compare(h, h.A, operandValue(h, ins))
	case "CPX":
		compare(h, h.X, operandValue(h, ins))
	case "CPY":
		compare(h, h.Y, operandValue(h, ins))
	case "ASL":
		shiftLeft(h, ins)
	case "LSR":
		shiftRightLogical(h, ins)
	case "ROL":
		rotateLeft(h, ins)
	case "ROR":
		rotateRight(h, ins)
	case "BIT":
		v := operandValue(h, ins)
		h.SetFlag(cpu.Zero, h.A&v == 0)
		h.SetFlag(cpu.Negative, mask.IsSet(v, mask.I1)) // bit 7
		h.SetFlag(cpu.Overflow, mask.IsSet(v, mask.I2)) // bit 6
	case "CLC":
		h.SetFlag(cpu.Carry, false)
	case "SEC":
		h.SetFlag(cpu.Carry, true)
	case "CLI":
		h.SetFlag(cpu.InterruptDisable, false)
	case "SEI":
		h.SetFlag(cpu.InterruptDisable, true)
	case "CLV":
		h.SetFlag(cpu.Overflow, false)
	case "CLD":
		h.SetFlag(cpu.Decimal, false)
	case "SED":
		h.SetFlag(cpu.Decimal, true)
	case "PHA":
		h.Push(h.A)
	case "PLA":
		h.A = h.Pop()
		setZN(h, h.A)
	case "PHP":
		h.Push(h.PushFlagsByte())
	case "PLP":
		h.SetFlagsByte(h.Pop())
	case "NOP":
	case "JMP":
		jmp(h, ins)
	case "JSR":
		retAddr := ins.Address + 2
		h.Push(byte(retAddr >> 8))
		h.Push(byte(retAddr))
		h.PC = *ins.Target
	case "RTS":
		lo := h.Pop()
		hi := h.Pop()
		h.PC = word(lo, hi) + 1
	case "RTI":
		h.SetFlagsByte(h.Pop())
		lo := h.Pop()
		hi := h.Pop()
		h.PC = word(lo, hi)
	case "BRK":
		brk(h, ins)
	case "BCC":
		branch(h, ins, !h.GetFlag(cpu.Carry))
	case "BCS":
		branch(h, ins, h.GetFlag(cpu.Carry))
	case "BEQ":
		branch(h, ins, h.GetFlag(cpu.Zero))
	case "BNE":
		branch(h, ins, !h.GetFlag(cpu.Zero))
	case "BMI":
		branch(h, ins, h.GetFlag(cpu.Negative))
	case "BPL":
		branch(h, ins, !h.GetFlag(cpu.Negative))
	case "BVC":
		branch(h, ins, !h.GetFlag(cpu.Overflow))
	case "BVS":
		branch(h, ins, h.GetFlag(cpu.Overflow))
	default:
		return errors.Errorf("interp: unsupported mnemonic %q at %#04x", ins.Mnemonic, ins.Address)
	}
	return nil
}

func adc(h *cpu.Hal, m byte) {
	a := h.A
	sum := int(a) + int(m) + int(boolToByte(h.GetFlag(cpu.Carry)))
	result := byte(sum)
	h.SetFlag(cpu.Carry, sum > 0xFF)
	h.SetFlag(cpu.Overflow, mask.IsSet((a^result)&(m^result), mask.I1))
	h.A = result
	setZN(h, h.A)
}

func sbc(h *cpu.Hal, m byte) {
	a := h.A
	borrow := 1 - int(boolToByte(h.GetFlag(cpu.Carry)))
	diff := int(a) - int(m) - borrow
	result := byte(diff)
	h.SetFlag(cpu.Carry, diff >= 0)
	h.SetFlag(cpu.Overflow, mask.IsSet((a^m)&(a^result), mask.I1))
	h.A = result
	setZN(h, h.A)
}

func compare(h *cpu.Hal, reg, m byte) {
	h.SetFlag(cpu.Carry, reg >= m)
	h.SetFlag(cpu.Zero, reg == m)
	h.SetFlag(cpu.Negative, mask.IsSet(reg-m, mask.I1)) // bit 7
}

func shiftLeft(h *cpu.Hal, ins disasm.DisassembledInstruction) {
	v := operandValue(h, ins)
	h.SetFlag(cpu.Carry, mask.IsSet(v, mask.I1)) // old bit 7
	result := v << 1
	writeBack(h, ins, result)
	setZN(h, result)
}

func shiftRightLogical(h *cpu.Hal, ins disasm.DisassembledInstruction) {
	v := operandValue(h, ins)
	h.SetFlag(cpu.Carry, mask.IsSet(v, mask.I8)) // old bit 0
	result := v >> 1
	writeBack(h, ins, result)
	setZN(h, result)
}

func rotateLeft(h *cpu.Hal, ins disasm.DisassembledInstruction) {
	v := operandValue(h, ins)
	newCarry := mask.IsSet(v, mask.I1) // old bit 7
	result := v<<1 | boolToByte(h.GetFlag(cpu.Carry))
	h.SetFlag(cpu.Carry, newCarry)
	writeBack(h, ins, result)
	setZN(h, result)
}

func rotateRight(h *cpu.Hal, ins disasm.DisassembledInstruction) {
	v := operandValue(h, ins)
	newCarry := mask.IsSet(v, mask.I8) // old bit 0
	result := v>>1 | boolToByte(h.GetFlag(cpu.Carry))<<7
	h.SetFlag(cpu.Carry, newCarry)
	writeBack(h, ins, result)
	setZN(h, result)
}

func writeBack(h *cpu.Hal, ins disasm.DisassembledInstruction, v byte) {
	if ins.Mode == disasm.Accumulator {
		h.A = v
		return
	}
	h.Bus.Write(effectiveAddr(h, ins), v)
}

func branch(h *cpu.Hal, ins disasm.DisassembledInstruction, taken bool) {
	if taken {
		h.PC = *ins.Target
	}
}

func jmp(h *cpu.Hal, ins disasm.DisassembledInstruction) {
	if ins.Mode == disasm.Indirect {
		ptr := word(ins.Operands[0], ins.Operands[1])
		hiAddr := (ptr & 0xFF00) | ((ptr + 1) & 0x00FF) // 6502 page-wrap bug
		lo := h.Bus.Read(ptr)
		hi := h.Bus.Read(hiAddr)
		h.PC = word(lo, hi)
		return
	}
	h.PC = *ins.Target
}

func brk(h *cpu.Hal, ins disasm.DisassembledInstruction) {
	retAddr := ins.Address + 2
	h.Push(byte(retAddr >> 8))
	h.Push(byte(retAddr))
	h.Push(h.PushFlagsByte())
	h.SetFlag(cpu.InterruptDisable, true)
	lo := h.Bus.Read(cpu.VectorIRQ)
	hi := h.Bus.Read(cpu.VectorIRQ + 1)
	h.PC = word(lo, hi)
}
