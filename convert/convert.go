// Package convert lowers a decompile.DecompiledFunction into a flat []ir.Instruction
// body, one 6502 mnemonic at a time, per the flag and addressing rules of
// §4.D. It has no notion of memory contents beyond the operand bytes
// already captured on each disasm.DisassembledInstruction; anything that
// needs a runtime memory read (indirect JMP targets, interrupt vectors) is
// expressed as IR that reads through the Value it names, not resolved here.
package convert

import (
	"github.com/pkg/errors"

	"sixtyfive/cpu"
	"sixtyfive/decompile"
	"sixtyfive/disasm"
	"sixtyfive/ir"
)

// builder accumulates the instruction stream for one function and hands out
// fresh Variable indices.
type builder struct {
	fn     *decompile.DecompiledFunction
	out    []ir.Instruction
	nextVr uint32
}

func (b *builder) v() ir.Value {
	v := ir.Variable(b.nextVr)
	b.nextVr++
	return v
}

func (b *builder) emit(ins ...ir.Instruction) { b.out = append(b.out, ins...) }

// Convert lowers every instruction in fn into IR, in order, inserting a
// Label at every address fn.Labels names. Conditional branches whose target
// lies outside fn are a structural error (§4.E); unconditional JMP outside
// fn instead becomes a tail-dispatching Return, since the decomposer may
// legitimately stop walking at a function-like boundary that JMP crosses.
//
// The second return value gives, for each index i into fn.Instructions, the
// index into the returned body where that original instruction's own IR
// run begins (after its Label, if any). The customize package uses this to
// insert per-instruction debug/poll IR without splitting a Label from the
// code it labels.
func Convert(fn *decompile.DecompiledFunction) ([]ir.Instruction, []int, error) {
	b := &builder{fn: fn}
	runStarts := make([]int, 0, len(fn.Instructions))
	for _, ins := range fn.Instructions {
		if label, ok := fn.Labels[ins.Address]; ok {
			b.emit(ir.Label(label))
		}
		runStarts = append(runStarts, len(b.out))
		if err := b.lower(ins); err != nil {
			return nil, nil, err
		}
	}
	return b.out, runStarts, nil
}

func word(lo, hi byte) uint16 { return uint16(lo) | uint16(hi)<<8 }

// operand resolves the Value an instruction's addressing mode names. JMP's
// Indirect mode and Relative branches are handled by their own lowering
// functions, not here.
func operand(ins disasm.DisassembledInstruction) ir.Value {
	switch ins.Mode {
	case disasm.Accumulator, disasm.Implied:
		return ir.Register(ir.A)
	case disasm.Immediate:
		return ir.Constant(ins.Operands[0])
	case disasm.ZeroPage:
		return ir.Memory(uint16(ins.Operands[0]), nil, true)
	case disasm.ZeroPageX:
		return ir.Memory(uint16(ins.Operands[0]), ir.RegX, true)
	case disasm.ZeroPageY:
		return ir.Memory(uint16(ins.Operands[0]), ir.RegY, true)
	case disasm.Absolute:
		return ir.Memory(word(ins.Operands[0], ins.Operands[1]), nil, false)
	case disasm.AbsoluteX:
		return ir.Memory(word(ins.Operands[0], ins.Operands[1]), ir.RegX, false)
	case disasm.AbsoluteY:
		return ir.Memory(word(ins.Operands[0], ins.Operands[1]), ir.RegY, false)
	case disasm.IndexedIndirect:
		return ir.IndirectMemory(ins.Operands[0], true, false)
	case disasm.IndirectIndexed:
		return ir.IndirectMemory(ins.Operands[0], false, true)
	default:
		return ir.Value{}
	}
}

// setZN appends the Zero/Negative flag updates every load/transfer/
// arithmetic/logical/shift instruction applies to its result value.
func (b *builder) setZN(result ir.Value) {
	b.emit(
		ir.Binary(ir.FlagValue(cpu.Zero), ir.BinaryEqual, result, ir.Constant(0)),
		ir.BitTest(ir.FlagValue(cpu.Negative), result, 7),
	)
}

func (b *builder) lower(ins disasm.DisassembledInstruction) error {
	switch ins.Mnemonic {
	case "LDA":
		return b.lowerLoad(ir.A, ins)
	case "LDX":
		return b.lowerLoad(ir.X, ins)
	case "LDY":
		return b.lowerLoad(ir.Y, ins)
	case "STA":
		b.emit(ir.Copy(operand(ins), ir.Register(ir.A)))
	case "STX":
		b.emit(ir.Copy(operand(ins), ir.Register(ir.X)))
	case "STY":
		b.emit(ir.Copy(operand(ins), ir.Register(ir.Y)))
	case "TAX":
		b.emit(ir.Copy(ir.Register(ir.X), ir.Register(ir.A)))
		b.setZN(ir.Register(ir.X))
	case "TAY":
		b.emit(ir.Copy(ir.Register(ir.Y), ir.Register(ir.A)))
		b.setZN(ir.Register(ir.Y))
	case "TXA":
		b.emit(ir.Copy(ir.Register(ir.A), ir.Register(ir.X)))
		b.setZN(ir.Register(ir.A))
	case "TYA":
		b.emit(ir.Copy(ir.Register(ir.A), ir.Register(ir.Y)))
		b.setZN(ir.Register(ir.A))
	case "TSX":
		// §4.D bugfix: TSX loads into X, never Y.
		b.emit(ir.Copy(ir.Register(ir.X), ir.StackPointer()))
		b.setZN(ir.Register(ir.X))
	case "TXS":
		b.emit(ir.Copy(ir.StackPointer(), ir.Register(ir.X)))
	case "INX":
		b.incDecRegister(ir.X, ir.BinaryAdd)
	case "INY":
		b.incDecRegister(ir.Y, ir.BinaryAdd)
	case "DEX":
		b.incDecRegister(ir.X, ir.BinarySubtract)
	case "DEY":
		b.incDecRegister(ir.Y, ir.BinarySubtract)
	case "INC":
		b.incDecMemory(operand(ins), ir.BinaryAdd)
	case "DEC":
		b.incDecMemory(operand(ins), ir.BinarySubtract)
	case "ADC":
		b.lowerADC(operand(ins))
	case "SBC":
		b.lowerSBC(operand(ins))
	case "AND":
		b.lowerLogical(ir.BinaryAnd, operand(ins))
	case "ORA":
		b.lowerLogical(ir.BinaryOr, operand(ins))
	case "EOR":
		b.lowerLogical(ir.BinaryXor, operand(ins))
	case "CMP":
		b.lowerCompare(ir.Register(ir.A), operand(ins))
	case "CPX":
		b.lowerCompare(ir.Register(ir.X), operand(ins))
	case "CPY":
		b.lowerCompare(ir.Register(ir.Y), operand(ins))
	case "ASL":
		b.lowerASL(operand(ins))
	case "LSR":
		b.lowerLSR(operand(ins))
	case "ROL":
		b.lowerROL(operand(ins))
	case "ROR":
		b.lowerROR(operand(ins))
	case "BIT":
		b.lowerBIT(operand(ins))
	case "CLC":
		b.emit(ir.Copy(ir.FlagValue(cpu.Carry), ir.Constant(0)))
	case "SEC":
		b.emit(ir.Copy(ir.FlagValue(cpu.Carry), ir.Constant(1)))
	case "CLI":
		b.emit(ir.Copy(ir.FlagValue(cpu.InterruptDisable), ir.Constant(0)))
	case "SEI":
		b.emit(ir.Copy(ir.FlagValue(cpu.InterruptDisable), ir.Constant(1)))
	case "CLV":
		b.emit(ir.Copy(ir.FlagValue(cpu.Overflow), ir.Constant(0)))
	case "CLD":
		b.emit(ir.Copy(ir.FlagValue(cpu.Decimal), ir.Constant(0)))
	case "SED":
		b.emit(ir.Copy(ir.FlagValue(cpu.Decimal), ir.Constant(1)))
	case "PHA":
		b.emit(ir.PushStackValue(ir.Register(ir.A)))
	case "PLA":
		b.emit(ir.PopStackValue(ir.Register(ir.A)))
		b.setZN(ir.Register(ir.A))
	case "PHP":
		b.emit(ir.PushStackValue(ir.AllFlagsPushed()))
	case "PLP":
		flags := b.v()
		b.emit(ir.PopStackValue(flags), ir.Copy(ir.AllFlags(), flags))
	case "NOP":
		// no operation, no operands consumed beyond the opcode byte
	case "JMP":
		return b.lowerJMP(ins)
	case "JSR":
		b.lowerJSR(ins)
	case "RTS":
		b.lowerRTS()
	case "RTI":
		b.lowerRTI()
	case "BRK":
		b.lowerBRK(ins)
	case "BCC":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Carry), false)
	case "BCS":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Carry), true)
	case "BEQ":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Zero), true)
	case "BNE":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Zero), false)
	case "BMI":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Negative), true)
	case "BPL":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Negative), false)
	case "BVC":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Overflow), false)
	case "BVS":
		return b.lowerBranch(ins, ir.FlagValue(cpu.Overflow), true)
	default:
		return errors.Errorf("convert: unsupported mnemonic %q at %#04x", ins.Mnemonic, ins.Address)
	}
	return nil
}

func (b *builder) lowerLoad(reg ir.Reg, ins disasm.DisassembledInstruction) error {
	b.emit(ir.Copy(ir.Register(reg), operand(ins)))
	b.setZN(ir.Register(reg))
	return nil
}

func (b *builder) incDecRegister(reg ir.Reg, op ir.BinaryOp) {
	sum := b.v()
	b.emit(ir.Binary(sum, op, ir.Register(reg), ir.Constant(1)))
	b.emit(ir.ConvertVariableToByte(ir.Register(reg), sum))
	b.setZN(ir.Register(reg))
}

func (b *builder) incDecMemory(mem ir.Value, op ir.BinaryOp) {
	sum := b.v()
	b.emit(ir.Binary(sum, op, mem, ir.Constant(1)))
	b.emit(ir.ConvertVariableToByte(mem, sum))
	b.setZN(mem)
}

// lowerADC computes the 9-bit sum A + M + Carry, derives Carry from bit 8
// of that sum, truncates through WrapToByte (which also sets Overflow per
// the ADC rule), and finishes with the usual Zero/Negative pass.
func (b *builder) lowerADC(m ir.Value) {
	origA := ir.Register(ir.A)
	partial := b.v()
	b.emit(ir.Binary(partial, ir.BinaryAdd, origA, m))
	full := b.v()
	b.emit(ir.Binary(full, ir.BinaryAdd, partial, ir.FlagValue(cpu.Carry)))
	b.emit(ir.BitTest(ir.FlagValue(cpu.Carry), full, 8))
	b.emit(ir.WrapToByte(ir.Register(ir.A), full, origA, m, ir.OverflowADC))
	b.setZN(ir.Register(ir.A))
}

// lowerSBC mirrors lowerADC using diff = A - M - (1 - Carry); Carry comes
// out set (no borrow) when diff >= 0.
func (b *builder) lowerSBC(m ir.Value) {
	origA := ir.Register(ir.A)
	borrow := b.v()
	b.emit(ir.Binary(borrow, ir.BinarySubtract, ir.Constant(1), ir.FlagValue(cpu.Carry)))
	partial := b.v()
	b.emit(ir.Binary(partial, ir.BinarySubtract, origA, m))
	full := b.v()
	b.emit(ir.Binary(full, ir.BinarySubtract, partial, borrow))
	b.emit(ir.Binary(ir.FlagValue(cpu.Carry), ir.BinaryGreaterOrEqual, full, ir.Constant(0)))
	b.emit(ir.WrapToByte(ir.Register(ir.A), full, origA, m, ir.OverflowSBC))
	b.setZN(ir.Register(ir.A))
}

func (b *builder) lowerLogical(op ir.BinaryOp, m ir.Value) {
	b.emit(ir.Binary(ir.Register(ir.A), op, ir.Register(ir.A), m))
	b.setZN(ir.Register(ir.A))
}

// lowerCompare implements CMP/CPX/CPY: an unsigned comparison that never
// mutates the register operand.
func (b *builder) lowerCompare(reg ir.Value, m ir.Value) {
	b.emit(ir.Binary(ir.FlagValue(cpu.Carry), ir.BinaryGreaterOrEqual, reg, m))
	b.emit(ir.Binary(ir.FlagValue(cpu.Zero), ir.BinaryEqual, reg, m))
	diff := b.v()
	b.emit(ir.Binary(diff, ir.BinarySubtract, reg, m))
	byteDiff := b.v()
	b.emit(ir.ConvertVariableToByte(byteDiff, diff))
	b.emit(ir.BitTest(ir.FlagValue(cpu.Negative), byteDiff, 7))
}

func (b *builder) lowerASL(m ir.Value) {
	b.emit(ir.BitTest(ir.FlagValue(cpu.Carry), m, 7))
	shifted := b.v()
	b.emit(ir.ShiftLeft(shifted, m, 1))
	b.emit(ir.ConvertVariableToByte(m, shifted))
	b.setZN(m)
}

func (b *builder) lowerLSR(m ir.Value) {
	b.emit(ir.BitTest(ir.FlagValue(cpu.Carry), m, 0))
	shifted := b.v()
	b.emit(ir.ShiftRightLogical(shifted, m, 1))
	b.emit(ir.ConvertVariableToByte(m, shifted))
	b.setZN(m)
}

func (b *builder) lowerROL(m ir.Value) {
	newCarry := b.v()
	b.emit(ir.BitTest(newCarry, m, 7))
	shifted := b.v()
	b.emit(ir.ShiftLeft(shifted, m, 1))
	merged := b.v()
	b.emit(ir.Binary(merged, ir.BinaryOr, shifted, ir.FlagValue(cpu.Carry)))
	b.emit(ir.Copy(ir.FlagValue(cpu.Carry), newCarry))
	b.emit(ir.ConvertVariableToByte(m, merged))
	b.setZN(m)
}

func (b *builder) lowerROR(m ir.Value) {
	newCarry := b.v()
	b.emit(ir.BitTest(newCarry, m, 0))
	shifted := b.v()
	b.emit(ir.ShiftRightLogical(shifted, m, 1))
	carryHigh := b.v()
	b.emit(ir.ShiftLeft(carryHigh, ir.FlagValue(cpu.Carry), 7))
	merged := b.v()
	b.emit(ir.Binary(merged, ir.BinaryOr, shifted, carryHigh))
	b.emit(ir.Copy(ir.FlagValue(cpu.Carry), newCarry))
	b.emit(ir.ConvertVariableToByte(m, merged))
	b.setZN(m)
}

func (b *builder) lowerBIT(m ir.Value) {
	and := b.v()
	b.emit(ir.Binary(and, ir.BinaryAnd, ir.Register(ir.A), m))
	b.emit(ir.Binary(ir.FlagValue(cpu.Zero), ir.BinaryEqual, and, ir.Constant(0)))
	b.emit(ir.BitTest(ir.FlagValue(cpu.Negative), m, 7))
	b.emit(ir.BitTest(ir.FlagValue(cpu.Overflow), m, 6))
}

// lowerBranch translates one of the eight conditional branches into a
// JumpIfZero/JumpIfNotZero against the named flag. A target outside the
// current function is a structural error: the decomposer never had a
// reason to walk there, so the compiled body has nowhere to jump to (§4.E).
func (b *builder) lowerBranch(ins disasm.DisassembledInstruction, flag ir.Value, takenWhenSet bool) error {
	if ins.Target == nil {
		return errors.Errorf("convert: branch at %#04x has no resolved target", ins.Address)
	}
	label, ok := b.fn.LabelFor(*ins.Target)
	if !ok {
		return errors.Errorf("convert: branch at %#04x targets %#04x outside its function", ins.Address, *ins.Target)
	}
	if takenWhenSet {
		b.emit(ir.JumpIfNotZero(flag, label))
	} else {
		b.emit(ir.JumpIfZero(flag, label))
	}
	return nil
}

// lowerJMP handles all three JMP shapes: an absolute target inside the
// function becomes an intra-body Jump; an absolute target outside it (or an
// indirect JMP, always runtime-resolved) becomes a tail-dispatching Return.
func (b *builder) lowerJMP(ins disasm.DisassembledInstruction) error {
	if ins.Mode == disasm.Indirect {
		ptr := word(ins.Operands[0], ins.Operands[1])
		hiAddr := (ptr & 0xFF00) | ((ptr + 1) & 0x00FF) // 6502 page-wrap bug
		lo := b.v()
		b.emit(ir.Copy(lo, ir.Memory(ptr, nil, false)))
		hi := b.v()
		b.emit(ir.Copy(hi, ir.Memory(hiAddr, nil, false)))
		target := b.combineWord(hi, lo)
		b.emit(ir.Return(target))
		return nil
	}
	if ins.Target == nil {
		return errors.Errorf("convert: JMP at %#04x has no resolved target", ins.Address)
	}
	if label, ok := b.fn.LabelFor(*ins.Target); ok {
		b.emit(ir.Jump(label))
		return nil
	}
	b.emit(ir.Return(ir.Address(*ins.Target)))
	return nil
}

func (b *builder) lowerJSR(ins disasm.DisassembledInstruction) {
	retAddr := ins.Address + 2 // address of JSR's last byte, per 6502 convention
	b.emit(
		ir.PushStackValue(ir.Constant(byte(retAddr>>8))),
		ir.PushStackValue(ir.Constant(byte(retAddr))),
		ir.CallFunction(*ins.Target),
	)
}

func (b *builder) lowerRTS() {
	lo, hi := b.v(), b.v()
	b.emit(ir.PopStackValue(lo), ir.PopStackValue(hi))
	combined := b.combineWord(hi, lo)
	plusOne := b.v()
	b.emit(ir.Binary(plusOne, ir.BinaryAdd, combined, ir.Constant(1)))
	b.emit(ir.Return(plusOne))
}

func (b *builder) lowerRTI() {
	flags := b.v()
	b.emit(ir.PopStackValue(flags), ir.Copy(ir.AllFlags(), flags))
	lo, hi := b.v(), b.v()
	b.emit(ir.PopStackValue(lo), ir.PopStackValue(hi))
	b.emit(ir.Return(b.combineWord(hi, lo)))
}

// lowerBRK pushes the BRK return address (PC+2, the padding-byte
// convention) and the flag byte with the break bit forced set, masks
// further IRQs, and tail-dispatches to whatever the IRQ/BRK vector
// currently holds — read live, since cartridge-mapped vector bytes are not
// known at convert time.
func (b *builder) lowerBRK(ins disasm.DisassembledInstruction) {
	retAddr := ins.Address + 2
	b.emit(
		ir.PushStackValue(ir.Constant(byte(retAddr>>8))),
		ir.PushStackValue(ir.Constant(byte(retAddr))),
		ir.PushStackValue(ir.AllFlagsPushed()),
		ir.Copy(ir.FlagValue(cpu.InterruptDisable), ir.Constant(1)),
		ir.InvokeSoftwareInterrupt(),
	)
	lo, hi := b.v(), b.v()
	b.emit(ir.Copy(lo, ir.Memory(cpu.VectorIRQ, nil, false)))
	b.emit(ir.Copy(hi, ir.Memory(cpu.VectorIRQ+1, nil, false)))
	b.emit(ir.Return(b.combineWord(hi, lo)))
}

func (b *builder) combineWord(hi, lo ir.Value) ir.Value {
	shifted := b.v()
	b.emit(ir.ShiftLeft(shifted, hi, 8))
	combined := b.v()
	b.emit(ir.Binary(combined, ir.BinaryOr, shifted, lo))
	return combined
}
