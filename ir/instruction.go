package ir

import (
	"fmt"
)

// Op tags the variant held by an Instruction.
type Op byte

const (
	OpCopy Op = iota
	OpUnary
	OpBinary
	OpLabel
	OpJump
	OpJumpIfZero
	OpJumpIfNotZero
	OpPushStack
	OpPopStack
	OpCallFunction
	OpReturn
	OpInvokeSoftwareInterrupt
	OpPollForInterrupt
	OpDebugString
	OpWrapToByte
	OpConvertVariableToByte
)

func (o Op) String() string {
	switch o {
	case OpCopy:
		return "Copy"
	case OpUnary:
		return "Unary"
	case OpBinary:
		return "Binary"
	case OpLabel:
		return "Label"
	case OpJump:
		return "Jump"
	case OpJumpIfZero:
		return "JumpIfZero"
	case OpJumpIfNotZero:
		return "JumpIfNotZero"
	case OpPushStack:
		return "PushStackValue"
	case OpPopStack:
		return "PopStackValue"
	case OpCallFunction:
		return "CallFunction"
	case OpReturn:
		return "Return"
	case OpInvokeSoftwareInterrupt:
		return "InvokeSoftwareInterrupt"
	case OpPollForInterrupt:
		return "PollForInterrupt"
	case OpDebugString:
		return "StoreDebugString"
	case OpWrapToByte:
		return "WrapValueToByte"
	case OpConvertVariableToByte:
		return "ConvertVariableToByte"
	default:
		return "Unknown"
	}
}

// UnaryOp names a one-operand arithmetic/logical operator.
type UnaryOp int

const (
	// UnaryShiftLeft shifts Src left by Amount bits.
	UnaryShiftLeft UnaryOp = iota
	// UnaryShiftRightLogical shifts Src right by Amount bits, unsigned.
	UnaryShiftRightLogical
	// UnaryBitTest extracts bit BitIndex of Src as 0 or 1. BitIndex may
	// exceed 7 — applied to a wider intermediate (e.g. a 9-bit ADC sum),
	// bit 8 is exactly the carry-out, which is how the converter
	// computes ADC's Carry flag without a separate "greater than 255"
	// comparison.
	UnaryBitTest
)

// BinaryOp names a two-operand arithmetic/logical operator. All binary ops
// are evaluated with 64-bit host arithmetic (§4.H) so carry/overflow
// information survives until the instruction that consumes it truncates.
type BinaryOp int

const (
	BinaryAdd BinaryOp = iota
	BinarySubtract
	BinaryAnd
	BinaryOr
	BinaryXor
	// BinaryEqual yields 1 if Src == Src2, else 0.
	BinaryEqual
	// BinaryGreaterOrEqual yields 1 if Src >= Src2 (signed host
	// comparison — operands may be negative intermediate values, as in
	// SBC's borrow computation), else 0.
	BinaryGreaterOrEqual
)

// OverflowRule selects which of the two 6502 overflow formulas WrapToByte
// applies (§4.D: ADC and SBC compute V differently from the same shape of
// instruction).
type OverflowRule int

const (
	OverflowNone OverflowRule = iota
	OverflowADC
	OverflowSBC
)

// Instruction is one flat IR node. Only the fields relevant to Op are
// populated; see the constructors below (Copy, Binary, Return, ...) for the
// shape of each Op.
type Instruction struct {
	Op Op

	Dst  Value
	Src  Value
	Src2 Value

	UnOp  UnaryOp
	BinOp BinaryOp

	// Amount: shift distance for UnaryShiftLeft/UnaryShiftRightLogical.
	// BitIndex: bit position for UnaryBitTest (may be >7 against a wide
	// intermediate Variable).
	Amount   int
	BitIndex int

	// Label / Jump / JumpIfZero / JumpIfNotZero
	Label string

	// CallFunction
	CallAddr uint16

	// Return: the 6502 address execution resumes at (an Address for a
	// target known at convert time, or a Variable for RTS/RTI which
	// compute it from the popped stack bytes).
	NextAddr Value

	// PollForInterrupt: the 6502 address to resume at on the
	// subsequent dispatch if nothing is pending.
	Continuation uint16

	// StoreDebugString
	Text string

	// WrapValueToByte
	A            Value
	M            Value
	OverflowRule OverflowRule

	// ConvertVariableToByte reuses Src/Dst.
}

// Copy returns Dst = Src, with no flag effects (callers append flag-update
// instructions separately, per §4.D's per-mnemonic flag rules).
func Copy(dst, src Value) Instruction { return Instruction{Op: OpCopy, Dst: dst, Src: src} }

// ShiftLeft returns Dst = Src << amount.
func ShiftLeft(dst, src Value, amount int) Instruction {
	return Instruction{Op: OpUnary, Dst: dst, UnOp: UnaryShiftLeft, Src: src, Amount: amount}
}

// ShiftRightLogical returns Dst = Src >> amount, unsigned.
func ShiftRightLogical(dst, src Value, amount int) Instruction {
	return Instruction{Op: OpUnary, Dst: dst, UnOp: UnaryShiftRightLogical, Src: src, Amount: amount}
}

// BitTest returns Dst = bit(Src, bitIndex), either 0 or 1.
func BitTest(dst, src Value, bitIndex int) Instruction {
	return Instruction{Op: OpUnary, Dst: dst, UnOp: UnaryBitTest, Src: src, BitIndex: bitIndex}
}

// Binary returns Dst = Src op Src2, in 64-bit host arithmetic.
func Binary(dst Value, op BinaryOp, src, src2 Value) Instruction {
	return Instruction{Op: OpBinary, Dst: dst, BinOp: op, Src: src, Src2: src2}
}

// Label marks a jump-target position. Every Label in a body must be
// defined exactly once (§4.H).
func Label(name string) Instruction { return Instruction{Op: OpLabel, Label: name} }

// Jump transfers control unconditionally to label.
func Jump(label string) Instruction { return Instruction{Op: OpJump, Label: label} }

// JumpIfZero transfers control to label iff cond reads as zero.
func JumpIfZero(cond Value, label string) Instruction {
	return Instruction{Op: OpJumpIfZero, Src: cond, Label: label}
}

// JumpIfNotZero transfers control to label iff cond reads as nonzero.
func JumpIfNotZero(cond Value, label string) Instruction {
	return Instruction{Op: OpJumpIfNotZero, Src: cond, Label: label}
}

// PushStackValue pushes src via the CPU model's stack discipline.
func PushStackValue(src Value) Instruction { return Instruction{Op: OpPushStack, Src: src} }

// PopStackValue pops into dst via the CPU model's stack discipline.
func PopStackValue(dst Value) Instruction { return Instruction{Op: OpPopStack, Dst: dst} }

// CallFunction re-enters the JIT driver for addr (§4.H, §9: trampolined,
// not a host call, so deep 6502 recursion cannot blow the host stack).
func CallFunction(addr uint16) Instruction { return Instruction{Op: OpCallFunction, CallAddr: addr} }

// Return ends the current body, handing next as the address the driver
// should dispatch to next.
func Return(next Value) Instruction { return Instruction{Op: OpReturn, NextAddr: next} }

// InvokeSoftwareInterrupt signals a BRK. It has no direct host effect
// beyond marking the point in the sequence; the surrounding IR (pushes,
// flag sets, vector Return) does the actual work (§4.H).
func InvokeSoftwareInterrupt() Instruction { return Instruction{Op: OpInvokeSoftwareInterrupt} }

// PollForInterrupt calls the CPU model's interrupt poll between
// instructions; cont is the 6502 address execution would otherwise resume
// at.
func PollForInterrupt(cont uint16) Instruction {
	return Instruction{Op: OpPollForInterrupt, Continuation: cont}
}

// StoreDebugString is a no-op in production and forwards text to
// Hal.DebugHook in debug builds (§4.A, §4.G).
func StoreDebugString(text string) Instruction { return Instruction{Op: OpDebugString, Text: text} }

// WrapToByte truncates src to 8 bits into dst and, if rule is not
// OverflowNone, sets the Overflow flag from the 6502 ADC/SBC rule applied
// to the given pre-truncation A and M operands (§4.D).
func WrapToByte(dst, src, a, m Value, rule OverflowRule) Instruction {
	return Instruction{Op: OpWrapToByte, Dst: dst, Src: src, A: a, M: m, OverflowRule: rule}
}

// ConvertVariableToByte truncates src to 8 bits into dst, with no flag
// side effects.
func ConvertVariableToByte(dst, src Value) Instruction {
	return Instruction{Op: OpConvertVariableToByte, Dst: dst, Src: src}
}

// String renders a debug-oriented rendition of the instruction, in the
// spirit of the teacher's spew-based struct dumps but scoped to the
// fields that matter for the given Op.
func (i Instruction) String() string {
	switch i.Op {
	case OpCopy:
		return fmt.Sprintf("%s = %s", i.Dst, i.Src)
	case OpUnary:
		switch i.UnOp {
		case UnaryShiftLeft:
			return fmt.Sprintf("%s = %s << %d", i.Dst, i.Src, i.Amount)
		case UnaryShiftRightLogical:
			return fmt.Sprintf("%s = %s >> %d", i.Dst, i.Src, i.Amount)
		case UnaryBitTest:
			return fmt.Sprintf("%s = bit(%s, %d)", i.Dst, i.Src, i.BitIndex)
		default:
			return fmt.Sprintf("%s = unary(%d, %s)", i.Dst, i.UnOp, i.Src)
		}
	case OpBinary:
		names := [...]string{"+", "-", "&", "|", "^", "==", ">="}
		op := "?"
		if int(i.BinOp) < len(names) {
			op = names[i.BinOp]
		}
		return fmt.Sprintf("%s = %s %s %s", i.Dst, i.Src, op, i.Src2)
	case OpLabel:
		return fmt.Sprintf("%s:", i.Label)
	case OpJump:
		return fmt.Sprintf("jump %s", i.Label)
	case OpJumpIfZero:
		return fmt.Sprintf("jz %s, %s", i.Src, i.Label)
	case OpJumpIfNotZero:
		return fmt.Sprintf("jnz %s, %s", i.Src, i.Label)
	case OpPushStack:
		return fmt.Sprintf("push %s", i.Src)
	case OpPopStack:
		return fmt.Sprintf("pop %s", i.Dst)
	case OpCallFunction:
		return fmt.Sprintf("call $%04X", i.CallAddr)
	case OpReturn:
		return fmt.Sprintf("return %s", i.NextAddr)
	case OpInvokeSoftwareInterrupt:
		return "brk"
	case OpPollForInterrupt:
		return fmt.Sprintf("poll (cont=$%04X)", i.Continuation)
	case OpDebugString:
		return fmt.Sprintf("debug %q", i.Text)
	case OpWrapToByte:
		return fmt.Sprintf("%s = wrap(%s, A=%s, M=%s, rule=%d)", i.Dst, i.Src, i.A, i.M, i.OverflowRule)
	case OpConvertVariableToByte:
		return fmt.Sprintf("%s = byte(%s)", i.Dst, i.Src)
	default:
		return "?"
	}
}
