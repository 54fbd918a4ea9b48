// Package codegen compiles a finished (converted, optimized, customized) IR
// body into an executable Method over a scratch-local array, run as
// Method.Run(hal) -> (Result, error). There is no machine-code backend here —
// in the spirit of the teacher pack's own preference for closures and
// interfaces over unsafe/cgo, "compiling" means building a Go function
// value that walks the IR once per call using resolved label offsets and a
// pre-sized locals array, instead of re-decoding IR nodes' label names on
// every dispatch (§4.H).
package codegen

import (
	"github.com/pkg/errors"

	"sixtyfive/cpu"
	"sixtyfive/ir"
)

// ExitReason tags why a Method returned control to the driver.
type ExitReason int32

const (
	ExitReturned ExitReason = iota
	ExitCalledFunction
	ExitPolledInterrupt
	ExitBailout
)

// Result is what a compiled Method call produces.
type Result struct {
	Reason ExitReason
	// NextAddr is valid for ExitReturned, ExitCalledFunction (the callee
	// entry), ExitPolledInterrupt (the handler address read from the
	// interrupt vector, not the continuation -- that address was already
	// pushed to the stack) and
	// ExitBailout (the continuation to recompile and resume at).
	NextAddr uint16
}

// Method is one compiled function body, callable repeatedly. Every Run
// starts at the body's first instruction; a Method keeps no position between
// calls, and execution that must continue elsewhere does so through the
// NextAddr the driver dispatches to.
type Method struct {
	instructions []ir.Instruction
	labels       map[string]int
	numLocals    uint32
}

// Compile resolves every Label in body to its instruction index and sizes
// the scratch-local array to one past the highest Variable index
// referenced, returning a Method ready to Run.
func Compile(body []ir.Instruction) (*Method, error) {
	labels := make(map[string]int)
	var maxVar uint32
	hasVar := false
	for i, in := range body {
		if in.Op == ir.OpLabel {
			if _, dup := labels[in.Label]; dup {
				return nil, errors.Errorf("codegen: label %q defined twice", in.Label)
			}
			labels[in.Label] = i
		}
		for _, v := range []ir.Value{in.Dst, in.Src, in.Src2, in.NextAddr, in.A, in.M} {
			if v.Kind == ir.KindVariable {
				if !hasVar || v.Var > maxVar {
					maxVar = v.Var
				}
				hasVar = true
			}
		}
	}
	n := uint32(0)
	if hasVar {
		n = maxVar + 1
	}
	return &Method{instructions: body, labels: labels, numLocals: n}, nil
}

// Run executes the compiled body against h starting at instruction index 0,
// until a Return, CallFunction, PollForInterrupt, or bailout ends the call.
func (m *Method) Run(h *cpu.Hal) (Result, error) {
	locals := make([]int64, m.numLocals)
	pc := 0
	for pc < len(m.instructions) {
		in := m.instructions[pc]
		switch in.Op {
		case ir.OpLabel:
			pc++
			continue
		case ir.OpJump:
			target, ok := m.labels[in.Label]
			if !ok {
				return Result{}, errors.Errorf("codegen: undefined label %q", in.Label)
			}
			pc = target
			continue
		case ir.OpJumpIfZero, ir.OpJumpIfNotZero:
			cond := read(h, locals, in.Src)
			taken := cond == 0
			if in.Op == ir.OpJumpIfNotZero {
				taken = !taken
			}
			if taken {
				target, ok := m.labels[in.Label]
				if !ok {
					return Result{}, errors.Errorf("codegen: undefined label %q", in.Label)
				}
				pc = target
				continue
			}
		case ir.OpCopy:
			write(h, locals, in.Dst, read(h, locals, in.Src))
		case ir.OpUnary:
			write(h, locals, in.Dst, evalUnary(in, read(h, locals, in.Src)))
		case ir.OpBinary:
			write(h, locals, in.Dst, evalBinary(in, read(h, locals, in.Src), read(h, locals, in.Src2)))
		case ir.OpWrapToByte:
			evalWrapToByte(h, locals, in)
		case ir.OpConvertVariableToByte:
			write(h, locals, in.Dst, int64(byte(read(h, locals, in.Src))))
		case ir.OpPushStack:
			h.Push(byte(read(h, locals, in.Src)))
		case ir.OpPopStack:
			write(h, locals, in.Dst, int64(h.Pop()))
		case ir.OpDebugString:
			h.DebugHook(in.Text)
		case ir.OpInvokeSoftwareInterrupt:
			// marks the point in the sequence; the surrounding pushes
			// and vector Return (emitted by convert) do the work.
		case ir.OpPollForInterrupt:
			if h.Bailout() {
				return Result{Reason: ExitBailout, NextAddr: in.Continuation}, nil
			}
			if vector, pending := h.DispatchInterrupt(in.Continuation); pending {
				return Result{Reason: ExitPolledInterrupt, NextAddr: vector}, nil
			}
		case ir.OpCallFunction:
			return Result{Reason: ExitCalledFunction, NextAddr: in.CallAddr}, nil
		case ir.OpReturn:
			return Result{Reason: ExitReturned, NextAddr: resolveAddr(h, locals, in.NextAddr)}, nil
		default:
			return Result{}, errors.Errorf("codegen: unhandled op %s", in.Op)
		}
		pc++
	}
	return Result{Reason: ExitReturned}, nil
}

func resolveAddr(h *cpu.Hal, locals []int64, v ir.Value) uint16 {
	if v.Kind == ir.KindAddress {
		return v.Addr
	}
	return uint16(read(h, locals, v))
}

func read(h *cpu.Hal, locals []int64, v ir.Value) int64 {
	switch v.Kind {
	case ir.KindConstant:
		return int64(v.Const)
	case ir.KindRegister:
		switch v.Reg {
		case ir.A:
			return int64(h.A)
		case ir.X:
			return int64(h.X)
		default:
			return int64(h.Y)
		}
	case ir.KindMemory:
		return int64(h.Bus.Read(memAddr(h, v)))
	case ir.KindIndirectMemory:
		return int64(h.Bus.Read(indirectAddr(h, v)))
	case ir.KindVariable:
		return locals[v.Var]
	case ir.KindFlag:
		if h.GetFlag(v.Flag) {
			return 1
		}
		return 0
	case ir.KindAllFlags:
		return int64(h.FlagsByte())
	case ir.KindAllFlagsPushed:
		return int64(h.PushFlagsByte())
	case ir.KindStackPointer:
		return int64(h.SP)
	case ir.KindAddress:
		return int64(v.Addr)
	default:
		return 0
	}
}

func write(h *cpu.Hal, locals []int64, dst ir.Value, val int64) {
	switch dst.Kind {
	case ir.KindRegister:
		switch dst.Reg {
		case ir.A:
			h.A = byte(val)
		case ir.X:
			h.X = byte(val)
		default:
			h.Y = byte(val)
		}
	case ir.KindMemory:
		h.Bus.Write(memAddr(h, dst), byte(val))
	case ir.KindIndirectMemory:
		h.Bus.Write(indirectAddr(h, dst), byte(val))
	case ir.KindVariable:
		locals[dst.Var] = val
	case ir.KindFlag:
		h.SetFlag(dst.Flag, val != 0)
	case ir.KindAllFlags:
		h.SetFlagsByte(byte(val))
	case ir.KindStackPointer:
		h.SP = byte(val)
	}
}

func memAddr(h *cpu.Hal, v ir.Value) uint16 {
	base := v.Addr
	if v.Index != nil {
		var idx byte
		if *v.Index == ir.X {
			idx = h.X
		} else {
			idx = h.Y
		}
		if v.SingleByteAddress {
			return uint16(byte(base) + idx)
		}
		return base + uint16(idx)
	}
	return base
}

func indirectAddr(h *cpu.Hal, v ir.Value) uint16 {
	if v.PreIndexed {
		zp := byte(v.ZeroPage + h.X)
		lo := h.Bus.Read(uint16(zp))
		hi := h.Bus.Read(uint16(byte(zp + 1)))
		return uint16(lo) | uint16(hi)<<8
	}
	lo := h.Bus.Read(uint16(v.ZeroPage))
	hi := h.Bus.Read(uint16(byte(v.ZeroPage + 1)))
	return (uint16(lo) | uint16(hi)<<8) + uint16(h.Y)
}

func evalUnary(in ir.Instruction, src int64) int64 {
	switch in.UnOp {
	case ir.UnaryShiftLeft:
		return src << uint(in.Amount)
	case ir.UnaryShiftRightLogical:
		return src >> uint(in.Amount)
	case ir.UnaryBitTest:
		if src&(1<<uint(in.BitIndex)) != 0 {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func evalBinary(in ir.Instruction, a, b int64) int64 {
	switch in.BinOp {
	case ir.BinaryAdd:
		return a + b
	case ir.BinarySubtract:
		return a - b
	case ir.BinaryAnd:
		return a & b
	case ir.BinaryOr:
		return a | b
	case ir.BinaryXor:
		return a ^ b
	case ir.BinaryEqual:
		if a == b {
			return 1
		}
		return 0
	case ir.BinaryGreaterOrEqual:
		if a >= b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// evalWrapToByte truncates Src to a byte into Dst and, for ADC/SBC, sets
// the Overflow flag from the 6502 signed-overflow rule applied to the
// pre-truncation A and M operands (§4.D).
func evalWrapToByte(h *cpu.Hal, locals []int64, in ir.Instruction) {
	src := read(h, locals, in.Src)
	result := byte(src)
	if in.OverflowRule != ir.OverflowNone {
		a := byte(read(h, locals, in.A))
		m := byte(read(h, locals, in.M))
		var overflow bool
		switch in.OverflowRule {
		case ir.OverflowADC:
			overflow = (a^result)&(m^result)&0x80 != 0
		case ir.OverflowSBC:
			overflow = (a^m)&(a^result)&0x80 != 0
		}
		h.SetFlag(cpu.Overflow, overflow)
	}
	write(h, locals, in.Dst, int64(result))
}
