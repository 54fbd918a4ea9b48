// Package ir is the tagged intermediate representation that every 6502
// instruction lowers into (package convert), that the optimizer scans for
// self-modifying writes (package optimize), and that the executable-method
// generator consumes (package codegen). The interpreter (package interp)
// executes decoded 6502 instructions directly and does not use IR.
//
// There are no cyclic references among IR nodes: a DecompiledFunction's
// body is a flat instruction sequence, and jump targets are resolved by
// label name rather than by pointer, so a builder never needs to
// back-patch.
package ir

import (
	"fmt"

	"sixtyfive/cpu"
)

// Reg names one of the three 8-bit data registers.
type Reg int

const (
	A Reg = iota
	X
	Y
)

func (r Reg) String() string { return [...]string{"A", "X", "Y"}[r] }

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindConstant ValueKind = iota
	KindRegister
	KindMemory
	KindIndirectMemory
	KindVariable
	KindFlag
	KindAllFlags
	KindAllFlagsPushed
	KindStackPointer
	KindAddress
)

// Value is every operand kind the IR can name: an immediate byte, a
// register, a direct or indexed memory reference, an indirect ((zp,X) /
// (zp),Y) memory reference, a local temporary, a single flag bit, the
// packed flag byte, or the stack pointer.
//
// Only the fields relevant to Kind are meaningful; this mirrors the
// teacher pack's byte-tagged bytecode (KTStephano-GVM's Bytecode) rather
// than a Go sum-type-via-interface, since every Value is small, fixed in
// shape, and compared frequently by the optimizer.
type Value struct {
	Kind ValueKind

	Const byte

	Reg Reg

	Addr              uint16
	Index             *Reg
	SingleByteAddress bool

	ZeroPage    byte
	PreIndexed  bool
	PostIndexed bool

	Var uint32

	Flag cpu.Flag
}

// Constant returns an immediate-byte Value.
func Constant(b byte) Value { return Value{Kind: KindConstant, Const: b} }

// Register returns a Value naming register r.
func Register(r Reg) Value { return Value{Kind: KindRegister, Reg: r} }

// Memory returns a direct or register-indexed memory reference.
// singleByteAddress true means zero-page semantics: the effective address
// wraps modulo 0x100 rather than 0x10000.
func Memory(addr uint16, index *Reg, singleByteAddress bool) Value {
	return Value{Kind: KindMemory, Addr: addr, Index: index, SingleByteAddress: singleByteAddress}
}

// IndirectMemory returns a (zp,X)-style or (zp),Y-style memory reference.
// Exactly one of preIndexed/postIndexed should be true.
func IndirectMemory(zp byte, preIndexed, postIndexed bool) Value {
	return Value{Kind: KindIndirectMemory, ZeroPage: zp, PreIndexed: preIndexed, PostIndexed: postIndexed}
}

// Variable returns a reference to local temporary index. Variables are
// renumbered densely; their lifetime is the IR body of one 6502
// instruction unless the optimizer extends it to the whole function.
func Variable(index uint32) Value { return Value{Kind: KindVariable, Var: index} }

// FlagValue returns a single-bit reference to flag f.
func FlagValue(f cpu.Flag) Value { return Value{Kind: KindFlag, Flag: f} }

// AllFlags returns a reference to the packed flag byte.
func AllFlags() Value { return Value{Kind: KindAllFlags} }

// AllFlagsPushed returns the packed flag byte the way PHP and BRK push it
// (Hal.PushFlagsByte: BFlag and Unused both forced to 1). It is read-only —
// it names what gets pushed onto the stack, never a Copy destination.
func AllFlagsPushed() Value { return Value{Kind: KindAllFlagsPushed} }

// StackPointer returns a reference to the 8-bit stack pointer.
func StackPointer() Value { return Value{Kind: KindStackPointer} }

// Address returns a literal 16-bit address, used as a Return target when
// the destination is known at convert time but isn't a byte-sized operand
// (so Constant cannot hold it).
func Address(addr uint16) Value { return Value{Kind: KindAddress, Addr: addr} }

// RegX and RegY are convenience pointers used to build indexed Memory
// values without taking the address of a composite literal at each call
// site.
var (
	RegX = &[1]Reg{X}[0]
	RegY = &[1]Reg{Y}[0]
)

// Equal reports whether v and o denote the same operand.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindConstant:
		return v.Const == o.Const
	case KindRegister:
		return v.Reg == o.Reg
	case KindMemory:
		if v.Addr != o.Addr || v.SingleByteAddress != o.SingleByteAddress {
			return false
		}
		if (v.Index == nil) != (o.Index == nil) {
			return false
		}
		return v.Index == nil || *v.Index == *o.Index
	case KindIndirectMemory:
		return v.ZeroPage == o.ZeroPage && v.PreIndexed == o.PreIndexed && v.PostIndexed == o.PostIndexed
	case KindVariable:
		return v.Var == o.Var
	case KindFlag:
		return v.Flag == o.Flag
	case KindAddress:
		return v.Addr == o.Addr
	case KindAllFlags, KindAllFlagsPushed, KindStackPointer:
		return true
	default:
		return false
	}
}

// String renders a human-readable operand, used by debug strings and the
// inspector.
func (v Value) String() string {
	switch v.Kind {
	case KindConstant:
		return fmt.Sprintf("#$%02X", v.Const)
	case KindRegister:
		return v.Reg.String()
	case KindMemory:
		if v.Index != nil {
			return fmt.Sprintf("$%04X,%s", v.Addr, v.Index.String())
		}
		return fmt.Sprintf("$%04X", v.Addr)
	case KindIndirectMemory:
		if v.PreIndexed {
			return fmt.Sprintf("($%02X,X)", v.ZeroPage)
		}
		return fmt.Sprintf("($%02X),Y", v.ZeroPage)
	case KindVariable:
		return fmt.Sprintf("v%d", v.Var)
	case KindFlag:
		return fmt.Sprintf("flag(%d)", v.Flag)
	case KindAllFlags:
		return "P"
	case KindAllFlagsPushed:
		return "P|breakflag"
	case KindAddress:
		return fmt.Sprintf("@$%04X", v.Addr)
	case KindStackPointer:
		return "SP"
	default:
		return "?"
	}
}
