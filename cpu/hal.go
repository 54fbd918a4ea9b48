// Package cpu implements the MOS Technology 6502 register file and flag
// byte, as used by the NES and the C64, plus the small set of hooks the
// execution core (interpreter and generated bodies alike) needs: stack
// push/pop, interrupt polling, and the self-modifying-code bailout signal.
//
// The Hal owns no memory of its own beyond its registers; all reads and
// writes go through a *mem.Bus.
package cpu

import (
	"fmt"

	"sixtyfive/mem"
)

// Interrupt vectors, read from the top of the address space.
const (
	VectorNMI   uint16 = 0xFFFA
	VectorReset uint16 = 0xFFFC
	VectorIRQ   uint16 = 0xFFFE
)

// A Flag names one bit of the processor-status register. See
// https://www.nesdev.org/wiki/Status_flags#Flags for the canonical layout;
// the bit positions below match 6502 hardware (Carry is bit 0, Negative is
// bit 7).
type Flag int

const (
	Carry            Flag = iota // bit 0
	Zero                         // bit 1
	InterruptDisable             // bit 2
	Decimal                      // bit 3
	BFlag                        // bit 4 — exists only when pushed, never in the live register
	Unused                       // bit 5 — always 1 when pushed
	Overflow                     // bit 6
	Negative                     // bit 7
)

// Hal is the register file: three 8-bit data registers, the stack pointer,
// a program-counter sentinel (used only for debug output and the BRK
// return-address push — the generated/interpreted execution core tracks
// the "real" dispatch address itself), and the flag bits.
type Hal struct {
	Bus *mem.Bus

	A, X, Y byte
	SP      byte
	PC      uint16

	flags [8]bool

	pendingNMI bool
	pendingIRQ bool

	activeAddrs map[uint16]struct{}
	bailout     bool

	debug func(string)
}

// New returns a Hal wired to bus, with the flag byte in its post-reset
// state (Unused set, everything else clear) and SP at the conventional
// post-reset value of 0xFD.
func New(bus *mem.Bus) *Hal {
	h := &Hal{Bus: bus, SP: 0xFD}
	h.flags[Unused] = true
	h.debug = func(string) {}
	return h
}

// GetFlag reports whether f is set.
func (h *Hal) GetFlag(f Flag) bool { return h.flags[f] }

// SetFlag sets or clears f. Setting BFlag or Unused directly has no
// observable effect: BFlag does not exist in the live register (§4.A) and
// Unused is pinned to 1.
func (h *Hal) SetFlag(f Flag, v bool) {
	if f == BFlag || f == Unused {
		return
	}
	h.flags[f] = v
}

// FlagsByte packs the live flag bits into a single byte, with BFlag forced
// to 0 and Unused forced to 1, per §4.A.
func (h *Hal) FlagsByte() byte {
	return h.packFlags(false)
}

// PushFlagsByte packs the flag bits the way PHP and BRK push them: BFlag
// and Unused both forced to 1.
func (h *Hal) PushFlagsByte() byte {
	return h.packFlags(true)
}

func (h *Hal) packFlags(breakFlag bool) byte {
	var b byte
	if h.flags[Carry] {
		b |= 1 << 0
	}
	if h.flags[Zero] {
		b |= 1 << 1
	}
	if h.flags[InterruptDisable] {
		b |= 1 << 2
	}
	if h.flags[Decimal] {
		b |= 1 << 3
	}
	if breakFlag {
		b |= 1 << 4
	}
	b |= 1 << 5 // Unused
	if h.flags[Overflow] {
		b |= 1 << 6
	}
	if h.flags[Negative] {
		b |= 1 << 7
	}
	return b
}

// SetFlagsByte unpacks b into the live flag bits. Bit 4 (BFlag) is
// discarded: it has no home in the live register, matching PLP/RTI's
// contract that popping a pushed flag byte must not leave a BFlag behind
// (§4.D, PHP/PLP).
func (h *Hal) SetFlagsByte(b byte) {
	h.flags[Carry] = b&(1<<0) != 0
	h.flags[Zero] = b&(1<<1) != 0
	h.flags[InterruptDisable] = b&(1<<2) != 0
	h.flags[Decimal] = b&(1<<3) != 0
	h.flags[Overflow] = b&(1<<6) != 0
	h.flags[Negative] = b&(1<<7) != 0
}

// Push writes b to the stack page (0x0100-0x01FF) at the current SP, then
// decrements SP. SP is a byte, so it wraps 0x00 -> 0xFF automatically.
func (h *Hal) Push(b byte) {
	h.Bus.Write(0x0100+uint16(h.SP), b)
	h.SP--
}

// Pop increments SP, then reads the stack page at the new SP.
func (h *Hal) Pop() byte {
	h.SP++
	return h.Bus.Read(0x0100 + uint16(h.SP))
}

// RequestNMI latches a pending non-maskable interrupt. NMI is edge
// triggered and can never be masked by InterruptDisable.
func (h *Hal) RequestNMI() { h.pendingNMI = true }

// RequestIRQ latches a pending maskable interrupt line. IRQ stays pending
// until it is polled while InterruptDisable is clear.
func (h *Hal) RequestIRQ() { h.pendingIRQ = true }

// PollForInterrupt is called by the execution core between 6502
// instructions. It returns the vector address to dispatch to and clears the
// corresponding pending line, or returns (0, false) if nothing is pending
// (§7: "no handler installed" is not an error — the caller simply does not
// redirect).
func (h *Hal) PollForInterrupt() (uint16, bool) {
	if h.pendingNMI {
		h.pendingNMI = false
		return VectorNMI, true
	}
	if h.pendingIRQ && !h.flags[InterruptDisable] {
		h.pendingIRQ = false
		return VectorIRQ, true
	}
	return 0, false
}

// DispatchInterrupt polls for a pending interrupt and, if one is found,
// performs the hardware dispatch sequence: push cont (the instruction
// boundary the interrupted code resumes at once the handler RTIs), push
// the flag byte encoded bit-for-bit like BRK's (§4.J), and set
// InterruptDisable so the handler isn't itself interrupted by the same
// line. It returns the handler address stored at the vector (low byte
// first), or (0, false) if nothing was pending. Both the interpreter and the
// generated code call this at the same per-instruction granularity, so the
// two paths agree on exactly when and how an interrupt is taken.
func (h *Hal) DispatchInterrupt(cont uint16) (uint16, bool) {
	vector, pending := h.PollForInterrupt()
	if !pending {
		return 0, false
	}
	h.Push(byte(cont >> 8))
	h.Push(byte(cont))
	h.Push(h.PushFlagsByte())
	h.SetFlag(InterruptDisable, true)
	lo := h.Bus.Read(vector)
	hi := h.Bus.Read(vector + 1)
	return uint16(hi)<<8 | uint16(lo), true
}

// SetActiveInstructionAddrs tells the Hal which guest addresses belong to
// the compiled/interpreted body currently executing. The driver calls this
// immediately before running a body, so that OnMemoryWritten can recognize
// a self-modifying write into that body's own bytes.
func (h *Hal) SetActiveInstructionAddrs(addrs map[uint16]struct{}) {
	h.activeAddrs = addrs
	h.bailout = false
}

// OnMemoryWritten is wired to the bus's write-observer list. It reports
// whether addr falls within the currently-running body's instruction
// bytes; if so, it also latches the bailout flag that the body must check
// after each of its own writes (§5 Cancellation).
func (h *Hal) OnMemoryWritten(addr uint16) bool {
	_, hit := h.activeAddrs[addr]
	if hit {
		h.bailout = true
	}
	return hit
}

// Bailout reports whether a self-modifying write into the active body has
// been observed since the last SetActiveInstructionAddrs call.
func (h *Hal) Bailout() bool { return h.bailout }

// DebugHook forwards text to the installed debug sink. It is a no-op
// unless SetDebugHook has been called (e.g. by the trace package), per
// §4.A.
func (h *Hal) DebugHook(text string) { h.debug(text) }

// SetDebugHook installs fn as the sink for DebugHook. Passing nil restores
// the no-op default.
func (h *Hal) SetDebugHook(fn func(string)) {
	if fn == nil {
		fn = func(string) {}
	}
	h.debug = fn
}

// String renders a compact register/flag snapshot, in the same spirit as
// the teacher's debugger status view, for use by trace and debugtui.
func (h *Hal) String() string {
	flagChars := "czidbuvn"
	bits := []bool{h.flags[Carry], h.flags[Zero], h.flags[InterruptDisable], h.flags[Decimal], h.flags[BFlag], h.flags[Unused], h.flags[Overflow], h.flags[Negative]}
	flags := make([]byte, 8)
	for i, set := range bits {
		c := flagChars[i]
		if set {
			c -= 'a' - 'A'
		}
		flags[i] = c
	}
	return fmt.Sprintf("A=%02X X=%02X Y=%02X SP=%02X P=%s PC=%04X", h.A, h.X, h.Y, h.SP, flags, h.PC)
}
