// Package c64 wires the Commodore 64's memory map onto a mem.Bus: flat
// 64KB RAM with a loaded PRG image overlaid at its load address. No
// KERNAL/BASIC ROM is installed, so the vectors at the top of the address
// space hold whatever the image put there (zero otherwise). There is no
// VIC-II/SID register block — the C64 demonstration in this module is
// about reusing the same bus/device contract the NES console uses, not
// about video or sound (§1 Non-goals).
package c64

import (
	"sixtyfive/mem"
	"sixtyfive/rom"
)

// memory is a flat 64KB address space.
type memory struct {
	bytes [0x10000]byte
}

func (m *memory) Size() int              { return 0x10000 }
func (m *memory) Read(a uint16) byte     { return m.bytes[a] }
func (m *memory) Write(a uint16, v byte) { m.bytes[a] = v }
func (m *memory) Raw() []byte            { return m.bytes[:] }

// Machine is a C64 memory map ready to attach to a cpu.Hal.
type Machine struct {
	Memory *memory
}

// NewMachine builds a flat 64KB address space, loads img at its declared
// load address, and attaches it to bus.
func NewMachine(bus *mem.Bus, img *rom.C64Image) *Machine {
	m := &Machine{Memory: &memory{}}
	copy(m.Memory.bytes[img.LoadAddress:], img.Data)
	bus.Attach(m.Memory, 0x0000)
	return m
}
