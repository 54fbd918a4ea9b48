// Package nes wires the NES's memory map onto a mem.Bus: 2KB internal RAM
// mirrored through 0x1FFF, a minimal PPU register block mirrored through
// 0x3FFF, OAM-DMA and controller latches, and mapper-0 PRG ROM. PPU/APU
// rendering and audio output are out of scope (§1 Non-goals); the register
// block exists only so CPU-visible reads/writes to it behave the way real
// software expects (writes latch, certain reads have side effects handled
// by a caller-supplied hook), not so anything gets drawn.
package nes

import (
	"sixtyfive/mem"
	"sixtyfive/rom"
)

// ram is 2KB of internal work RAM, mirrored four times across
// 0x0000-0x1FFF.
type ram struct {
	bytes [2048]byte
}

func (r *ram) Size() int          { return 0x2000 }
func (r *ram) Read(a uint16) byte { return r.bytes[a%2048] }
func (r *ram) Write(a uint16, v byte) {
	r.bytes[a%2048] = v
}
func (r *ram) Raw() []byte {
	// Mirrors share the same underlying storage; report only the first,
	// canonical 2KB as scannable code (self-modifying writes through a
	// mirror still invalidate correctly, since mem.Bus reports the
	// written address as given, not its canonical mirror).
	return r.bytes[:]
}

// ppuRegisters is the 8-byte PPU register window at 0x2000-0x2007,
// mirrored every 8 bytes through 0x3FFF. OnRead/OnWrite, if set, let a
// caller observe CPU-visible PPU register traffic without this package
// needing to know anything about rendering.
type ppuRegisters struct {
	regs    [8]byte
	OnRead  func(reg byte) byte
	OnWrite func(reg byte, v byte)
}

func (p *ppuRegisters) Size() int { return 0x2000 }
func (p *ppuRegisters) Read(a uint16) byte {
	reg := byte(a % 8)
	if p.OnRead != nil {
		return p.OnRead(reg)
	}
	return p.regs[reg]
}
func (p *ppuRegisters) Write(a uint16, v byte) {
	reg := byte(a % 8)
	p.regs[reg] = v
	if p.OnWrite != nil {
		p.OnWrite(reg, v)
	}
}

// apuAndIO covers the 0x4000-0x401F block: APU registers, OAM-DMA trigger
// (0x4014), and the two controller latch ports (0x4016/0x4017). APU
// synthesis is out of scope; Controller1/Controller2, if set, back the
// controller-latch reads.
type apuAndIO struct {
	regs        [32]byte
	Controller1 func() byte
	Controller2 func() byte
	OnOAMDMA    func(page byte)
}

func (a *apuAndIO) Size() int { return 0x20 }
func (a *apuAndIO) Read(addr uint16) byte {
	switch addr {
	case 0x16:
		if a.Controller1 != nil {
			return a.Controller1()
		}
	case 0x17:
		if a.Controller2 != nil {
			return a.Controller2()
		}
	}
	return a.regs[addr]
}
func (a *apuAndIO) Write(addr uint16, v byte) {
	a.regs[addr] = v
	if addr == 0x14 && a.OnOAMDMA != nil {
		a.OnOAMDMA(v)
	}
}

// prgROM is mapper-0 PRG ROM: either one 16KB bank mirrored twice across
// 0x8000-0xFFFF, or one 32KB bank filling it directly.
type prgROM struct {
	bytes []byte
}

func (p *prgROM) Size() int { return 0x8000 }
func (p *prgROM) Read(a uint16) byte {
	if len(p.bytes) == 0x4000 {
		return p.bytes[a%0x4000]
	}
	return p.bytes[int(a)%len(p.bytes)]
}
func (p *prgROM) Write(uint16, byte) {} // ROM: writes are dropped, not SMC
func (p *prgROM) Raw() []byte {
	if len(p.bytes) == 0x4000 {
		mirrored := make([]byte, 0x8000)
		copy(mirrored, p.bytes)
		copy(mirrored[0x4000:], p.bytes)
		return mirrored
	}
	return p.bytes
}

// Console is an NES memory map ready to attach to a cpu.Hal.
type Console struct {
	RAM *ram
	PPU *ppuRegisters
	IO  *apuAndIO
	PRG *prgROM
}

// NewConsole builds the standard NES address-space layout around img's PRG
// bank and attaches it to bus.
func NewConsole(bus *mem.Bus, img *rom.NESImage) *Console {
	c := &Console{
		RAM: &ram{},
		PPU: &ppuRegisters{},
		IO:  &apuAndIO{},
		PRG: &prgROM{bytes: img.PRG},
	}
	bus.Attach(c.RAM, 0x0000)
	bus.Attach(c.PPU, 0x2000)
	bus.Attach(c.IO, 0x4000)
	bus.Attach(c.PRG, 0x8000)
	return c
}
