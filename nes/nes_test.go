package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sixtyfive/mem"
	"sixtyfive/rom"
)

func TestRAMMirrorsAcross0x1FFF(t *testing.T) {
	bus := mem.New()
	img := &rom.NESImage{PRG: make([]byte, 0x4000)}
	NewConsole(bus, img)

	bus.Write(0x0000, 0x42)
	assert.Equal(t, byte(0x42), bus.Read(0x0800))
	assert.Equal(t, byte(0x42), bus.Read(0x1800))
}

func TestPPURegistersMirrorEvery8Bytes(t *testing.T) {
	bus := mem.New()
	img := &rom.NESImage{PRG: make([]byte, 0x4000)}
	c := NewConsole(bus, img)
	var lastWritten byte
	c.PPU.OnWrite = func(reg, v byte) { lastWritten = v }

	bus.Write(0x2001, 0x07)
	assert.Equal(t, byte(0x07), lastWritten)
	bus.Write(0x2009, 0x09) // mirror of 0x2001
	assert.Equal(t, byte(0x09), lastWritten)
}

func TestControllerLatchReadsThroughHook(t *testing.T) {
	bus := mem.New()
	img := &rom.NESImage{PRG: make([]byte, 0x4000)}
	c := NewConsole(bus, img)
	c.IO.Controller1 = func() byte { return 0x01 }

	assert.Equal(t, byte(0x01), bus.Read(0x4016))
}

func TestPRGROM16KMirrorsAcrossBothBanks(t *testing.T) {
	bus := mem.New()
	prg := make([]byte, 0x4000)
	prg[0] = 0xEA
	img := &rom.NESImage{PRG: prg}
	NewConsole(bus, img)

	assert.Equal(t, byte(0xEA), bus.Read(0x8000))
	assert.Equal(t, byte(0xEA), bus.Read(0xC000))
}
