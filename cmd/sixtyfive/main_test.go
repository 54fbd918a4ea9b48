package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/mem"
)

func nesImage(prgUnits byte, resetLo, resetHi byte) []byte {
	header := []byte("NES\x1a")
	header = append(header, prgUnits, 0, 0, 0)
	header = append(header, make([]byte, 8)...)
	prg := make([]byte, 16384*int(prgUnits))
	// reset vector lives at 0xFFFC/0xFFFD; a 16KB bank is mirrored at
	// 0xC000, so that is prg offset 0x3FFC/0x3FFD (len-4/len-3).
	prg[len(prg)-4] = resetLo
	prg[len(prg)-3] = resetHi
	return append(header, prg...)
}

func TestLoadImageNESReturnsResetVector(t *testing.T) {
	bus := mem.New()
	raw := nesImage(1, 0x34, 0x80)
	entry, err := loadImage(bus, "game.nes", raw)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8034), entry)
}

func TestLoadImageRejectsUnknownExtension(t *testing.T) {
	bus := mem.New()
	_, err := loadImage(bus, "game.bin", []byte{0})
	assert.Error(t, err)
}

func TestLoadImageC64ReadsLoadAddressButNotResetVector(t *testing.T) {
	bus := mem.New()
	raw := []byte{0x01, 0x08, 0xA9, 0x00}
	_, err := loadImage(bus, "game.prg", raw)
	require.NoError(t, err) // reset vector is whatever bytes happen to be at 0xFFFC, zero here
}
