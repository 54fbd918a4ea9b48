package rom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nesHeader(prgUnits, chrUnits byte, flags6, flags7 byte) []byte {
	h := make([]byte, 16)
	copy(h, []byte(iNESMagic))
	h[4] = prgUnits
	h[5] = chrUnits
	h[6] = flags6
	h[7] = flags7
	return h
}

func TestLoadNESParsesHeaderAndSlices(t *testing.T) {
	raw := append(nesHeader(1, 1, 0, 0), make([]byte, 16384+8192)...)
	img, err := LoadNES(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, img.PRGUnits)
	assert.Equal(t, 1, img.CHRUnits)
	assert.Equal(t, 0, img.Mapper)
	assert.Len(t, img.PRG, 16384)
	assert.Len(t, img.CHR, 8192)
}

func TestLoadNESRejectsUnsupportedMapper(t *testing.T) {
	raw := append(nesHeader(1, 0, 0x10, 0), make([]byte, 16384)...) // mapper 1
	_, err := LoadNES(raw)
	assert.Error(t, err)
}

func TestLoadNESRejectsBadMagic(t *testing.T) {
	raw := make([]byte, 16)
	_, err := LoadNES(raw)
	assert.Error(t, err)
}

func TestLoadC64ReadsLoadAddress(t *testing.T) {
	img, err := LoadC64([]byte{0x01, 0x08, 0xA9, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0801), img.LoadAddress)
	assert.Equal(t, []byte{0xA9, 0x00}, img.Data)
}
