package decompile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/mem"
)

// A tiny loop: LDX #$0A ; loop: DEX ; BNE loop ; RTS
func loopProgram() []byte {
	return []byte{
		0xA2, 0x0A, // 0x8000 LDX #$0A
		0xCA,       // 0x8002 DEX
		0xD0, 0xFD, // 0x8003 BNE 0x8002
		0x60, // 0x8005 RTS
	}
}

func TestDecomposeStraightLineAndLoop(t *testing.T) {
	regions := []mem.CodeRegion{{Base: 0x8000, Bytes: loopProgram()}}
	fn, err := Decompose(0x8000, regions)
	require.NoError(t, err)

	assert.Len(t, fn.Instructions, 4)
	assert.Equal(t, uint16(0x8000), fn.Entry)

	label, ok := fn.LabelFor(0x8002)
	assert.True(t, ok)
	assert.NotEmpty(t, label)

	addrs := fn.InstructionAddresses()
	for _, a := range []uint16{0x8000, 0x8001, 0x8002, 0x8003, 0x8004, 0x8005} {
		_, in := addrs[a]
		assert.True(t, in, "address %#04x should be in instruction set", a)
	}
}

func TestDecomposeDoesNotWalkIntoJSRTarget(t *testing.T) {
	program := []byte{
		0x20, 0x00, 0x90, // 0x8000 JSR $9000
		0x60, // 0x8003 RTS
	}
	regions := []mem.CodeRegion{{Base: 0x8000, Bytes: program}}
	fn, err := Decompose(0x8000, regions)
	require.NoError(t, err)
	assert.Len(t, fn.Instructions, 2)
	_, hasCalleeLabel := fn.LabelFor(0x9000)
	assert.False(t, hasCalleeLabel)
}

func TestDecomposeEntryOutsideRegionIsError(t *testing.T) {
	regions := []mem.CodeRegion{{Base: 0x8000, Bytes: []byte{0xEA}}}
	_, err := Decompose(0x1000, regions)
	assert.Error(t, err)
}

func TestDecomposeConditionalBranchContributesBothPaths(t *testing.T) {
	program := []byte{
		0x90, 0x02, // 0x8000 BCC $8004
		0xA9, 0x01, // 0x8002 LDA #$01
		0xA9, 0x02, // 0x8004 LDA #$02
		0x60, // 0x8006 RTS
	}
	regions := []mem.CodeRegion{{Base: 0x8000, Bytes: program}}
	fn, err := Decompose(0x8000, regions)
	require.NoError(t, err)
	assert.Len(t, fn.Instructions, 4)
}
