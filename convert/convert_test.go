package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/decompile"
	"sixtyfive/ir"
	"sixtyfive/mem"
)

func decompose(t *testing.T, entry uint16, program []byte) *decompile.DecompiledFunction {
	t.Helper()
	fn, err := decompile.Decompose(entry, []mem.CodeRegion{{Base: entry, Bytes: program}})
	require.NoError(t, err)
	return fn
}

func TestConvertLDAImmediateSetsFlags(t *testing.T) {
	fn := decompose(t, 0x8000, []byte{0xA9, 0x00, 0x60}) // LDA #$00 ; RTS
	body, _, err := Convert(fn)
	require.NoError(t, err)

	var sawCopy, sawZeroFlag bool
	for _, in := range body {
		if in.Op == ir.OpCopy && in.Dst.Kind == ir.KindRegister && in.Dst.Reg == ir.A {
			sawCopy = true
		}
		if in.Op == ir.OpBinary && in.Dst.Kind == ir.KindFlag {
			sawZeroFlag = true
		}
	}
	assert.True(t, sawCopy)
	assert.True(t, sawZeroFlag)
}

func TestConvertBranchOutsideFunctionIsError(t *testing.T) {
	fn := decompose(t, 0x8000, []byte{0xF0, 0x7F}) // BEQ way past end of this tiny region
	_, _, err := Convert(fn)
	assert.Error(t, err)
}

func TestConvertJSRPushesReturnAddressMinusOneConvention(t *testing.T) {
	fn := decompose(t, 0x8000, []byte{0x20, 0x00, 0x90, 0x60}) // JSR $9000 ; RTS
	body, _, err := Convert(fn)
	require.NoError(t, err)

	var sawCall bool
	var pushed []byte
	for _, in := range body {
		if in.Op == ir.OpPushStack && in.Src.Kind == ir.KindConstant {
			pushed = append(pushed, in.Src.Const)
		}
		if in.Op == ir.OpCallFunction {
			sawCall = true
			assert.Equal(t, uint16(0x9000), in.CallAddr)
		}
	}
	assert.True(t, sawCall)
	// return address minus one ($8002), high byte first
	assert.Equal(t, []byte{0x80, 0x02}, pushed)
}

func TestConvertTSXWritesX(t *testing.T) {
	fn := decompose(t, 0x8000, []byte{0xBA, 0x60}) // TSX ; RTS
	body, _, err := Convert(fn)
	require.NoError(t, err)
	require.NotEmpty(t, body)
	first := body[0]
	assert.Equal(t, ir.OpCopy, first.Op)
	assert.Equal(t, ir.KindRegister, first.Dst.Kind)
	assert.Equal(t, ir.X, first.Dst.Reg)
	assert.Equal(t, ir.KindStackPointer, first.Src.Kind)
}

func TestConvertUnsupportedMnemonicErrors(t *testing.T) {
	fn := decompose(t, 0x8000, []byte{0xEA}) // NOP, fine — swap in a bogus mnemonic via a hand-built function
	fn.Instructions[0].Mnemonic = "XXX"
	_, _, err := Convert(fn)
	assert.Error(t, err)
}
