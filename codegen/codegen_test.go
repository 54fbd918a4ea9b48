package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/convert"
	"sixtyfive/cpu"
	"sixtyfive/decompile"
	"sixtyfive/mem"
)

type ram struct{ b [0x10000]byte }

func (r *ram) Size() int              { return len(r.b) }
func (r *ram) Read(a uint16) byte     { return r.b[a] }
func (r *ram) Write(a uint16, v byte) { r.b[a] = v }
func (r *ram) Raw() []byte            { return r.b[:] }

func compileProgram(t *testing.T, entry uint16, program []byte) (*Method, *cpu.Hal) {
	t.Helper()
	bus := mem.New()
	r := &ram{}
	copy(r.b[entry:], program)
	bus.Attach(r, 0)

	fn, err := decompile.Decompose(entry, bus.CodeRegions())
	require.NoError(t, err)
	body, _, err := convert.Convert(fn)
	require.NoError(t, err)
	m, err := Compile(body)
	require.NoError(t, err)
	return m, cpu.New(bus)
}

func TestRunLDASetsRegisterAndReturns(t *testing.T) {
	m, h := compileProgram(t, 0x8000, []byte{0xA9, 0x2A, 0x60}) // LDA #$2A ; RTS
	// the return address a JSR at $8000 would have pushed ($8002, hi then lo)
	h.Push(0x80)
	h.Push(0x02)
	res, err := m.Run(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x2A), h.A)
	assert.Equal(t, ExitReturned, res.Reason)
	assert.Equal(t, uint16(0x8003), res.NextAddr)
}

func TestRunLoopDecrementsX(t *testing.T) {
	// LDX #$03 ; loop: DEX ; BNE loop ; RTS
	m, h := compileProgram(t, 0x8000, []byte{0xA2, 0x03, 0xCA, 0xD0, 0xFD, 0x60})
	_, err := m.Run(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0), h.X)
	assert.True(t, h.GetFlag(cpu.Zero))
}

func TestRunJSRYieldsCallFunctionExit(t *testing.T) {
	m, h := compileProgram(t, 0x8000, []byte{0x20, 0x00, 0x90, 0x60}) // JSR $9000 ; RTS
	res, err := m.Run(h)
	require.NoError(t, err)
	assert.Equal(t, ExitCalledFunction, res.Reason)
	assert.Equal(t, uint16(0x9000), res.NextAddr)
}

func TestRunADCSetsCarryOnOverflowPastByte(t *testing.T) {
	m, h := compileProgram(t, 0x8000, []byte{0x69, 0x01, 0x60}) // ADC #$01 ; RTS
	h.A = 0xFF
	_, err := m.Run(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), h.A)
	assert.True(t, h.GetFlag(cpu.Carry))
	assert.True(t, h.GetFlag(cpu.Zero))
}
