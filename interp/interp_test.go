package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/cpu"
	"sixtyfive/mem"
)

type ram struct{ b [0x10000]byte }

func (r *ram) Size() int             { return len(r.b) }
func (r *ram) Read(a uint16) byte    { return r.b[a] }
func (r *ram) Write(a uint16, v byte) { r.b[a] = v }

func newHal(t *testing.T, program []byte, at uint16) (*cpu.Hal, *ram) {
	t.Helper()
	bus := mem.New()
	r := &ram{}
	copy(r.b[at:], program)
	bus.Attach(r, 0)
	h := cpu.New(bus)
	h.PC = at
	return h, r
}

func TestStepLDAImmediateSetsNegative(t *testing.T) {
	h, _ := newHal(t, []byte{0xA9, 0x80}, 0x8000) // LDA #$80
	_, err := Step(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x80), h.A)
	assert.True(t, h.GetFlag(cpu.Negative))
	assert.False(t, h.GetFlag(cpu.Zero))
}

func TestADCCarryAndOverflow(t *testing.T) {
	h, _ := newHal(t, []byte{0x69, 0x10}, 0x8000) // ADC #$10
	h.A = 0x7F
	h.SetFlag(cpu.Carry, false)
	_, err := Step(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x8F), h.A)
	assert.True(t, h.GetFlag(cpu.Overflow), "signed 0x7F+0x10 overflows into negative")
	assert.False(t, h.GetFlag(cpu.Carry))
}

func TestSBCNoBorrowSetsCarry(t *testing.T) {
	h, _ := newHal(t, []byte{0xE9, 0x01}, 0x8000) // SBC #$01
	h.A = 0x05
	h.SetFlag(cpu.Carry, true) // no incoming borrow
	_, err := Step(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x04), h.A)
	assert.True(t, h.GetFlag(cpu.Carry))
}

func TestJSRThenRTSRoundTrips(t *testing.T) {
	h, _ := newHal(t, []byte{0x20, 0x10, 0x80}, 0x8000) // JSR $8010
	_, err := Step(h)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8010), h.PC)

	h.Bus.Write(0x8010, 0x60) // RTS at callee
	_, err = Step(h)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8003), h.PC)
}

func TestBranchNotTakenFallsThrough(t *testing.T) {
	h, _ := newHal(t, []byte{0xF0, 0x10}, 0x8000) // BEQ +0x10
	h.SetFlag(cpu.Zero, false)
	_, err := Step(h)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8002), h.PC)
}

func TestTSXWritesXNotY(t *testing.T) {
	h, _ := newHal(t, []byte{0xBA}, 0x8000) // TSX
	h.SP = 0x42
	_, err := Step(h)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), h.X)
	assert.Equal(t, byte(0), h.Y)
}
