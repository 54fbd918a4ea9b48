package jitdrv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/cpu"
	"sixtyfive/mem"
)

type ram struct{ b [0x10000]byte }

func (r *ram) Size() int              { return len(r.b) }
func (r *ram) Read(a uint16) byte     { return r.b[a] }
func (r *ram) Write(a uint16, v byte) { r.b[a] = v }
func (r *ram) Raw() []byte            { return r.b[:] }

func newDriver(t *testing.T, program []byte, at uint16) (*Driver, *cpu.Hal, *ram) {
	t.Helper()
	bus := mem.New()
	r := &ram{}
	copy(r.b[at:], program)
	bus.Attach(r, 0)
	h := cpu.New(bus)
	return New(h, 10), h, r
}

func TestRunOneCompilesAndRunsStraightLineFunction(t *testing.T) {
	// LDA #$10 ; JMP $9000
	d, h, _ := newDriver(t, []byte{0xA9, 0x10, 0x4C, 0x00, 0x90}, 0x8000)
	next, err := d.RunOne(0x8000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x10), h.A)
	assert.Equal(t, uint16(0x9000), next)
	assert.Equal(t, StateReturned, d.State())
}

func TestRunOneCacheHitSkipsRecompile(t *testing.T) {
	d, _, _ := newDriver(t, []byte{0xEA, 0x4C, 0x00, 0x90}, 0x8000) // NOP ; JMP $9000
	_, err := d.RunOne(0x8000)
	require.NoError(t, err)
	assert.Equal(t, 1, cacheLen(d))
	_, err = d.RunOne(0x8000)
	require.NoError(t, err)
	assert.Equal(t, 1, cacheLen(d))
}

func cacheLen(d *Driver) int { return d.cache.Len() }

func TestJSRYieldsSubroutineState(t *testing.T) {
	d, _, _ := newDriver(t, []byte{0x20, 0x10, 0x80, 0x60}, 0x8000) // JSR $8010 ; RTS
	next, err := d.RunOne(0x8000)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8010), next)
	assert.Equal(t, StateYieldedToSubroutine, d.State())
}

func TestPatchInterceptsDispatch(t *testing.T) {
	d, _, _ := newDriver(t, []byte{0xEA, 0x60}, 0x8000)
	d.SetPatch(0x8000, func(h *cpu.Hal) (uint16, bool) {
		h.A = 0xFF
		return 0x9000, true
	})
	next, err := d.RunOne(0x8000)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x9000), next)
}

func TestInterpretModeStepsWithoutCompiling(t *testing.T) {
	// LDA #$05 ; JMP $9000
	d, h, _ := newDriver(t, []byte{0xA9, 0x05, 0x4C, 0x00, 0x90}, 0x8000)
	d.Interpret = true
	next, err := d.RunOne(0x8000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), h.A)
	assert.Equal(t, uint16(0x9000), next)
	assert.Equal(t, 0, cacheLen(d))
}
