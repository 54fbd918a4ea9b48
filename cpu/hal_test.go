package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sixtyfive/mem"
)

type ram struct{ b [64 * 1024]byte }

func (r *ram) Size() int             { return len(r.b) }
func (r *ram) Read(a uint16) byte    { return r.b[a] }
func (r *ram) Write(a uint16, v byte) { r.b[a] = v }

func newHal() *Hal {
	bus := mem.New()
	bus.Attach(&ram{}, 0x0000)
	return New(bus)
}

func TestStackWrap(t *testing.T) {
	h := newHal()
	h.SP = 0x00
	h.Push(0x42)
	assert.Equal(t, byte(0xFF), h.SP)

	h.SP = 0xFF
	got := h.Pop()
	assert.Equal(t, byte(0x00), h.SP)
	assert.Equal(t, byte(0x42), got)
}

func TestPushThenPopRoundTrip(t *testing.T) {
	h := newHal()
	start := h.SP
	h.Push(0x7F)
	got := h.Pop()
	assert.Equal(t, byte(0x7F), got)
	assert.Equal(t, start, h.SP)
}

func TestFlagsByteRoundTrip(t *testing.T) {
	h := newHal()
	h.SetFlag(Carry, true)
	h.SetFlag(Zero, false)
	h.SetFlag(Overflow, true)
	h.SetFlag(Negative, true)

	b := h.FlagsByte()
	assert.Equal(t, byte(0), b&(1<<4), "BFlag must read 0 in the live flag byte")
	assert.NotEqual(t, byte(0), b&(1<<5), "Unused must always read 1")

	h2 := newHal()
	h2.SetFlagsByte(b)
	assert.Equal(t, h.GetFlag(Carry), h2.GetFlag(Carry))
	assert.Equal(t, h.GetFlag(Overflow), h2.GetFlag(Overflow))
	assert.Equal(t, h.GetFlag(Negative), h2.GetFlag(Negative))
}

func TestPushFlagsByteForcesBreakAndUnused(t *testing.T) {
	h := newHal()
	b := h.PushFlagsByte()
	assert.NotEqual(t, byte(0), b&(1<<4))
	assert.NotEqual(t, byte(0), b&(1<<5))
}

func TestPollForInterruptPrefersNMI(t *testing.T) {
	h := newHal()
	h.RequestIRQ()
	h.RequestNMI()

	vec, ok := h.PollForInterrupt()
	assert.True(t, ok)
	assert.Equal(t, VectorNMI, vec)

	// IRQ is still pending, and not masked.
	vec, ok = h.PollForInterrupt()
	assert.True(t, ok)
	assert.Equal(t, VectorIRQ, vec)

	vec, ok = h.PollForInterrupt()
	assert.False(t, ok)
	assert.Equal(t, uint16(0), vec)
}

func TestPollForInterruptMasksIRQ(t *testing.T) {
	h := newHal()
	h.SetFlag(InterruptDisable, true)
	h.RequestIRQ()
	_, ok := h.PollForInterrupt()
	assert.False(t, ok)
}

func TestOnMemoryWrittenBailout(t *testing.T) {
	h := newHal()
	h.SetActiveInstructionAddrs(map[uint16]struct{}{0x1234: {}})
	assert.False(t, h.Bailout())

	hit := h.OnMemoryWritten(0x0010)
	assert.False(t, hit)
	assert.False(t, h.Bailout())

	hit = h.OnMemoryWritten(0x1234)
	assert.True(t, hit)
	assert.True(t, h.Bailout())
}
