package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/codegen"
)

func TestAddThenGetHits(t *testing.T) {
	c := New(10)
	m := &codegen.Method{}
	c.Add(0x8000, m, map[uint16]struct{}{0x8000: {}, 0x8001: {}})
	got, ok := c.Get(0x8000)
	assert.True(t, ok)
	assert.Same(t, m, got)
}

func TestMemoryChangedInvalidatesOwnBytesOnly(t *testing.T) {
	c := New(10)
	m := &codegen.Method{}
	c.Add(0x8000, m, map[uint16]struct{}{0x8000: {}, 0x8001: {}})

	c.MemoryChanged(0x9000) // unrelated page
	_, ok := c.Get(0x8000)
	assert.True(t, ok)

	c.MemoryChanged(0x8001) // a write into the function's own bytes
	_, ok = c.Get(0x8000)
	assert.False(t, ok)
}

func TestEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New(2)
	c.Add(0x8000, &codegen.Method{}, map[uint16]struct{}{0x8000: {}})
	c.Add(0x8100, &codegen.Method{}, map[uint16]struct{}{0x8100: {}})
	_, _ = c.Get(0x8000) // touch 0x8000 so 0x8100 becomes LRU
	c.Add(0x8200, &codegen.Method{}, map[uint16]struct{}{0x8200: {}})

	_, ok := c.Get(0x8100)
	assert.False(t, ok, "0x8100 should have been evicted")
	_, ok = c.Get(0x8000)
	assert.True(t, ok)
	_, ok = c.Get(0x8200)
	assert.True(t, ok)
}

func TestMemoryChangedDefersEvictionUntilGet(t *testing.T) {
	c := New(10)
	c.Add(0x8000, &codegen.Method{}, map[uint16]struct{}{0x8000: {}, 0x8001: {}})

	c.MemoryChanged(0x8001)
	assert.Equal(t, 1, c.Len(), "staging a page must not evict immediately")
	assert.Equal(t, 1, c.PendingInvalidation())

	_, ok := c.Get(0x8000)
	assert.False(t, ok, "Get must drain the staged page before looking up")
	assert.Equal(t, 0, c.PendingInvalidation())
}

func TestInstructionAddrsReflectsWhatWasAdded(t *testing.T) {
	c := New(10)
	c.Add(0x8000, &codegen.Method{}, map[uint16]struct{}{0x8000: {}, 0x8001: {}})
	addrs, ok := c.InstructionAddrs(0x8000)
	assert.True(t, ok)
	assert.Equal(t, map[uint16]struct{}{0x8000: {}, 0x8001: {}}, addrs)

	_, ok = c.InstructionAddrs(0x9999)
	assert.False(t, ok)
}

func TestSMCTrackerRejectsConflictingTargetForSameSource(t *testing.T) {
	tr := NewSMCTracker()
	require.NoError(t, tr.Record(0x8000, 0x8100))
	err := tr.Record(0x8000, 0x8101)
	assert.Error(t, err)
}

func TestSMCTrackerAllowsSameTargetFromTwoSources(t *testing.T) {
	tr := NewSMCTracker()
	require.NoError(t, tr.Record(0x8000, 0x8100))
	require.NoError(t, tr.Record(0x9000, 0x8100))
	assert.ElementsMatch(t, []uint16{0x8000, 0x9000}, tr.SourceOf(0x8100))
}

func TestSMCTrackerTargetsOf(t *testing.T) {
	tr := NewSMCTracker()
	require.NoError(t, tr.Record(0x8000, 0x8100))
	assert.Equal(t, []uint16{0x8100}, tr.TargetsOf(0x8000))
}
