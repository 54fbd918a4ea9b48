package customize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sixtyfive/convert"
	"sixtyfive/decompile"
	"sixtyfive/ir"
	"sixtyfive/mem"
)

func TestStandardDebugAndPollInsertsBeforeEveryOriginal(t *testing.T) {
	regions := []mem.CodeRegion{{Base: 0x8000, Bytes: []byte{0xA9, 0x01, 0xAA, 0x60}}} // LDA #1 ; TAX ; RTS
	fn, err := decompile.Decompose(0x8000, regions)
	require.NoError(t, err)

	body, runStarts, err := convert.Convert(fn)
	require.NoError(t, err)
	require.Len(t, runStarts, 3)

	out := StandardDebugAndPoll(fn, body, runStarts)

	var polls int
	for _, in := range out {
		if in.Op == ir.OpPollForInterrupt {
			polls++
		}
	}
	assert.Equal(t, 3, polls)
}

func TestPipelineAppliesInOrder(t *testing.T) {
	regions := []mem.CodeRegion{{Base: 0x8000, Bytes: []byte{0xEA, 0x60}}} // NOP ; RTS
	fn, err := decompile.Decompose(0x8000, regions)
	require.NoError(t, err)
	body, runStarts, err := convert.Convert(fn)
	require.NoError(t, err)

	p := Pipeline(StandardDebugAndPoll)
	out := p(fn, body, runStarts)
	assert.Greater(t, len(out), len(body))
}
