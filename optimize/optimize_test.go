package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sixtyfive/ir"
)

func TestRewriteFlagsSelfModifyingWrite(t *testing.T) {
	body := []ir.Instruction{
		ir.Copy(ir.Memory(0x0010, nil, true), ir.Register(ir.A)),
		ir.Copy(ir.Memory(0x2000, nil, false), ir.Register(ir.X)),
	}
	self := map[uint16]struct{}{0x8000: {}, 0x0010: {}}
	sourceOf := func(i int) uint16 { return []uint16{0x8000, 0x8002}[i] }

	_, writes := Rewrite(body, self, sourceOf)
	assert.Len(t, writes, 1)
	assert.Equal(t, uint16(0x8000), writes[0].SourceAddr)
	assert.Equal(t, uint16(0x0010), writes[0].TargetAddr)
}

func TestRewriteNoSelfModifyingWrites(t *testing.T) {
	body := []ir.Instruction{ir.Copy(ir.Memory(0x2000, nil, false), ir.Register(ir.A))}
	_, writes := Rewrite(body, map[uint16]struct{}{0x8000: {}}, func(int) uint16 { return 0x8000 })
	assert.Empty(t, writes)
}

func TestRewriteIgnoresIndexedSelfWrite(t *testing.T) {
	// STA $10,X -- the effective address isn't known at compile time, so
	// even though $0010 is in the function's own bytes, §4.F says this
	// can't be proven in scope.
	body := []ir.Instruction{ir.Copy(ir.Memory(0x0010, ir.RegX, true), ir.Register(ir.A))}
	_, writes := Rewrite(body, map[uint16]struct{}{0x0010: {}}, func(int) uint16 { return 0x8000 })
	assert.Empty(t, writes)
}

func TestRewriteIgnoresNonZeroPageSelfWrite(t *testing.T) {
	// STA $8010 (absolute) -- out of zero-page scope even though it
	// targets the function's own instruction bytes.
	body := []ir.Instruction{ir.Copy(ir.Memory(0x8010, nil, false), ir.Register(ir.A))}
	_, writes := Rewrite(body, map[uint16]struct{}{0x8010: {}}, func(int) uint16 { return 0x8000 })
	assert.Empty(t, writes)
}
