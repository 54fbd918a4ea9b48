// Package jitdrv is the execution core's top-level loop: given an entry
// address, look up or compile the function, run it, and dispatch to
// whatever address it hands back — until the caller's stop function says
// to halt. Every hand-off between functions goes through this loop rather than
// a host call, so 6502-level recursion of any depth costs no host stack
// (§4.H, §9).
package jitdrv

import (
	"github.com/pkg/errors"

	"sixtyfive/cache"
	"sixtyfive/codegen"
	"sixtyfive/convert"
	"sixtyfive/cpu"
	"sixtyfive/customize"
	"sixtyfive/decompile"
	"sixtyfive/interp"
	"sixtyfive/mem"
	"sixtyfive/optimize"
)

// State names where the driver is in its dispatch loop, mirroring the
// ExitReason a Method's Run reports.
type State int

const (
	StateEntering State = iota
	StateRunning
	StateYieldedToSubroutine
	StateYieldedToInterrupt
	StateReturned
)

// Patch is a native pre-emption hook: if set for an entry address, the
// driver calls it before compiling/running the guest code there. If it
// reports handled, its nextAddr is dispatched to and the guest code is
// skipped; otherwise the guest code runs as usual. PPU
// register access and BIOS-call shortcuts (NES/C64 present-layer
// integration) are both expected to be Patches rather than IR.
type Patch func(h *cpu.Hal) (nextAddr uint16, handled bool)

// Driver owns the code cache and dispatches between compiled functions.
type Driver struct {
	hal     *cpu.Hal
	bus     *mem.Bus
	cache   *cache.Cache
	smc     *cache.SMCTracker
	patches map[uint16]Patch
	state   State

	// Interpret, when true, bypasses compilation entirely and steps
	// through interp.Step one instruction at a time — the fallback path
	// for functions not worth compiling, or for differential testing
	// against the compiled path.
	Interpret bool
}

// New returns a Driver wired to hal's bus, with its own code cache.
func New(hal *cpu.Hal, capacity int) *Driver {
	c := cache.New(capacity)
	bus := hal.Bus
	bus.ObserveWrites(c.MemoryChanged)
	bus.ObserveWrites(func(addr uint16) { hal.OnMemoryWritten(addr) })
	return &Driver{
		hal:     hal,
		bus:     bus,
		cache:   c,
		smc:     cache.NewSMCTracker(),
		patches: make(map[uint16]Patch),
	}
}

// SetPatch installs fn as a native pre-emption for entry. A nil fn removes
// any existing patch.
func (d *Driver) SetPatch(entry uint16, fn Patch) {
	if fn == nil {
		delete(d.patches, entry)
		return
	}
	d.patches[entry] = fn
}

// RunOne dispatches a single function-granularity step starting at entry:
// either a Patch, an interpreted run to the next control transfer, or one
// compiled Method call. It returns the next entry address the driver
// should dispatch to.
func (d *Driver) RunOne(entry uint16) (uint16, error) {
	if patch, ok := d.patches[entry]; ok {
		next, handled := patch(d.hal)
		if handled {
			d.state = StateReturned
			return next, nil
		}
	}

	if d.Interpret {
		return d.runInterpreted(entry)
	}
	return d.runCompiled(entry)
}

// Run dispatches repeatedly starting at entry until stop returns true,
// returning the address execution would resume at next.
func (d *Driver) Run(entry uint16, stop func(addr uint16) bool) (uint16, error) {
	addr := entry
	for {
		next, err := d.RunOne(addr)
		if err != nil {
			return addr, err
		}
		addr = next
		if stop(addr) {
			return addr, nil
		}
	}
}

func (d *Driver) runInterpreted(entry uint16) (uint16, error) {
	d.hal.PC = entry
	d.state = StateRunning
	for {
		if vector, pending := d.hal.DispatchInterrupt(d.hal.PC); pending {
			d.state = StateYieldedToInterrupt
			return vector, nil
		}
		before := d.hal.PC
		ins, err := interp.Step(d.hal)
		if err != nil {
			return 0, err
		}
		if d.hal.Bailout() {
			d.state = StateYieldedToInterrupt
			return d.hal.PC, nil
		}
		if ins.Mnemonic == "JSR" {
			d.state = StateYieldedToSubroutine
			return d.hal.PC, nil
		}
		if ins.Mnemonic == "RTS" || ins.Mnemonic == "RTI" || ins.Mnemonic == "JMP" || ins.Mnemonic == "BRK" {
			d.state = StateReturned
			return d.hal.PC, nil
		}
		if ins.IsConditionalBranch() && d.hal.PC != before+uint16(ins.Size()) {
			d.state = StateReturned
			return d.hal.PC, nil
		}
	}
}

func (d *Driver) runCompiled(entry uint16) (uint16, error) {
	d.state = StateEntering
	method, ok := d.cache.Get(entry)
	if !ok {
		compiled, err := d.compile(entry)
		if err != nil {
			return 0, err
		}
		method = compiled
	}

	fn, err := decompile.Decompose(entry, d.bus.CodeRegions())
	if err != nil {
		return 0, err
	}
	d.hal.SetActiveInstructionAddrs(fn.InstructionAddresses())

	d.state = StateRunning
	res, err := method.Run(d.hal)
	if err != nil {
		return 0, err
	}

	switch res.Reason {
	case codegen.ExitReturned:
		d.state = StateReturned
	case codegen.ExitCalledFunction:
		d.state = StateYieldedToSubroutine
	case codegen.ExitPolledInterrupt, codegen.ExitBailout:
		d.state = StateYieldedToInterrupt
	}
	return res.NextAddr, nil
}

// compile runs the full pipeline (decompose -> convert -> optimize ->
// customize -> codegen) for entry and installs the result in the cache.
func (d *Driver) compile(entry uint16) (*codegen.Method, error) {
	fn, err := decompile.Decompose(entry, d.bus.CodeRegions())
	if err != nil {
		return nil, errors.Wrapf(err, "jitdrv: decomposing %#04x", entry)
	}

	body, runStarts, err := convert.Convert(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "jitdrv: converting %#04x", entry)
	}

	instrAddrs := fn.InstructionAddresses()
	sourceOf := func(i int) uint16 {
		idx := 0
		for j, start := range runStarts {
			if start <= i {
				idx = j
			}
		}
		return fn.Instructions[idx].Address
	}
	body, writes := optimize.Rewrite(body, instrAddrs, sourceOf)
	for _, w := range writes {
		if err := d.smc.Record(w.SourceAddr, w.TargetAddr); err != nil {
			return nil, errors.Wrapf(err, "jitdrv: recording SMC write for %#04x", entry)
		}
	}

	body = customize.StandardDebugAndPoll(fn, body, runStarts)

	method, err := codegen.Compile(body)
	if err != nil {
		return nil, errors.Wrapf(err, "jitdrv: compiling %#04x", entry)
	}

	d.cache.Add(entry, method, instrAddrs)
	return method, nil
}

// State reports the driver's current dispatch state, for the debugtui and
// trace packages.
func (d *Driver) State() State { return d.state }

// Hal returns the register file the driver executes against, for debugtui
// and trace.
func (d *Driver) Hal() *cpu.Hal { return d.hal }

// Cache returns the driver's code cache, for debugtui's occupancy display.
func (d *Driver) Cache() *cache.Cache { return d.cache }
