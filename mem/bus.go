// Package mem provides the address-decoding fabric that the CPU model, the
// code cache, and the SMC tracker all sit behind. A Bus owns no memory of
// its own; it dispatches reads and writes to whichever Device claims the
// address range, the way the NES and C64 both wire RAM, ROM, and
// memory-mapped peripherals onto a single 16-bit address space.
package mem

// A Device is anything that can be attached to a Bus at a fixed offset. Size
// reports how many addresses, starting at the attach offset, belong to the
// device; Read and Write receive addresses already relative to the device
// (i.e. with the attach offset subtracted).
type Device interface {
	Size() int
	Read(addr uint16) byte
	Write(addr uint16, v byte)
}

// A RawBlock is a Device that can additionally expose its backing bytes as
// a contiguous slice. Only devices holding executable 6502 code (RAM, PRG
// ROM) need to implement this; the decomposer uses it to scan for
// instructions without going through Read for every byte.
type RawBlock interface {
	Device
	Raw() []byte
}

// A CodeRegion is one contiguous, directly-scannable span of guest memory,
// as reported by Bus.CodeRegions.
type CodeRegion struct {
	Base  uint16
	Bytes []byte
}

type attachment struct {
	device Device
	offset uint16
}

// Bus is the central address-decoding fabric. One or more Devices are
// attached at fixed offsets; reads and writes are routed to whichever
// attachment's range contains the address. Writes are reported to every
// registered write-observer (the code cache and the Hal's bailout check) before the
// underlying device sees them, so invalidation can never observe stale
// bytes.
type Bus struct {
	attachments []attachment
	observers   []func(addr uint16)
}

// New returns an empty Bus with no attached devices.
func New() *Bus {
	return &Bus{}
}

// Attach connects a Device at the given offset. Devices must not overlap;
// Attach panics if they do, since an overlapping map is a configuration bug
// caught at startup, not a runtime condition.
func (b *Bus) Attach(d Device, offset uint16) {
	lo, hi := offset, offset+uint16(d.Size())-1
	for _, a := range b.attachments {
		alo, ahi := a.offset, a.offset+uint16(a.device.Size())-1
		if lo <= ahi && alo <= hi {
			panic("mem: overlapping device attachment")
		}
	}
	b.attachments = append(b.attachments, attachment{device: d, offset: offset})
}

// ObserveWrites registers fn to be called, in addition to the underlying
// device, on every Write. The JIT driver uses this to notify the code cache
// (memory_changed) and the Hal's self-modifying-write bailout
// (OnMemoryWritten).
func (b *Bus) ObserveWrites(fn func(addr uint16)) {
	b.observers = append(b.observers, fn)
}

func (b *Bus) find(addr uint16) (attachment, bool) {
	for _, a := range b.attachments {
		size := uint16(a.device.Size())
		if addr >= a.offset && addr < a.offset+size {
			return a, true
		}
	}
	return attachment{}, false
}

// Read returns the byte at addr. A read from an address with no attached
// device returns 0 — reads never fail (§7, semantic/non-fatal).
func (b *Bus) Read(addr uint16) byte {
	a, ok := b.find(addr)
	if !ok {
		return 0
	}
	return a.device.Read(addr - a.offset)
}

// Write stores v at addr, having first notified every write-observer. A
// write to an address with no attached device is dropped silently (§7).
//
// §4.B mandates this order -- observers run before the device sees the
// write, not after -- so a write into ROM (which the device then drops)
// still reaches the cache/SMC observers first. That can stage a page for
// invalidation or trip a bailout over bytes that never actually changed;
// harmless, since a recompile of unchanged ROM bytes is a no-op, but it is
// the cost of honoring the spec's ordering rather than gating observers on
// whether the target device is writable.
func (b *Bus) Write(addr uint16, v byte) {
	for _, fn := range b.observers {
		fn(addr)
	}
	a, ok := b.find(addr)
	if !ok {
		return
	}
	a.device.Write(addr-a.offset, v)
}

// CodeRegions returns every attached RawBlock device's backing bytes,
// tagged with the guest base address they occupy. Only these spans are
// eligible for decomposition (§4.E) — a function cannot be decomposed out
// of a device that offers no raw view (e.g. an I/O register block).
func (b *Bus) CodeRegions() []CodeRegion {
	var regions []CodeRegion
	for _, a := range b.attachments {
		rb, ok := a.device.(RawBlock)
		if !ok {
			continue
		}
		regions = append(regions, CodeRegion{Base: a.offset, Bytes: rb.Raw()})
	}
	return regions
}

// InCodeRegion reports whether addr falls inside any attached RawBlock, and
// if so returns the byte at that address, using the same regions
// CodeRegions reports to the decomposer.
func (b *Bus) InCodeRegion(addr uint16) (byte, bool) {
	for _, r := range b.CodeRegions() {
		if addr >= r.Base && int(addr-r.Base) < len(r.Bytes) {
			return r.Bytes[addr-r.Base], true
		}
	}
	return 0, false
}
