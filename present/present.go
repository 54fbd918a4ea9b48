// Package present is the frame-rendezvous contract between the execution
// core and whatever host-side sink eventually draws a frame. It defines no
// rendering of its own (§1 Non-goals) — only the synchronization a driver
// uses to hand a completed frame buffer to a Sink and wait for it to be
// consumed before starting the next one, so the emulated machine never
// runs arbitrarily far ahead of a slow presenter.
package present

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// A Sink receives completed frames. Present must return before the next
// frame's pixels start changing underneath it, so a Sink that needs to hold
// onto the buffer longer must copy it.
type Sink interface {
	Present(frame []byte)
}

// Rendezvous hands frames to a Sink one at a time, blocking the producer
// until the previous frame has been consumed. This mirrors the teacher
// pack's frame-pacing use of golang.org/x/sync, generalized from a
// fixed-rate ticker to an explicit per-frame handoff.
type Rendezvous struct {
	sink *semaphore.Weighted
	sync Sink
}

// NewRendezvous returns a Rendezvous that delivers frames to sink.
func NewRendezvous(sink Sink) *Rendezvous {
	r := &Rendezvous{sink: semaphore.NewWeighted(1), sync: sink}
	return r
}

// Deliver blocks until the previous frame has been fully handed off, then
// presents frame synchronously. ctx bounds how long Deliver will wait for
// the handoff slot — a cancelled ctx means the host gave up on pacing
// (e.g. window closed), not a 6502-visible error.
func (r *Rendezvous) Deliver(ctx context.Context, frame []byte) error {
	if err := r.sink.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.sink.Release(1)
	r.sync.Present(frame)
	return nil
}
