package present

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	got [][]byte
}

func (s *recordingSink) Present(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	s.got = append(s.got, cp)
}

func TestDeliverPassesFrameToSink(t *testing.T) {
	sink := &recordingSink{}
	r := NewRendezvous(sink)
	require.NoError(t, r.Deliver(context.Background(), []byte{1, 2, 3}))
	assert.Equal(t, [][]byte{{1, 2, 3}}, sink.got)
}

func TestDeliverRespectsCancelledContextWhenSlotIsTaken(t *testing.T) {
	blocking := make(chan struct{})
	sink := &blockingSink{entered: make(chan struct{}), unblock: blocking}
	r := NewRendezvous(sink)

	done := make(chan struct{})
	go func() {
		_ = r.Deliver(context.Background(), []byte{1})
		close(done)
	}()
	<-sink.entered // wait until the first Deliver holds the slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := r.Deliver(ctx, []byte{2})
	assert.Error(t, err)

	close(blocking)
	<-done
}

type blockingSink struct {
	entered chan struct{}
	unblock chan struct{}
}

func (s *blockingSink) Present([]byte) {
	if s.entered == nil {
		s.entered = make(chan struct{})
	}
	close(s.entered)
	<-s.unblock
}

func TestMultipleDeliveriesAreSerialized(t *testing.T) {
	sink := &recordingSink{}
	r := NewRendezvous(sink)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Deliver(context.Background(), []byte{byte(i)}))
	}
	assert.Len(t, sink.got, 3)
}
