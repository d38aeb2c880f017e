package executor

import (
	"errors"
	"sync"

	"github.com/adred-codev/kvengine/internal/pubsub"
)

var errSinkClosed = errors.New("executor: sink closed")
var errSinkFull = errors.New("executor: sink buffer full")

// ChanSink is a bounded, non-blocking pubsub.Sink backed by a channel.
// It is the streaming handle returned to callers of monitor and
// subscribe: the send side is owned by the executor, the receive side
// by the network adapter, and closing makes subsequent sends fail
// rather than block or panic.
type ChanSink struct {
	mu     sync.Mutex
	ch     chan pubsub.Message
	closed bool
}

// NewChanSink creates a sink with the given buffer depth.
func NewChanSink(buf int) *ChanSink {
	return &ChanSink{ch: make(chan pubsub.Message, buf)}
}

// Send implements pubsub.Sink. It never blocks: a full or closed sink
// returns an error so the caller (the broker, or the executor's monitor
// fan-out) can prune it.
func (s *ChanSink) Send(m pubsub.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	select {
	case s.ch <- m:
		return nil
	default:
		return errSinkFull
	}
}

// Messages returns the receive side, for the adapter to range over.
func (s *ChanSink) Messages() <-chan pubsub.Message {
	return s.ch
}

// Close marks the sink closed and closes the channel. Safe to call more
// than once.
func (s *ChanSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
