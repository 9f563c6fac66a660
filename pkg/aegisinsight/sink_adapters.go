package aegisinsight

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("aegisinsight: channel sink closed")

// ResultHandler receives one finished result.
type ResultHandler func(Result) error

// NewCallbackSink adapts a function into a ResultSink so callers can plug the
// NLG layer in without defining structs.
func NewCallbackSink(name string, fn ResultHandler) ResultSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes results via a channel; it returns the sink, the read-only channel,
// and a close function that the caller should invoke during shutdown.
func NewChannelSink(name string, buffer int) (ResultSink, <-chan Result, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Result, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   ResultHandler
}

func (s *callbackSink) Deliver(ctx context.Context, r Result) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(r)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan Result
	closed chan struct{}
	mu     sync.RWMutex
	once   sync.Once
}

// Deliver blocks until the result is read, ctx ends or the sink is closed.
func (s *channelSink) Deliver(ctx context.Context, r Result) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- r:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
