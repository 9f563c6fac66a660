package aegisinsight

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var received []Result
	sink := NewCallbackSink("cb", func(r Result) error {
		received = append(received, r)
		return nil
	})

	if err := sink.Deliver(context.Background(), Result{ID: "r-1", Confidence: 0.9}); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if len(received) != 1 || received[0].ID != "r-1" {
		t.Fatalf("expected result to be handed over verbatim, got %+v", received)
	}
	if sink.Name() != "cb" {
		t.Fatalf("unexpected name %s", sink.Name())
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if err := sink.Deliver(context.Background(), Result{}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %s", sink.Name())
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	if err := sink.Deliver(context.Background(), Result{ID: "r-1"}); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	select {
	case got := <-ch:
		if got.ID != "r-1" {
			t.Fatalf("unexpected result %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for result")
	}
}

func TestChannelSinkHonoursContext(t *testing.T) {
	sink, _, closeFn := NewChannelSink("chan", 0)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := sink.Deliver(ctx, Result{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestChannelSinkClosed(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 0)

	blocked := make(chan error, 1)
	go func() { blocked <- sink.Deliver(context.Background(), Result{}) }()
	time.Sleep(10 * time.Millisecond)
	closeFn()
	closeFn()

	if err := <-blocked; !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected blocked deliver to see close, got %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if err := sink.Deliver(context.Background(), Result{}); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}
