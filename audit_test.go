package authgate

import (
	"bytes"
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	}
	d.Close()

	if got := sink.count.Load(); got != 10 {
		t.Errorf("delivered %d events, want 10", got)
	}
	if d.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", d.Dropped())
	}
}

func TestDispatcherDropsUnderBackpressure(t *testing.T) {
	sink := newGateSink()
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// The worker blocks on the gate; the buffer fills; extras are dropped
	// without blocking the emitter.
	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: AuditLogin})
	}

	deadline := time.After(time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("no events dropped under backpressure")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("disabled audit config produced a dispatcher")
	}

	// Nil dispatcher methods are safe no-ops.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Error("nil dispatcher reported drops")
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now(),
		EventType: AuditLogoutAll,
		Subject:   "user-1",
		Success:   true,
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("sink output is not JSON: %v", err)
	}
	if decoded.EventType != AuditLogoutAll || decoded.Subject != "user-1" {
		t.Errorf("decoded = %+v", decoded)
	}
	if buf.Bytes()[buf.Len()-1] != '\n' {
		t.Error("output not newline-terminated")
	}
}

func TestChannelSinkForwards(t *testing.T) {
	sink := NewChannelSink(4)
	sink.Emit(context.Background(), AuditEvent{EventType: AuditRateLimited})

	select {
	case event := <-sink.Events():
		if event.EventType != AuditRateLimited {
			t.Errorf("event = %+v", event)
		}
	default:
		t.Fatal("no event on channel")
	}
}
