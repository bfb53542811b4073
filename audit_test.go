package donorauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

// slowSink blocks every Emit until released, to back up the dispatcher
// buffer on demand.
type slowSink struct {
	release chan struct{}
	mu      sync.Mutex
	seen    []AuditEvent
}

func newSlowSink() *slowSink {
	return &slowSink{release: make(chan struct{})}
}

func (s *slowSink) Emit(_ context.Context, event AuditEvent) {
	<-s.release
	s.mu.Lock()
	s.seen = append(s.seen, event)
	s.mu.Unlock()
}

func (s *slowSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	sink := newSlowSink()
	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 2,
		DropIfFull: true,
	}, sink)
	defer d.Close()

	// One event may be parked inside the sink goroutine on top of the two
	// buffered, so overfill well past the buffer.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventStateChange})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops past the buffer size")
	}
	if d.Dropped() < 7 {
		t.Fatalf("dropped = %d, want at least 7 of 10", d.Dropped())
	}

	close(sink.release)
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	sink := newSlowSink()
	close(sink.release) // sink never blocks in this test

	d := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 16,
		DropIfFull: true,
	}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventLogin})
	}
	d.Close()

	if got := sink.count(); got != 5 {
		t.Fatalf("delivered = %d, want all 5 after close", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", d.Dropped())
	}

	// Emitting after close is a silent no-op.
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})
	if got := sink.count(); got != 5 {
		t.Fatalf("post-close emit delivered (count %d)", got)
	}
}

func TestAuditDispatcherDisabled(t *testing.T) {
	if d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{}); d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}
	// The nil dispatcher absorbs all calls.
	var d *auditDispatcher
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
}

func TestAuditDispatcherStampsTimestamp(t *testing.T) {
	sink := NewChannelSink(1)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer d.Close()

	before := time.Now()
	d.Emit(context.Background(), AuditEvent{EventType: auditEventStartup})

	select {
	case event := <-sink.Events():
		if event.Timestamp.Before(before) {
			t.Fatalf("timestamp %v predates emit", event.Timestamp)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the sink")
	}
}

func TestJSONWriterSinkWritesOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogin, Success: true})
	sink.Emit(context.Background(), AuditEvent{EventType: auditEventLogout, Success: true})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if decoded.EventType != auditEventLogin {
		t.Fatalf("event_type = %q", decoded.EventType)
	}
}

func TestRedactContact(t *testing.T) {
	cases := []struct {
		channel Channel
		contact string
		want    string
	}{
		{ChannelEmail, "sani@example.org", "s***@example.org"},
		{ChannelEmail, "@example.org", "*@example.org"},
		{ChannelEmail, "no-at-sign", "n***"},
		{ChannelSMS, "+2348031234567", "***67"},
		{ChannelSMS, "12", "***"},
		{ChannelSMS, "", ""},
	}
	for _, tc := range cases {
		if got := redactContact(tc.channel, tc.contact); got != tc.want {
			t.Errorf("redactContact(%s, %q) = %q, want %q", tc.channel, tc.contact, got, tc.want)
		}
	}
}
