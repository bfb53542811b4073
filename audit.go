package donorauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// AuditEvent records one observable step of the auth flow: a state
// transition, a gateway outcome, or a rejected duplicate submission.
// Contact values are redacted before the event is built; sinks never see
// raw phone numbers or email addresses.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	State     string            `json:"state,omitempty"`
	Lineage   string            `json:"lineage,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(data)
}

const (
	auditEventStartup           = "startup"
	auditEventStateChange       = "state_change"
	auditEventVerificationSend  = "verification_send"
	auditEventChannelSwitch     = "verification_channel_switch"
	auditEventVerificationDone  = "verification_confirm"
	auditEventDeviceSessionMint = "device_session_create"
	auditEventDeviceLogin       = "device_login"
	auditEventLogin             = "login"
	auditEventRegister          = "register"
	auditEventGoogleFallback    = "google_register_fallback"
	auditEventLogout            = "logout"
	auditEventSessionExpired    = "session_expired"
	auditEventInFlightRejected  = "in_flight_rejected"
	auditEventProfileUpdate     = "profile_update"
)

// redactContact keeps just enough of a contact address for an operator to
// correlate events without logging PII: the first rune and the domain for
// emails, the last two digits for phone numbers.
func redactContact(channel Channel, contact string) string {
	if contact == "" {
		return ""
	}
	switch channel {
	case ChannelEmail:
		for i, r := range contact {
			if r == '@' {
				if i == 0 {
					return "*" + contact[i:]
				}
				return contact[:1] + "***" + contact[i:]
			}
		}
		return contact[:1] + "***"
	default:
		if len(contact) <= 2 {
			return "***"
		}
		return "***" + contact[len(contact)-2:]
	}
}
