package donorauth

import (
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// phonePattern is E.164-like: optional leading +, 7 to 15 digits, no
// leading zero. Deliberately loose; the SMS provider behind the backend is
// the real arbiter.
var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

// validateContact fails fast before any network call. SMS contacts must
// look like E.164 numbers, email contacts must parse as a bare address.
func validateContact(channel Channel, contact string) error {
	switch channel {
	case ChannelSMS:
		if !phonePattern.MatchString(strings.ReplaceAll(contact, " ", "")) {
			return ErrInvalidContact
		}
	case ChannelEmail:
		addr, err := mail.ParseAddress(contact)
		if err != nil || addr.Address != contact {
			return ErrInvalidContact
		}
	default:
		return ErrInvalidInput
	}
	return nil
}

// normalizeContact strips the spacing users type into phone numbers so the
// cooldown key and the backend payload agree.
func normalizeContact(channel Channel, contact string) string {
	if channel == ChannelSMS {
		return strings.ReplaceAll(contact, " ", "")
	}
	return strings.TrimSpace(contact)
}

// validateCode checks the local one-time code format: exactly the
// configured number of ASCII digits.
func validateCode(code string, digits int) error {
	if len(code) != digits {
		return ErrInvalidCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return ErrInvalidCode
		}
	}
	return nil
}

// cooldownTable enforces the client-side resend throttle: one dispatch per
// contact per cooldown window. This is a UX guard against double taps, not
// a security control; the backend rate-limits for real.
type cooldownTable struct {
	mu       sync.Mutex
	cooldown time.Duration
	limiters map[string]*rate.Limiter
}

func newCooldownTable(cooldown time.Duration) *cooldownTable {
	return &cooldownTable{
		cooldown: cooldown,
		limiters: make(map[string]*rate.Limiter),
	}
}

// allow reports whether a code may be dispatched to contact now, consuming
// the window when it may.
func (t *cooldownTable) allow(contact string) bool {
	if t.cooldown <= 0 {
		return true
	}
	t.mu.Lock()
	limiter, ok := t.limiters[contact]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(t.cooldown), 1)
		t.limiters[contact] = limiter
	}
	t.mu.Unlock()
	return limiter.Allow()
}
