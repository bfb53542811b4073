package donorauth

import (
	"errors"
	"testing"
	"time"
)

func TestValidateContact(t *testing.T) {
	cases := []struct {
		name    string
		channel Channel
		contact string
		wantErr error
	}{
		{"e164 with plus", ChannelSMS, "+2348031234567", nil},
		{"e164 bare", ChannelSMS, "2348031234567", nil},
		{"sms with spaces", ChannelSMS, "+234 803 123 4567", nil},
		{"sms too short", ChannelSMS, "12345", ErrInvalidContact},
		{"sms leading zero", ChannelSMS, "08031234567", ErrInvalidContact},
		{"sms letters", ChannelSMS, "+23480abc4567", ErrInvalidContact},
		{"email plain", ChannelEmail, "donor@example.org", nil},
		{"email subaddress", ChannelEmail, "donor+tag@example.org", nil},
		{"email no at", ChannelEmail, "donor.example.org", ErrInvalidContact},
		{"email display name", ChannelEmail, "Donor <donor@example.org>", ErrInvalidContact},
		{"email empty", ChannelEmail, "", ErrInvalidContact},
		{"unknown channel", Channel(0), "whatever", ErrInvalidInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			contact := normalizeContact(tc.channel, tc.contact)
			err := validateContact(tc.channel, contact)
			if !errors.Is(err, tc.wantErr) && !(err == nil && tc.wantErr == nil) {
				t.Fatalf("validateContact(%s, %q) = %v, want %v", tc.channel, tc.contact, err, tc.wantErr)
			}
		})
	}
}

func TestValidateCode(t *testing.T) {
	cases := []struct {
		code string
		ok   bool
	}{
		{"123456", true},
		{"000000", true},
		{"12345", false},
		{"1234567", false},
		{"12345a", false},
		{"12 456", false},
		{"", false},
	}

	for _, tc := range cases {
		err := validateCode(tc.code, 6)
		if (err == nil) != tc.ok {
			t.Errorf("validateCode(%q, 6) = %v, want ok=%v", tc.code, err, tc.ok)
		}
	}
}

func TestCooldownTable(t *testing.T) {
	table := newCooldownTable(time.Hour)

	if !table.allow("+2348031234567") {
		t.Fatal("first dispatch should be allowed")
	}
	if table.allow("+2348031234567") {
		t.Fatal("second dispatch inside the window should be blocked")
	}
	if !table.allow("donor@example.org") {
		t.Fatal("a different contact must not share the window")
	}
}

func TestCooldownTableDisabled(t *testing.T) {
	table := newCooldownTable(0)
	for i := 0; i < 3; i++ {
		if !table.allow("+2348031234567") {
			t.Fatal("zero cooldown must never block")
		}
	}
}
