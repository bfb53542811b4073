package donorauth

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig must validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "empty base URL is legal for injected gateways",
			mutate: func(c *Config) { c.Gateway.BaseURL = "" },
		},
		{
			name:   "absolute https URL",
			mutate: func(c *Config) { c.Gateway.BaseURL = "https://donations.example.org" },
		},
		{
			name:    "relative base URL",
			mutate:  func(c *Config) { c.Gateway.BaseURL = "donations.example.org/api" },
			wantErr: ErrConfigBaseURL,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Verification.ResendCooldown = -time.Second },
			wantErr: ErrConfigCooldown,
		},
		{
			name:   "zero cooldown disables the throttle",
			mutate: func(c *Config) { c.Verification.ResendCooldown = 0 },
		},
		{
			name:    "code too short",
			mutate:  func(c *Config) { c.Verification.CodeDigits = 3 },
			wantErr: ErrConfigCodeDigits,
		},
		{
			name:    "code too long",
			mutate:  func(c *Config) { c.Verification.CodeDigits = 11 },
			wantErr: ErrConfigCodeDigits,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantErr: ErrConfigAuditBuffer,
		},
		{
			name: "audit disabled ignores buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Verification.CodeDigits = 0

	_, err := New(cfg, Deps{Gateway: newFakeGateway(), Verification: newFakeTransport()})
	if !errors.Is(err, ErrConfigCodeDigits) {
		t.Fatalf("New = %v, want ErrConfigCodeDigits", err)
	}
}
