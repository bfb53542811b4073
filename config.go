package donorauth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config defines the tunable surface of an Orchestrator. Configure it once
// during initialization and treat it as immutable afterwards.
type Config struct {
	Gateway      GatewayConfig
	Verification VerificationConfig
	Startup      StartupConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
GATEWAY CONFIG
====================================
*/

// GatewayConfig tunes the HTTP gateway built by the gateway subpackage.
// It lives here so a single Config can be handed to both the Orchestrator
// and the transport constructors.
type GatewayConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

/*
====================================
VERIFICATION CONFIG
====================================
*/

// VerificationConfig tunes the one-time-code hand-off.
type VerificationConfig struct {
	// ResendCooldown is the client-side minimum gap between code dispatches
	// for the same contact. The backend owns true rate limiting.
	ResendCooldown time.Duration
	// CodeDigits is the expected one-time code length.
	CodeDigits int
}

/*
====================================
STARTUP CONFIG
====================================
*/

// StartupConfig tunes the credential resolution performed on launch.
type StartupConfig struct {
	// LocalExpirySkew widens the local JWT expiry pre-check so a token
	// within the skew of expiring is still validated against the backend.
	LocalExpirySkew time.Duration
	// SkipLocalExpiryCheck disables the offline JWT expiry short-circuit
	// and always consults the backend for classic tokens.
	SkipLocalExpiryCheck bool
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the flow when the buffer
	// is full. Dropped events are counted and reported by AuditDropped.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counter registry.
type MetricsConfig struct {
	Enabled bool
}

var (
	// ErrConfigBaseURL means the gateway base URL is malformed.
	ErrConfigBaseURL = errors.New("config: gateway base URL must be an absolute http(s) URL")
	// ErrConfigCooldown means the resend cooldown is negative.
	ErrConfigCooldown = errors.New("config: verification resend cooldown must not be negative")
	// ErrConfigCodeDigits means the code length is outside 4..10.
	ErrConfigCodeDigits = errors.New("config: verification code digits must be between 4 and 10")
	// ErrConfigAuditBuffer means audit is enabled with a non-positive buffer.
	ErrConfigAuditBuffer = errors.New("config: audit buffer size must be positive when audit is enabled")
)

// DefaultConfig returns the configuration the production donor client ships
// with. BaseURL must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Timeout:   15 * time.Second,
			UserAgent: "donorauth/1",
		},
		Verification: VerificationConfig{
			ResendCooldown: 60 * time.Second,
			CodeDigits:     6,
		},
		Startup: StartupConfig{
			LocalExpirySkew: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration problem found, or nil. An empty
// BaseURL is legal here because the gateway may be injected directly;
// gateway.New enforces the URL for the HTTP transport.
func (c Config) Validate() error {
	if c.Gateway.BaseURL != "" &&
		!strings.HasPrefix(c.Gateway.BaseURL, "http://") && !strings.HasPrefix(c.Gateway.BaseURL, "https://") {
		return ErrConfigBaseURL
	}
	if c.Verification.ResendCooldown < 0 {
		return ErrConfigCooldown
	}
	if c.Verification.CodeDigits < 4 || c.Verification.CodeDigits > 10 {
		return ErrConfigCodeDigits
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return ErrConfigAuditBuffer
	}
	return nil
}
