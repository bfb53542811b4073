package donorauth

import (
	"context"
	"time"
)

// State is the position of the auth state machine for one client instance.
type State uint8

const (
	// StateAnonymous means no credential is active and the device is unknown.
	StateAnonymous State = iota
	// StateChecking is the transient startup state while persisted
	// credentials are validated against the backend.
	StateChecking
	// StateDeviceRecognizedNoSession means the backend recognizes this
	// device's fingerprint but holds no live session for it; a password-less
	// device login is offered.
	StateDeviceRecognizedNoSession
	// StateDeviceRecognizedWithSession means the backend recognized the
	// device and returned a live session that has not yet been committed
	// locally. Transient during startup and device login.
	StateDeviceRecognizedWithSession
	// StateVerificationPending means a one-time code has been dispatched and
	// the flow is waiting for the user to enter it.
	StateVerificationPending
	// StateAuthenticated means a session of either lineage is active and a
	// user snapshot is cached.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateChecking:
		return "checking"
	case StateDeviceRecognizedNoSession:
		return "device_recognized_no_session"
	case StateDeviceRecognizedWithSession:
		return "device_recognized_with_session"
	case StateVerificationPending:
		return "verification_pending"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Lineage identifies which of the two mutually exclusive authentication
// mechanisms currently backs a session.
type Lineage uint8

const (
	// LineageNone means no session of either kind is active.
	LineageNone Lineage = iota
	// LineageClassic is the username/password or OAuth-derived bearer token.
	LineageClassic
	// LineageDevice is the verification-derived, password-less device session.
	LineageDevice
)

func (l Lineage) String() string {
	switch l {
	case LineageClassic:
		return "classic"
	case LineageDevice:
		return "device"
	default:
		return "none"
	}
}

// Channel is the delivery medium for one-time verification codes.
type Channel uint8

const (
	// ChannelSMS delivers codes to an E.164 phone number.
	ChannelSMS Channel = iota + 1
	// ChannelEmail delivers codes to an email address.
	ChannelEmail
)

func (c Channel) String() string {
	switch c {
	case ChannelSMS:
		return "sms"
	case ChannelEmail:
		return "email"
	default:
		return "unknown"
	}
}

// DeviceInfo is an immutable snapshot of the current device, built fresh
// immediately before any request that needs device identity. It is never
// cached across calls so that environment changes (locale switch, display
// change) are reflected within the same process lifetime.
type DeviceInfo struct {
	Fingerprint      string `json:"fingerprint"`
	UserAgent        string `json:"user_agent"`
	Platform         string `json:"platform"`
	Language         string `json:"language"`
	ScreenResolution string `json:"screen_resolution"`
	Timezone         string `json:"timezone"`
}

// DonorData is the profile collected from the user before verification. It
// rides inside the pending VerificationContext until the device session is
// minted, and is never persisted locally.
type DonorData struct {
	Name         string `json:"name"`
	Surname      string `json:"surname,omitempty"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization,omitempty"`
}

// RegistrationFields is the payload for classic account registration.
type RegistrationFields struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserSnapshot is the cached projection of the backend donor/account record,
// stored alongside the session so the UI can render without a round trip.
// Only the backend mutates it; the client merely re-caches what the backend
// confirms. TotalDonations is consumed solely by [TierOf].
type UserSnapshot struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	ProfileImage   string  `json:"profile_image,omitempty"`
	TotalDonations float64 `json:"total_donations"`
}

// Session is the durable proof of identity held by the client: a bearer
// token for the classic lineage or a device-session token for the device
// lineage. The presence of one lineage implies the other is absent.
type Session struct {
	Token    string    `json:"token"`
	Lineage  Lineage   `json:"lineage"`
	IssuedAt time.Time `json:"issued_at"`
}

// VerificationContext tracks one in-flight verification hand-off. Exactly
// one context is active per Orchestrator; starting a new channel overwrites
// the previous one.
type VerificationContext struct {
	ID       string    `json:"id"`
	Channel  Channel   `json:"channel"`
	Contact  string    `json:"contact"`
	IssuedAt time.Time `json:"issued_at"`
	Donor    DonorData `json:"donor"`
}

// VerificationOutcome is the backend's confirmation that a contact address
// was proven. Reference is the backend-issued proof handle consumed by
// session creation; it is single-use.
type VerificationOutcome struct {
	Channel    Channel   `json:"channel"`
	Contact    string    `json:"contact"`
	Reference  string    `json:"reference,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

// DeviceCheck is the backend's answer to a fingerprint/session check.
// Session and User are set when the persisted device session is still live.
// Recognized alone means the fingerprint matched a known donor but no
// session survives, which unlocks the password-less device login UX.
type DeviceCheck struct {
	Recognized bool
	Session    *Session
	User       *UserSnapshot
}

// SessionGateway is the backend-facing boundary for session operations of
// both lineages. Implementations must map expected backend failures onto the
// package sentinel errors (see errors.go) rather than inventing their own.
// The gateway subpackage provides the HTTP implementation.
type SessionGateway interface {
	// ValidateToken validates a classic bearer token and returns the
	// current account snapshot.
	ValidateToken(ctx context.Context, token string) (UserSnapshot, error)

	// Classic lineage.
	Login(ctx context.Context, username, password string) (Session, UserSnapshot, error)
	Register(ctx context.Context, fields RegistrationFields) (Session, UserSnapshot, error)
	GoogleLogin(ctx context.Context, idToken string) (Session, UserSnapshot, error)
	GoogleRegister(ctx context.Context, idToken string) (Session, UserSnapshot, error)
	Logout(ctx context.Context, token string) error

	// Device lineage. CreateDeviceSession must be called at most once per
	// confirmed VerificationOutcome; the Orchestrator enforces this.
	CreateDeviceSession(ctx context.Context, donor DonorData, info DeviceInfo, outcome VerificationOutcome) (Session, UserSnapshot, error)
	CheckDeviceSession(ctx context.Context, token string, info DeviceInfo) (DeviceCheck, error)
	DeviceLogin(ctx context.Context, info DeviceInfo) (Session, UserSnapshot, error)
	DeviceLogout(ctx context.Context, token string) error

	// Account maintenance, classic lineage only.
	UpdateUsername(ctx context.Context, token, donorID, username string) (UserSnapshot, error)
	UpdatePassword(ctx context.Context, token, donorID, oldPassword, newPassword string) (UserSnapshot, error)
	ForgotPassword(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, resetToken string) error
	SubmitPasswordReset(ctx context.Context, resetToken, newPassword string) error
}

// VerificationTransport dispatches and confirms one-time codes. It carries
// no local state beyond the HTTP call itself; cooldowns and format checks
// are enforced by the Orchestrator before the transport is reached.
type VerificationTransport interface {
	SendCode(ctx context.Context, channel Channel, contact string) error
	ConfirmCode(ctx context.Context, channel Channel, contact, code string) (VerificationOutcome, error)
}

// StateChange is delivered to the listener registered with
// [Orchestrator.OnStateChange] after every committed transition.
type StateChange struct {
	From    State
	To      State
	Lineage Lineage
}
