package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/Muhammad2308/donorauth"
)

// CreateDeviceSession mints a device session from donor data, a fresh
// device snapshot, and a confirmed verification outcome. The caller (the
// orchestrator) guarantees at-most-once per outcome; the backend rejects a
// replayed verification reference with a 409.
func (c *Client) CreateDeviceSession(ctx context.Context, donor donorauth.DonorData, info donorauth.DeviceInfo, outcome donorauth.VerificationOutcome) (donorauth.Session, donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/session/create",
		fingerprint: info.Fingerprint,
		body: map[string]any{
			"donorData":  donor,
			"deviceInfo": info,
			"verificationData": map[string]string{
				"channel":   outcome.Channel.String(),
				"contact":   outcome.Contact,
				"reference": outcome.Reference,
			},
		},
	}, &envelope)
	if err != nil {
		return donorauth.Session{}, donorauth.UserSnapshot{}, err
	}
	return deviceSession(envelope.Token), envelope.snapshot(), nil
}

// checkEnvelope extends the auth envelope with the recognition flag the
// check endpoint returns for known devices without a live session.
type checkEnvelope struct {
	authEnvelope
	Recognized bool `json:"recognized"`
}

// CheckDeviceSession asks the backend whether the persisted device session
// is still live for this fingerprint. A 401 or 404 means neither session
// nor device is known and is folded into the zero DeviceCheck rather than
// surfaced as an error; every other failure propagates.
func (c *Client) CheckDeviceSession(ctx context.Context, token string, info donorauth.DeviceInfo) (donorauth.DeviceCheck, error) {
	var envelope checkEnvelope
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/session/check",
		bearer:      token,
		fingerprint: info.Fingerprint,
		body:        info,
	}, &envelope)
	if err != nil {
		return donorauth.DeviceCheck{}, err
	}

	check := donorauth.DeviceCheck{Recognized: envelope.Recognized}
	if envelope.Token != "" {
		sess := deviceSession(envelope.Token)
		user := envelope.snapshot()
		check.Recognized = true
		check.Session = &sess
		check.User = &user
	}
	return check, nil
}

// DeviceLogin is the password-less login offered when the backend
// recognizes the fingerprint but holds no live session.
func (c *Client) DeviceLogin(ctx context.Context, info donorauth.DeviceInfo) (donorauth.Session, donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/session/login",
		fingerprint: info.Fingerprint,
		body:        info,
	}, &envelope)
	if err != nil {
		return donorauth.Session{}, donorauth.UserSnapshot{}, err
	}
	return deviceSession(envelope.Token), envelope.snapshot(), nil
}

// DeviceLoginWithDonor selects one donor when a shared device maps to
// several. Not part of the SessionGateway boundary; shells that need it
// depend on the concrete client.
func (c *Client) DeviceLoginWithDonor(ctx context.Context, info donorauth.DeviceInfo, donorID string) (donorauth.Session, donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/api/session/login-with-donor",
		fingerprint: info.Fingerprint,
		body: map[string]any{
			"deviceInfo": info,
			"donor_id":   donorID,
		},
	}, &envelope)
	if err != nil {
		return donorauth.Session{}, donorauth.UserSnapshot{}, err
	}
	return deviceSession(envelope.Token), envelope.snapshot(), nil
}

func (c *Client) DeviceLogout(ctx context.Context, token string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/session/logout",
		bearer: token,
	}, nil)
}

func deviceSession(token string) donorauth.Session {
	return donorauth.Session{
		Token:    token,
		Lineage:  donorauth.LineageDevice,
		IssuedAt: time.Now(),
	}
}
