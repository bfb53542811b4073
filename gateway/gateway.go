// Package gateway is the HTTP implementation of the donorauth backend
// boundaries. It owns request shaping, the X-Device-Fingerprint header, and
// the mapping from HTTP status codes onto the donorauth sentinel errors;
// nothing above it ever inspects a status code.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Muhammad2308/donorauth"
)

// deviceFingerprintHeader carries the fingerprint on endpoints that take it
// out-of-band instead of as a JSON field.
const deviceFingerprintHeader = "X-Device-Fingerprint"

// Client talks to the endowment backend. It is stateless beyond the
// embedded http.Client and safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

var (
	_ donorauth.SessionGateway        = (*Client)(nil)
	_ donorauth.VerificationTransport = (*Client)(nil)
)

// New builds a Client from cfg. cfg.HTTPClient overrides cfg.Timeout.
func New(cfg donorauth.GatewayConfig) (*Client, error) {
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, donorauth.ErrConfigBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      httpClient,
	}, nil
}

// request describes one backend call. fingerprint, when set, is attached as
// the X-Device-Fingerprint header.
type request struct {
	method      string
	path        string
	bearer      string
	fingerprint string
	body        any
}

// do executes req and decodes a 2xx response into out (ignored when nil).
// Expected failures come back as *donorauth.APIError wrapping the matching
// sentinel; transport failures wrap donorauth.ErrNetwork.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return fmt.Errorf("building %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	if req.fingerprint != "" {
		httpReq.Header.Set(deviceFingerprintHeader, req.fingerprint)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &donorauth.APIError{
			Sentinel: donorauth.ErrNetwork,
			Message:  err.Error(),
		}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &donorauth.APIError{
			Sentinel: donorauth.ErrNetwork,
			Message:  err.Error(),
		}
	}

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, payload)
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		// A malformed 2xx body is a truly unexpected condition, not an
		// expected failure mode.
		return fmt.Errorf("decoding %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

func statusError(status int, payload []byte) error {
	sentinel := donorauth.ErrRejected
	switch status {
	case http.StatusUnauthorized:
		sentinel = donorauth.ErrUnauthenticated
	case http.StatusConflict:
		sentinel = donorauth.ErrConflict
	}
	return &donorauth.APIError{
		Sentinel:   sentinel,
		StatusCode: status,
		Message:    backendMessage(payload),
	}
}

// backendMessage pulls the human-readable message out of the backend's
// error envelope. The backend is inconsistent about the field name.
func backendMessage(payload []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}

// userPayload is the backend's donor/account projection. IDs arrive as
// numbers or strings depending on the endpoint.
type userPayload struct {
	ID             json.Number `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Phone          string      `json:"phone"`
	ProfileImage   string      `json:"profile_image"`
	TotalDonations float64     `json:"total_donations"`
}

func (p userPayload) snapshot() donorauth.UserSnapshot {
	return donorauth.UserSnapshot{
		ID:             p.ID.String(),
		Name:           p.Name,
		Email:          p.Email,
		Phone:          p.Phone,
		ProfileImage:   p.ProfileImage,
		TotalDonations: p.TotalDonations,
	}
}

// authEnvelope is the common success shape for calls that mint or refresh a
// session. Device endpoints answer with "donor", classic ones with "user".
type authEnvelope struct {
	Token string       `json:"token"`
	User  *userPayload `json:"user"`
	Donor *userPayload `json:"donor"`
}

func (e authEnvelope) snapshot() donorauth.UserSnapshot {
	if e.User != nil {
		return e.User.snapshot()
	}
	if e.Donor != nil {
		return e.Donor.snapshot()
	}
	return donorauth.UserSnapshot{}
}
