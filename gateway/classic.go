package gateway

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Muhammad2308/donorauth"
)

// ValidateToken checks a classic bearer token and returns the account
// snapshot it authenticates.
func (c *Client) ValidateToken(ctx context.Context, token string) (donorauth.UserSnapshot, error) {
	var payload userPayload
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/user",
		bearer: token,
	}, &payload)
	if err != nil {
		return donorauth.UserSnapshot{}, err
	}
	return payload.snapshot(), nil
}

func (c *Client) Login(ctx context.Context, username, password string) (donorauth.Session, donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/donor-sessions/login",
		body: map[string]string{
			"username": username,
			"password": password,
		},
	}, &envelope)
	if err != nil {
		return donorauth.Session{}, donorauth.UserSnapshot{}, err
	}
	return classicSession(envelope.Token), envelope.snapshot(), nil
}

func (c *Client) Register(ctx context.Context, fields donorauth.RegistrationFields) (donorauth.Session, donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/donor-sessions/register",
		body:   fields,
	}, &envelope)
	if err != nil {
		return donorauth.Session{}, donorauth.UserSnapshot{}, err
	}
	return classicSession(envelope.Token), envelope.snapshot(), nil
}

func (c *Client) GoogleLogin(ctx context.Context, idToken string) (donorauth.Session, donorauth.UserSnapshot, error) {
	return c.googleAuth(ctx, "/api/donor-sessions/google-login", idToken)
}

func (c *Client) GoogleRegister(ctx context.Context, idToken string) (donorauth.Session, donorauth.UserSnapshot, error) {
	return c.googleAuth(ctx, "/api/donor-sessions/google-register", idToken)
}

func (c *Client) googleAuth(ctx context.Context, path, idToken string) (donorauth.Session, donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   path,
		body:   map[string]string{"id_token": idToken},
	}, &envelope)
	if err != nil {
		return donorauth.Session{}, donorauth.UserSnapshot{}, err
	}
	return classicSession(envelope.Token), envelope.snapshot(), nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/donor-sessions/logout",
		bearer: token,
	}, nil)
}

func (c *Client) UpdateUsername(ctx context.Context, token, donorID, username string) (donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/api/donor-sessions/" + url.PathEscape(donorID) + "/username",
		bearer: token,
		body:   map[string]string{"username": username},
	}, &envelope)
	if err != nil {
		return donorauth.UserSnapshot{}, err
	}
	return envelope.snapshot(), nil
}

func (c *Client) UpdatePassword(ctx context.Context, token, donorID, oldPassword, newPassword string) (donorauth.UserSnapshot, error) {
	var envelope authEnvelope
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/api/donor-sessions/" + url.PathEscape(donorID) + "/password",
		bearer: token,
		body: map[string]string{
			"old_password": oldPassword,
			"new_password": newPassword,
		},
	}, &envelope)
	if err != nil {
		return donorauth.UserSnapshot{}, err
	}
	return envelope.snapshot(), nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/donor-sessions/forgot-password",
		body:   map[string]string{"email": email},
	}, nil)
}

func (c *Client) CheckResetToken(ctx context.Context, resetToken string) error {
	return c.do(ctx, request{
		method: http.MethodGet,
		path:   "/api/donor-sessions/reset/" + url.PathEscape(resetToken),
	}, nil)
}

func (c *Client) SubmitPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/api/donor-sessions/reset/" + url.PathEscape(resetToken),
		body:   map[string]string{"password": newPassword},
	}, nil)
}

func classicSession(token string) donorauth.Session {
	return donorauth.Session{
		Token:    token,
		Lineage:  donorauth.LineageClassic,
		IssuedAt: time.Now(),
	}
}
