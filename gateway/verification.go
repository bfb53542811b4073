package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Muhammad2308/donorauth"
)

// SendCode asks the backend to dispatch a one-time code to contact over the
// given channel. The code itself never reaches the client.
func (c *Client) SendCode(ctx context.Context, channel donorauth.Channel, contact string) error {
	path := "/api/verification/send-sms"
	body := map[string]string{"phone": contact}
	if channel == donorauth.ChannelEmail {
		path = "/api/verification/send-email"
		body = map[string]string{"email": contact}
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   path,
		body:   body,
	}, nil)
}

// ConfirmCode submits a user-entered code. The backend is authoritative on
// correctness and expiry; a structured rejection maps to ErrCodeRejected so
// the flow can stay in verification-pending for a retry.
func (c *Client) ConfirmCode(ctx context.Context, channel donorauth.Channel, contact, code string) (donorauth.VerificationOutcome, error) {
	path := "/api/verification/verify-sms"
	body := map[string]string{"phone": contact, "code": code}
	if channel == donorauth.ChannelEmail {
		path = "/api/verification/verify-email"
		body = map[string]string{"email": contact, "code": code}
	}

	var payload struct {
		Reference string `json:"reference"`
	}
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   path,
		body:   body,
	}, &payload)
	if err != nil {
		var apiErr *donorauth.APIError
		if errors.As(err, &apiErr) && errors.Is(apiErr.Sentinel, donorauth.ErrRejected) {
			return donorauth.VerificationOutcome{}, &donorauth.APIError{
				Sentinel:   donorauth.ErrCodeRejected,
				StatusCode: apiErr.StatusCode,
				Message:    apiErr.Message,
			}
		}
		return donorauth.VerificationOutcome{}, err
	}

	return donorauth.VerificationOutcome{
		Channel:    channel,
		Contact:    contact,
		Reference:  payload.Reference,
		VerifiedAt: time.Now(),
	}, nil
}
