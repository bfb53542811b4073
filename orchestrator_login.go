package donorauth

import (
	"context"
	"errors"
	"fmt"
)

// Login performs a classic username/password login. Backend rejections are
// returned verbatim for display; on success the machine is Authenticated
// with the classic lineage and any previous device session is displaced.
func (o *Orchestrator) Login(ctx context.Context, username, password string) error {
	if err := o.beginOp(ctx, opLogin); err != nil {
		return err
	}
	defer o.guard.end(opLogin)

	if username == "" || password == "" {
		return ErrInvalidInput
	}

	sess, user, err := o.gateway.Login(ctx, username, password)
	return o.finishLogin(ctx, auditEventLogin, sess, user, err)
}

// RegisterAccount creates a classic account and logs it in.
func (o *Orchestrator) RegisterAccount(ctx context.Context, fields RegistrationFields) error {
	if err := o.beginOp(ctx, opRegister); err != nil {
		return err
	}
	defer o.guard.end(opRegister)

	if fields.Username == "" || fields.Password == "" {
		return ErrInvalidInput
	}
	if err := validateContact(ChannelEmail, fields.Email); err != nil {
		return err
	}

	sess, user, err := o.gateway.Register(ctx, fields)
	return o.finishLogin(ctx, auditEventRegister, sess, user, err)
}

// GoogleLogin authenticates with a Google ID token against an existing
// account.
func (o *Orchestrator) GoogleLogin(ctx context.Context, idToken string) error {
	if err := o.beginOp(ctx, opGoogleAuth); err != nil {
		return err
	}
	defer o.guard.end(opGoogleAuth)

	if idToken == "" {
		return ErrInvalidInput
	}

	sess, user, err := o.gateway.GoogleLogin(ctx, idToken)
	return o.finishLogin(ctx, auditEventLogin, sess, user, err)
}

// GoogleRegister creates an account from a Google ID token. The backend
// cannot tell register from login ahead of time: when it answers 409 for a
// token whose account already exists, the same token is transparently
// retried as a login and no error surfaces to the caller unless that
// fallback fails too.
func (o *Orchestrator) GoogleRegister(ctx context.Context, idToken string) error {
	if err := o.beginOp(ctx, opGoogleAuth); err != nil {
		return err
	}
	defer o.guard.end(opGoogleAuth)

	if idToken == "" {
		return ErrInvalidInput
	}

	sess, user, err := o.gateway.GoogleRegister(ctx, idToken)
	if err != nil && errors.Is(err, ErrConflict) {
		o.metrics.Inc(MetricGoogleRegisterFallback)
		o.emitAudit(ctx, auditEventGoogleFallback, true, nil, nil)
		sess, user, err = o.gateway.GoogleLogin(ctx, idToken)
	}
	return o.finishLogin(ctx, auditEventRegister, sess, user, err)
}

// LoginWithDevice is the password-less login for a device the backend
// recognizes, typically offered from DeviceRecognizedNoSession. The
// fingerprint is recomputed at call time; nothing is required to be
// persisted beforehand.
func (o *Orchestrator) LoginWithDevice(ctx context.Context) error {
	if err := o.beginOp(ctx, opDeviceLogin); err != nil {
		return err
	}
	defer o.guard.end(opDeviceLogin)

	info := o.collector.Collect()
	sess, user, err := o.gateway.DeviceLogin(ctx, info)
	if err != nil && errors.Is(err, ErrUnauthenticated) {
		err = fmt.Errorf("%w: %v", ErrDeviceNotRecognized, err)
	}
	return o.finishLogin(ctx, auditEventDeviceLogin, sess, user, err)
}

func (o *Orchestrator) finishLogin(ctx context.Context, eventType string, sess Session, user UserSnapshot, err error) error {
	if err != nil {
		o.metrics.Inc(MetricLoginFailure)
		o.emitAudit(ctx, eventType, false, err, nil)
		return err
	}
	if err := o.commitSession(ctx, sess, user); err != nil {
		o.metrics.Inc(MetricLoginFailure)
		o.emitAudit(ctx, eventType, false, err, nil)
		return err
	}
	o.metrics.Inc(MetricLoginSuccess)
	o.emitAudit(ctx, eventType, true, nil, map[string]string{"lineage": sess.Lineage.String()})
	return nil
}
