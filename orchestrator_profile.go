package donorauth

import (
	"context"
	"errors"
)

// RefreshUser re-fetches the account snapshot for the active session and
// re-caches it. A backend 401 is handled as an implicit logout and comes
// back as ErrSessionExpired.
func (o *Orchestrator) RefreshUser(ctx context.Context) (UserSnapshot, error) {
	if err := o.beginOp(ctx, opRefreshUser); err != nil {
		return UserSnapshot{}, err
	}
	defer o.guard.end(opRefreshUser)

	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()
	if sess == nil {
		return UserSnapshot{}, ErrNotAuthenticated
	}

	switch sess.Lineage {
	case LineageClassic:
		user, err := o.gateway.ValidateToken(ctx, sess.Token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				return UserSnapshot{}, o.handleUnauthenticated(ctx, err)
			}
			return UserSnapshot{}, err
		}
		o.updateSnapshot(ctx, user)
		return user, nil

	case LineageDevice:
		info := o.collector.Collect()
		check, err := o.gateway.CheckDeviceSession(ctx, sess.Token, info)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				return UserSnapshot{}, o.handleUnauthenticated(ctx, err)
			}
			return UserSnapshot{}, err
		}
		if check.Session == nil || check.User == nil {
			return UserSnapshot{}, o.handleUnauthenticated(ctx, ErrUnauthenticated)
		}
		o.updateSnapshot(ctx, *check.User)
		return *check.User, nil
	}

	return UserSnapshot{}, ErrNotAuthenticated
}

// UpdateUsername changes the account username. Classic lineage only; a
// device session has no username to change.
func (o *Orchestrator) UpdateUsername(ctx context.Context, username string) (UserSnapshot, error) {
	if username == "" {
		return UserSnapshot{}, ErrInvalidInput
	}
	return o.profileUpdate(ctx, "username", func(token, donorID string) (UserSnapshot, error) {
		return o.gateway.UpdateUsername(ctx, token, donorID, username)
	})
}

// UpdatePassword changes the account password after the backend re-checks
// the old one.
func (o *Orchestrator) UpdatePassword(ctx context.Context, oldPassword, newPassword string) (UserSnapshot, error) {
	if oldPassword == "" || newPassword == "" {
		return UserSnapshot{}, ErrInvalidInput
	}
	return o.profileUpdate(ctx, "password", func(token, donorID string) (UserSnapshot, error) {
		return o.gateway.UpdatePassword(ctx, token, donorID, oldPassword, newPassword)
	})
}

func (o *Orchestrator) profileUpdate(ctx context.Context, field string, call func(token, donorID string) (UserSnapshot, error)) (UserSnapshot, error) {
	if err := o.beginOp(ctx, opProfile); err != nil {
		return UserSnapshot{}, err
	}
	defer o.guard.end(opProfile)

	o.mu.Lock()
	sess := o.session
	user := o.user
	o.mu.Unlock()
	if sess == nil || user == nil {
		return UserSnapshot{}, ErrNotAuthenticated
	}
	if sess.Lineage != LineageClassic {
		return UserSnapshot{}, ErrWrongLineage
	}

	updated, err := call(sess.Token, user.ID)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return UserSnapshot{}, o.handleUnauthenticated(ctx, err)
		}
		o.emitAudit(ctx, auditEventProfileUpdate, false, err, map[string]string{"field": field})
		return UserSnapshot{}, err
	}

	o.updateSnapshot(ctx, updated)
	o.emitAudit(ctx, auditEventProfileUpdate, true, nil, map[string]string{"field": field})
	return updated, nil
}

// ForgotPassword starts the email reset flow. It involves no session and
// leaves the machine untouched.
func (o *Orchestrator) ForgotPassword(ctx context.Context, email string) error {
	if err := validateContact(ChannelEmail, email); err != nil {
		return err
	}
	if err := o.beginOp(ctx, opPasswordFlow); err != nil {
		return err
	}
	defer o.guard.end(opPasswordFlow)

	return o.gateway.ForgotPassword(ctx, email)
}

// CheckResetToken verifies a reset link token is still redeemable.
func (o *Orchestrator) CheckResetToken(ctx context.Context, resetToken string) error {
	if resetToken == "" {
		return ErrInvalidInput
	}
	if err := o.beginOp(ctx, opPasswordFlow); err != nil {
		return err
	}
	defer o.guard.end(opPasswordFlow)

	return o.gateway.CheckResetToken(ctx, resetToken)
}

// ResetPassword redeems a reset token. The user still logs in afterwards;
// no session is minted here.
func (o *Orchestrator) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if err := o.beginOp(ctx, opPasswordFlow); err != nil {
		return err
	}
	defer o.guard.end(opPasswordFlow)

	return o.gateway.SubmitPasswordReset(ctx, resetToken, newPassword)
}
