package donorauth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BeginRegistration collects donor data, dispatches a one-time code to
// contact over channel, and moves to VerificationPending. A previous
// pending context, if any, is overwritten: exactly one verification is
// active per Orchestrator.
//
// The contact is validated locally first; an invalid address fails with
// ErrInvalidContact before any network traffic. Dispatches to the same
// contact inside the resend cooldown fail with ErrResendCooldown.
func (o *Orchestrator) BeginRegistration(ctx context.Context, donor DonorData, channel Channel, contact string) error {
	if err := o.beginOp(ctx, opSendCode); err != nil {
		return err
	}
	defer o.guard.end(opSendCode)

	contact = normalizeContact(channel, contact)
	if err := validateContact(channel, contact); err != nil {
		return err
	}

	if err := o.dispatchCode(ctx, channel, contact); err != nil {
		return err
	}

	o.mu.Lock()
	o.vc = &VerificationContext{
		ID:       uuid.NewString(),
		Channel:  channel,
		Contact:  contact,
		IssuedAt: time.Now(),
		Donor:    donor,
	}
	change := o.transitionLocked(StateVerificationPending)
	o.mu.Unlock()
	o.notify(change)

	return nil
}

// ResendCode re-dispatches the code for the pending context on its current
// channel, subject to the cooldown. The context itself is kept; only its
// issue timestamp moves.
func (o *Orchestrator) ResendCode(ctx context.Context) error {
	if err := o.beginOp(ctx, opSendCode); err != nil {
		return err
	}
	defer o.guard.end(opSendCode)

	vc, ok := o.PendingVerification()
	if !ok {
		return ErrNoVerificationPending
	}

	if err := o.dispatchCode(ctx, vc.Channel, vc.Contact); err != nil {
		return err
	}

	o.mu.Lock()
	if o.vc != nil && o.vc.ID == vc.ID {
		o.vc.IssuedAt = time.Now()
	}
	o.mu.Unlock()
	return nil
}

// SwitchChannel abandons the pending context and starts verification over
// on the other channel. The discarded context is gone entirely: a code
// issued for the old channel can no longer be confirmed through this
// Orchestrator, and the backend will reject it as unknown.
func (o *Orchestrator) SwitchChannel(ctx context.Context, channel Channel, contact string) error {
	if err := o.beginOp(ctx, opSendCode); err != nil {
		return err
	}
	defer o.guard.end(opSendCode)

	o.mu.Lock()
	prev := o.vc
	o.mu.Unlock()
	if prev == nil {
		return ErrNoVerificationPending
	}

	contact = normalizeContact(channel, contact)
	if err := validateContact(channel, contact); err != nil {
		return err
	}

	if err := o.dispatchCode(ctx, channel, contact); err != nil {
		return err
	}

	o.mu.Lock()
	o.vc = &VerificationContext{
		ID:       uuid.NewString(),
		Channel:  channel,
		Contact:  contact,
		IssuedAt: time.Now(),
		Donor:    prev.Donor,
	}
	change := o.transitionLocked(StateVerificationPending)
	o.mu.Unlock()
	o.notify(change)

	o.metrics.Inc(MetricVerificationChannelSwitch)
	o.emitAudit(ctx, auditEventChannelSwitch, true, nil, map[string]string{
		"from":    prev.Channel.String(),
		"to":      channel.String(),
		"contact": redactContact(channel, contact),
	})
	return nil
}

// dispatchCode runs the cooldown gate and the transport send, with metrics
// and audit on both sides.
func (o *Orchestrator) dispatchCode(ctx context.Context, channel Channel, contact string) error {
	if !o.cooldowns.allow(contact) {
		o.metrics.Inc(MetricVerificationResendBlocked)
		o.emitAudit(ctx, auditEventVerificationSend, false, ErrResendCooldown, map[string]string{
			"channel": channel.String(),
			"contact": redactContact(channel, contact),
		})
		return ErrResendCooldown
	}

	if err := o.verifier.SendCode(ctx, channel, contact); err != nil {
		o.metrics.Inc(MetricVerificationSendFailure)
		o.emitAudit(ctx, auditEventVerificationSend, false, err, map[string]string{
			"channel": channel.String(),
			"contact": redactContact(channel, contact),
		})
		return err
	}

	o.metrics.Inc(MetricVerificationSend)
	o.emitAudit(ctx, auditEventVerificationSend, true, nil, map[string]string{
		"channel": channel.String(),
		"contact": redactContact(channel, contact),
	})
	return nil
}

// ConfirmVerification submits the user-entered code and, on backend
// confirmation, mints the device session.
//
// A rejected or malformed code leaves the machine in VerificationPending
// for a user-initiated retry. Once the code is confirmed, the pending
// context is cleared no matter how session creation ends: a failed
// CreateDeviceSession after a confirmed code is fatal to this registration
// attempt and the user must verify again from scratch. That matches the
// shipped client; see DESIGN.md before changing it.
func (o *Orchestrator) ConfirmVerification(ctx context.Context, code string) error {
	if err := o.beginOp(ctx, opConfirmCode); err != nil {
		return err
	}
	defer o.guard.end(opConfirmCode)

	vc, ok := o.PendingVerification()
	if !ok {
		return ErrNoVerificationPending
	}

	if err := validateCode(code, o.cfg.Verification.CodeDigits); err != nil {
		o.metrics.Inc(MetricVerificationConfirmFailure)
		return err
	}

	outcome, err := o.verifier.ConfirmCode(ctx, vc.Channel, vc.Contact, code)
	if err != nil {
		o.metrics.Inc(MetricVerificationConfirmFailure)
		o.emitAudit(ctx, auditEventVerificationDone, false, err, map[string]string{
			"channel": vc.Channel.String(),
		})
		return err
	}

	o.metrics.Inc(MetricVerificationConfirm)
	o.emitAudit(ctx, auditEventVerificationDone, true, nil, map[string]string{
		"channel": vc.Channel.String(),
	})

	info := o.collector.Collect()
	sess, user, createErr := o.gateway.CreateDeviceSession(ctx, vc.Donor, info, outcome)

	// Unconditional: the confirmed outcome is spent by the call above,
	// success or not. Clearing here is what makes CreateDeviceSession
	// at-most-once per confirmation even under duplicate submissions.
	o.clearPendingIfCurrent(vc.ID)

	if createErr != nil {
		o.metrics.Inc(MetricDeviceSessionCreateFailure)
		o.emitAudit(ctx, auditEventDeviceSessionMint, false, createErr, nil)
		o.setState(StateAnonymous)
		return createErr
	}

	if err := o.commitSession(ctx, sess, user); err != nil {
		o.metrics.Inc(MetricDeviceSessionCreateFailure)
		o.emitAudit(ctx, auditEventDeviceSessionMint, false, err, nil)
		o.resetToAnonymous(ctx)
		return err
	}

	o.metrics.Inc(MetricDeviceSessionCreated)
	o.emitAudit(ctx, auditEventDeviceSessionMint, true, nil, nil)
	return nil
}

// CancelVerification abandons the pending context and returns to
// Anonymous. No backend call is made; the undelivered code simply expires
// server-side.
func (o *Orchestrator) CancelVerification() {
	o.mu.Lock()
	if o.vc == nil {
		o.mu.Unlock()
		return
	}
	o.vc = nil
	change := o.transitionLocked(StateAnonymous)
	o.mu.Unlock()
	o.notify(change)
}

// clearPendingIfCurrent drops the pending context only when it is still
// the one this flow started with. A context replaced mid-flight by
// SwitchChannel stays untouched; the stale flow's response is ignored.
func (o *Orchestrator) clearPendingIfCurrent(id string) {
	o.mu.Lock()
	if o.vc != nil && o.vc.ID == id {
		o.vc = nil
	}
	o.mu.Unlock()
}
