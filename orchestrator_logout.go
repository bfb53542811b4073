package donorauth

import "context"

// Logout ends the active session. The lineage-appropriate backend logout
// is attempted first, but its outcome does not gate the local effect:
// all persisted keys are cleared and the machine returns to Anonymous
// whatever the backend said. Calling Logout without a session is a no-op
// beyond re-asserting Anonymous.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if err := o.beginOp(ctx, opLogout); err != nil {
		return err
	}
	defer o.guard.end(opLogout)

	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()

	var backendErr error
	if sess != nil {
		switch sess.Lineage {
		case LineageClassic:
			backendErr = o.gateway.Logout(ctx, sess.Token)
		case LineageDevice:
			backendErr = o.gateway.DeviceLogout(ctx, sess.Token)
		}
	}

	o.resetToAnonymous(ctx)
	o.metrics.Inc(MetricLogout)
	o.emitAudit(ctx, auditEventLogout, backendErr == nil, backendErr, nil)
	return nil
}

// handleUnauthenticated is the implicit-logout path: the backend declared
// the session invalid outside an explicit logout. Local state is cleared
// silently and the caller gets the generic ErrSessionExpired, never the
// raw backend error.
func (o *Orchestrator) handleUnauthenticated(ctx context.Context, cause error) error {
	o.metrics.Inc(MetricSessionExpired)
	o.emitAudit(ctx, auditEventSessionExpired, false, cause, nil)
	o.resetToAnonymous(ctx)
	return ErrSessionExpired
}
