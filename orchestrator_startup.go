package donorauth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Muhammad2308/donorauth/store"
	"github.com/golang-jwt/jwt/v5"
)

// Startup resolves the persisted credential into an initial state. It never
// returns a network error: validation failures and unreachable backends
// both degrade to Anonymous so the UI is never blocked behind auth.
//
// Lineage precedence is fixed: a persisted classic token is consulted first
// and, when present, the device lineage is never checked.
func (o *Orchestrator) Startup(ctx context.Context) (State, error) {
	if err := o.beginOp(ctx, opStartup); err != nil {
		return o.State(), err
	}
	defer o.guard.end(opStartup)

	o.setState(StateChecking)

	creds, err := o.store.Load(ctx)
	if err != nil {
		o.metrics.Inc(MetricStartupAnonymous)
		o.emitAudit(ctx, auditEventStartup, false, err, map[string]string{"reason": "store_unavailable"})
		o.setState(StateAnonymous)
		return StateAnonymous, nil
	}

	switch {
	case creds.AuthToken != "":
		return o.startupClassic(ctx, creds), nil
	case creds.DeviceSession != "":
		return o.startupDevice(ctx, creds), nil
	default:
		o.metrics.Inc(MetricStartupAnonymous)
		o.emitAudit(ctx, auditEventStartup, true, nil, map[string]string{"resolution": "anonymous"})
		o.setState(StateAnonymous)
		return StateAnonymous, nil
	}
}

func (o *Orchestrator) startupClassic(ctx context.Context, creds store.Credentials) State {
	if !o.cfg.Startup.SkipLocalExpiryCheck && tokenExpiredLocally(creds.AuthToken, o.cfg.Startup.LocalExpirySkew) {
		o.metrics.Inc(MetricStartupClassicInvalid)
		o.emitAudit(ctx, auditEventStartup, false, ErrSessionExpired, map[string]string{
			"lineage": "classic",
			"reason":  "token_expired_locally",
		})
		o.resetToAnonymous(ctx)
		return StateAnonymous
	}

	user, err := o.gateway.ValidateToken(ctx, creds.AuthToken)
	if err != nil {
		// A failed validation at startup is treated as expiry, whatever
		// the failure was. Nothing is surfaced to the caller.
		o.metrics.Inc(MetricStartupClassicInvalid)
		o.emitAudit(ctx, auditEventStartup, false, err, map[string]string{"lineage": "classic"})
		o.resetToAnonymous(ctx)
		return StateAnonymous
	}

	sess := Session{Token: creds.AuthToken, Lineage: LineageClassic, IssuedAt: time.Now()}
	if err := o.commitSession(ctx, sess, user); err != nil {
		o.metrics.Inc(MetricStartupClassicInvalid)
		o.emitAudit(ctx, auditEventStartup, false, err, map[string]string{"lineage": "classic"})
		o.resetToAnonymous(ctx)
		return StateAnonymous
	}

	o.metrics.Inc(MetricStartupClassicValid)
	o.emitAudit(ctx, auditEventStartup, true, nil, map[string]string{"lineage": "classic"})
	return StateAuthenticated
}

func (o *Orchestrator) startupDevice(ctx context.Context, creds store.Credentials) State {
	info := o.collector.Collect()

	check, err := o.gateway.CheckDeviceSession(ctx, creds.DeviceSession, info)
	if err != nil {
		o.metrics.Inc(MetricStartupDeviceInvalid)
		o.emitAudit(ctx, auditEventStartup, false, err, map[string]string{"lineage": "device"})
		o.resetToAnonymous(ctx)
		return StateAnonymous
	}

	if check.Session != nil {
		o.setState(StateDeviceRecognizedWithSession)

		user := cachedOrFreshSnapshot(creds, check.User)
		if err := o.commitSession(ctx, *check.Session, user); err != nil {
			o.metrics.Inc(MetricStartupDeviceInvalid)
			o.emitAudit(ctx, auditEventStartup, false, err, map[string]string{"lineage": "device"})
			o.resetToAnonymous(ctx)
			return StateAnonymous
		}

		o.metrics.Inc(MetricStartupDeviceValid)
		o.emitAudit(ctx, auditEventStartup, true, nil, map[string]string{"lineage": "device"})
		return StateAuthenticated
	}

	// The stored token is dead either way; drop it so the next launch does
	// not re-check a credential the backend already refused.
	o.metrics.Inc(MetricStartupDeviceInvalid)
	o.discardCredentials(ctx)

	if check.Recognized {
		o.setState(StateDeviceRecognizedNoSession)
		o.emitAudit(ctx, auditEventStartup, true, nil, map[string]string{
			"lineage":    "device",
			"resolution": "recognized_no_session",
		})
		return StateDeviceRecognizedNoSession
	}

	o.setState(StateAnonymous)
	o.emitAudit(ctx, auditEventStartup, false, nil, map[string]string{"lineage": "device"})
	return StateAnonymous
}

// cachedOrFreshSnapshot prefers the snapshot the backend just returned and
// falls back to the cached copy persisted next to the device session.
func cachedOrFreshSnapshot(creds store.Credentials, fresh *UserSnapshot) UserSnapshot {
	if fresh != nil {
		return *fresh
	}
	var cached UserSnapshot
	if creds.UserJSON != "" {
		_ = json.Unmarshal([]byte(creds.UserJSON), &cached)
	}
	return cached
}

// tokenExpiredLocally short-circuits the startup round trip for a classic
// JWT whose exp claim is past by more than skew. The signature is not
// checked here; only the backend verifies tokens. Opaque or malformed
// tokens fall through to the backend untouched.
func tokenExpiredLocally(token string, skew time.Duration) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Since(exp.Time) > skew
}
