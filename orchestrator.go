package donorauth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Muhammad2308/donorauth/fingerprint"
	"github.com/Muhammad2308/donorauth/store"
	"github.com/google/uuid"
)

// Orchestrator owns the end-to-end auth flow and is the single source of
// truth for "is this visitor logged in". Construct one per client instance
// with [New], call [Orchestrator.Startup] once, then drive it from UI
// events. All methods are safe for concurrent use; duplicate submissions of
// the same operation are rejected with [ErrOperationInFlight] rather than
// raced.
type Orchestrator struct {
	cfg        Config
	gateway    SessionGateway
	verifier   VerificationTransport
	store      store.Store
	collector  *Collector
	audit      *auditDispatcher
	metrics    *Metrics
	guard      *inflightGuard
	cooldowns  *cooldownTable
	instanceID string

	mu       sync.Mutex
	state    State
	session  *Session
	user     *UserSnapshot
	vc       *VerificationContext
	listener func(StateChange)
}

// Deps are the collaborators an Orchestrator is wired with. Gateway and
// Verification are required (the gateway subpackage's Client satisfies
// both). Store defaults to an in-process store, Environment to host probes,
// AuditSink to a no-op.
type Deps struct {
	Gateway      SessionGateway
	Verification VerificationTransport
	Store        store.Store
	Environment  fingerprint.Environment
	AuditSink    AuditSink
}

// New validates cfg and wires an Orchestrator. It performs no I/O; the
// persisted credential is not consulted until Startup.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Gateway == nil {
		return nil, errors.New("donorauth: Deps.Gateway is required")
	}
	if deps.Verification == nil {
		return nil, errors.New("donorauth: Deps.Verification is required")
	}
	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	if deps.Environment == nil {
		deps.Environment = fingerprint.HostEnvironment{}
	}

	return &Orchestrator{
		cfg:        cfg,
		gateway:    deps.Gateway,
		verifier:   deps.Verification,
		store:      deps.Store,
		collector:  NewCollector(deps.Environment),
		audit:      newAuditDispatcher(cfg.Audit, deps.AuditSink),
		metrics:    NewMetrics(cfg.Metrics),
		guard:      newInflightGuard(),
		cooldowns:  newCooldownTable(cfg.Verification.ResendCooldown),
		instanceID: uuid.NewString(),
		state:      StateAnonymous,
	}, nil
}

// Close flushes the audit dispatcher. The Orchestrator must not be used
// afterwards.
func (o *Orchestrator) Close() {
	if o == nil {
		return
	}
	o.audit.Close()
}

// State returns the current machine position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Lineage reports which mechanism backs the active session, or LineageNone.
func (o *Orchestrator) Lineage() Lineage {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return LineageNone
	}
	return o.session.Lineage
}

// CurrentUser returns the cached snapshot while a session is active.
func (o *Orchestrator) CurrentUser() (UserSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.user == nil {
		return UserSnapshot{}, false
	}
	return *o.user, true
}

// CurrentSession returns the active session of either lineage.
func (o *Orchestrator) CurrentSession() (Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return Session{}, false
	}
	return *o.session, true
}

// CurrentTier derives the loyalty tier from the cached snapshot. Derived on
// every call, never stored.
func (o *Orchestrator) CurrentTier() (Tier, bool) {
	user, ok := o.CurrentUser()
	if !ok {
		return Tier{}, false
	}
	return TierOf(user.TotalDonations), true
}

// PendingVerification returns a copy of the active verification context.
func (o *Orchestrator) PendingVerification() (VerificationContext, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.vc == nil {
		return VerificationContext{}, false
	}
	return *o.vc, true
}

// OnStateChange registers the single listener invoked after every committed
// transition. The callback runs on the mutating goroutine; keep it cheap.
func (o *Orchestrator) OnStateChange(fn func(StateChange)) {
	o.mu.Lock()
	o.listener = fn
	o.mu.Unlock()
}

// InstanceID is a process-unique identifier for this Orchestrator, handy
// for correlating audit streams from a kiosk fleet. It is not a device
// identifier and never leaves the client unless a shell sends it.
func (o *Orchestrator) InstanceID() string {
	return o.instanceID
}

// AuditDropped reports events discarded by a full audit buffer.
func (o *Orchestrator) AuditDropped() uint64 {
	return o.audit.Dropped()
}

// MetricsSnapshot copies the counter registry.
func (o *Orchestrator) MetricsSnapshot() MetricsSnapshot {
	return o.metrics.Snapshot()
}

// transition commits a state change under the lock and returns the change
// to deliver. Callers invoke notify after releasing the lock.
func (o *Orchestrator) transitionLocked(to State) StateChange {
	change := StateChange{From: o.state, To: to}
	o.state = to
	if o.session != nil {
		change.Lineage = o.session.Lineage
	}
	return change
}

func (o *Orchestrator) notify(change StateChange) {
	o.mu.Lock()
	listener := o.listener
	o.mu.Unlock()
	if listener != nil && change.From != change.To {
		listener(change)
	}
}

// setState is the simple path for transitions that mutate nothing else.
func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	change := o.transitionLocked(to)
	o.mu.Unlock()
	o.notify(change)
}

// commitSession installs a session and snapshot, persists them, and moves
// to Authenticated. The persisted record always holds exactly one lineage.
func (o *Orchestrator) commitSession(ctx context.Context, sess Session, user UserSnapshot) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}
	creds := store.Credentials{UserJSON: string(userJSON)}
	switch sess.Lineage {
	case LineageClassic:
		creds.AuthToken = sess.Token
	case LineageDevice:
		creds.DeviceSession = sess.Token
	}
	if err := o.store.Save(ctx, creds); err != nil {
		return err
	}

	o.mu.Lock()
	o.session = &sess
	o.user = &user
	o.vc = nil
	change := o.transitionLocked(StateAuthenticated)
	o.mu.Unlock()
	o.notify(change)
	return nil
}

// discardCredentials clears every trace of a session, local and persisted,
// without committing a state transition. Storage failures are swallowed; an
// unreachable store must not keep an invalidated session alive in memory.
func (o *Orchestrator) discardCredentials(ctx context.Context) {
	_ = o.store.Clear(ctx)

	o.mu.Lock()
	o.session = nil
	o.user = nil
	o.vc = nil
	o.mu.Unlock()
}

// resetToAnonymous is discardCredentials plus the transition to Anonymous.
func (o *Orchestrator) resetToAnonymous(ctx context.Context) {
	o.discardCredentials(ctx)
	o.setState(StateAnonymous)
}

// updateSnapshot re-caches a backend-confirmed snapshot without touching
// the session or state.
func (o *Orchestrator) updateSnapshot(ctx context.Context, user UserSnapshot) {
	o.mu.Lock()
	o.user = &user
	sess := o.session
	o.mu.Unlock()
	if sess == nil {
		return
	}
	_ = o.commitCredsOnly(ctx, *sess, user)
}

func (o *Orchestrator) commitCredsOnly(ctx context.Context, sess Session, user UserSnapshot) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}
	creds := store.Credentials{UserJSON: string(userJSON)}
	switch sess.Lineage {
	case LineageClassic:
		creds.AuthToken = sess.Token
	case LineageDevice:
		creds.DeviceSession = sess.Token
	}
	return o.store.Save(ctx, creds)
}

func (o *Orchestrator) emitAudit(ctx context.Context, eventType string, success bool, failure error, meta map[string]string) {
	if o.audit == nil {
		return
	}
	event := AuditEvent{
		EventType: eventType,
		State:     o.State().String(),
		Lineage:   o.Lineage().String(),
		Success:   success,
		Metadata:  meta,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	o.audit.Emit(ctx, event)
}

// beginOp claims the single-flight slot for op, recording rejections.
func (o *Orchestrator) beginOp(ctx context.Context, op string) error {
	if o.guard.begin(op) {
		return nil
	}
	o.metrics.Inc(MetricInFlightRejected)
	o.emitAudit(ctx, auditEventInFlightRejected, false, ErrOperationInFlight, map[string]string{"op": op})
	return ErrOperationInFlight
}
