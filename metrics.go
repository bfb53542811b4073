package donorauth

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics registry.
type MetricID uint16

const (
	// MetricStartupClassicValid counts startups resolved via a valid classic token.
	MetricStartupClassicValid MetricID = iota
	// MetricStartupClassicInvalid counts startups where the classic token failed validation.
	MetricStartupClassicInvalid
	// MetricStartupDeviceValid counts startups resolved via a live device session.
	MetricStartupDeviceValid
	// MetricStartupDeviceInvalid counts startups where the device check failed.
	MetricStartupDeviceInvalid
	// MetricStartupAnonymous counts startups with no persisted credential.
	MetricStartupAnonymous
	// MetricVerificationSend counts dispatched one-time codes.
	MetricVerificationSend
	// MetricVerificationSendFailure counts failed code dispatches.
	MetricVerificationSendFailure
	// MetricVerificationResendBlocked counts resends rejected by the cooldown.
	MetricVerificationResendBlocked
	// MetricVerificationChannelSwitch counts SMS/email channel switches.
	MetricVerificationChannelSwitch
	// MetricVerificationConfirm counts backend-confirmed codes.
	MetricVerificationConfirm
	// MetricVerificationConfirmFailure counts rejected or malformed codes.
	MetricVerificationConfirmFailure
	// MetricDeviceSessionCreated counts minted device sessions.
	MetricDeviceSessionCreated
	// MetricDeviceSessionCreateFailure counts failed session mints after a confirmed code.
	MetricDeviceSessionCreateFailure
	// MetricLoginSuccess counts successful logins of any kind.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricGoogleRegisterFallback counts 409-triggered register-to-login fallbacks.
	MetricGoogleRegisterFallback
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricSessionExpired counts implicit logouts from backend invalidation.
	MetricSessionExpired
	// MetricInFlightRejected counts duplicate submissions stopped by the guard.
	MetricInFlightRejected

	metricIDCount
)

var metricNames = [metricIDCount]string{
	MetricStartupClassicValid:        "startup_classic_valid",
	MetricStartupClassicInvalid:      "startup_classic_invalid",
	MetricStartupDeviceValid:         "startup_device_valid",
	MetricStartupDeviceInvalid:       "startup_device_invalid",
	MetricStartupAnonymous:           "startup_anonymous",
	MetricVerificationSend:           "verification_send",
	MetricVerificationSendFailure:    "verification_send_failure",
	MetricVerificationResendBlocked:  "verification_resend_blocked",
	MetricVerificationChannelSwitch:  "verification_channel_switch",
	MetricVerificationConfirm:        "verification_confirm",
	MetricVerificationConfirmFailure: "verification_confirm_failure",
	MetricDeviceSessionCreated:       "device_session_created",
	MetricDeviceSessionCreateFailure: "device_session_create_failure",
	MetricLoginSuccess:               "login_success",
	MetricLoginFailure:               "login_failure",
	MetricGoogleRegisterFallback:     "google_register_fallback",
	MetricLogout:                     "logout",
	MetricSessionExpired:             "session_expired",
	MetricInFlightRejected:           "in_flight_rejected",
}

func (id MetricID) String() string {
	if id >= metricIDCount {
		return "unknown"
	}
	return metricNames[id]
}

// Metrics is a fixed-size atomic counter registry. The zero-value-disabled
// pattern lets flow code increment unconditionally.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies every counter. Safe to call concurrently with Inc; the
// result is not a consistent cut across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, metricIDCount),
	}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
