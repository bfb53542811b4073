package donorauth

import "sync"

// Operation keys for the single-slot in-flight guard. One outstanding call
// per key; duplicates fail with ErrOperationInFlight instead of racing.
const (
	opStartup      = "startup"
	opSendCode     = "send_code"
	opConfirmCode  = "confirm_code"
	opLogin        = "login"
	opRegister     = "register"
	opGoogleAuth   = "google_auth"
	opDeviceLogin  = "device_login"
	opLogout       = "logout"
	opRefreshUser  = "refresh_user"
	opProfile      = "profile_update"
	opPasswordFlow = "password_flow"
)

type inflightGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{active: make(map[string]struct{})}
}

// begin claims the slot for op. It returns false when a previous call to the
// same op has not ended yet.
func (g *inflightGuard) begin(op string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[op]; busy {
		return false
	}
	g.active[op] = struct{}{}
	return true
}

func (g *inflightGuard) end(op string) {
	g.mu.Lock()
	delete(g.active, op)
	g.mu.Unlock()
}
