// Package store holds the durable credential state of the donor client:
// three string keys whose presence or absence is the entire persisted auth
// state. Clearing all three is equivalent to logout.
//
// Implementations cover the deployment spectrum: [Memory] for tests and
// ephemeral shells, [Bolt] for the single-device file store, [Redis] for
// kiosk fleets that share credential state across processes.
//
// Only the auth orchestrator writes to a store. Everything else reads
// through the orchestrator.
package store

import (
	"context"
	"errors"
)

// Storage keys. Kept identical to the original client's persistent storage
// layout so a migrating deployment can import existing state.
const (
	KeyAuthToken     = "auth_token"
	KeyDeviceSession = "device_session"
	KeyUser          = "user"
)

// ErrUnavailable means the backing storage could not be reached or opened.
var ErrUnavailable = errors.New("credential store unavailable")

// Credentials is the full persisted record. AuthToken is the classic bearer
// token, DeviceSession the device-session token, UserJSON the serialized
// user snapshot cached alongside whichever session is active.
type Credentials struct {
	AuthToken     string
	DeviceSession string
	UserJSON      string
}

// Empty reports whether no credential of either lineage is persisted.
func (c Credentials) Empty() bool {
	return c.AuthToken == "" && c.DeviceSession == ""
}

// Store is the persistence boundary. Load returns zero Credentials (not an
// error) when nothing is persisted. Save replaces the whole record; Clear
// removes all three keys and is idempotent.
type Store interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}
