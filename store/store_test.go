package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestBolt(t *testing.T) *Bolt {
	t.Helper()
	b, err := OpenBolt(filepath.Join(t.TempDir(), "donorauth.db"))
	if err != nil {
		t.Fatalf("opening bolt store: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test")
}

// Every backend must satisfy the same load/save/clear contract; the
// Orchestrator does not know which one it was handed.
func runStoreContract(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	creds, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("initial load: %v", err)
	}
	if !creds.Empty() {
		t.Fatalf("fresh store not empty: %+v", creds)
	}

	want := Credentials{
		DeviceSession: "device-token-1",
		UserJSON:      `{"id":"9","name":"Sani"}`,
	}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("load after save: %v", err)
	}
	if got != want {
		t.Fatalf("roundtrip = %+v, want %+v", got, want)
	}

	// Saving the other lineage must not leave the old one behind.
	want = Credentials{AuthToken: "classic-token-1"}
	if err := st.Save(ctx, want); err != nil {
		t.Fatalf("overwrite save: %v", err)
	}
	got, err = st.Load(ctx)
	if err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
	if got.DeviceSession != "" || got.UserJSON != "" {
		t.Fatalf("previous lineage leaked through: %+v", got)
	}
	if got.AuthToken != "classic-token-1" {
		t.Fatalf("auth token = %q", got.AuthToken)
	}

	if err := st.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err = st.Load(ctx)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if !got.Empty() {
		t.Fatalf("store not empty after clear: %+v", got)
	}
}

func TestMemoryContract(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestBoltContract(t *testing.T) {
	runStoreContract(t, newTestBolt(t))
}

func TestRedisContract(t *testing.T) {
	runStoreContract(t, newTestRedis(t))
}

func TestBoltSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "donorauth.db")

	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	want := Credentials{AuthToken: "classic-token-1", UserJSON: `{"id":"7"}`}
	if err := b.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b.Close()
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if got != want {
		t.Fatalf("persisted credentials = %+v, want %+v", got, want)
	}
}

func TestRedisSaveIsSingleKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	st := NewRedis(client, "fleet")
	ctx := context.Background()

	if err := st.Save(ctx, Credentials{DeviceSession: "device-token-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mr.HGet("fleet:credentials", KeyDeviceSession); got != "device-token-1" {
		t.Fatalf("hash field = %q", got)
	}
	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != "fleet:credentials" {
		t.Fatalf("keys = %v, want exactly fleet:credentials", keys)
	}
}

func TestCredentialsEmpty(t *testing.T) {
	if !(Credentials{}).Empty() {
		t.Fatal("zero value must be empty")
	}
	if (Credentials{AuthToken: "x"}).Empty() {
		t.Fatal("auth token alone is not empty")
	}
	if (Credentials{DeviceSession: "y"}).Empty() {
		t.Fatal("device session alone is not empty")
	}
}
