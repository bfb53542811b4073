package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a Store backed by a Redis hash. Kiosk fleets use it so a donor
// recognized at one terminal stays recognized at the next; the instance key
// should then be derived from the fleet identity, not the process.
type Redis struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*Redis)(nil)

// NewRedis builds a Store persisting under the hash key
// "<prefix>:credentials". An empty prefix defaults to "donorauth".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "donorauth"
	}
	return &Redis{
		client: client,
		key:    prefix + ":credentials",
	}
}

func (r *Redis) Load(ctx context.Context) (Credentials, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Credentials{
		AuthToken:     fields[KeyAuthToken],
		DeviceSession: fields[KeyDeviceSession],
		UserJSON:      fields[KeyUser],
	}, nil
}

func (r *Redis) Save(ctx context.Context, creds Credentials) error {
	// Rewrite the whole hash in one round trip so readers never observe a
	// mixed-lineage record.
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key)
	fields := map[string]any{}
	if creds.AuthToken != "" {
		fields[KeyAuthToken] = creds.AuthToken
	}
	if creds.DeviceSession != "" {
		fields[KeyDeviceSession] = creds.DeviceSession
	}
	if creds.UserJSON != "" {
		fields[KeyUser] = creds.UserJSON
	}
	if len(fields) > 0 {
		pipe.HSet(ctx, r.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
