package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	snapshotPrefix     = "backoffice:snapshot"
	snapshotVersionKey = snapshotPrefix + ":version"
	// DefaultSnapshotTTL keeps a last-known-good collection for a day.
	DefaultSnapshotTTL = 24 * time.Hour
)

type snapshotEnvelope[T any] struct {
	SavedAt time.Time `json:"saved_at"`
	Items   []T       `json:"items"`
}

// SnapshotStore keeps the last collection each resource loaded successfully so
// a page can still render when the API is down. Keys carry a global version;
// Purge bumps it and every stored snapshot becomes unreachable.
type SnapshotStore[T any] struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	now    func() time.Time
}

// NewSnapshotStore instantiates a store. A nil client yields a store that
// never finds anything and discards saves.
func NewSnapshotStore[T any](client *redis.Client, ttl time.Duration) *SnapshotStore[T] {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &SnapshotStore[T]{client: client, ttl: ttl, now: time.Now}
}

func (s *SnapshotStore[T]) version(ctx context.Context) (int64, error) {
	ver, err := s.client.Get(ctx, snapshotVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX so concurrent first readers agree on the same version.
		if err := s.client.SetNX(ctx, snapshotVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return s.client.Get(ctx, snapshotVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return max(ver, 1), nil
}

func (s *SnapshotStore[T]) key(ctx context.Context, resource string) (string, error) {
	ver, err := s.version(ctx)
	if err != nil {
		return "", fmt.Errorf("platform/cache: snapshot version: %w", err)
	}
	return strings.Join([]string{snapshotPrefix, resource, strconv.FormatInt(ver, 10)}, ":"), nil
}

// LoadSnapshot returns the stored collection for resource. Concurrent reads of
// the same resource share one round trip.
func (s *SnapshotStore[T]) LoadSnapshot(ctx context.Context, resource string) ([]T, bool, error) {
	if s == nil || s.client == nil {
		return nil, false, nil
	}
	v, err, _ := s.group.Do(resource, func() (any, error) {
		key, err := s.key(ctx, resource)
		if err != nil {
			return nil, err
		}
		payload, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return (*snapshotEnvelope[T])(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("platform/cache: get %s: %w", key, err)
		}
		var env snapshotEnvelope[T]
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("platform/cache: decode %s: %w", key, err)
		}
		return &env, nil
	})
	if err != nil {
		return nil, false, err
	}
	env := v.(*snapshotEnvelope[T])
	if env == nil {
		return nil, false, nil
	}
	// Shared results are copied so callers cannot alias each other.
	return append([]T(nil), env.Items...), true, nil
}

// SaveSnapshot stores items as the last-known-good collection of resource.
func (s *SnapshotStore[T]) SaveSnapshot(ctx context.Context, resource string, items []T) error {
	if s == nil || s.client == nil {
		return nil
	}
	key, err := s.key(ctx, resource)
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(snapshotEnvelope[T]{SavedAt: s.now().UTC(), Items: items})
	if err != nil {
		return fmt.Errorf("platform/cache: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("platform/cache: set %s: %w", key, err)
	}
	return nil
}

// SavedAt reports when the snapshot of resource was written.
func (s *SnapshotStore[T]) SavedAt(ctx context.Context, resource string) (time.Time, bool, error) {
	if s == nil || s.client == nil {
		return time.Time{}, false, nil
	}
	key, err := s.key(ctx, resource)
	if err != nil {
		return time.Time{}, false, err
	}
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	var env struct {
		SavedAt time.Time `json:"saved_at"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return time.Time{}, false, err
	}
	return env.SavedAt, true, nil
}

// Purge invalidates every stored snapshot by bumping the key version.
func Purge(ctx context.Context, client *redis.Client) (int64, error) {
	if client == nil {
		return 0, nil
	}
	ver, err := client.Incr(ctx, snapshotVersionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("platform/cache: bump snapshot version: %w", err)
	}
	return ver, nil
}
