package reset

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/redis/go-redis/v9"
)

var ErrMarkerNotFound = errors.New("reset marker not found")

// MarkerStore remembers the ID of the active marker per email.
type MarkerStore interface {
	Put(ctx context.Context, email, id string, ttl time.Duration) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error

	// Take deletes the entry for email only if it still holds id, and
	// reports whether it did. Of several concurrent calls at most one wins.
	Take(ctx context.Context, email, id string) (bool, error)
}

// MemoryMarkerStore keeps markers in process. It is enough for a single
// instance; use RedisMarkerStore when running several.
type MemoryMarkerStore struct {
	mu sync.Mutex
	c  *ttlcache.Cache
}

func NewMemoryMarkerStore() *MemoryMarkerStore {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)

	return &MemoryMarkerStore{c: c}
}

func (s *MemoryMarkerStore) Put(_ context.Context, email, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.c.SetWithTTL(email, id, ttl)
}

func (s *MemoryMarkerStore) Get(_ context.Context, email string) (string, error) {
	v, err := s.c.Get(email)
	if err != nil {
		if errors.Is(err, ttlcache.ErrNotFound) {
			return "", ErrMarkerNotFound
		}

		return "", err
	}

	id, ok := v.(string)
	if !ok {
		return "", ErrMarkerNotFound
	}

	return id, nil
}

func (s *MemoryMarkerStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(email)
}

func (s *MemoryMarkerStore) remove(email string) error {
	err := s.c.Remove(email)
	if err != nil && !errors.Is(err, ttlcache.ErrNotFound) {
		return err
	}

	return nil
}

func (s *MemoryMarkerStore) Take(ctx context.Context, email, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	got, err := s.Get(ctx, email)
	if errors.Is(err, ErrMarkerNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if got != id {
		return false, nil
	}

	if err := s.remove(email); err != nil {
		return false, err
	}

	return true, nil
}

func (s *MemoryMarkerStore) Close() error {
	return s.c.Close()
}

const redisMarkerPrefix = "reset_marker:"

// Compare and delete in one round trip so two takers can't both win
var takeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisMarkerStore struct {
	rdb *redis.Client
}

func NewRedisMarkerStore(rdb *redis.Client) *RedisMarkerStore {
	return &RedisMarkerStore{rdb: rdb}
}

func (s *RedisMarkerStore) Put(ctx context.Context, email, id string, ttl time.Duration) error {
	return s.rdb.Set(ctx, redisMarkerPrefix+email, id, ttl).Err()
}

func (s *RedisMarkerStore) Get(ctx context.Context, email string) (string, error) {
	id, err := s.rdb.Get(ctx, redisMarkerPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrMarkerNotFound
		}

		return "", err
	}

	return id, nil
}

func (s *RedisMarkerStore) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, redisMarkerPrefix+email).Err()
}

func (s *RedisMarkerStore) Take(ctx context.Context, email, id string) (bool, error) {
	n, err := takeScript.Run(ctx, s.rdb, []string{redisMarkerPrefix + email}, id).Int()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
