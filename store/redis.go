package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nathoo/netquest/engine"
	"github.com/nathoo/netquest/engine/save"
	"github.com/nathoo/netquest/types"
)

const playerKeyPrefix = "player:"

// RedisStore keeps player snapshots as JSON blobs under player:<id>.
type RedisStore struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
}

var (
	_ engine.Persister   = (*RedisStore)(nil)
	_ engine.StateLoader = (*RedisStore)(nil)
)

// NewRedisStore connects to the Redis server at url (redis://host:port/db)
// and checks the connection. A zero ttl keeps snapshots forever.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration, log *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &RedisStore{client: redis.NewClient(opts), log: log, ttl: ttl}
	if err := s.Ping(ctx); err != nil {
		_ = s.client.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Persist writes the snapshot of one player.
func (s *RedisStore) Persist(ctx context.Context, st *types.PlayerState) error {
	if st == nil || st.PlayerID == "" {
		return fmt.Errorf("persist: player id is required")
	}
	data, err := save.Encode(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, playerKeyPrefix+st.PlayerID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot %s: %w", st.PlayerID, err)
	}
	return nil
}

// LoadState returns the last snapshot of a player, or (nil, nil) if there
// is none.
func (s *RedisStore) LoadState(ctx context.Context, playerID string) (*types.PlayerState, error) {
	data, err := s.client.Get(ctx, playerKeyPrefix+playerID).Bytes()
	if errors.Is(err, redis.Nil) {
		s.log.Debug("no snapshot", "player", playerID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", playerID, err)
	}
	st, err := save.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", playerID, err)
	}
	st.PlayerID = playerID
	return st, nil
}

// Delete removes a player's snapshot.
func (s *RedisStore) Delete(ctx context.Context, playerID string) error {
	if err := s.client.Del(ctx, playerKeyPrefix+playerID).Err(); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", playerID, err)
	}
	return nil
}
