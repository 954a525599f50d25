package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"momentum-signal-engine/config"
)

const stateKey = "momentum:optimizer:state"

// PersistedState is the flat JSON document written to Redis. One key, one
// document; the optimizer is the only writer.
type PersistedState struct {
	Thresholds   Thresholds          `json:"thresholds"`
	ClosedTrades []TradeRecord       `json:"closed_trades"`
	Reports      []PerformanceReport `json:"reports"`
	SavedAt      time.Time           `json:"saved_at"`
}

// StateStore persists optimizer state across restarts
type StateStore interface {
	Save(ctx context.Context, state *PersistedState) error
	Load(ctx context.Context) (*PersistedState, error)
}

// RedisStateStore persists state as a single JSON document in Redis
type RedisStateStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStateStore connects to Redis and verifies the connection. Returns
// nil without error when Redis is disabled in config.
func NewRedisStateStore(cfg config.RedisConfig, logger zerolog.Logger) (*RedisStateStore, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info().Str("address", cfg.Address).Msg("Connected to Redis for optimizer state")
	return &RedisStateStore{
		client: client,
		logger: logger.With().Str("component", "redis_state_store").Logger(),
	}, nil
}

func (s *RedisStateStore) Save(ctx context.Context, state *PersistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal optimizer state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey, data, 0).Err(); err != nil {
		return fmt.Errorf("write optimizer state: %w", err)
	}
	return nil
}

// Load returns nil state (no error) when no document exists yet
func (s *RedisStateStore) Load(ctx context.Context) (*PersistedState, error) {
	data, err := s.client.Get(ctx, stateKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read optimizer state: %w", err)
	}
	var state PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode optimizer state: %w", err)
	}
	return &state, nil
}

// Close releases the Redis connection
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
