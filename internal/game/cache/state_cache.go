package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

// StateCache guarda a fase corrente da rodada no Redis, para leitura barata
// por gateways sem bater no engine.
type StateCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStateCache(c *redis.Client, ttl time.Duration) *StateCache {
	return &StateCache{Client: c, TTL: ttl}
}

const stateKey = "game:state:current"

// SetCurrent armazena a fase corrente com TTL definido
func (s *StateCache) SetCurrent(ctx context.Context, ev events.RoundState) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, stateKey, b, s.TTL).Err()
}

// GetCurrent lê a fase corrente; redis.Nil quando expirado ou ausente
func (s *StateCache) GetCurrent(ctx context.Context) (*events.RoundState, error) {
	b, err := s.Client.Get(ctx, stateKey).Bytes()
	if err != nil {
		return nil, err
	}
	var ev events.RoundState
	if err := json.Unmarshal(b, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
