package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/dice-arena-poc/internal/game"
)

// Implementações em memória, usadas quando o POC roda sem Postgres
// (POSTGRES_DSN vazio) e nos testes. Todas guardam cópias, nunca os
// ponteiros do chamador, para não vazar mutação fora do store.

type MemoryAccounts struct {
	mu   sync.RWMutex
	byID map[string]game.Account
}

func NewMemoryAccounts() *MemoryAccounts {
	return &MemoryAccounts{byID: make(map[string]game.Account)}
}

func (m *MemoryAccounts) Get(_ context.Context, id string) (*game.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", game.ErrNotFound, id)
	}
	out := acc
	return &out, nil
}

func (m *MemoryAccounts) GetByUsername(_ context.Context, username string) (*game.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, acc := range m.byID {
		if acc.Username == username {
			out := acc
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: account %q", game.ErrNotFound, username)
}

func (m *MemoryAccounts) Create(_ context.Context, acc *game.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[acc.ID] = *acc
	return nil
}

func (m *MemoryAccounts) Update(_ context.Context, acc *game.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[acc.ID]; !ok {
		return fmt.Errorf("%w: account %s", game.ErrNotFound, acc.ID)
	}
	m.byID[acc.ID] = *acc
	return nil
}

func (m *MemoryAccounts) List(_ context.Context) ([]*game.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Account, 0, len(m.byID))
	for _, acc := range m.byID {
		c := acc
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

type MemoryBets struct {
	mu    sync.RWMutex
	byID  map[string]game.Bet
	order []string // ordem de inserção
}

func NewMemoryBets() *MemoryBets {
	return &MemoryBets{byID: make(map[string]game.Bet)}
}

func (m *MemoryBets) Create(_ context.Context, b *game.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[b.ID] = *b
	m.order = append(m.order, b.ID)
	return nil
}

func (m *MemoryBets) Get(_ context.Context, id string) (*game.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: bet %s", game.ErrNotFound, id)
	}
	out := b
	return &out, nil
}

func (m *MemoryBets) FindByRound(_ context.Context, roundID string, status game.BetStatus) ([]*game.Bet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*game.Bet
	for _, id := range m.order {
		b := m.byID[id]
		if b.RoundID != roundID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		c := b
		out = append(out, &c)
	}
	return out, nil
}

func (m *MemoryBets) Update(_ context.Context, b *game.Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[b.ID]; !ok {
		return fmt.Errorf("%w: bet %s", game.ErrNotFound, b.ID)
	}
	m.byID[b.ID] = *b
	return nil
}

type MemoryRounds struct {
	mu   sync.RWMutex
	byID map[string]game.Round
	seq  []string // ordem de criação
}

func NewMemoryRounds() *MemoryRounds {
	return &MemoryRounds{byID: make(map[string]game.Round)}
}

func (m *MemoryRounds) Create(_ context.Context) (*game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := game.Round{
		ID:     uuid.NewString(),
		Status: game.RoundWaiting,
	}
	m.byID[r.ID] = r
	m.seq = append(m.seq, r.ID)
	out := r
	return &out, nil
}

func (m *MemoryRounds) Update(_ context.Context, r *game.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; !ok {
		return fmt.Errorf("%w: round %s", game.ErrNotFound, r.ID)
	}
	m.byID[r.ID] = *r
	return nil
}

func (m *MemoryRounds) FindLatestArchived(_ context.Context) (*game.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var best *game.Round
	for _, id := range m.seq {
		r := m.byID[id]
		if !r.Archived() || len(r.WinningSymbols) == 0 {
			continue
		}
		if best == nil || r.EndedAt.After(*best.EndedAt) {
			c := r
			best = &c
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no archived round", game.ErrNotFound)
	}
	return best, nil
}

func (m *MemoryRounds) FindRecentArchived(_ context.Context, limit int) ([]*game.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*game.Round
	for _, id := range m.seq {
		r := m.byID[id]
		if !r.Archived() {
			continue
		}
		c := r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndedAt.After(*out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRounds) ArchiveStale(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.byID {
		if r.Archived() {
			continue
		}
		r.Status = game.RoundResults
		if r.EndedAt == nil {
			now := time.Now()
			r.EndedAt = &now
		}
		m.byID[id] = r
	}
	return nil
}
