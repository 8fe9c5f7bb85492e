package store

import (
	"context"

	"github.com/radieske/dice-arena-poc/internal/game"
)

// AccountStore persiste contas. Implementações devolvem game.ErrNotFound
// (possivelmente embrulhado) para conta inexistente.
type AccountStore interface {
	Get(ctx context.Context, id string) (*game.Account, error)
	GetByUsername(ctx context.Context, username string) (*game.Account, error)
	Create(ctx context.Context, acc *game.Account) error
	Update(ctx context.Context, acc *game.Account) error
	// List retorna todas as contas ordenadas por saldo decrescente.
	List(ctx context.Context) ([]*game.Account, error)
}

// BetStore persiste apostas.
type BetStore interface {
	Create(ctx context.Context, b *game.Bet) error
	Get(ctx context.Context, id string) (*game.Bet, error)
	// FindByRound filtra por rodada; status vazio retorna todas.
	FindByRound(ctx context.Context, roundID string, status game.BetStatus) ([]*game.Bet, error)
	Update(ctx context.Context, b *game.Bet) error
}

// RoundStore persiste rodadas.
type RoundStore interface {
	// Create abre uma rodada nova em waiting.
	Create(ctx context.Context) (*game.Round, error)
	Update(ctx context.Context, r *game.Round) error
	// FindLatestArchived retorna a rodada arquivada mais recente com resultado
	// não vazio, ou game.ErrNotFound.
	FindLatestArchived(ctx context.Context) (*game.Round, error)
	// FindRecentArchived retorna as N rodadas arquivadas mais recentes,
	// da mais nova para a mais velha.
	FindRecentArchived(ctx context.Context, limit int) ([]*game.Round, error)
	// ArchiveStale fecha rodadas deixadas abertas por um processo anterior
	// (status != results ou sem ended_at). Usado no boot do engine.
	ArchiveStale(ctx context.Context) error
}
