package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/dice-arena-poc/internal/game"
	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

// Snapshot é uma visão consistente da rodada corrente e suas apostas.
type Snapshot struct {
	Round       game.Round
	Bets        []*game.Bet
	SecondsLeft int
}

// Snapshot retorna a rodada corrente com suas apostas. Toma o lock só pelo
// tempo da leitura, então nunca segura writers por mais que isso.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, fmt.Errorf("%w: no current round", game.ErrNotFound)
	}
	r := *e.current
	bets, err := e.Ledger.BetsFor(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	left := 0
	if r.Status == game.RoundBetting {
		left = int(math.Ceil(e.deadline.Sub(e.Clk.Now()).Seconds()))
		if left < 0 {
			left = 0
		}
	}
	return &Snapshot{Round: r, Bets: bets, SecondsLeft: left}, nil
}

// History retorna as N rodadas arquivadas mais recentes com agregados de
// apostas, vencedores e pagamento. Leitura pura sobre os stores.
func (e *Engine) History(ctx context.Context, limit int) ([]events.RoundSummary, error) {
	if limit <= 0 {
		limit = e.Cfg.HistoryLimit
	}
	rounds, err := e.Rounds.FindRecentArchived(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]events.RoundSummary, 0, len(rounds))
	for _, r := range rounds {
		bets, err := e.Ledger.BetsFor(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		sum := events.RoundSummary{
			RoundID:      r.ID,
			DiceResults:  []string{},
			SymbolCounts: map[string]int{},
			StartedAt:    r.StartedAt,
			EndedAt:      r.EndedAt,
			TotalBets:    len(bets),
		}
		if r.DiceResults != nil {
			dice := r.DiceResults.Strings()
			sum.DiceResults = dice[:]
			for _, name := range dice {
				sum.SymbolCounts[name]++
			}
		}
		for _, b := range bets {
			if b.Status == game.BetWon {
				sum.TotalWinners++
				sum.TotalPayout += b.Payout
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// Players retorna todas as contas ordenadas por saldo decrescente.
func (e *Engine) Players(ctx context.Context) ([]*game.Account, error) {
	return e.Accounts.List(ctx)
}

// RegisterPlayer cria (ou recupera) a conta do jogador. Com balance > 0 o
// saldo é sobrescrito; senão vale o saldo inicial configurado. Onboarding de
// verdade (sessão, auth) fica fora do engine.
func (e *Engine) RegisterPlayer(ctx context.Context, username string, balance int64) (*game.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", game.ErrValidation)
	}
	if len(username) > 20 {
		return nil, fmt.Errorf("%w: username must be 20 characters or less", game.ErrValidation)
	}

	acc, err := e.Accounts.GetByUsername(ctx, username)
	if errors.Is(err, game.ErrNotFound) {
		start := e.Cfg.StartingBalance
		if balance > 0 {
			start = balance
		}
		acc = &game.Account{
			ID:        uuid.NewString(),
			Username:  username,
			Balance:   start,
			Role:      game.RolePlayer,
			CreatedAt: time.Now(),
		}
		if err := e.Accounts.Create(ctx, acc); err != nil {
			return nil, err
		}
		return acc, nil
	}
	if err != nil {
		return nil, err
	}
	if balance > 0 {
		acc.Balance = balance
		if err := e.Accounts.Update(ctx, acc); err != nil {
			return nil, err
		}
	}
	return acc, nil
}
