package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game"
	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

// SettlementFailure registra uma aposta que não pôde ser liquidada.
// Falhas não abortam a liquidação das demais apostas da rodada.
type SettlementFailure struct {
	BetID string
	Err   error
}

type settlement struct {
	winners     []events.Winner
	balances    []*game.Account // contas tocadas, para broadcast de saldo
	totalPayout int64
	failures    []SettlementFailure
}

// settleRound liquida todas as apostas pendentes da rodada contra o
// resultado: payout = valor * ocorrências do símbolo, won sse ocorrências > 0.
// Conjunto vazio é um no-op válido.
func (e *Engine) settleRound(ctx context.Context, round *game.Round, out game.Outcome) settlement {
	var res settlement

	bets, err := e.Ledger.PendingBetsFor(ctx, round.ID)
	if err != nil {
		res.failures = append(res.failures, SettlementFailure{Err: err})
		e.Log.Error("read pending bets for settlement", zap.String("roundId", round.ID), zap.Error(err))
		return res
	}

	counts := out.Counts()
	for _, b := range bets {
		occ := 0
		if b.Symbol.Valid() {
			occ = counts[b.Symbol]
		}
		payout := b.Amount * int64(occ)
		status := game.BetLost
		if occ > 0 {
			status = game.BetWon
		}

		if err := e.Ledger.SettleBet(ctx, b.ID, status, payout); err != nil {
			res.failures = append(res.failures, SettlementFailure{BetID: b.ID, Err: err})
			continue
		}
		acc, err := e.Ledger.CreditForPayout(ctx, b.AccountID, payout, status == game.BetWon)
		if err != nil {
			res.failures = append(res.failures, SettlementFailure{BetID: b.ID, Err: err})
			continue
		}
		res.balances = append(res.balances, acc)
		if status == game.BetWon {
			res.totalPayout += payout
			res.winners = append(res.winners, events.Winner{
				AccountID: acc.ID,
				Username:  acc.Username,
				Symbol:    b.Symbol.String(),
				BetAmount: b.Amount,
				Payout:    payout,
			})
		}
	}

	for _, f := range res.failures {
		e.Log.Error("bet settlement failed", zap.String("betId", f.BetID), zap.Error(f.Err))
	}
	return res
}

// countsMap converte as contagens do resultado para o formato externo,
// incluindo os símbolos com zero ocorrências.
func countsMap(out game.Outcome) map[string]int {
	counts := out.Counts()
	m := make(map[string]int, game.NumSymbols)
	for _, s := range game.AllSymbols() {
		m[s.String()] = counts[s]
	}
	return m
}
