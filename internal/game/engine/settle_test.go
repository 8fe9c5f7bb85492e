package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/dice-arena-poc/internal/game"
)

func TestSettleRoundPayoutPerOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)
	bob := env.register(t, "bob", 0)

	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	aliceBet, err := env.eng.PlaceBet(ctx, alice.ID, game.Reindeer, 50)
	require.NoError(t, err)
	bobBet, err := env.eng.PlaceBet(ctx, bob.ID, game.Fish, 50)
	require.NoError(t, err)

	round, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)

	// resultado fixado: reindeer sai em dois dados, fish em nenhum
	out := game.Outcome{game.Reindeer, game.Reindeer, game.Crab}
	res := env.eng.settleRound(ctx, &round.Round, out)

	assert.Empty(t, res.failures)
	require.Len(t, res.winners, 1)
	assert.Equal(t, alice.ID, res.winners[0].AccountID)
	assert.Equal(t, int64(100), res.winners[0].Payout) // 50 * 2 ocorrências
	assert.Equal(t, int64(100), res.totalPayout)

	gotAlice, err := env.accounts.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10050), gotAlice.Balance) // 10000 - 50 + 100
	assert.Equal(t, 1, gotAlice.TotalWins)

	gotBob, err := env.accounts.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9950), gotBob.Balance)
	assert.Equal(t, 1, gotBob.TotalLosses)

	wonBet, err := env.eng.Ledger.BetsFor(ctx, round.Round.ID)
	require.NoError(t, err)
	byID := map[string]*game.Bet{}
	for _, b := range wonBet {
		byID[b.ID] = b
	}
	assert.Equal(t, game.BetWon, byID[aliceBet.BetID].Status)
	assert.Equal(t, int64(100), byID[aliceBet.BetID].Payout)
	assert.Equal(t, game.BetLost, byID[bobBet.BetID].Status)
	assert.Zero(t, byID[bobBet.BetID].Payout)
}

func TestSettleRoundTripleOccurrence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)

	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	_, err := env.eng.PlaceBet(ctx, alice.ID, game.Chicken, 10)
	require.NoError(t, err)

	round, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)

	res := env.eng.settleRound(ctx, &round.Round, game.Outcome{game.Chicken, game.Chicken, game.Chicken})
	require.Len(t, res.winners, 1)
	assert.Equal(t, int64(30), res.winners[0].Payout)
}

func TestSettleRoundEmptyIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	round, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)

	res := env.eng.settleRound(ctx, &round.Round, game.Outcome{game.Reindeer, game.Potion, game.Shrimp})
	assert.Empty(t, res.winners)
	assert.Empty(t, res.failures)
	assert.Zero(t, res.totalPayout)
}

func TestSettleRoundIsIdempotentPerBet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)

	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	_, err := env.eng.PlaceBet(ctx, alice.ID, game.Fish, 100)
	require.NoError(t, err)

	round, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)

	out := game.Outcome{game.Fish, game.Crab, game.Crab}
	first := env.eng.settleRound(ctx, &round.Round, out)
	require.Len(t, first.winners, 1)

	// segunda liquidação não encontra apostas pendentes: nada muda
	second := env.eng.settleRound(ctx, &round.Round, out)
	assert.Empty(t, second.winners)

	got, err := env.accounts.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Balance) // -100 +100
	assert.Equal(t, 1, got.TotalWins)
}

func TestCountsMapIncludesZeroes(t *testing.T) {
	m := countsMap(game.Outcome{game.Fish, game.Fish, game.Crab})
	assert.Len(t, m, game.NumSymbols)
	assert.Equal(t, 2, m["fish"])
	assert.Equal(t, 1, m["crab"])
	assert.Equal(t, 0, m["reindeer"])
}

func TestFullCycleEveryBetLoses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// apostas nos cinco primeiros símbolos deixam chicken como único
	// elegível: o engine o escolhe nos três dados e ninguém ganha
	players := make([]*game.Account, 0, 5)
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5"} {
		players = append(players, env.register(t, name, 0))
	}

	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	symbols := []game.Symbol{game.Reindeer, game.Potion, game.Shrimp, game.Crab, game.Fish}
	for i, p := range players {
		_, err := env.eng.PlaceBet(ctx, p.ID, symbols[i], 100)
		require.NoError(t, err)
	}
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	env.clk.Advance(3 * time.Second)

	snap, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.Round.DiceResults)
	assert.Equal(t, game.Outcome{game.Chicken, game.Chicken, game.Chicken}, *snap.Round.DiceResults)

	// todos perdem: cada conta fecha com o débito mantido
	for _, p := range players {
		got, err := env.accounts.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(9900), got.Balance)
		assert.Equal(t, 1, got.TotalLosses)
	}
}
