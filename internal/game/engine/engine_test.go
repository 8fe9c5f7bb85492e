package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game"
	"github.com/radieske/dice-arena-poc/internal/game/clock"
	"github.com/radieske/dice-arena-poc/internal/game/ledger"
	"github.com/radieske/dice-arena-poc/internal/game/store"
)

// sink captura as emissões do engine para inspeção nos testes.
type sink struct {
	mu     sync.Mutex
	events []sinkEvent
}

type sinkEvent struct {
	to      string
	name    string
	payload any
}

func (s *sink) EmitAll(event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{name: event, payload: payload})
}

func (s *sink) EmitTo(recipientID, event string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, sinkEvent{to: recipientID, name: event, payload: payload})
}

func (s *sink) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.name == name {
			n++
		}
	}
	return n
}

type testEnv struct {
	eng      *Engine
	clk      *clock.Fake
	sink     *sink
	accounts *store.MemoryAccounts
	rounds   *store.MemoryRounds
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	accounts := store.NewMemoryAccounts()
	bets := store.NewMemoryBets()
	rounds := store.NewMemoryRounds()
	clk := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	snk := &sink{}
	log := zap.NewNop()

	eng := &Engine{
		Log: log,
		Cfg: Config{
			BettingDuration: 30 * time.Second,
			RollingDelay:    3 * time.Second,
			ResultsDisplay:  5 * time.Second,
			MinBet:          1,
			MaxBet:          1000,
			LowPercentile:   0.1,
			BetWeight:       1.0,
			PlayerWeight:    100,
			StartingBalance: 10000,
			HistoryLimit:    10,
		},
		Clk:      clk,
		Ledger:   ledger.New(log, accounts, bets),
		Accounts: accounts,
		Rounds:   rounds,
		Bcast:    snk,
	}
	require.NoError(t, eng.Start(context.Background()))
	return &testEnv{eng: eng, clk: clk, sink: snk, accounts: accounts, rounds: rounds}
}

func (env *testEnv) status(t *testing.T) game.RoundStatus {
	t.Helper()
	snap, err := env.eng.Snapshot(context.Background())
	require.NoError(t, err)
	return snap.Round.Status
}

func (env *testEnv) register(t *testing.T, username string, balance int64) *game.Account {
	t.Helper()
	acc, err := env.eng.RegisterPlayer(context.Background(), username, balance)
	require.NoError(t, err)
	return acc
}

func TestEngineStartsInWaiting(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, game.RoundWaiting, env.status(t))
}

func TestFullRoundCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)
	assert.Equal(t, int64(10000), alice.Balance)

	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	assert.Equal(t, game.RoundBetting, env.status(t))

	receipt, err := env.eng.PlaceBet(ctx, alice.ID, game.Crab, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), receipt.Balance)

	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	assert.Equal(t, game.RoundRolling, env.status(t))

	env.clk.Advance(3 * time.Second)
	snap, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.RoundResults, snap.Round.Status)
	require.NotNil(t, snap.Round.DiceResults)
	require.Len(t, snap.Bets, 1)
	// único símbolo apostado nunca sai: a aposta perde
	assert.Equal(t, game.BetLost, snap.Bets[0].Status)
	assert.Zero(t, snap.Bets[0].Payout)

	got, err := env.accounts.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9900), got.Balance)
	assert.Equal(t, 1, got.TotalLosses)

	// o retorno a waiting é automático após a exibição do resultado
	env.clk.Advance(5 * time.Second)
	next, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.RoundWaiting, next.Round.Status)
	assert.NotEqual(t, snap.Round.ID, next.Round.ID)

	hist, err := env.eng.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, snap.Round.ID, hist[0].RoundID)
	assert.Equal(t, 1, hist[0].TotalBets)
	assert.Zero(t, hist[0].TotalWinners)
}

func TestPreviousWinnersDoNotRepeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	runEmptyRound := func() game.Outcome {
		require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
		require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
		env.clk.Advance(3 * time.Second)
		snap, err := env.eng.Snapshot(ctx)
		require.NoError(t, err)
		require.NotNil(t, snap.Round.DiceResults)
		out := *snap.Round.DiceResults
		env.clk.Advance(5 * time.Second)
		return out
	}

	first := runEmptyRound()
	assert.Equal(t, game.Outcome{game.Reindeer, game.Potion, game.Shrimp}, first)

	// a rodada seguinte exclui os três vencedores e cai nos símbolos restantes
	second := runEmptyRound()
	assert.Equal(t, game.Outcome{game.Crab, game.Fish, game.Chicken}, second)
}

func TestAdvanceRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	err := env.eng.AdvancePhase(context.Background(), game.RolePlayer)
	assert.ErrorIs(t, err, game.ErrUnauthorized)
	assert.Equal(t, game.RoundWaiting, env.status(t))
}

func TestAdvanceFromRollingOrResultsFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	err := env.eng.AdvancePhase(ctx, game.RoleAdmin)
	assert.ErrorIs(t, err, game.ErrState)

	env.clk.Advance(3 * time.Second)
	require.Equal(t, game.RoundResults, env.status(t))
	err = env.eng.AdvancePhase(ctx, game.RoleAdmin)
	assert.ErrorIs(t, err, game.ErrState)
}

func TestPlaceBetOutsideBettingPhase(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", 0)

	_, err := env.eng.PlaceBet(context.Background(), alice.ID, game.Fish, 10)
	assert.ErrorIs(t, err, game.ErrState)
}

func TestPlaceBetDeadlineIsInclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	env.clk.Advance(29 * time.Second)
	_, err := env.eng.PlaceBet(ctx, alice.ID, game.Fish, 10)
	require.NoError(t, err)

	// no instante exato do prazo a aposta já é recusada
	env.clk.Advance(time.Second)
	_, err = env.eng.PlaceBet(ctx, alice.ID, game.Fish, 10)
	assert.ErrorIs(t, err, game.ErrState)
}

func TestPlaceBetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	_, err := env.eng.PlaceBet(ctx, alice.ID, game.Symbol(9), 10)
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = env.eng.PlaceBet(ctx, alice.ID, game.Fish, 0)
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = env.eng.PlaceBet(ctx, alice.ID, game.Fish, 1001)
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = env.eng.PlaceBet(ctx, "nobody", game.Fish, 10)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestPlaceBetInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	poor := env.register(t, "poor", 5)
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	_, err := env.eng.PlaceBet(ctx, poor.ID, game.Fish, 10)
	assert.ErrorIs(t, err, game.ErrInsufficientFunds)

	got, err := env.accounts.Get(ctx, poor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Balance, "failed bet must not touch the balance")
}

func TestCountdownTicksAndExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	env.clk.Advance(30 * time.Second)
	assert.Equal(t, 30, env.sink.count("countdown-tick"))
	assert.Equal(t, 1, env.sink.count("betting-expired"))

	// expirar não avança a fase: o comando do admin continua necessário
	assert.Equal(t, game.RoundBetting, env.status(t))

	// o tick é cancelado: mais tempo não gera mais eventos
	env.clk.Advance(10 * time.Second)
	assert.Equal(t, 30, env.sink.count("countdown-tick"))
	assert.Equal(t, 1, env.sink.count("betting-expired"))
}

func TestManualAdvanceCancelsCountdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	env.clk.Advance(2 * time.Second)
	require.Equal(t, 2, env.sink.count("countdown-tick"))

	// avanço manual invalida a geração: o tick antigo não dispara mais
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	env.clk.Advance(10 * time.Second)
	assert.Equal(t, 2, env.sink.count("countdown-tick"))
}

func TestResultsTimerOpensExactlyOneRound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	env.clk.Advance(3 * time.Second)
	require.Equal(t, game.RoundResults, env.status(t))

	env.clk.Advance(20 * time.Second)
	assert.Equal(t, game.RoundWaiting, env.status(t))
	// um único round-settled por rodada, mesmo com tempo extra decorrido
	assert.Equal(t, 1, env.sink.count("round-settled"))
}

func TestSnapshotSecondsLeft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	env.clk.Advance(12 * time.Second)
	snap, err := env.eng.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18, snap.SecondsLeft)
}

func TestStopCancelsPendingTimers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	env.eng.Stop()
	env.clk.Advance(time.Minute)
	assert.Zero(t, env.sink.count("countdown-tick"))
}

func TestRegisterPlayerValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.eng.RegisterPlayer(ctx, "   ", 0)
	assert.ErrorIs(t, err, game.ErrValidation)

	_, err = env.eng.RegisterPlayer(ctx, "this-username-is-way-too-long", 0)
	assert.ErrorIs(t, err, game.ErrValidation)
}

func TestRegisterPlayerIsIdempotentByUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.eng.RegisterPlayer(ctx, "bob", 0)
	require.NoError(t, err)
	again, err := env.eng.RegisterPlayer(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	// balance positivo sobrescreve o saldo da conta existente
	topped, err := env.eng.RegisterPlayer(ctx, "bob", 500)
	require.NoError(t, err)
	assert.Equal(t, int64(500), topped.Balance)
}

func TestBetEmitsReceiptToBettorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice", 0)
	require.NoError(t, env.eng.AdvancePhase(ctx, game.RoleAdmin))

	_, err := env.eng.PlaceBet(ctx, alice.ID, game.Shrimp, 25)
	require.NoError(t, err)

	env.sink.mu.Lock()
	defer env.sink.mu.Unlock()
	var receiptTo string
	for _, e := range env.sink.events {
		if e.name == "bet-placed" {
			receiptTo = e.to
		}
	}
	assert.Equal(t, alice.ID, receiptTo)
}
