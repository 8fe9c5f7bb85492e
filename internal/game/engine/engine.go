package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game"
	"github.com/radieske/dice-arena-poc/internal/game/clock"
	"github.com/radieske/dice-arena-poc/internal/game/ledger"
	"github.com/radieske/dice-arena-poc/internal/game/store"
	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

// Config reúne os parâmetros de jogo. Defaults em shared/config.
type Config struct {
	BettingDuration time.Duration
	RollingDelay    time.Duration
	ResultsDisplay  time.Duration
	MinBet          int64
	MaxBet          int64
	LowPercentile   float64
	BetWeight       float64
	PlayerWeight    float64
	StartingBalance int64
	HistoryLimit    int
}

// Broadcaster entrega eventos aos observadores. Best-effort: implementações
// não podem bloquear nem devolver erro ao caminho de commit.
type Broadcaster interface {
	EmitAll(event string, payload any)
	EmitTo(recipientID string, event string, payload any)
}

// Hooks são callbacks opcionais para métricas e publicação externa (Kafka,
// cache de estado). Executam fora do lock do engine.
type Hooks struct {
	OnStateChange       func(ev events.RoundState)
	OnBetPlaced         func(ev events.BetPlaced)
	OnSettled           func(ev events.RoundSettled)
	OnOddsFallback      func()
	OnSettlementFailure func(n int)
}

// Engine é a máquina de estados da rodada: waiting → betting → rolling →
// results → waiting, cíclica. Há exatamente uma rodada mutável; toda
// mutação (comando ou callback de timer) é serializada pelo mutex, e cada
// transição de fase manual invalida a geração de timers anterior, então um
// callback atrasado de uma rodada antiga é um no-op silencioso.
type Engine struct {
	Log      *zap.Logger
	Cfg      Config
	Clk      clock.Clock
	Ledger   *ledger.Ledger
	Accounts store.AccountStore
	Rounds   store.RoundStore
	Bcast    Broadcaster
	Hooks    Hooks

	mu       sync.Mutex
	current  *game.Round
	deadline time.Time
	gen      uint64
	tickTok  clock.Token
	delayTok clock.Token
	rng      *rand.Rand
}

// emission é um evento pronto para envio, acumulado durante a seção crítica
// e despachado depois do unlock: broadcast nunca fica no caminho do commit.
type emission struct {
	to      string // vazio = todos
	name    string
	payload any
}

// Start prepara o engine: arquiva qualquer rodada deixada aberta por um
// processo anterior e abre a rodada corrente em waiting.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if err := e.Rounds.ArchiveStale(ctx); err != nil {
		return fmt.Errorf("archive stale rounds: %w", err)
	}
	r, err := e.Rounds.Create(ctx)
	if err != nil {
		return fmt.Errorf("open round: %w", err)
	}
	e.current = r
	e.Log.Info("engine started", zap.String("roundId", r.ID))
	return nil
}

// Stop cancela timers pendentes. Usado no shutdown gracioso.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.invalidateTimers()
}

// AdvancePhase avança a fase da rodada corrente. Só admin pode; de waiting
// abre as apostas, de betting inicia a rolagem, de qualquer outra fase falha
// com game.ErrState (results volta a waiting sozinha, sem comando).
func (e *Engine) AdvancePhase(ctx context.Context, actorRole game.Role) error {
	if actorRole != game.RoleAdmin {
		return fmt.Errorf("%w: advance-phase", game.ErrUnauthorized)
	}

	e.mu.Lock()
	var (
		ems []emission
		err error
	)
	roundID := e.current.ID
	status := game.RoundStatus("")
	switch e.current.Status {
	case game.RoundWaiting:
		ems, err = e.openBetting(ctx)
		status = game.RoundBetting
	case game.RoundBetting:
		ems, err = e.startRolling(ctx)
		status = game.RoundRolling
	default:
		err = fmt.Errorf("%w: cannot advance from %s", game.ErrState, e.current.Status)
	}
	e.mu.Unlock()

	e.send(ems)
	if err == nil && e.Hooks.OnStateChange != nil {
		e.Hooks.OnStateChange(events.RoundState{Status: string(status), RoundID: roundID})
	}
	return err
}

// openBetting abre a janela de apostas e arma o tick de 1s da contagem
// regressiva. Chamado com o lock tomado.
func (e *Engine) openBetting(ctx context.Context) ([]emission, error) {
	now := e.Clk.Now()
	e.current.Status = game.RoundBetting
	e.current.StartedAt = now
	if err := e.Rounds.Update(ctx, e.current); err != nil {
		e.current.Status = game.RoundWaiting
		e.current.StartedAt = time.Time{}
		return nil, err
	}

	e.deadline = now.Add(e.Cfg.BettingDuration)
	e.invalidateTimers()
	e.gen++
	gen := e.gen
	e.tickTok = e.Clk.Every(time.Second, func() { e.onTick(gen) })

	e.Log.Info("betting open",
		zap.String("roundId", e.current.ID),
		zap.Time("deadline", e.deadline),
	)
	return []emission{
		{name: events.RoundStateChanged, payload: events.RoundState{Status: string(game.RoundBetting), RoundID: e.current.ID}},
	}, nil
}

// onTick emite o tempo restante; em zero encerra o tick e emite
// betting-expired. A fase NÃO avança aqui: expirar só bloqueia apostas novas,
// o admin ainda precisa comandar a rolagem.
func (e *Engine) onTick(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.current.Status != game.RoundBetting {
		e.mu.Unlock()
		return
	}
	left := int(math.Ceil(e.deadline.Sub(e.Clk.Now()).Seconds()))
	if left < 0 {
		left = 0
	}
	ems := []emission{
		{name: events.CountdownTick, payload: events.Tick{SecondsLeft: left, Total: int(e.Cfg.BettingDuration / time.Second)}},
	}
	if left == 0 {
		e.Clk.Cancel(e.tickTok)
		e.tickTok = 0
		ems = append(ems, emission{name: events.BettingExpired, payload: events.Expired{Message: "betting window closed"}})
	}
	e.mu.Unlock()
	e.send(ems)
}

// startRolling fecha as apostas e agenda o cálculo do resultado após o
// atraso de animação. Chamado com o lock tomado.
func (e *Engine) startRolling(ctx context.Context) ([]emission, error) {
	e.current.Status = game.RoundRolling
	if err := e.Rounds.Update(ctx, e.current); err != nil {
		e.current.Status = game.RoundBetting
		return nil, err
	}

	e.invalidateTimers()
	e.gen++
	gen := e.gen
	e.delayTok = e.Clk.After(e.Cfg.RollingDelay, func() { e.completeRolling(gen) })

	e.Log.Info("rolling", zap.String("roundId", e.current.ID))
	return []emission{
		{name: events.RoundStateChanged, payload: events.RoundState{Status: string(game.RoundRolling), RoundID: e.current.ID}},
		{name: events.RollingStarted, payload: events.Rolling{Message: "rolling dice"}},
	}, nil
}

// completeRolling calcula o resultado, liquida as apostas e agenda o retorno
// automático a waiting. Roda no caminho serializado, disparado pelo timer.
func (e *Engine) completeRolling(gen uint64) {
	ctx := context.Background()

	e.mu.Lock()
	if gen != e.gen || e.current.Status != game.RoundRolling {
		e.mu.Unlock()
		return // callback de uma geração antiga
	}
	e.delayTok = 0
	round := e.current

	prev := e.previousWinners(ctx)
	out, degraded := e.pickOutcome(ctx, round.ID, prev)

	now := e.Clk.Now()
	o := out
	round.DiceResults = &o
	round.WinningSymbols = o.Winning()
	round.Status = game.RoundResults
	round.EndedAt = &now
	if err := e.Rounds.Update(ctx, round); err != nil {
		e.Log.Error("persist round results", zap.String("roundId", round.ID), zap.Error(err))
	}

	res := e.settleRound(ctx, round, out)

	settled := events.RoundSettled{
		RoundID:      round.ID,
		DiceResults:  out.Strings(),
		SymbolCounts: countsMap(out),
		Winners:      res.winners,
		TotalPayout:  res.totalPayout,
		Ts:           now,
	}
	ems := []emission{
		{name: events.RoundStateChanged, payload: events.RoundState{Status: string(game.RoundResults), RoundID: round.ID}},
		{name: events.RoundSettledEvent, payload: settled},
	}
	for _, acc := range res.balances {
		ems = append(ems, emission{name: events.BalanceChanged, payload: events.Balance{
			AccountID: acc.ID, Username: acc.Username, Balance: acc.Balance,
		}})
	}

	e.delayTok = e.Clk.After(e.Cfg.ResultsDisplay, func() { e.completeResults(gen) })
	failures := len(res.failures)
	e.mu.Unlock()

	e.send(ems)
	if degraded && e.Hooks.OnOddsFallback != nil {
		e.Hooks.OnOddsFallback()
	}
	if failures > 0 && e.Hooks.OnSettlementFailure != nil {
		e.Hooks.OnSettlementFailure(failures)
	}
	if e.Hooks.OnSettled != nil {
		e.Hooks.OnSettled(settled)
	}
	if e.Hooks.OnStateChange != nil {
		e.Hooks.OnStateChange(events.RoundState{Status: string(game.RoundResults), RoundID: round.ID})
	}
}

// completeResults arquiva a rodada liquidada e abre a próxima em waiting.
// É a única transição que dispensa comando do admin.
func (e *Engine) completeResults(gen uint64) {
	ctx := context.Background()

	e.mu.Lock()
	if gen != e.gen || e.current.Status != game.RoundResults {
		e.mu.Unlock()
		return
	}
	e.delayTok = 0
	r, err := e.Rounds.Create(ctx)
	if err != nil {
		e.Log.Error("open next round", zap.Error(err))
		e.mu.Unlock()
		return
	}
	e.current = r
	e.mu.Unlock()

	ems := []emission{
		{name: events.RoundStateChanged, payload: events.RoundState{Status: string(game.RoundWaiting), RoundID: r.ID}},
	}
	if hist, err := e.History(ctx, e.Cfg.HistoryLimit); err == nil {
		ems = append(ems, emission{name: events.RoundHistoryEvent, payload: hist})
	} else {
		e.Log.Warn("refresh history", zap.Error(err))
	}
	e.send(ems)
	if e.Hooks.OnStateChange != nil {
		e.Hooks.OnStateChange(events.RoundState{Status: string(game.RoundWaiting), RoundID: r.ID})
	}
}

// Receipt é a confirmação devolvida ao apostador.
type Receipt struct {
	BetID   string
	Symbol  game.Symbol
	Amount  int64
	Balance int64
}

// PlaceBet aceita uma aposta da conta no símbolo. Fase, prazo e saldo são
// revalidados dentro da seção crítica, no instante do commit: uma aposta
// chegando junto de um avanço de fase não passa pelos dois caminhos. Prazo é
// inclusivo: now >= deadline rejeita.
func (e *Engine) PlaceBet(ctx context.Context, accountID string, symbol game.Symbol, amount int64) (*Receipt, error) {
	if !symbol.Valid() {
		return nil, fmt.Errorf("%w: symbol out of alphabet", game.ErrValidation)
	}
	if amount < e.Cfg.MinBet || amount > e.Cfg.MaxBet {
		return nil, fmt.Errorf("%w: amount must be between %d and %d", game.ErrValidation, e.Cfg.MinBet, e.Cfg.MaxBet)
	}

	e.mu.Lock()
	if e.current == nil || e.current.Status != game.RoundBetting {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: betting is not active", game.ErrState)
	}
	if !e.Clk.Now().Before(e.deadline) {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: betting window closed", game.ErrState)
	}
	acc, err := e.Accounts.Get(ctx, accountID)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	balance, err := e.Ledger.DebitForBet(ctx, accountID, amount)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	bet := &game.Bet{
		ID:        uuid.NewString(),
		RoundID:   e.current.ID,
		AccountID: accountID,
		Symbol:    symbol,
		Amount:    amount,
		Status:    game.BetPending,
		CreatedAt: e.Clk.Now(),
	}
	if err := e.Ledger.AppendBet(ctx, bet); err != nil {
		// devolve o débito: débito sem aposta quebraria o invariante do razão
		if _, rerr := e.Ledger.RefundDebit(ctx, accountID, amount); rerr != nil {
			e.Log.Error("refund after failed append", zap.String("accountId", accountID), zap.Error(rerr))
		}
		e.mu.Unlock()
		return nil, err
	}
	e.mu.Unlock()

	e.send([]emission{
		{to: accountID, name: events.BetAcceptedEvent, payload: events.BetAccepted{
			BetID: bet.ID, Symbol: symbol.String(), Amount: amount, Balance: balance,
		}},
		{name: events.BetUpdate, payload: events.BetPlaced{
			BetID: bet.ID, RoundID: bet.RoundID, AccountID: accountID,
			Username: acc.Username, Symbol: symbol.String(), Amount: amount,
		}},
		{name: events.BalanceChanged, payload: events.Balance{
			AccountID: accountID, Username: acc.Username, Balance: balance,
		}},
	})
	if e.Hooks.OnBetPlaced != nil {
		e.Hooks.OnBetPlaced(events.BetPlaced{
			BetID: bet.ID, RoundID: bet.RoundID, AccountID: accountID,
			Username: acc.Username, Symbol: symbol.String(), Amount: amount,
			TsUnixMs: bet.CreatedAt.UnixMilli(),
		})
	}
	return &Receipt{BetID: bet.ID, Symbol: symbol, Amount: amount, Balance: balance}, nil
}

// previousWinners busca os símbolos vencedores da última rodada arquivada
// com resultado não vazio. Chamado com o lock tomado.
func (e *Engine) previousWinners(ctx context.Context) []game.Symbol {
	last, err := e.Rounds.FindLatestArchived(ctx)
	if err != nil {
		if !errors.Is(err, game.ErrNotFound) {
			e.Log.Warn("fetch previous winners", zap.Error(err))
		}
		return nil
	}
	return last.WinningSymbols
}

// pickOutcome roda a seleção adversarial; se as apostas não puderem ser
// lidas, degrada para um sorteio uniforme em vez de travar a rodada.
func (e *Engine) pickOutcome(ctx context.Context, roundID string, prev []game.Symbol) (game.Outcome, bool) {
	bets, err := e.Ledger.PendingBetsFor(ctx, roundID)
	if err != nil {
		e.Log.Warn("odds computation degraded, falling back to uniform roll",
			zap.String("roundId", roundID), zap.Error(err))
		return randomOutcome(e.rng), true
	}
	return PickOutcome(bets, prev, e.Cfg), false
}

// invalidateTimers cancela tick e delay pendentes. Chamado com o lock tomado.
func (e *Engine) invalidateTimers() {
	if e.tickTok != 0 {
		e.Clk.Cancel(e.tickTok)
		e.tickTok = 0
	}
	if e.delayTok != 0 {
		e.Clk.Cancel(e.delayTok)
		e.delayTok = 0
	}
}

// send despacha emissões acumuladas. Sempre depois do unlock.
func (e *Engine) send(ems []emission) {
	if e.Bcast == nil {
		return
	}
	for _, em := range ems {
		if em.to != "" {
			e.Bcast.EmitTo(em.to, em.name, em.payload)
			continue
		}
		e.Bcast.EmitAll(em.name, em.payload)
	}
}
