package ledger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game"
	"github.com/radieske/dice-arena-poc/internal/game/store"
)

// Ledger é o único componente autorizado a mutar saldo de conta e registros
// de aposta. Todas as operações de escrita são atômicas em relação ao saldo
// que tocam: um débito que deixaria o saldo negativo falha sem efeito parcial.
type Ledger struct {
	mu       sync.Mutex
	log      *zap.Logger
	accounts store.AccountStore
	bets     store.BetStore
}

func New(log *zap.Logger, accounts store.AccountStore, bets store.BetStore) *Ledger {
	return &Ledger{log: log, accounts: accounts, bets: bets}
}

// DebitForBet debita o valor da aposta e retorna o novo saldo.
// Falha com game.ErrInsufficientFunds sem tocar a conta.
func (l *Ledger) DebitForBet(ctx context.Context, accountID string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.accounts.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if acc.Balance < amount {
		return 0, fmt.Errorf("%w: balance %d, stake %d", game.ErrInsufficientFunds, acc.Balance, amount)
	}
	acc.Balance -= amount
	if err := l.accounts.Update(ctx, acc); err != nil {
		return 0, err
	}
	l.log.Debug("debit", zap.String("accountId", accountID), zap.Int64("amount", amount), zap.Int64("balance", acc.Balance))
	return acc.Balance, nil
}

// RefundDebit devolve um débito que não virou aposta. Não mexe em
// estatísticas de vitória/derrota.
func (l *Ledger) RefundDebit(ctx context.Context, accountID string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.accounts.Get(ctx, accountID)
	if err != nil {
		return 0, err
	}
	acc.Balance += amount
	if err := l.accounts.Update(ctx, acc); err != nil {
		return 0, err
	}
	l.log.Debug("refund", zap.String("accountId", accountID), zap.Int64("amount", amount))
	return acc.Balance, nil
}

// CreditForPayout credita o prêmio (0 é válido e não altera saldo) e
// incrementa total_wins ou total_losses. Retorna a conta atualizada.
func (l *Ledger) CreditForPayout(ctx context.Context, accountID string, payout int64, won bool) (*game.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if won {
		acc.Balance += payout
		acc.TotalWins++
	} else {
		acc.TotalLosses++
	}
	if err := l.accounts.Update(ctx, acc); err != nil {
		return nil, err
	}
	l.log.Debug("credit", zap.String("accountId", accountID), zap.Int64("payout", payout), zap.Bool("won", won))
	return acc, nil
}

// AppendBet registra uma aposta pendente recém-aceita.
func (l *Ledger) AppendBet(ctx context.Context, b *game.Bet) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bets.Create(ctx, b)
}

// SettleBet marca o desfecho de uma aposta. Uma aposta já liquidada é
// deixada como está (liquidação é exatamente-uma-vez).
func (l *Ledger) SettleBet(ctx context.Context, betID string, status game.BetStatus, payout int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bets.Get(ctx, betID)
	if err != nil {
		return err
	}
	if b.Status != game.BetPending {
		return nil
	}
	b.Status = status
	b.Payout = payout
	return l.bets.Update(ctx, b)
}

// PendingBetsFor retorna as apostas pendentes de uma rodada.
func (l *Ledger) PendingBetsFor(ctx context.Context, roundID string) ([]*game.Bet, error) {
	return l.bets.FindByRound(ctx, roundID, game.BetPending)
}

// BetsFor retorna todas as apostas de uma rodada, em qualquer status.
func (l *Ledger) BetsFor(ctx context.Context, roundID string) ([]*game.Bet, error) {
	return l.bets.FindByRound(ctx, roundID, "")
}
