package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/dice-arena-poc/internal/game"
)

// Implementações Postgres dos stores. Esquema esperado:
//
//	accounts(id, username, balance, total_wins, total_losses, role, created_at, updated_at)
//	bets(id, round_id, account_id, symbol, amount, payout, status, created_at, updated_at)
//	rounds(id, status, started_at, ended_at, dice_results text[], winning_symbols text[], created_at)

type PostgresAccounts struct{ db *sql.DB }

func NewPostgresAccounts(db *sql.DB) *PostgresAccounts { return &PostgresAccounts{db: db} }

func (p *PostgresAccounts) Get(ctx context.Context, id string) (*game.Account, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, username, balance, total_wins, total_losses, role, created_at
		FROM accounts WHERE id=$1`, id))
}

func (p *PostgresAccounts) GetByUsername(ctx context.Context, username string) (*game.Account, error) {
	return p.scanOne(p.db.QueryRowContext(ctx, `
		SELECT id, username, balance, total_wins, total_losses, role, created_at
		FROM accounts WHERE username=$1`, username))
}

func (p *PostgresAccounts) scanOne(row *sql.Row) (*game.Account, error) {
	var acc game.Account
	var role string
	err := row.Scan(&acc.ID, &acc.Username, &acc.Balance, &acc.TotalWins, &acc.TotalLosses, &role, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: account", game.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	acc.Role = game.Role(role)
	return &acc, nil
}

func (p *PostgresAccounts) Create(ctx context.Context, acc *game.Account) error {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, balance, total_wins, total_losses, role)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		acc.ID, acc.Username, acc.Balance, acc.TotalWins, acc.TotalLosses, string(acc.Role))
	return err
}

func (p *PostgresAccounts) Update(ctx context.Context, acc *game.Account) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE accounts SET balance=$1, total_wins=$2, total_losses=$3, role=$4, updated_at=NOW()
		WHERE id=$5`,
		acc.Balance, acc.TotalWins, acc.TotalLosses, string(acc.Role), acc.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: account %s", game.ErrNotFound, acc.ID)
	}
	return nil
}

func (p *PostgresAccounts) List(ctx context.Context) ([]*game.Account, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, username, balance, total_wins, total_losses, role, created_at
		FROM accounts ORDER BY balance DESC, username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.Account
	for rows.Next() {
		var acc game.Account
		var role string
		if err := rows.Scan(&acc.ID, &acc.Username, &acc.Balance, &acc.TotalWins, &acc.TotalLosses, &role, &acc.CreatedAt); err != nil {
			return nil, err
		}
		acc.Role = game.Role(role)
		out = append(out, &acc)
	}
	return out, rows.Err()
}

type PostgresBets struct{ db *sql.DB }

func NewPostgresBets(db *sql.DB) *PostgresBets { return &PostgresBets{db: db} }

func (p *PostgresBets) Create(ctx context.Context, b *game.Bet) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id, round_id, account_id, symbol, amount, payout, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.RoundID, b.AccountID, b.Symbol.String(), b.Amount, b.Payout, string(b.Status))
	return err
}

func (p *PostgresBets) Get(ctx context.Context, id string) (*game.Bet, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, round_id, account_id, symbol, amount, payout, status, created_at
		FROM bets WHERE id=$1`, id)
	b, err := scanBet(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bet %s", game.ErrNotFound, id)
	}
	return b, err
}

func (p *PostgresBets) FindByRound(ctx context.Context, roundID string, status game.BetStatus) ([]*game.Bet, error) {
	q := `SELECT id, round_id, account_id, symbol, amount, payout, status, created_at
		FROM bets WHERE round_id=$1`
	args := []any{roundID}
	if status != "" {
		q += ` AND status=$2`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at ASC`

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.Bet
	for rows.Next() {
		b, err := scanBet(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *PostgresBets) Update(ctx context.Context, b *game.Bet) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET payout=$1, status=$2, updated_at=NOW() WHERE id=$3`,
		b.Payout, string(b.Status), b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: bet %s", game.ErrNotFound, b.ID)
	}
	return nil
}

func scanBet(scan func(dest ...any) error) (*game.Bet, error) {
	var b game.Bet
	var symbol, status string
	if err := scan(&b.ID, &b.RoundID, &b.AccountID, &symbol, &b.Amount, &b.Payout, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	sym, err := game.ParseSymbol(symbol)
	if err != nil {
		return nil, err
	}
	b.Symbol = sym
	b.Status = game.BetStatus(status)
	return &b, nil
}

type PostgresRounds struct{ db *sql.DB }

func NewPostgresRounds(db *sql.DB) *PostgresRounds { return &PostgresRounds{db: db} }

func (p *PostgresRounds) Create(ctx context.Context) (*game.Round, error) {
	r := &game.Round{ID: uuid.NewString(), Status: game.RoundWaiting}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds (id, status) VALUES ($1,$2)`, r.ID, string(r.Status))
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *PostgresRounds) Update(ctx context.Context, r *game.Round) error {
	var dice any
	if r.DiceResults != nil {
		s := r.DiceResults.Strings()
		dice = pq.Array(s[:])
	}
	winning := make([]string, 0, len(r.WinningSymbols))
	for _, s := range r.WinningSymbols {
		winning = append(winning, s.String())
	}
	var started, ended any
	if !r.StartedAt.IsZero() {
		started = r.StartedAt
	}
	if r.EndedAt != nil {
		ended = *r.EndedAt
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET status=$1, started_at=$2, ended_at=$3, dice_results=$4, winning_symbols=$5
		WHERE id=$6`,
		string(r.Status), started, ended, dice, pq.Array(winning), r.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: round %s", game.ErrNotFound, r.ID)
	}
	return nil
}

func (p *PostgresRounds) FindLatestArchived(ctx context.Context) (*game.Round, error) {
	rows, err := p.queryRounds(ctx, `
		SELECT id, status, started_at, ended_at, dice_results, winning_symbols, created_at
		FROM rounds
		WHERE status='results' AND ended_at IS NOT NULL AND cardinality(winning_symbols) > 0
		ORDER BY ended_at DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no archived round", game.ErrNotFound)
	}
	return rows[0], nil
}

func (p *PostgresRounds) FindRecentArchived(ctx context.Context, limit int) ([]*game.Round, error) {
	return p.queryRounds(ctx, `
		SELECT id, status, started_at, ended_at, dice_results, winning_symbols, created_at
		FROM rounds
		WHERE status='results' AND ended_at IS NOT NULL
		ORDER BY ended_at DESC LIMIT $1`, limit)
}

func (p *PostgresRounds) ArchiveStale(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET status='results', ended_at=COALESCE(ended_at, NOW())
		WHERE status <> 'results' OR ended_at IS NULL`)
	return err
}

func (p *PostgresRounds) queryRounds(ctx context.Context, q string, args ...any) ([]*game.Round, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*game.Round
	for rows.Next() {
		var r game.Round
		var status string
		var started, ended sql.NullTime
		var dice, winning []string
		if err := rows.Scan(&r.ID, &status, &started, &ended, pq.Array(&dice), pq.Array(&winning), &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Status = game.RoundStatus(status)
		if started.Valid {
			r.StartedAt = started.Time
		}
		if ended.Valid {
			t := ended.Time
			r.EndedAt = &t
		}
		if len(dice) == 3 {
			var o game.Outcome
			for i, name := range dice {
				sym, err := game.ParseSymbol(name)
				if err != nil {
					return nil, err
				}
				o[i] = sym
			}
			r.DiceResults = &o
		}
		for _, name := range winning {
			sym, err := game.ParseSymbol(name)
			if err != nil {
				return nil, err
			}
			r.WinningSymbols = append(r.WinningSymbols, sym)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
