package game

import "time"

type RoundStatus string

const (
	RoundWaiting RoundStatus = "waiting"
	RoundBetting RoundStatus = "betting"
	RoundRolling RoundStatus = "rolling"
	RoundResults RoundStatus = "results"
)

type BetStatus string

const (
	BetPending BetStatus = "pending"
	BetWon     BetStatus = "won"
	BetLost    BetStatus = "lost"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Round é uma rodada do jogo. Existe exatamente uma rodada corrente;
// rodadas encerradas ficam arquivadas com status results e ended_at definido.
// Só o engine muta uma Round.
type Round struct {
	ID             string
	Status         RoundStatus
	StartedAt      time.Time
	EndedAt        *time.Time
	DiceResults    *Outcome
	WinningSymbols []Symbol
	CreatedAt      time.Time
}

// Archived informa se a rodada já foi encerrada e liquidada.
func (r *Round) Archived() bool {
	return r.Status == RoundResults && r.EndedAt != nil
}

// Bet é uma aposta de uma conta em um símbolo da rodada corrente.
// Criada apenas durante a fase betting; mutada exatamente uma vez,
// pela liquidação, para definir status e payout.
type Bet struct {
	ID        string
	RoundID   string
	AccountID string
	Symbol    Symbol
	Amount    int64
	Payout    int64
	Status    BetStatus
	CreatedAt time.Time
}

// Account é um jogador (ou admin). Saldo nunca fica negativo: o débito é
// recusado antes de estourar.
type Account struct {
	ID          string
	Username    string
	Balance     int64
	TotalWins   int
	TotalLosses int
	Role        Role
	CreatedAt   time.Time
}
