package events

import "time"

// RoundState notifica mudança de fase da rodada corrente.
type RoundState struct {
	Status  string `json:"status"` // waiting | betting | rolling | results
	RoundID string `json:"roundId"`
}

// Tick é emitido a cada segundo durante a janela de apostas.
type Tick struct {
	SecondsLeft int `json:"secondsLeft"`
	Total       int `json:"total"`
}

// Expired sinaliza o fim da janela de apostas (a fase NÃO avança sozinha).
type Expired struct {
	Message string `json:"message"`
}

// Rolling sinaliza o início da animação dos dados.
type Rolling struct {
	Message string `json:"message"`
}

// Winner é uma aposta vencedora já liquidada.
type Winner struct {
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
	Symbol    string `json:"symbol"`
	BetAmount int64  `json:"betAmount"`
	Payout    int64  `json:"payout"`
}

// RoundSettled é o resultado completo de uma rodada. Também é publicado
// no tópico Kafka "round_settled" para o audit-worker.
type RoundSettled struct {
	RoundID      string         `json:"roundId"`
	DiceResults  [3]string      `json:"diceResults"`
	SymbolCounts map[string]int `json:"symbolCounts"`
	Winners      []Winner       `json:"winners"`
	TotalPayout  int64          `json:"totalPayout"`
	Ts           time.Time      `json:"ts"`
}

// RoundSummary é uma rodada arquivada com agregados, usada no histórico.
type RoundSummary struct {
	RoundID      string         `json:"roundId"`
	DiceResults  []string       `json:"diceResults"`
	SymbolCounts map[string]int `json:"symbolCounts"`
	StartedAt    time.Time      `json:"startedAt"`
	EndedAt      *time.Time     `json:"endedAt"`
	TotalBets    int            `json:"totalBets"`
	TotalWinners int            `json:"totalWinners"`
	TotalPayout  int64          `json:"totalPayout"`
}
