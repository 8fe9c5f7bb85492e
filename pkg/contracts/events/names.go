package events

// Nomes dos eventos emitidos pelo engine para o stream de broadcast.
// O transporte (WS, Redis Pub/Sub) repassa esses nomes sem interpretá-los.
const (
	RoundStateChanged = "round-state-changed"
	CountdownTick     = "countdown-tick"
	BettingExpired    = "betting-expired"
	RollingStarted    = "rolling-started"
	RoundSettledEvent = "round-settled"
	BalanceChanged    = "balance-changed"
	BetAcceptedEvent  = "bet-placed"    // enviado só ao apostador (recibo)
	BetUpdate         = "bet-update"    // broadcast público da aposta
	RoundHistoryEvent = "round-history" // histórico atualizado após cada rodada
	PlayersList       = "players-list"
)
