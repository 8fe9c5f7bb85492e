package events

// BetAccepted é o recibo enviado apenas ao apostador.
type BetAccepted struct {
	BetID   string `json:"betId"`
	Symbol  string `json:"symbol"`
	Amount  int64  `json:"amount"`
	Balance int64  `json:"balance"` // saldo após o débito
}

// BetPlaced é o broadcast público de uma aposta aceita. Também é publicado
// no tópico Kafka "bet_placed".
type BetPlaced struct {
	BetID     string `json:"bet_id"`
	RoundID   string `json:"round_id"`
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Symbol    string `json:"symbol"`
	Amount    int64  `json:"amount"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}

// Balance notifica o novo saldo de uma conta (aposta debitada ou prêmio pago).
type Balance struct {
	AccountID string `json:"accountId"`
	Username  string `json:"username"`
	Balance   int64  `json:"balance"`
}
