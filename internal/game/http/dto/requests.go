package dto

type RegisterPlayerRequest struct {
	Username string `json:"username"`
	Balance  int64  `json:"balance,omitempty"` // opcional: sobrescreve o saldo inicial
}

type PlaceBetRequest struct {
	PlayerID string `json:"playerId"`
	Symbol   string `json:"symbol"` // um dos 6 símbolos do alfabeto
	Amount   int64  `json:"amount"`
}
