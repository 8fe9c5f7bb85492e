package dto

type PlayerResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Balance     int64  `json:"balance"`
	TotalWins   int    `json:"total_wins"`
	TotalLosses int    `json:"total_losses"`
	Role        string `json:"role"`
}

type PlaceBetResponse struct {
	BetID   string `json:"betId"`
	Symbol  string `json:"symbol"`
	Amount  int64  `json:"amount"`
	Balance int64  `json:"balance"` // saldo após o débito
}

type BetResponse struct {
	BetID     string `json:"betId"`
	AccountID string `json:"accountId"`
	Symbol    string `json:"symbol"`
	Amount    int64  `json:"amount"`
	Payout    int64  `json:"payout"`
	Status    string `json:"status"`
}

type GameStateResponse struct {
	Status      string        `json:"status"`
	RoundID     string        `json:"roundId"`
	SecondsLeft int           `json:"secondsLeft"`
	DiceResults []string      `json:"diceResults,omitempty"`
	Bets        []BetResponse `json:"bets"`
}

type AdvanceResponse struct {
	Status  string `json:"status"` // fase após o comando
	RoundID string `json:"roundId"`
}
