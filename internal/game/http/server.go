package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game"
	"github.com/radieske/dice-arena-poc/internal/game/engine"
	"github.com/radieske/dice-arena-poc/internal/game/http/dto"
)

// Server expõe os comandos e consultas do engine por HTTP. O papel do ator
// vem do header X-Role: autenticação de verdade fica num gateway, fora daqui.
type Server struct {
	log *zap.Logger
	eng *engine.Engine
}

func NewServer(log *zap.Logger, eng *engine.Engine) *Server {
	return &Server{log: log, eng: eng}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/players", s.players)      // POST cria/recupera, GET lista
	mux.HandleFunc("/bets", s.placeBet)        // POST
	mux.HandleFunc("/game/advance", s.advance) // POST (admin)
	mux.HandleFunc("/game/state", s.state)     // GET
	mux.HandleFunc("/game/history", s.history) // GET ?limit=
	return mux
}

func (s *Server) players(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req dto.RegisterPlayerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		acc, err := s.eng.RegisterPlayer(r.Context(), req.Username, req.Balance)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, playerResponse(acc))
	case http.MethodGet:
		accs, err := s.eng.Players(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		out := make([]dto.PlayerResponse, 0, len(accs))
		for _, acc := range accs {
			out = append(out, playerResponse(acc))
		}
		writeJSON(w, out)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.PlayerID == "" || req.Symbol == "" || req.Amount <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sym, err := game.ParseSymbol(req.Symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}

	receipt, err := s.eng.PlaceBet(r.Context(), req.PlayerID, sym, req.Amount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.PlaceBetResponse{
		BetID:   receipt.BetID,
		Symbol:  receipt.Symbol.String(),
		Amount:  receipt.Amount,
		Balance: receipt.Balance,
	})
}

func (s *Server) advance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	role := game.Role(r.Header.Get("X-Role"))
	if err := s.eng.AdvancePhase(r.Context(), role); err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.eng.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, dto.AdvanceResponse{Status: string(snap.Round.Status), RoundID: snap.Round.ID})
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap, err := s.eng.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := dto.GameStateResponse{
		Status:      string(snap.Round.Status),
		RoundID:     snap.Round.ID,
		SecondsLeft: snap.SecondsLeft,
		Bets:        make([]dto.BetResponse, 0, len(snap.Bets)),
	}
	if snap.Round.DiceResults != nil {
		dice := snap.Round.DiceResults.Strings()
		resp.DiceResults = dice[:]
	}
	for _, b := range snap.Bets {
		resp.Bets = append(resp.Bets, dto.BetResponse{
			BetID:     b.ID,
			AccountID: b.AccountID,
			Symbol:    b.Symbol.String(),
			Amount:    b.Amount,
			Payout:    b.Payout,
			Status:    string(b.Status),
		})
	}
	writeJSON(w, resp)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	hist, err := s.eng.History(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, hist)
}

// writeError mapeia a taxonomia de erros do engine para status HTTP
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrState):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	default:
		s.log.Error("internal error", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func playerResponse(acc *game.Account) dto.PlayerResponse {
	return dto.PlayerResponse{
		ID:          acc.ID,
		Username:    acc.Username,
		Balance:     acc.Balance,
		TotalWins:   acc.TotalWins,
		TotalLosses: acc.TotalLosses,
		Role:        string(acc.Role),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
