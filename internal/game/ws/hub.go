package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub gerencia conexões WebSocket dos jogadores.
// Um cliente se identifica com {"type":"hello","playerId":"..."} para
// receber também os eventos endereçados (recibo de aposta).
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	conns    map[*websocket.Conn]string // conn -> playerID ("" até o hello)
	// playerID -> conjunto de conexões do jogador
	byPlayer map[string]map[*websocket.Conn]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		conns:    make(map[*websocket.Conn]string),
		byPlayer: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Aceita hello (identificação do jogador) e responde a pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.conns[conn] = ""
	h.mu.Unlock()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "hello":
			if msg.PlayerID == "" {
				continue
			}
			h.mu.Lock()
			h.detach(conn)
			h.conns[conn] = msg.PlayerID
			if _, ok := h.byPlayer[msg.PlayerID]; !ok {
				h.byPlayer[msg.PlayerID] = make(map[*websocket.Conn]struct{})
			}
			h.byPlayer[msg.PlayerID][conn] = struct{}{}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}

	// Remove a conexão ao desconectar
	h.mu.Lock()
	h.detach(conn)
	delete(h.conns, conn)
	h.mu.Unlock()
}

// detach remove a conexão do índice por jogador. Chamado com o lock tomado.
func (h *Hub) detach(conn *websocket.Conn) {
	if pid := h.conns[conn]; pid != "" {
		delete(h.byPlayer[pid], conn)
		if len(h.byPlayer[pid]) == 0 {
			delete(h.byPlayer, pid)
		}
	}
}

// EmitAll envia um evento para todos os clientes conectados
func (h *Hub) EmitAll(event string, payload any) {
	b, _ := json.Marshal(ServerMsg{Event: event, Payload: marshalRaw(payload)})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

// EmitTo envia um evento só para as conexões do jogador indicado
func (h *Hub) EmitTo(playerID string, event string, payload any) {
	h.mu.RLock()
	conns := h.byPlayer[playerID]
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(ServerMsg{Event: event, Payload: marshalRaw(payload)})
	for c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

func marshalRaw(payload any) json.RawMessage {
	if raw, ok := payload.(json.RawMessage); ok {
		return raw
	}
	b, _ := json.Marshal(payload)
	return b
}
