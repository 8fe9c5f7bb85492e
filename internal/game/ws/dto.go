package ws

import "encoding/json"

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: hello | ping
// PlayerID: obrigatório em hello
type ClientMsg struct {
	Type     string `json:"type"`     // hello | ping
	PlayerID string `json:"playerId"` // requerido em hello
}

// ServerMsg é o envelope enviado para os clientes WebSocket
type ServerMsg struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}
