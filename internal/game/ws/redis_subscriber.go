package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game/broadcast"
)

// StartRedisSubscriber inicia uma goroutine que escuta o canal Redis Pub/Sub
// do engine e repassa cada evento para os clientes WebSocket via Hub
//
// Funcionamento:
// - Recebe envelopes JSON do canal Redis
// - RecipientID vazio vira broadcast; preenchido vai só para o jogador
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close() // encerra a inscrição ao finalizar o contexto
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var env broadcast.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				if env.RecipientID != "" {
					hub.EmitTo(env.RecipientID, env.Event, env.Payload)
					continue
				}
				hub.EmitAll(env.Event, env.Payload)
			}
		}
	}()
}
