package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Envelope transporta um evento do engine pelo Redis Pub/Sub até o hub WS.
type Envelope struct {
	Event       string          `json:"event"`
	RecipientID string          `json:"recipientId,omitempty"` // vazio = broadcast
	Payload     json.RawMessage `json:"payload"`
}

// Redis publica o stream de eventos do engine num canal Pub/Sub. Best-effort:
// falha de publicação é logada e nunca desfaz um commit já aplicado.
type Redis struct {
	log     *zap.Logger
	r       *redis.Client
	channel string
}

func NewRedis(log *zap.Logger, r *redis.Client, channel string) *Redis {
	return &Redis{log: log, r: r, channel: channel}
}

func (b *Redis) EmitAll(event string, payload any) {
	b.publish(event, "", payload)
}

func (b *Redis) EmitTo(recipientID string, event string, payload any) {
	b.publish(event, recipientID, payload)
}

func (b *Redis) publish(event, recipientID string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		b.log.Warn("event payload marshal failed", zap.String("event", event), zap.Error(err))
		return
	}
	data, _ := json.Marshal(Envelope{Event: event, RecipientID: recipientID, Payload: raw})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := b.r.Publish(ctx, b.channel, data).Err(); err != nil {
		b.log.Warn("event broadcast publish failed", zap.String("event", event), zap.Error(err))
	}
}
