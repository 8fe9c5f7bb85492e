package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do jogo para consumo assíncrono
// (audit-worker e quem mais quiser o stream).
type KafkaPublisher struct {
	Bets    *kafka.Writer // tópico bet_placed
	Settled *kafka.Writer // tópico round_settled
}

func NewKafkaPublisher(bets, settled *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{Bets: bets, Settled: settled}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	if e.TsUnixMs == 0 {
		e.TsUnixMs = time.Now().UnixMilli()
	}
	b, _ := json.Marshal(e)
	return p.Bets.WriteMessages(ctx, kafka.Message{Key: []byte(e.BetID), Value: b})
}

func (p *KafkaPublisher) PublishRoundSettled(ctx context.Context, e events.RoundSettled) error {
	b, _ := json.Marshal(e)
	return p.Settled.WriteMessages(ctx, kafka.Message{Key: []byte(e.RoundID), Value: b})
}
