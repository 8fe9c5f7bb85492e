package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/shared/config"
	"github.com/radieske/dice-arena-poc/internal/shared/db"
	"github.com/radieske/dice-arena-poc/internal/shared/kafka"
	"github.com/radieske/dice-arena-poc/internal/shared/logger"
	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

var (
	auditRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_rounds_recorded_total",
		Help: "rodadas gravadas na trilha de auditoria",
	})
	auditDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_dead_lettered_total",
		Help: "mensagens enviadas para a DLQ",
	})
)

func main() {
	cfg := config.Load()
	log, err := logger.New("audit-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(auditRecorded, auditDeadLettered)

	// Postgres para a trilha de auditoria (worker exige banco)
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required for audit-worker")
	}
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: consome round_settled para gravar a trilha de auditoria
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "audit-worker",
		Topic:    cfg.TopicRoundSettled,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicRoundSettledDLQ != "" {
		dlqWriter = kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettledDLQ)
		defer dlqWriter.Close()
	}

	// Servidor HTTP para métricas Prometheus e healthcheck
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			if err := pg.PingContext(ctx); err != nil {
				http.Error(w, "pg", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := ":" + cfg.MetricsPort
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mux)
	}()

	log.Info("audit-worker started", zap.String("consume", cfg.TopicRoundSettled))

	ctx := context.Background()

	// Loop principal: cada round_settled vira uma linha de auditoria.
	// Mensagem inválida ou insert com falha repetida vai para a DLQ.
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled events.RoundSettled
		if jerr := json.Unmarshal(msg.Value, &settled); jerr != nil {
			log.Error("unmarshal round_settled", zap.Error(jerr))
			deadLetter(ctx, log, dlqWriter, msg.Key, msg.Value)
			continue
		}

		if err := recordRound(ctx, pg, &settled, msg.Value); err != nil {
			log.Error("record round", zap.String("roundId", settled.RoundID), zap.Error(err))
			// Retry simples antes de desistir
			const retries = 3
			for i := 0; i < retries; i++ {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				if err = recordRound(ctx, pg, &settled, msg.Value); err == nil {
					break
				}
			}
			if err != nil {
				deadLetter(ctx, log, dlqWriter, msg.Key, msg.Value)
				continue
			}
		}
		auditRecorded.Inc()
	}
}

// recordRound grava a liquidação no banco. O upsert por round_id torna o
// consumo idempotente em caso de reentrega.
func recordRound(ctx context.Context, pg *sql.DB, s *events.RoundSettled, raw []byte) error {
	_, err := pg.ExecContext(ctx, `
		INSERT INTO round_audit (round_id, dice_results, total_winners, total_payout, settled_at, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW())
		ON CONFLICT (round_id) DO NOTHING`,
		s.RoundID,
		pq.Array(s.DiceResults[:]),
		len(s.Winners),
		s.TotalPayout,
		s.Ts,
		raw,
	)
	return err
}

func deadLetter(ctx context.Context, log *zap.Logger, w *kafkago.Writer, key, value []byte) {
	if w == nil {
		return
	}
	if err := kafka.WriteJSON(ctx, w, string(key), value); err != nil {
		log.Error("dlq write", zap.Error(err))
		return
	}
	auditDeadLettered.Inc()
}
