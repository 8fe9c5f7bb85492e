package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/dice-arena-poc/internal/game/broadcast"
	gcache "github.com/radieske/dice-arena-poc/internal/game/cache"
	"github.com/radieske/dice-arena-poc/internal/game/clock"
	"github.com/radieske/dice-arena-poc/internal/game/engine"
	ghttp "github.com/radieske/dice-arena-poc/internal/game/http"
	"github.com/radieske/dice-arena-poc/internal/game/ledger"
	kpub "github.com/radieske/dice-arena-poc/internal/game/producer"
	"github.com/radieske/dice-arena-poc/internal/game/store"
	"github.com/radieske/dice-arena-poc/internal/game/ws"
	sharedcache "github.com/radieske/dice-arena-poc/internal/shared/cache"
	"github.com/radieske/dice-arena-poc/internal/shared/config"
	"github.com/radieske/dice-arena-poc/internal/shared/db"
	"github.com/radieske/dice-arena-poc/internal/shared/kafka"
	"github.com/radieske/dice-arena-poc/internal/shared/logger"
	"github.com/radieske/dice-arena-poc/internal/shared/metrics"
	"github.com/radieske/dice-arena-poc/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("game-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Stores: Postgres quando tem DSN, memória no modo local
	var (
		accounts store.AccountStore
		bets     store.BetStore
		rounds   store.RoundStore
	)
	if cfg.PostgresDSN != "" {
		pg, err := db.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			log.Fatal("pg", zap.Error(err))
		}
		defer pg.Close()
		accounts = store.NewPostgresAccounts(pg)
		bets = store.NewPostgresBets(pg)
		rounds = store.NewPostgresRounds(pg)
	} else {
		log.Warn("POSTGRES_DSN empty, using in-memory stores")
		accounts = store.NewMemoryAccounts()
		bets = store.NewMemoryBets()
		rounds = store.NewMemoryRounds()
	}

	// Redis: broadcast de eventos + cache de fase
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writers (tópicos bet_placed e round_settled)
	betsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer betsWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundSettled)
	defer settledWriter.Close()
	publ := kpub.NewKafkaPublisher(betsWriter, settledWriter)

	stateCache := gcache.NewStateCache(rdb, time.Hour)

	// Métricas Prometheus do engine
	betsPlaced := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_bets_placed_total", Help: "apostas aceitas"})
	roundsSettled := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_rounds_settled_total", Help: "rodadas liquidadas"})
	oddsFallback := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_odds_fallback_total", Help: "degradações para sorteio uniforme"})
	settleErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "game_settlement_failures_total", Help: "apostas com falha de liquidação"})
	prometheus.MustRegister(betsPlaced, roundsSettled, oddsFallback, settleErrors)

	led := ledger.New(log, accounts, bets)
	eng := &engine.Engine{
		Log:      log,
		Cfg:      engineConfig(cfg),
		Clk:      clock.NewSystem(),
		Ledger:   led,
		Accounts: accounts,
		Rounds:   rounds,
		Bcast:    broadcast.NewRedis(log, rdb, cfg.RedisPubSubChannel),
		Hooks: engine.Hooks{
			OnStateChange: func(ev events.RoundState) {
				cctx, ccancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer ccancel()
				if err := stateCache.SetCurrent(cctx, ev); err != nil {
					log.Warn("state cache set failed", zap.Error(err))
				}
			},
			OnBetPlaced: func(ev events.BetPlaced) {
				betsPlaced.Inc()
				pctx, pcancel := context.WithTimeout(context.Background(), time.Second)
				defer pcancel()
				if err := publ.PublishBetPlaced(pctx, ev); err != nil {
					log.Warn("publish bet_placed failed", zap.Error(err))
				}
			},
			OnSettled: func(ev events.RoundSettled) {
				roundsSettled.Inc()
				pctx, pcancel := context.WithTimeout(context.Background(), time.Second)
				defer pcancel()
				if err := publ.PublishRoundSettled(pctx, ev); err != nil {
					log.Warn("publish round_settled failed", zap.Error(err))
				}
			},
			OnOddsFallback:      func() { oddsFallback.Inc() },
			OnSettlementFailure: func(n int) { settleErrors.Add(float64(n)) },
		},
	}
	if err := eng.Start(ctx); err != nil {
		log.Fatal("engine start", zap.Error(err))
	}
	defer eng.Stop()

	// Hub WebSocket alimentado pelo canal Redis Pub/Sub do engine
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	// HTTP público: API + WS
	api := ghttp.NewServer(log, eng)
	mux := http.NewServeMux()
	mux.Handle("/", api.Router())
	mux.HandleFunc("/ws", hub.HandleWS)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: mux,
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(hctx context.Context) error {
		return rdb.Ping(hctx).Err()
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = apiSrv.Shutdown(sctx)
	}()

	log.Info("game-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("game-service stopped")
}

// engineConfig converte a configuração de ambiente para a do engine
func engineConfig(cfg config.Config) engine.Config {
	return engine.Config{
		BettingDuration: time.Duration(cfg.BettingSeconds) * time.Second,
		RollingDelay:    time.Duration(cfg.RollingSeconds) * time.Second,
		ResultsDisplay:  time.Duration(cfg.ResultsSeconds) * time.Second,
		MinBet:          cfg.MinBet,
		MaxBet:          cfg.MaxBet,
		LowPercentile:   cfg.LowPercentile,
		BetWeight:       cfg.BetWeight,
		PlayerWeight:    cfg.PlayerWeight,
		StartingBalance: cfg.StartingBalance,
		HistoryLimit:    cfg.HistoryLimit,
	}
}
