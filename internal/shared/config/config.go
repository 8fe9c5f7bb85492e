package config

import (
	"os"
	"strconv"

	ctopics "github.com/radieske/dice-arena-poc/pkg/contracts/topics"
)

// Config centraliza variáveis de ambiente e parâmetros de execução dos serviços
// Inclui conexões, tópicos, canais, portas e os parâmetros do jogo
type Config struct {
	Env         string // "local", "dev", "prod"
	ServiceName string // "game-service" | "audit-worker"

	PostgresDSN  string // vazio = stores em memória (modo local)
	RedisAddr    string
	KafkaBrokers string // "a:9092,b:9092"

	// Tópicos/canais
	TopicBetPlaced       string
	TopicRoundSettled    string
	TopicRoundSettledDLQ string
	RedisPubSubChannel   string

	// Portas do serviço atual
	HTTPPort    string // Porta pública (API + WS)
	MetricsPort string // Porta exclusiva para /metrics e /healthz

	// Parâmetros do jogo
	BettingSeconds  int // duração da janela de apostas
	RollingSeconds  int // atraso da animação antes do resultado
	ResultsSeconds  int // exibição do resultado antes de voltar a waiting
	MinBet          int64
	MaxBet          int64
	LowPercentile   float64 // percentil baixo do limiar de elegibilidade
	BetWeight       float64 // peso do total apostado no score FC
	PlayerWeight    float64 // peso de apostadores distintos no score FC
	StartingBalance int64   // saldo de conta nova
	HistoryLimit    int
}

// Load carrega variáveis de ambiente e define defaults para cada serviço
func Load() Config {
	svc := getEnv("SERVICE_NAME", "")
	env := getEnv("ENV", "local")

	cfg := Config{
		Env:         env,
		ServiceName: svc,

		PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),

		TopicBetPlaced:       getEnv("KAFKA_TOPIC_BET_PLACED", ctopics.BetPlaced),
		TopicRoundSettled:    getEnv("KAFKA_TOPIC_ROUND_SETTLED", ctopics.RoundSettled),
		TopicRoundSettledDLQ: getEnv("KAFKA_TOPIC_ROUND_SETTLED_DLQ", ctopics.RoundSettledDLQ),

		RedisPubSubChannel: getEnv("REDIS_PUBSUB_CHANNEL", "game_events_broadcast"),

		BettingSeconds:  getEnvInt("BETTING_TIMER", 30),
		RollingSeconds:  getEnvInt("ROLLING_TIMER", 3),
		ResultsSeconds:  getEnvInt("RESULTS_TIMER", 5),
		MinBet:          int64(getEnvInt("MIN_BET", 1)),
		MaxBet:          int64(getEnvInt("MAX_BET", 1000)),
		LowPercentile:   getEnvFloat("LOW_BET_PERCENTAGE", 0.1),
		BetWeight:       getEnvFloat("FC_BET_AMOUNT_WEIGHT", 1.0),
		PlayerWeight:    getEnvFloat("FC_PLAYER_COUNT_WEIGHT", 100),
		StartingBalance: int64(getEnvInt("INITIAL_BALANCE", 10000)),
		HistoryLimit:    getEnvInt("HISTORY_LIMIT", 10),
	}

	// Define portas padrão para cada serviço
	switch svc {
	case "audit-worker":
		cfg.HTTPPort = getEnv("HTTP_PORT_AUDIT", "") // worker não expõe HTTP público
		cfg.MetricsPort = getEnv("METRICS_PORT_AUDIT", "9091")
	default: // game-service
		cfg.HTTPPort = getEnv("HTTP_PORT", "8080")
		cfg.MetricsPort = getEnv("METRICS_PORT", "9090")
	}

	return cfg
}

// getEnv retorna o valor da variável de ambiente ou o default
func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
