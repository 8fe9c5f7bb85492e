package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/radieske/dice-arena-poc/internal/game"
)

// Seleção adversarial do resultado dos dados: a casa escolhe os 3 símbolos
// que minimizam o pagamento, sujeita às regras de elegibilidade. Não é um
// sorteio: para entradas iguais a saída é sempre a mesma.

type symbolStat struct {
	total   int64 // soma apostada no símbolo
	bettors int   // apostadores distintos
	score   float64
}

// computeStats calcula o score FC de cada símbolo:
// total*betWeight + apostadoresDistintos*playerWeight.
func computeStats(bets []*game.Bet, betWeight, playerWeight float64) [game.NumSymbols]symbolStat {
	var stats [game.NumSymbols]symbolStat
	var seen [game.NumSymbols]map[string]struct{}
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}
	for _, b := range bets {
		if !b.Symbol.Valid() {
			continue
		}
		stats[b.Symbol].total += b.Amount
		seen[b.Symbol][b.AccountID] = struct{}{}
	}
	for i := range stats {
		stats[i].bettors = len(seen[i])
		stats[i].score = float64(stats[i].total)*betWeight + float64(stats[i].bettors)*playerWeight
	}
	return stats
}

// eligibleSymbols aplica o limiar de percentil baixo e a exclusão dos
// vencedores da rodada anterior. Fallback em dois níveis quando o conjunto
// fica vazio: todos os não-vencedores-anteriores, senão o alfabeto inteiro
// (ambos mantidos na ordem de score, sem a ordenação de prioridade).
func eligibleSymbols(stats [game.NumSymbols]symbolStat, prev []game.Symbol, lowPercentile float64) []game.Symbol {
	ordered := make([]game.Symbol, 0, game.NumSymbols)
	for _, s := range game.AllSymbols() {
		ordered = append(ordered, s)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return stats[ordered[i]].score < stats[ordered[j]].score
	})

	idx := int(math.Floor(float64(game.NumSymbols) * lowPercentile))
	if idx >= len(ordered) {
		idx = len(ordered) - 1
	}
	threshold := stats[ordered[idx]].score

	var isPrev [game.NumSymbols]bool
	for _, s := range prev {
		if s.Valid() {
			isPrev[s] = true
		}
	}

	var eligible []game.Symbol
	for _, s := range ordered {
		if stats[s].score <= threshold && !isPrev[s] {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		var nonPrev []game.Symbol
		for _, s := range ordered {
			if !isPrev[s] {
				nonPrev = append(nonPrev, s)
			}
		}
		if len(nonPrev) == 0 {
			return ordered
		}
		return nonPrev
	}

	// prioridade (mais preferido primeiro): sem apostas > menos apostadores
	// > menor total apostado > menor score
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := stats[eligible[i]], stats[eligible[j]]
		if (a.total == 0) != (b.total == 0) {
			return a.total == 0
		}
		if a.bettors != b.bettors {
			return a.bettors < b.bettors
		}
		if a.total != b.total {
			return a.total < b.total
		}
		return a.score < b.score
	})
	return eligible
}

// buildOutcome monta os 3 dados a partir do conjunto elegível.
func buildOutcome(eligible []game.Symbol, stats [game.NumSymbols]symbolStat) game.Outcome {
	if len(eligible) == 0 {
		// os fallbacks de eligibleSymbols garantem lista não vazia
		return game.Outcome{game.Reindeer, game.Reindeer, game.Reindeer}
	}

	first := stats[eligible[0]].score
	allSame := true
	for _, s := range eligible {
		if stats[s].score != first {
			allSame = false
			break
		}
	}

	if allSame && len(eligible) > 1 {
		// empate geral: no máximo uma casa vencedora por símbolo
		var out game.Outcome
		n := len(eligible)
		if n > 3 {
			n = 3
		}
		for i := 0; i < n; i++ {
			out[i] = eligible[i]
		}
		for i := n; i < 3; i++ {
			out[i] = eligible[0]
		}
		return out
	}

	// caso geral: concentra as vitórias nos símbolos de menor pagamento
	byPayout := append([]game.Symbol(nil), eligible...)
	sort.SliceStable(byPayout, func(i, j int) bool {
		return stats[byPayout[i]].total < stats[byPayout[j]].total
	})

	best := byPayout[0]
	var out game.Outcome
	var used [game.NumSymbols]int
	out[0] = best
	used[best] = 1

	for i := 1; i < 3; i++ {
		chosen := best
		for _, s := range byPayout {
			if used[s] > 0 && used[s] < 3 {
				chosen = s
				break
			}
		}
		// regra de negócio assimétrica: quando a reutilização recai no melhor
		// símbolo, avança para o próximo da ordem de pagamento
		if chosen == best && len(byPayout) > 1 {
			k := i
			if k > len(byPayout)-1 {
				k = len(byPayout) - 1
			}
			chosen = byPayout[k]
		}
		out[i] = chosen
		used[chosen]++
	}
	return out
}

// PickOutcome escolhe o resultado ótimo para a casa dadas as apostas
// pendentes e os vencedores da rodada anterior.
func PickOutcome(bets []*game.Bet, prev []game.Symbol, cfg Config) game.Outcome {
	stats := computeStats(bets, cfg.BetWeight, cfg.PlayerWeight)
	eligible := eligibleSymbols(stats, prev, cfg.LowPercentile)
	return buildOutcome(eligible, stats)
}

// randomOutcome é o fallback uniforme quando as apostas não podem ser lidas.
func randomOutcome(r *rand.Rand) game.Outcome {
	var out game.Outcome
	for i := range out {
		out[i] = game.Symbol(r.Intn(game.NumSymbols))
	}
	return out
}
