package position

import (
	"math"
	"math/rand"
)

// ruinThreshold: a trial is ruined once capital drops below 10% of start.
const ruinThreshold = 0.10

type SimResult struct {
	GrowthRate float64 `json:"growth_rate"` // mean log-growth per round
	RuinProb   float64 `json:"ruin_prob"`
	Trials     int     `json:"trials"`
	Rounds     int     `json:"rounds"`
}

// Simulate estimates the long-run geometric growth rate and bankruptcy
// probability of betting a fixed fraction with the given edge. It is a
// validation aid for a chosen fraction, not part of the sizing decision.
// The seed is fixed by the caller so runs are reproducible.
func Simulate(edge EdgeStats, fraction float64, trials, rounds int, seed int64) SimResult {
	if trials <= 0 {
		trials = 1000
	}
	if rounds <= 0 {
		rounds = 200
	}
	rng := rand.New(rand.NewSource(seed))

	ruined := 0
	var logGrowthSum float64
	for t := 0; t < trials; t++ {
		capital := 1.0
		alive := true
		for r := 0; r < rounds; r++ {
			if rng.Float64() < edge.WinRate {
				capital *= 1 + fraction*edge.AvgWin
			} else {
				capital *= 1 - fraction*edge.AvgLoss
			}
			if capital < ruinThreshold {
				alive = false
				break
			}
		}
		if !alive {
			ruined++
			continue
		}
		logGrowthSum += math.Log(capital) / float64(rounds)
	}

	res := SimResult{Trials: trials, Rounds: rounds, RuinProb: float64(ruined) / float64(trials)}
	survivors := trials - ruined
	if survivors > 0 {
		res.GrowthRate = logGrowthSum / float64(survivors)
	}
	return res
}
