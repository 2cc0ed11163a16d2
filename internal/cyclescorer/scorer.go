// Package cyclescorer implements CycleScorer (spec.md 4.5): a weighted
// combination of fairness, length penalty, and directness, producing a
// score in [0,1].
package cyclescorer

import (
	"github.com/barterloop/matchingengine/domain/trade"
	"github.com/barterloop/matchingengine/internal/tenant"
)

// LengthPenaltyAlpha is the default decay rate for the length-penalty term,
// spec.md 4.5's "α configurable (default 0.15)".
const LengthPenaltyAlpha = 0.15

// CollectionDecay is the default per-collection-edge directness decay,
// spec.md 4.5's "default decay 0.1 per such edge".
const CollectionDecay = 0.1

func valueHintOf(it trade.Item) float64 {
	if it.ValueHint != nil {
		return *it.ValueHint
	}
	return 1.0
}

// fairness is the ratio of the minimum to maximum per-step value hint
// across the cycle, missing hints treated as neutral 1.0.
func fairness(steps []trade.CycleStep) float64 {
	min, max := -1.0, -1.0
	for _, step := range steps {
		for _, it := range step.Items {
			v := valueHintOf(it)
			if min < 0 || v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if max <= 0 {
		return 1.0
	}
	return min / max
}

// lengthPenalty favors shorter loops: 1 / (1 + alpha*(k-2)).
func lengthPenalty(k int, alpha float64) float64 {
	return 1.0 / (1.0 + alpha*float64(k-2))
}

// directness is 1.0 when every step is a direct want, decaying by decay for
// each step satisfied only via a collection want.
func directness(steps []trade.CycleStep, decay float64) float64 {
	collectionSteps := 0
	for _, step := range steps {
		if step.CollectionTrade {
			collectionSteps++
		}
	}
	score := 1.0 - decay*float64(collectionSteps)
	if score < 0 {
		score = 0
	}
	return score
}

// Score computes the weighted cycle score per spec.md 4.5, using weights
// from the owning tenant's config.
func Score(steps []trade.CycleStep, weights tenant.ScoreWeights) float64 {
	f := fairness(steps)
	l := lengthPenalty(len(steps), LengthPenaltyAlpha)
	d := directness(steps, CollectionDecay)

	total := weights.Fairness + weights.Length + weights.Directness
	if total <= 0 {
		return 0
	}
	weighted := weights.Fairness*f + weights.Length*l + weights.Directness*d
	score := weighted / total
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
