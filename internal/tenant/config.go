package tenant

import "time"

// ScoreWeights weights the three signals CycleScorer combines (spec.md 4.5).
type ScoreWeights struct {
	Fairness   float64
	Length     float64
	Directness float64
}

// DefaultScoreWeights matches spec.md's equal-weighting default.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Fairness: 1.0, Length: 1.0, Directness: 1.0}
}

// EnumerationBudget bounds a single CycleEngine pass (spec.md 4.4.5).
type EnumerationBudget struct {
	TimeMs int
	Nodes  int
	Cycles int
}

// DefaultEnumerationBudget is a conservative default sized for interactive use.
func DefaultEnumerationBudget() EnumerationBudget {
	return EnumerationBudget{TimeMs: 500, Nodes: 200000, Cycles: 5000}
}

// Config is the fixed per-tenant option set from spec.md 4.1, extended with
// the resource-model bounds spec.md 5 reserves (maxOwners, maxItems,
// maxCyclesStored) without enumerating them alongside the rest — both lists
// are honored here as a single config struct.
type Config struct {
	MaxCycleLength     int
	MaxItemCombos      int
	MaxCyclesPerRequest int
	MinCycleScore      float64
	CycleTTL           time.Duration
	EnumerationBudget  EnumerationBudget
	ScoreWeights       ScoreWeights
	EnablePersistence  bool

	MaxOwners       int
	MaxItems        int
	MaxCyclesStored int
}

// DefaultConfig returns the engine's documented defaults (spec.md 3 invariant iv,
// 4.4.3, 4.5).
func DefaultConfig() Config {
	return Config{
		MaxCycleLength:      11,
		MaxItemCombos:       4,
		MaxCyclesPerRequest: 100,
		MinCycleScore:       0,
		CycleTTL:            30 * time.Minute,
		EnumerationBudget:   DefaultEnumerationBudget(),
		ScoreWeights:        DefaultScoreWeights(),
		EnablePersistence:   false,
		MaxOwners:           100000,
		MaxItems:            1000000,
		MaxCyclesStored:     100000,
	}
}

// Validate checks the fixed invariants spec.md 4.1 names on the config set.
func (c Config) Validate() error {
	if c.MaxCycleLength < 2 {
		return errInvalidConfig("maxCycleLength must be >= 2")
	}
	if c.MaxCyclesPerRequest < 1 {
		return errInvalidConfig("maxCyclesPerRequest must be >= 1")
	}
	if c.MinCycleScore < 0 || c.MinCycleScore > 1 {
		return errInvalidConfig("minCycleScore must be within [0,1]")
	}
	if c.MaxItemCombos < 1 {
		return errInvalidConfig("maxItemCombos must be >= 1")
	}
	return nil
}
