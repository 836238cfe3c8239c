// Package forest implements a seeded random-forest binary classifier: CART
// trees grown on bootstrap samples with Gini impurity and a random subset of
// features per split. Identical input and seed yield identical models.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Config controls forest construction.
type Config struct {
	Trees int
	Seed  uint64
	// MaxFeatures is the number of features drawn per split; 0 means sqrt(p).
	MaxFeatures int
	// MaxDepth limits tree depth; 0 grows until leaves are pure.
	MaxDepth        int
	MinSamplesSplit int
}

// DefaultConfig returns 100 fully grown trees seeded with 42.
func DefaultConfig() Config {
	return Config{Trees: 100, Seed: 42, MinSamplesSplit: 2}
}

// Forest is a trained ensemble.
type Forest struct {
	trees     []*tree
	nFeatures int
}

// Fit trains a forest on the rows of x labelled by y (0 or 1).
func Fit(x [][]float64, y []int, cfg Config) (*Forest, error) {
	if len(x) == 0 {
		return nil, errors.New("fit forest: no samples")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit forest: %d samples but %d labels", len(x), len(y))
	}
	if cfg.Trees < 1 {
		return nil, fmt.Errorf("fit forest: invalid tree count %d", cfg.Trees)
	}
	nFeatures := len(x[0])
	if nFeatures == 0 {
		return nil, errors.New("fit forest: no features")
	}
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("fit forest: row %d has %d features, want %d", i, len(row), nFeatures)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("fit forest: label %d at row %d is not binary", label, i)
		}
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}

	maxFeatures := cfg.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(nFeatures))))
	}
	maxFeatures = min(maxFeatures, nFeatures)

	master := newRand(cfg.Seed)
	f := &Forest{trees: make([]*tree, cfg.Trees), nFeatures: nFeatures}
	n := len(x)
	for t := range f.trees {
		rng := newRand(master.Uint64())
		bootstrap := make([]int, n)
		for i := range bootstrap {
			bootstrap[i] = rng.IntN(n)
		}
		f.trees[t] = growTree(x, y, bootstrap, cfg, maxFeatures, rng)
	}
	return f, nil
}

// PredictProba returns the mean class-1 probability across trees.
func (f *Forest) PredictProba(x []float64) float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predictProba(x)
	}
	return sum / float64(len(f.trees))
}

// Predict returns 1 when the class-1 probability exceeds one half.
func (f *Forest) Predict(x []float64) int {
	if f.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}

// NumFeatures is the width of the rows the forest was trained on.
func (f *Forest) NumFeatures() int { return f.nFeatures }

// NumTrees is the ensemble size.
func (f *Forest) NumTrees() int { return len(f.trees) }

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
