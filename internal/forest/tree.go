package forest

import (
	"math/rand/v2"
	"sort"
)

const leaf = -1

// node is a flattened CART node. Leaves have feature == leaf.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	prob      float64 // fraction of class 1 among the node's samples
}

type tree struct {
	nodes []node
}

func (t *tree) predictProba(x []float64) float64 {
	i := 0
	for {
		n := t.nodes[i]
		if n.feature == leaf {
			return n.prob
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

type treeBuilder struct {
	x           [][]float64
	y           []int
	maxFeatures int
	maxDepth    int
	minSplit    int
	rng         *rand.Rand
	nodes       []node
}

func growTree(x [][]float64, y []int, samples []int, cfg Config, maxFeatures int, rng *rand.Rand) *tree {
	b := &treeBuilder{
		x:           x,
		y:           y,
		maxFeatures: maxFeatures,
		maxDepth:    cfg.MaxDepth,
		minSplit:    cfg.MinSamplesSplit,
		rng:         rng,
	}
	b.build(samples, 0)
	return &tree{nodes: b.nodes}
}

// build appends the subtree for samples and returns its root index.
func (b *treeBuilder) build(samples []int, depth int) int {
	positives := 0
	for _, s := range samples {
		positives += b.y[s]
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node{
		feature: leaf,
		prob:    float64(positives) / float64(len(samples)),
	})

	if positives == 0 || positives == len(samples) || len(samples) < b.minSplit {
		return idx
	}
	if b.maxDepth > 0 && depth >= b.maxDepth {
		return idx
	}

	feature, threshold, ok := b.bestSplit(samples, positives)
	if !ok {
		return idx
	}

	var left, right []int
	for _, s := range samples {
		if b.x[s][feature] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].feature = feature
	b.nodes[idx].threshold = threshold
	b.nodes[idx].left = l
	b.nodes[idx].right = r
	return idx
}

// bestSplit evaluates maxFeatures randomly drawn features. When none of them
// reduces impurity it keeps drawing from the remaining features.
func (b *treeBuilder) bestSplit(samples []int, positives int) (int, float64, bool) {
	nFeatures := len(b.x[0])
	order := b.rng.Perm(nFeatures)

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	sorted := make([]int, len(samples))
	for tried, f := range order {
		if tried >= b.maxFeatures && bestFeature >= 0 {
			break
		}
		copy(sorted, samples)
		threshold, gain, ok := b.splitFeature(sorted, f, positives)
		if ok && gain > bestGain+1e-12 {
			bestFeature, bestThreshold, bestGain = f, threshold, gain
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// splitFeature sweeps the samples sorted on feature f and returns the
// midpoint threshold with the largest Gini decrease.
func (b *treeBuilder) splitFeature(sorted []int, f int, positives int) (float64, float64, bool) {
	sort.SliceStable(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

	n := len(sorted)
	parent := float64(n) * gini(positives, n)

	found := false
	var bestThreshold, bestGain float64
	leftPos := 0
	for i := 0; i < n-1; i++ {
		leftPos += b.y[sorted[i]]
		cur, next := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
		if cur == next {
			continue
		}
		nl, nr := i+1, n-i-1
		child := float64(nl)*gini(leftPos, nl) + float64(nr)*gini(positives-leftPos, nr)
		gain := parent - child
		if !found || gain > bestGain {
			found = true
			bestGain = gain
			bestThreshold = cur + (next-cur)/2
		}
	}
	return bestThreshold, bestGain, found
}

func gini(positives, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(positives) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
