package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestParams controls FitForest.
type ForestParams struct {
	Trees       int
	MaxDepth    int // 0 = grow until pure or MinLeafSize
	MinLeafSize int
	MaxFeatures int // features tried per split; 0 = sqrt(features)
	Seed        uint64
	Workers     int
}

// DefaultForestParams mirrors the usual random-forest defaults: 100 trees,
// unlimited depth, sqrt(features) candidates per split.
func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 100, MinLeafSize: 1, Seed: 42, Workers: 4}
}

// Node is one node of a decision tree. Leaves have Feature == -1 and carry
// the class distribution of their training samples.
type Node struct {
	Feature   int       `msgpack:"f"`
	Threshold float64   `msgpack:"t"`
	Left      int       `msgpack:"l"`
	Right     int       `msgpack:"r"`
	Value     []float64 `msgpack:"v,omitempty"`
}

// Tree is a flattened decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `msgpack:"nodes"`
}

// RandomForest is a bagged ensemble of CART trees. Its probability for a
// class is the mean of the leaf distributions reached in every tree.
type RandomForest struct {
	ClassNames []string `msgpack:"classes"`
	NFeatures  int      `msgpack:"features"`
	Trees      []Tree   `msgpack:"trees"`
}

func (f *RandomForest) Classes() []string { return slices.Clone(f.ClassNames) }

func (f *RandomForest) Features() int { return f.NFeatures }

// PredictProba returns one probability per class in Classes order.
func (f *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if err := checkWidth("random forest", f.NFeatures, x); err != nil {
		return nil, err
	}
	proba := make([]float64, len(f.ClassNames))
	for _, tree := range f.Trees {
		leaf := tree.leaf(x)
		for c, p := range leaf.Value {
			proba[c] += p
		}
	}
	if len(f.Trees) > 0 {
		for c := range proba {
			proba[c] /= float64(len(f.Trees))
		}
	}
	return proba, nil
}

// Predict returns the most probable class; ties go to the earlier class.
func (f *RandomForest) Predict(x []float64) (string, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return "", err
	}
	best := 0
	for c, p := range proba {
		if p > proba[best] {
			best = c
		}
	}
	return f.ClassNames[best], nil
}

func (t *Tree) leaf(x []float64) *Node {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		if x[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

// Validate checks internal consistency after decoding.
func (f *RandomForest) Validate() error {
	if len(f.ClassNames) == 0 {
		return fmt.Errorf("random forest has no classes")
	}
	if f.NFeatures <= 0 {
		return fmt.Errorf("random forest has no features")
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("random forest has no trees")
	}
	for ti, tree := range f.Trees {
		if len(tree.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range tree.Nodes {
			if n.Feature < 0 {
				if len(n.Value) != len(f.ClassNames) {
					return fmt.Errorf("tree %d leaf %d has %d class values, want %d", ti, ni, len(n.Value), len(f.ClassNames))
				}
				continue
			}
			// children always follow their parent, so walks terminate
			if n.Feature >= f.NFeatures || n.Left <= ni || n.Right <= ni ||
				n.Left >= len(tree.Nodes) || n.Right >= len(tree.Nodes) {
				return fmt.Errorf("tree %d node %d is malformed", ti, ni)
			}
		}
	}
	return nil
}

// FitForest trains a forest on rows X labelled y. Classes are ordered by
// name; that order is the forest's native class order.
func FitForest(ctx context.Context, X [][]float64, y []string, p ForestParams) (*RandomForest, error) {
	width, err := checkMatrix("random forest", X)
	if err != nil {
		return nil, err
	}
	if len(y) != len(X) {
		return nil, &FitError{Model: "random forest", Reason: fmt.Sprintf("%d samples but %d labels", len(X), len(y))}
	}
	if p.Trees < 1 {
		return nil, &FitError{Model: "random forest", Reason: "need at least one tree"}
	}

	classes := slices.Clone(y)
	slices.Sort(classes)
	classes = slices.Compact(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	labels := make([]int, len(y))
	for i, c := range y {
		labels[i] = index[c]
	}

	mtry := p.MaxFeatures
	if mtry <= 0 {
		mtry = max(1, int(math.Sqrt(float64(width))))
	}
	mtry = min(mtry, width)

	forest := &RandomForest{
		ClassNames: classes,
		NFeatures:  width,
		Trees:      make([]Tree, p.Trees),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Workers))
	for i := range p.Trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := &treeBuilder{
				X:        X,
				labels:   labels,
				classes:  len(classes),
				mtry:     mtry,
				maxDepth: p.MaxDepth,
				minLeaf:  max(1, p.MinLeafSize),
				rng:      rand.New(rand.NewPCG(p.Seed, uint64(i))),
			}
			forest.Trees[i] = b.build()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

type treeBuilder struct {
	X        [][]float64
	labels   []int
	classes  int
	mtry     int
	maxDepth int
	minLeaf  int
	rng      *rand.Rand

	nodes []Node
}

func (b *treeBuilder) build() Tree {
	n := len(b.X)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = b.rng.IntN(n)
	}
	b.grow(sample, 0)
	return Tree{Nodes: b.nodes}
}

// grow appends the subtree for sample and returns its node index.
func (b *treeBuilder) grow(sample []int, depth int) int {
	counts := make([]float64, b.classes)
	for _, i := range sample {
		counts[b.labels[i]]++
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	pure := slices.Max(counts) == float64(len(sample))
	if pure || len(sample) < 2*b.minLeaf || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[idx].Value = normalise(counts)
		return idx
	}

	feature, threshold, ok := b.bestSplit(sample, counts)
	if !ok {
		b.nodes[idx].Value = normalise(counts)
		return idx
	}

	var left, right []int
	for _, i := range sample {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

// bestSplit tries mtry random features and returns the split with the lowest
// weighted Gini impurity. Candidate features that are constant within the
// sample do not count towards mtry.
func (b *treeBuilder) bestSplit(sample []int, total []float64) (int, float64, bool) {
	width := len(b.X[0])
	order := b.rng.Perm(width)

	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0
	tried := 0

	sorted := slices.Clone(sample)
	left := make([]float64, b.classes)
	n := float64(len(sample))

	for _, f := range order {
		if tried >= b.mtry && bestFeature >= 0 {
			break
		}
		sort.Slice(sorted, func(i, j int) bool { return b.X[sorted[i]][f] < b.X[sorted[j]][f] })
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		tried++

		clear(left)
		for k := 0; k < len(sorted)-1; k++ {
			left[b.labels[sorted[k]]]++
			lo, hi := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			nl := float64(k + 1)
			if lo == hi || int(nl) < b.minLeaf || len(sorted)-int(nl) < b.minLeaf {
				continue
			}
			score := nl*gini(left, nl) + (n-nl)*giniRest(total, left, n-nl)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(counts []float64, n float64) float64 {
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func giniRest(total, left []float64, n float64) float64 {
	sum := 0.0
	for c := range total {
		p := (total[c] - left[c]) / n
		sum += p * p
	}
	return 1 - sum
}

func normalise(counts []float64) []float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / total
	}
	return out
}
