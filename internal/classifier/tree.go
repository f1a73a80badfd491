package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// node is one decision-tree node, stored in a flat slice for persistence.
// Leaves carry the fraction of Diseased training samples that reached them.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Leaf      bool    `json:"leaf,omitempty"`
	Prob      float64 `json:"p"`
}

// tree is a binary CART classifier. Samples with x[Feature] <= Threshold go
// left.
type tree struct {
	Nodes []node `json:"nodes"`
}

// treeParams bounds tree growth.
type treeParams struct {
	maxDepth    int // 0 means unlimited
	minLeaf     int
	maxFeatures int
}

// predict walks x down to a leaf and returns its Diseased probability.
func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Prob
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder holds scratch state while growing one tree.
type treeBuilder struct {
	x      [][]float64
	y      []Label
	params treeParams
	rng    *rand.Rand

	nodes []node

	// scratch buffers reused across splits
	vals []float64
	inds []int
}

// fitTree grows a tree on the samples listed in idx (duplicates allowed, as
// produced by bootstrapping).
func fitTree(x [][]float64, y []Label, idx []int, p treeParams, rng *rand.Rand) *tree {
	b := &treeBuilder{
		x:      x,
		y:      y,
		params: p,
		rng:    rng,
		vals:   make([]float64, len(idx)),
		inds:   make([]int, len(idx)),
	}
	b.grow(idx, 0)
	return &tree{Nodes: b.nodes}
}

// grow appends the subtree for idx and returns its root index.
func (b *treeBuilder) grow(idx []int, depth int) int {
	pos := countDiseased(b.y, idx)
	self := len(b.nodes)
	b.nodes = append(b.nodes, node{Leaf: true, Prob: float64(pos) / float64(len(idx))})

	if pos == 0 || pos == len(idx) {
		return self
	}
	if b.params.maxDepth > 0 && depth >= b.params.maxDepth {
		return self
	}
	if len(idx) < 2*b.params.minLeaf {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx, pos)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	if len(left) == 0 || len(right) == 0 {
		return self
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

// bestSplit evaluates up to maxFeatures randomly chosen non-constant
// features and returns the split with the lowest weighted Gini impurity.
// ok is false when no candidate improves on the parent.
func (b *treeBuilder) bestSplit(idx []int, pos int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	best := gini(pos, n)

	vals := b.vals[:n]
	inds := b.inds[:n]

	nFeatures := len(b.x[idx[0]])
	visited := 0
	for _, f := range b.rng.Perm(nFeatures) {
		if visited >= b.params.maxFeatures {
			break
		}
		for k, i := range idx {
			vals[k] = b.x[i][f]
			inds[k] = i
		}
		floats.Argsort(vals, inds)
		// constant features do not count towards maxFeatures
		if vals[0] == vals[n-1] {
			continue
		}
		visited++

		leftPos := 0
		for k := 0; k < n-1; k++ {
			if b.y[inds[k]] == Diseased {
				leftPos++
			}
			nl := k + 1
			if vals[k] == vals[k+1] || nl < b.params.minLeaf || n-nl < b.params.minLeaf {
				continue
			}
			nr := n - nl
			score := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
			if score < best-1e-12 {
				best = score
				feature = f
				threshold = vals[k] + (vals[k+1]-vals[k])/2
				if threshold >= vals[k+1] {
					threshold = vals[k]
				}
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// gini is the Gini impurity of a node with pos Diseased samples out of n.
func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

func countDiseased(y []Label, idx []int) int {
	c := 0
	for _, i := range idx {
		if y[i] == Diseased {
			c++
		}
	}
	return c
}

// defaultMaxFeatures is sqrt(n) rounded down, at least 1.
func defaultMaxFeatures(n int) int {
	m := int(math.Sqrt(float64(n)))
	if m < 1 {
		m = 1
	}
	return m
}
