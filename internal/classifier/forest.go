package classifier

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/leafscan/internal/features"
)

// ErrDescriptorLength is returned when a raw feature vector does not have
// features.DescriptorLen elements.
var ErrDescriptorLength = features.ErrDescriptorLength

// Model predicts a leaf health label from a color descriptor.
type Model interface {
	// Predict returns the most likely label for d.
	Predict(d features.Descriptor) Label
	// PredictProba returns the estimated probability that d is Diseased.
	PredictProba(d features.Descriptor) float64
}

// Options controls forest training.
type Options struct {
	Trees    int   // number of trees; default 100
	MaxDepth int   // 0 grows trees until leaves are pure
	MinLeaf  int   // minimum samples per leaf; default 1
	Seed     int64 // seeds bootstrapping, feature sampling and the split

	// TestFraction is the share of examples held out for evaluation.
	// Values outside (0,1) mean 0.2.
	TestFraction float64

	// Workers bounds concurrent tree fitting and feature extraction.
	// Zero means runtime.NumCPU().
	Workers int

	// Logger receives progress and skip messages. Nil means log.Default().
	Logger *log.Logger
}

// DefaultOptions returns the baseline training settings.
func DefaultOptions() Options {
	return Options{
		Trees:        100,
		MinLeaf:      1,
		Seed:         42,
		TestFraction: 0.2,
	}
}

func (o Options) withDefaults() Options {
	if o.Trees <= 0 {
		o.Trees = 100
	}
	if o.MinLeaf <= 0 {
		o.MinLeaf = 1
	}
	if o.TestFraction <= 0 || o.TestFraction >= 1 {
		o.TestFraction = 0.2
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Forest is a random forest of CART trees. A fitted Forest is read-only and
// safe for concurrent use.
type Forest struct {
	trees    []*tree
	features int
}

// Fit trains a forest on the given examples. Each tree draws its own
// bootstrap sample and feature subsets from a generator seeded from
// opts.Seed, so the result does not depend on scheduling.
func Fit(ctx context.Context, examples []Example, opts Options) (*Forest, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyDataset
	}
	opts = opts.withDefaults()

	x := make([][]float64, len(examples))
	y := make([]Label, len(examples))
	for i := range examples {
		x[i] = examples[i].Descriptor[:]
		y[i] = examples[i].Label
	}

	params := treeParams{
		maxDepth:    opts.MaxDepth,
		minLeaf:     opts.MinLeaf,
		maxFeatures: defaultMaxFeatures(features.DescriptorLen),
	}

	master := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*tree, opts.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range trees {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, len(x))
			for k := range idx {
				idx[k] = rng.Intn(len(x))
			}
			trees[i] = fitTree(x, y, idx, params, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fitting forest: %w", err)
	}

	return &Forest{trees: trees, features: features.DescriptorLen}, nil
}

// Trees returns the number of trees in the forest.
func (f *Forest) Trees() int {
	return len(f.trees)
}

// PredictProba averages the per-tree Diseased probabilities.
func (f *Forest) PredictProba(d features.Descriptor) float64 {
	votes := make([]float64, len(f.trees))
	for i, t := range f.trees {
		votes[i] = t.predict(d[:])
	}
	return stat.Mean(votes, nil)
}

// Predict returns Diseased when more than half the forest's probability
// mass says so.
func (f *Forest) Predict(d features.Descriptor) Label {
	if f.PredictProba(d) > 0.5 {
		return Diseased
	}
	return Healthy
}

// PredictSlice is Predict for a raw feature vector.
func PredictSlice(m Model, v []float64) (Label, error) {
	d, err := features.FromSlice(v)
	if err != nil {
		return 0, err
	}
	return m.Predict(d), nil
}
