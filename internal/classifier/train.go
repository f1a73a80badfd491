package classifier

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TrainResult summarizes a training run.
type TrainResult struct {
	Model     *Forest
	TrainSize int
	TestSize  int
	Skipped   int

	// Accuracy is the fraction of held-out examples classified correctly.
	// It is NaN when nothing was held out.
	Accuracy float64
	Elapsed  time.Duration

	// Metadata is what TrainAndSave wrote alongside the model.
	Metadata Metadata
}

// Train splits the dataset, fits a forest on the training part and
// measures accuracy on the held-out part.
func Train(ctx context.Context, ds *Dataset, opts Options) (*TrainResult, error) {
	if ds == nil || len(ds.Examples) == 0 {
		return nil, ErrEmptyDataset
	}
	opts = opts.withDefaults()
	start := time.Now()

	train, test := Split(ds.Examples, opts.TestFraction, opts.Seed)
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: %d examples leave nothing to train on", ErrEmptyDataset, len(ds.Examples))
	}

	model, err := Fit(ctx, train, opts)
	if err != nil {
		return nil, err
	}

	res := &TrainResult{
		Model:     model,
		TrainSize: len(train),
		TestSize:  len(test),
		Skipped:   len(ds.Skipped),
		Accuracy:  Accuracy(model, test),
		Elapsed:   time.Since(start),
	}
	opts.Logger.Printf("trained %d trees on %d examples in %v, test accuracy %.4f",
		model.Trees(), res.TrainSize, res.Elapsed, res.Accuracy)
	return res, nil
}

// Accuracy returns the fraction of examples m labels correctly, or NaN for
// an empty slice.
func Accuracy(m Model, examples []Example) float64 {
	correct := make([]float64, len(examples))
	for i := range examples {
		if m.Predict(examples[i].Descriptor) == examples[i].Label {
			correct[i] = 1
		}
	}
	return stat.Mean(correct, nil)
}

// TrainAndSave loads the dataset under root, trains, and writes the model
// to path, replacing any existing artifact. The model is saved whatever its
// accuracy.
func TrainAndSave(ctx context.Context, root, path string, opts Options) (*TrainResult, error) {
	ds, err := LoadDataset(ctx, root, opts)
	if err != nil {
		return nil, err
	}
	res, err := Train(ctx, ds, opts)
	if err != nil {
		return nil, err
	}
	meta := Metadata{
		TrainedAt: time.Now().UTC(),
		TrainSize: res.TrainSize,
		TestSize:  res.TestSize,
		Accuracy:  res.Accuracy,
		Seed:      opts.Seed,
	}
	if err := Save(res.Model, meta, path); err != nil {
		return nil, err
	}
	res.Metadata = meta
	return res, nil
}
