package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/leafscan/internal/features"
	"github.com/ironsheep/leafscan/internal/imaging"
)

var (
	// ErrDatasetLayout is returned when the dataset root lacks a class
	// subdirectory.
	ErrDatasetLayout = errors.New("dataset must contain healthy/ and diseased/ subdirectories")

	// ErrEmptyDataset is returned when no usable examples remain.
	ErrEmptyDataset = errors.New("dataset has no usable images")
)

// Example is one labeled descriptor.
type Example struct {
	Path       string
	Descriptor features.Descriptor
	Label      Label
}

// SkippedFile records a dataset file that could not be used.
type SkippedFile struct {
	Path string
	Err  error
}

// Dataset is the result of scanning a dataset directory. Examples are in
// class order (healthy first) and then by file name.
type Dataset struct {
	Root     string
	Examples []Example
	Skipped  []SkippedFile
}

// Counts returns the number of examples per label.
func (d *Dataset) Counts() (healthy, diseased int) {
	for _, e := range d.Examples {
		if e.Label == Diseased {
			diseased++
		} else {
			healthy++
		}
	}
	return healthy, diseased
}

// LoadDataset scans root/healthy and root/diseased and extracts one
// descriptor per file. Files are decoded concurrently; hidden files and
// subdirectories are ignored. A file that fails to decode is logged and
// recorded in Dataset.Skipped rather than failing the load.
func LoadDataset(ctx context.Context, root string, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()

	var paths []string
	var labels []Label
	for _, label := range []Label{Healthy, Diseased} {
		dir := filepath.Join(root, label.Dir())
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%w: missing %s", ErrDatasetLayout, dir)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			paths = append(paths, filepath.Join(dir, e.Name()))
			labels = append(labels, label)
		}
	}

	descs := make([]features.Descriptor, len(paths))
	errs := make([]error, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range paths {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			descs[i], errs[i] = extract(paths[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading dataset: %w", err)
	}

	ds := &Dataset{Root: root, Examples: make([]Example, 0, len(paths))}
	for i, p := range paths {
		if errs[i] != nil {
			opts.Logger.Printf("skipping %s: %v", p, errs[i])
			ds.Skipped = append(ds.Skipped, SkippedFile{Path: p, Err: errs[i]})
			continue
		}
		ds.Examples = append(ds.Examples, Example{Path: p, Descriptor: descs[i], Label: labels[i]})
	}

	h, d := ds.Counts()
	opts.Logger.Printf("dataset %s: %d healthy, %d diseased, %d skipped", root, h, d, len(ds.Skipped))
	return ds, nil
}

// extract decodes one training image and computes its descriptor from the
// full-resolution pixels.
func extract(path string) (features.Descriptor, error) {
	img, err := imaging.Load(path)
	if err != nil {
		return features.Descriptor{}, err
	}
	return features.ExtractColorDescriptor(img)
}

// Split shuffles examples with the given seed and holds out
// ceil(len*testFraction) of them for evaluation. The input slice is not
// modified.
func Split(examples []Example, testFraction float64, seed int64) (train, test []Example) {
	n := len(examples)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest > n {
		nTest = n
	}
	if nTest < 0 {
		nTest = 0
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	test = make([]Example, 0, nTest)
	train = make([]Example, 0, n-nTest)
	for k, i := range perm {
		if k < nTest {
			test = append(test, examples[i])
		} else {
			train = append(train, examples[i])
		}
	}
	return train, test
}
