package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/ironsheep/leafscan/internal/features"
)

// ErrModelLoad is returned when a model artifact is missing or corrupt.
var ErrModelLoad = errors.New("cannot load model")

const (
	artifactFormat  = "leafscan-forest"
	artifactVersion = 1
)

// Metadata describes how a persisted model was trained.
type Metadata struct {
	TrainedAt time.Time
	TrainSize int
	TestSize  int
	Accuracy  float64 // NaN when unknown
	Seed      int64
}

type artifact struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Features  int       `json:"features"`
	Classes   []string  `json:"classes"`
	TrainedAt time.Time `json:"trained_at"`
	TrainSize int       `json:"train_size"`
	TestSize  int       `json:"test_size"`
	Accuracy  *float64  `json:"accuracy,omitempty"`
	Seed      int64     `json:"seed"`
	Trees     []*tree   `json:"trees"`
}

// Save writes f to path as JSON. The file is written to a temporary name in
// the same directory and renamed into place, so readers never see a partial
// artifact and any previous model is replaced.
func Save(f *Forest, meta Metadata, path string) error {
	if f == nil || len(f.trees) == 0 {
		return fmt.Errorf("saving model: empty forest")
	}
	if meta.TrainedAt.IsZero() {
		meta.TrainedAt = time.Now().UTC()
	}
	a := artifact{
		Format:    artifactFormat,
		Version:   artifactVersion,
		Features:  f.features,
		Classes:   []string{Healthy.Dir(), Diseased.Dir()},
		TrainedAt: meta.TrainedAt,
		TrainSize: meta.TrainSize,
		TestSize:  meta.TestSize,
		Seed:      meta.Seed,
		Trees:     f.trees,
	}
	if !math.IsNaN(meta.Accuracy) {
		acc := meta.Accuracy
		a.Accuracy = &acc
	}

	data, err := json.Marshal(&a)
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("saving model: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("saving model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("saving model: %w", err)
	}
	return nil
}

// Load reads a model written by Save. Any failure, including a missing file
// or a model built for a different descriptor length, wraps ErrModelLoad.
func Load(path string) (*Forest, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}
	if err := a.validate(); err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}

	meta := Metadata{
		TrainedAt: a.TrainedAt,
		TrainSize: a.TrainSize,
		TestSize:  a.TestSize,
		Accuracy:  math.NaN(),
		Seed:      a.Seed,
	}
	if a.Accuracy != nil {
		meta.Accuracy = *a.Accuracy
	}
	return &Forest{trees: a.Trees, features: a.Features}, meta, nil
}

// validate checks that every tree is well formed so that predict cannot
// index out of range or loop.
func (a *artifact) validate() error {
	if a.Format != artifactFormat {
		return fmt.Errorf("unknown format %q", a.Format)
	}
	if a.Version != artifactVersion {
		return fmt.Errorf("unsupported version %d", a.Version)
	}
	if a.Features != features.DescriptorLen {
		return fmt.Errorf("model expects %d features, descriptors have %d", a.Features, features.DescriptorLen)
	}
	if len(a.Trees) == 0 {
		return fmt.Errorf("no trees")
	}
	for ti, t := range a.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if n.Prob < 0 || n.Prob > 1 || math.IsNaN(n.Prob) {
					return fmt.Errorf("tree %d node %d: probability %v out of range", ti, ni, n.Prob)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= a.Features {
				return fmt.Errorf("tree %d node %d: feature %d out of range", ti, ni, n.Feature)
			}
			// children always follow their parent
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: bad child index", ti, ni)
			}
		}
	}
	return nil
}
