// Package pipeline wires preprocessing, spot detection, feature extraction
// and classification into a single analysis of one leaf image.
//
// An Analyzer is the explicit context object for a screening session: it
// owns the configuration and the loaded model. It is safe for concurrent
// use; the model can be swapped while analyses are in flight and each
// analysis sees either the old or the new model.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/leafscan/internal/classifier"
	"github.com/ironsheep/leafscan/internal/config"
	"github.com/ironsheep/leafscan/internal/features"
	"github.com/ironsheep/leafscan/internal/imaging"
	"github.com/ironsheep/leafscan/internal/spots"
)

// ErrNoModel is returned by Analyze when no model has been loaded.
var ErrNoModel = errors.New("no classifier model loaded")

// Report is the outcome of analyzing one image.
type Report struct {
	Path  string           `json:"path"`
	Label classifier.Label `json:"-"`

	// Prediction is "Healthy" or "Diseased".
	Prediction string `json:"prediction"`
	Diseased   bool   `json:"diseased"`

	// Probability is the model's estimate that the leaf is Diseased.
	Probability float64 `json:"probability"`

	SpotCount  int                 `json:"spot_count"`
	Spots      []spots.Region      `json:"spots"`
	Descriptor features.Descriptor `json:"-"`
}

// Confidence is the model's probability for the predicted label.
func (r *Report) Confidence() float64 {
	if r.Diseased {
		return r.Probability
	}
	return 1 - r.Probability
}

// Analyzer runs the screening pipeline.
type Analyzer struct {
	cfg        *config.Config
	preprocess imaging.Options
	detector   *spots.Detector

	mu     sync.RWMutex
	model  classifier.Model
	cache  *imaging.ImageCache
	logger *log.Logger
}

// New returns an Analyzer for cfg. model may be nil; Analyze then fails
// with ErrNoModel until SetModel is called. A nil cfg means
// config.DefaultConfig().
func New(model classifier.Model, cfg *config.Config) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Analyzer{
		cfg:        cfg,
		preprocess: PreprocessOptions(cfg),
		detector:   spots.NewDetector(SpotParams(cfg)),
		logger:     log.Default(),
		model:      model,
	}
}

// PreprocessOptions extracts the preprocessing settings from cfg.
func PreprocessOptions(cfg *config.Config) imaging.Options {
	return imaging.Options{
		Size:       imaging.Size{Width: cfg.Preprocess.Width, Height: cfg.Preprocess.Height},
		BlurKernel: cfg.Preprocess.BlurKernel,
	}
}

// SpotParams extracts the detector settings from cfg.
func SpotParams(cfg *config.Config) spots.Params {
	return spots.Params{
		Range: spots.ColorRange{
			Lower: cfg.Spots.Bounds.Lower,
			Upper: cfg.Spots.Bounds.Upper,
		},
		MinArea: cfg.Spots.MinArea,
	}
}

// ClassifierOptions extracts the training settings from cfg.
func ClassifierOptions(cfg *config.Config) classifier.Options {
	return classifier.Options{
		Trees:        cfg.Classifier.Trees,
		MaxDepth:     cfg.Classifier.MaxDepth,
		MinLeaf:      cfg.Classifier.MinLeaf,
		Seed:         cfg.Classifier.Seed,
		TestFraction: cfg.Classifier.TestFraction,
		Workers:      cfg.Classifier.Workers,
	}
}

// Config returns the analyzer's configuration.
func (a *Analyzer) Config() *config.Config {
	return a.cfg
}

// SetLogger replaces the logger used for batch and training messages.
func (a *Analyzer) SetLogger(l *log.Logger) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = l
}

// Logger returns the logger used for batch and training messages.
func (a *Analyzer) Logger() *log.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.logger
}

// SetCache makes the analyzer decode images through c.
func (a *Analyzer) SetCache(c *imaging.ImageCache) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache = c
}

// SetModel replaces the classifier used by Analyze.
func (a *Analyzer) SetModel(m classifier.Model) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.model = m
}

// Model returns the current classifier, or nil.
func (a *Analyzer) Model() classifier.Model {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// LoadModel reads a model artifact and installs it. An empty path means the
// configured model path.
func (a *Analyzer) LoadModel(path string) (classifier.Metadata, error) {
	if path == "" {
		path = a.cfg.Model.Path
	}
	m, meta, err := classifier.Load(path)
	if err != nil {
		return classifier.Metadata{}, err
	}
	a.SetModel(m)
	return meta, nil
}

func (a *Analyzer) load(path string) (image.Image, error) {
	a.mu.RLock()
	c := a.cache
	a.mu.RUnlock()
	if c != nil {
		return c.Load(path)
	}
	return imaging.Load(path)
}

// Preprocess loads and preprocesses the image at path.
func (a *Analyzer) Preprocess(path string) (*imaging.Preprocessed, error) {
	img, err := a.load(path)
	if err != nil {
		return nil, err
	}
	return imaging.PreprocessImage(img, a.preprocess)
}

// DetectSpots preprocesses the image at path and runs spot detection on
// its analysis image. The preprocessed images are returned alongside the
// result so callers can render overlays in the same frame.
func (a *Analyzer) DetectSpots(path string) (*imaging.Preprocessed, *spots.Result, error) {
	pre, err := a.Preprocess(path)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.detector.Detect(pre.Analysis)
	if err != nil {
		return nil, nil, err
	}
	return pre, res, nil
}

// Descriptor preprocesses the image at path and extracts the color
// descriptor of its resized original.
func (a *Analyzer) Descriptor(path string) (features.Descriptor, error) {
	pre, err := a.Preprocess(path)
	if err != nil {
		return features.Descriptor{}, err
	}
	return features.ExtractColorDescriptor(pre.Original)
}

// Analyze runs the full pipeline: preprocess, detect spots on the analysis
// image, describe the resized original and classify the descriptor.
func (a *Analyzer) Analyze(path string) (*Report, error) {
	model := a.Model()
	if model == nil {
		return nil, ErrNoModel
	}

	pre, err := a.Preprocess(path)
	if err != nil {
		return nil, err
	}

	res, err := a.detector.Detect(pre.Analysis)
	if err != nil {
		return nil, fmt.Errorf("detecting spots in %s: %w", path, err)
	}

	desc, err := features.ExtractColorDescriptor(pre.Original)
	if err != nil {
		return nil, fmt.Errorf("describing %s: %w", path, err)
	}

	p := model.PredictProba(desc)
	label := model.Predict(desc)
	return &Report{
		Path:        path,
		Label:       label,
		Prediction:  label.String(),
		Diseased:    label == classifier.Diseased,
		Probability: p,
		SpotCount:   res.Count(),
		Spots:       res.Regions,
		Descriptor:  desc,
	}, nil
}

// BatchResult pairs a path with its report or error.
type BatchResult struct {
	Path   string
	Report *Report
	Err    error
}

// AnalyzeBatch analyzes paths concurrently, bounded by the configured
// worker count. A failure on one image is recorded in its BatchResult and
// does not stop the others. Results are in input order. The returned error
// is non-nil only if ctx is cancelled.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, paths []string) ([]BatchResult, error) {
	results := make([]BatchResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	workers := a.cfg.Classifier.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g.SetLimit(workers)
	logger := a.Logger()
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := a.Analyze(p)
			results[i] = BatchResult{Path: p, Report: r, Err: err}
			if err != nil {
				logger.Printf("analyze %s: %v", p, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Train trains a model on the dataset under root, writes it to modelPath
// (the configured path when empty) and installs it.
func (a *Analyzer) Train(ctx context.Context, root, modelPath string) (*classifier.TrainResult, error) {
	if modelPath == "" {
		modelPath = a.cfg.Model.Path
	}
	opts := ClassifierOptions(a.cfg)
	opts.Logger = a.Logger()

	res, err := classifier.TrainAndSave(ctx, root, modelPath, opts)
	if err != nil {
		return nil, err
	}
	a.SetModel(res.Model)
	return res, nil
}
