package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Preprocess.Width != 256 || cfg.Preprocess.Height != 256 {
		t.Errorf("target size = %dx%d, want 256x256", cfg.Preprocess.Width, cfg.Preprocess.Height)
	}
	if cfg.Preprocess.BlurKernel != 5 {
		t.Errorf("BlurKernel = %d, want 5", cfg.Preprocess.BlurKernel)
	}
	if cfg.Spots.MinArea != 100 {
		t.Errorf("MinArea = %g, want 100", cfg.Spots.MinArea)
	}
	if cfg.Spots.Bounds.Lower != [3]uint8{0, 40, 20} || cfg.Spots.Bounds.Upper != [3]uint8{30, 255, 200} {
		t.Errorf("unexpected lesion bounds %+v", cfg.Spots.Bounds)
	}
	if cfg.Classifier.Trees != 100 || cfg.Classifier.Seed != 42 || cfg.Classifier.TestFraction != 0.2 {
		t.Errorf("unexpected classifier defaults %+v", cfg.Classifier)
	}
	// 0 means all CPUs, resolved at run time rather than written to disk
	if cfg.Classifier.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Classifier.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.Path != "model.json" {
		t.Errorf("Model.Path = %q, want model.json", cfg.Model.Path)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "leafscan.yaml")

	cfg := DefaultConfig()
	cfg.Spots.MinArea = 50
	cfg.Spots.Bounds.Upper = [3]uint8{25, 250, 190}
	cfg.Classifier.Trees = 12
	cfg.Model.Path = "/var/lib/leafscan/model.json"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Spots.MinArea != 50 {
		t.Errorf("MinArea = %g, want 50", got.Spots.MinArea)
	}
	if got.Spots.Bounds.Upper != [3]uint8{25, 250, 190} {
		t.Errorf("Upper = %v", got.Spots.Bounds.Upper)
	}
	if got.Classifier.Trees != 12 {
		t.Errorf("Trees = %d, want 12", got.Classifier.Trees)
	}
	if got.Model.Path != cfg.Model.Path {
		t.Errorf("Model.Path = %q, want %q", got.Model.Path, cfg.Model.Path)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("spots:\n  minArea: 25\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Spots.MinArea != 25 {
		t.Errorf("MinArea = %g, want 25", cfg.Spots.MinArea)
	}
	if cfg.Preprocess.Width != 256 {
		t.Errorf("Width = %d, want default 256", cfg.Preprocess.Width)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "spots: [unclosed"},
		{"even kernel", "preprocess:\n  blurKernel: 4\n"},
		{"zero width", "preprocess:\n  width: 0\n"},
		{"inverted bounds", "spots:\n  bounds:\n    lower: [40, 0, 0]\n    upper: [30, 255, 255]\n"},
		{"test fraction", "classifier:\n  testFraction: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(path, []byte("classifier:\n  trees: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigPath, path)
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := FromEnv("")
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Classifier.Trees != 7 {
		t.Errorf("Trees = %d, want 7", cfg.Classifier.Trees)
	}
	if !cfg.Debug() {
		t.Error("expected debug level from environment")
	}
}
