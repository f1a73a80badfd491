package classifier

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ironsheep/leafscan/internal/features"
)

// syntheticExamples returns alternating Healthy/Diseased examples in which
// every feature separates the two classes.
func syntheticExamples(n int, seed int64) []Example {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Example, n)
	for i := range out {
		label := Label(i % 2)
		var d features.Descriptor
		for j := range d {
			high := j < features.DescriptorLen/2
			if label == Diseased {
				high = !high
			}
			if high {
				d[j] = 0.5 + rng.Float64()*0.5
			} else {
				d[j] = rng.Float64() * 0.4
			}
		}
		out[i] = Example{Descriptor: d, Label: label}
	}
	return out
}

func quietOptions() Options {
	opts := DefaultOptions()
	opts.Trees = 15
	opts.Logger = discardLogger()
	return opts
}

func TestLabel_String(t *testing.T) {
	tests := []struct {
		label Label
		want  string
		dir   string
	}{
		{Healthy, "Healthy", "healthy"},
		{Diseased, "Diseased", "diseased"},
	}
	for _, tt := range tests {
		if got := tt.label.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if got := tt.label.Dir(); got != tt.dir {
			t.Errorf("Dir() = %q, want %q", got, tt.dir)
		}
	}
	if Label(7).String() != "Label(7)" {
		t.Errorf("unexpected String for unknown label: %q", Label(7).String())
	}
}

func TestFit_Separable(t *testing.T) {
	train := syntheticExamples(60, 1)
	test := syntheticExamples(30, 2)

	f, err := Fit(context.Background(), train, quietOptions())
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if f.Trees() != 15 {
		t.Errorf("Trees() = %d, want 15", f.Trees())
	}
	if acc := Accuracy(f, test); acc != 1 {
		t.Errorf("accuracy on separable data = %v, want 1", acc)
	}
	for _, e := range test {
		p := f.PredictProba(e.Descriptor)
		if p < 0 || p > 1 {
			t.Fatalf("probability %v out of [0,1]", p)
		}
	}
}

func TestFit_Deterministic(t *testing.T) {
	examples := syntheticExamples(40, 3)

	serial := quietOptions()
	serial.Workers = 1
	parallel := quietOptions()
	parallel.Workers = 8

	a, err := Fit(context.Background(), examples, serial)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fit(context.Background(), examples, parallel)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.trees, b.trees) {
		t.Error("same seed produced different forests for different worker counts")
	}

	other := quietOptions()
	other.Seed = 7
	c, err := Fit(context.Background(), examples, other)
	if err != nil {
		t.Fatal(err)
	}
	if reflect.DeepEqual(a.trees, c.trees) {
		t.Error("different seeds produced identical forests")
	}
}

func TestFit_Empty(t *testing.T) {
	if _, err := Fit(context.Background(), nil, quietOptions()); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Fit(ctx, syntheticExamples(10, 1), quietOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestFit_SingleClass(t *testing.T) {
	examples := syntheticExamples(10, 4)
	for i := range examples {
		examples[i].Label = Healthy
	}
	f, err := Fit(context.Background(), examples, quietOptions())
	if err != nil {
		t.Fatal(err)
	}
	for _, tr := range f.trees {
		if len(tr.Nodes) != 1 || !tr.Nodes[0].Leaf {
			t.Fatalf("pure training set should give single-leaf trees, got %d nodes", len(tr.Nodes))
		}
	}
	if got := f.Predict(examples[0].Descriptor); got != Healthy {
		t.Errorf("Predict = %v, want Healthy", got)
	}
}

func TestPredictSlice(t *testing.T) {
	f, err := Fit(context.Background(), syntheticExamples(20, 5), quietOptions())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := PredictSlice(f, make([]float64, 169)); !errors.Is(err, ErrDescriptorLength) {
		t.Errorf("expected ErrDescriptorLength, got %v", err)
	}

	e := syntheticExamples(2, 6)[1]
	got, err := PredictSlice(f, e.Descriptor[:])
	if err != nil {
		t.Fatalf("PredictSlice failed: %v", err)
	}
	if got != f.Predict(e.Descriptor) {
		t.Errorf("PredictSlice = %v, Predict = %v", got, f.Predict(e.Descriptor))
	}
}

func TestGini(t *testing.T) {
	tests := []struct {
		pos, n int
		want   float64
	}{
		{0, 0, 0},
		{0, 10, 0},
		{10, 10, 0},
		{5, 10, 0.5},
		{1, 4, 0.375},
	}
	for _, tt := range tests {
		if got := gini(tt.pos, tt.n); got != tt.want {
			t.Errorf("gini(%d, %d) = %v, want %v", tt.pos, tt.n, got, tt.want)
		}
	}
}

func TestFitTree_Threshold(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []Label{Healthy, Healthy, Healthy, Diseased, Diseased, Diseased}
	idx := []int{0, 1, 2, 3, 4, 5}

	tr := fitTree(x, y, idx, treeParams{minLeaf: 1, maxFeatures: 1}, rand.New(rand.NewSource(1)))
	if len(tr.Nodes) != 3 {
		t.Fatalf("expected root and two leaves, got %d nodes", len(tr.Nodes))
	}
	if root := tr.Nodes[0]; root.Threshold != 6.5 {
		t.Errorf("threshold = %v, want 6.5", root.Threshold)
	}
	if p := tr.predict([]float64{4}); p != 0 {
		t.Errorf("predict(4) = %v, want 0", p)
	}
	if p := tr.predict([]float64{9}); p != 1 {
		t.Errorf("predict(9) = %v, want 1", p)
	}
}

func TestFitTree_MaxDepth(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []Label{Healthy, Diseased, Healthy, Diseased}
	idx := []int{0, 1, 2, 3}

	tr := fitTree(x, y, idx, treeParams{maxDepth: 1, minLeaf: 1, maxFeatures: 1}, rand.New(rand.NewSource(1)))
	for i, n := range tr.Nodes {
		if i > 0 && !n.Leaf {
			t.Errorf("node %d below max depth is not a leaf", i)
		}
	}
}

func TestDefaultMaxFeatures(t *testing.T) {
	if got := defaultMaxFeatures(features.DescriptorLen); got != 13 {
		t.Errorf("defaultMaxFeatures(170) = %d, want 13", got)
	}
	if got := defaultMaxFeatures(0); got != 1 {
		t.Errorf("defaultMaxFeatures(0) = %d, want 1", got)
	}
}
