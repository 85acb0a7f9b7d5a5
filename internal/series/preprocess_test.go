package series

import (
	"math"
	"testing"
	"time"

	"QuantChannel/internal/model"
)

func barsAt(closes []float64) []model.OHLCV {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: base.AddDate(0, 0, i), Close: c}
	}
	return bars
}

func TestClean_DropsDuplicateTimestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []model.OHLCV{
		{Time: base, Close: 100},
		{Time: base, Close: 999}, // duplicate, first kept
		{Time: base.AddDate(0, 0, 1), Close: 101},
		{Time: base.AddDate(0, 0, 2), Close: 102},
	}
	out := Clean(bars)
	if len(out) != 3 {
		t.Fatalf("expected 3 bars after dedup, got %d", len(out))
	}
	if out[0].Close != 100 {
		t.Errorf("expected first occurrence kept, got %.0f", out[0].Close)
	}
}

func TestClean_FillsMissingValues(t *testing.T) {
	bars := barsAt([]float64{math.NaN(), 100, math.NaN(), 102, 103})
	out := Clean(bars)
	want := []float64{100, 100, 100, 102, 103}
	for i, w := range want {
		if out[i].Close != w {
			t.Errorf("index %d: expected %.0f, got %.2f", i, w, out[i].Close)
		}
	}
}

func TestClean_RejectsOutliers(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i%5) // tight cluster
	}
	closes[25] = 10000 // far outside 3 sigma
	out := Clean(barsAt(closes))
	if out[25].Close > 200 {
		t.Errorf("outlier not rejected: %.0f", out[25].Close)
	}
}

func TestClean_Idempotent(t *testing.T) {
	closes := []float64{100, math.NaN(), 103, 101, 5000, 102, 104, 100, 99, 101, 103, 102}
	once := Clean(barsAt(closes))
	twice := Clean(once)
	if len(once) != len(twice) {
		t.Fatalf("length changed on second pass: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Close != twice[i].Close {
			t.Errorf("index %d: clean not idempotent: %.6f vs %.6f", i, once[i].Close, twice[i].Close)
		}
	}
}

func TestSmooth_LengthAndMean(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5, 6, 7}
	out := Smooth(in, 5)
	if len(out) != len(in) {
		t.Fatalf("expected length %d, got %d", len(in), len(out))
	}
	// Interior of a linear series is unchanged by a centered mean.
	if math.Abs(out[3]-4) > 1e-12 {
		t.Errorf("expected interior value 4, got %.6f", out[3])
	}
	// Edge averages the partial window: mean(1,2,3) = 2.
	if math.Abs(out[0]-2) > 1e-12 {
		t.Errorf("expected edge value 2, got %.6f", out[0])
	}
}

func TestPreprocess_ShortSeriesUnchanged(t *testing.T) {
	bars := barsAt([]float64{100})
	out := Preprocess(bars)
	if len(out) != 1 || out[0].Close != 100 {
		t.Errorf("short series should pass through unchanged")
	}
}
