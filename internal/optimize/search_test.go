package optimize

import (
	"math"
	"testing"

	"QuantChannel/internal/backtest"
)

// channelSeries produces a mean-reverting series around a rising trend with
// spikes that cross the channel bands, so fits succeed and trades occur.
func channelSeries(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		v := 100 + float64(i)*0.3 + 2*math.Sin(float64(i)/4)
		switch {
		case i%23 == 3:
			v -= 9
		case i%19 == 6:
			v += 9
		}
		closes[i] = v
	}
	return closes
}

func TestSearch_Deterministic(t *testing.T) {
	closes := channelSeries(250)
	cfg := Config{Trials: 40, Seed: 7, Backtest: backtest.DefaultConfig()}
	a := Search(closes, cfg)
	b := Search(closes, cfg)
	if a.Best != b.Best || a.BestObjective != b.BestObjective {
		t.Errorf("same seed must reproduce the search: %+v vs %+v", a, b)
	}
}

func TestSearch_FallbackOnExhaustion(t *testing.T) {
	// Far below the minimum fit length: every trial is rejected.
	closes := []float64{100, 101, 102}
	res := Search(closes, Config{Trials: 25, Seed: 1, Backtest: backtest.DefaultConfig()})
	if !res.Exhausted {
		t.Fatal("expected exhausted search")
	}
	if res.Best != DefaultParams() {
		t.Errorf("expected conservative defaults, got %+v", res.Best)
	}
	if res.Rejected != 25 {
		t.Errorf("expected 25 rejected trials, got %d", res.Rejected)
	}
}

func TestSearch_FindsUsableParams(t *testing.T) {
	closes := channelSeries(300)
	res := Search(closes, Config{Trials: 60, Seed: 42, Backtest: backtest.DefaultConfig()})
	if res.Exhausted {
		t.Fatal("expected at least one accepted trial on a well-behaved series")
	}
	p := res.Best
	if p.Degree < 1 || p.Degree > 4 {
		t.Errorf("degree out of range: %d", p.Degree)
	}
	if p.KStd < minKStd-1e-9 || p.KStd > maxKStd+1e-9 {
		t.Errorf("kStd out of range: %.2f", p.KStd)
	}
	if p.Lookback != 0 && (p.Lookback < minLookback || p.Lookback > len(closes)) {
		t.Errorf("lookback out of range: %d", p.Lookback)
	}
}

func TestObjective_PenalizesInvalidSlice(t *testing.T) {
	closes := channelSeries(200)
	closes[150] = -5 // inside every lookback window ending at the tail
	if obj := Objective(closes, Params{Degree: 1, KStd: 2.0, Lookback: 0}, backtest.DefaultConfig()); obj != rejected {
		t.Errorf("expected rejection for non-positive value, got %g", obj)
	}
	if obj := Objective(channelSeries(40), Params{Degree: 1, KStd: 2.0, Lookback: 0}, backtest.DefaultConfig()); obj != rejected {
		t.Errorf("expected rejection for short series, got %g", obj)
	}
}

func TestObjective_DeterministicAndFinite(t *testing.T) {
	closes := channelSeries(250)
	for _, p := range []Params{
		{Degree: 1, KStd: 1.2, Lookback: 0},
		{Degree: 2, KStd: 2.0, Lookback: 120},
		{Degree: 4, KStd: 3.0, Lookback: 60},
	} {
		a := Objective(closes, p, backtest.DefaultConfig())
		b := Objective(closes, p, backtest.DefaultConfig())
		if a != b {
			t.Errorf("%+v: objective not deterministic: %g vs %g", p, a, b)
		}
		if a != rejected && (math.IsNaN(a) || math.IsInf(a, 0) || math.Abs(a) > 1000) {
			t.Errorf("%+v: accepted objective out of bounds: %g", p, a)
		}
	}
}

func TestApplyLookback(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := applyLookback(closes, 0); len(got) != 5 {
		t.Errorf("lookback 0 must keep the full series")
	}
	if got := applyLookback(closes, 3); len(got) != 3 || got[0] != 3 {
		t.Errorf("lookback 3 must keep the most recent points, got %v", got)
	}
	if got := applyLookback(closes, 10); len(got) != 5 {
		t.Errorf("oversized lookback must keep the full series")
	}
}
