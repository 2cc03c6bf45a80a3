package indicators

import (
	"math"
	"testing"
)

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestFlatSeriesIsNeutral(t *testing.T) {
	closes := flat(20, 100)

	bands := BollingerBands(closes, 20, 1.3)
	if bands.Bandwidth != 0 {
		t.Errorf("bandwidth = %v, want 0", bands.Bandwidth)
	}
	if bands.Middle != 100 {
		t.Errorf("middle = %v, want 100", bands.Middle)
	}
	if rsi := RSI(closes, 14); rsi != 50 {
		t.Errorf("RSI = %v, want 50", rsi)
	}
	if s := EMACrossScore(closes, 8, 21); s != 0 {
		t.Errorf("EMA cross on 20 bars = %v, want 0", s)
	}
	if s := ROCScore(closes, 5); s != 0 {
		t.Errorf("ROC = %v, want 0", s)
	}
}

func TestBollingerZeroBandWhenShort(t *testing.T) {
	if b := BollingerBands([]float64{1, 2, 3}, 20, 2); b != (Bands{}) {
		t.Errorf("got %+v, want zero band", b)
	}
}

func TestEMACrossFreshCrossover(t *testing.T) {
	// Falling then a sharp final jump pushes fast above slow on the last bar.
	closes := make([]float64, 0, 40)
	for i := 0; i < 39; i++ {
		closes = append(closes, 100-float64(i)*0.1)
	}
	closes = append(closes, 110)

	if s := EMACrossScore(closes, 8, 21); s != 1 {
		t.Errorf("fresh bullish cross = %v, want 1", s)
	}
}

func TestEMACrossEstablishedTrendIsDamped(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := EMACrossScore(closes, 8, 21)
	if s <= 0 || s > 0.7 {
		t.Errorf("established uptrend = %v, want (0, 0.7]", s)
	}
}

func TestROCScoreScaling(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 100.25}
	if s := ROCScore(closes, 5); math.Abs(s-0.5) > 1e-9 {
		t.Errorf("ROC +0.25%% = %v, want 0.5", s)
	}
	closes[5] = 101
	if s := ROCScore(closes, 5); s != 1 {
		t.Errorf("ROC +1%% = %v, want clamped 1", s)
	}
}

func TestVolumeSpikeScore(t *testing.T) {
	volumes := append(flat(20, 100), 300)
	closes := append(flat(20, 50), 51)

	if s := VolumeSpikeScore(volumes, closes, 20, 2.0); s != 1 {
		t.Errorf("bullish spike = %v, want 1", s)
	}

	closes[20] = 49
	if s := VolumeSpikeScore(volumes, closes, 20, 2.0); s != -1 {
		t.Errorf("bearish spike = %v, want -1", s)
	}

	volumes[20] = 150
	if s := VolumeSpikeScore(volumes, closes, 20, 2.0); s != 0 {
		t.Errorf("below multiplier = %v, want 0", s)
	}
}

func TestVWAPDeviationScore(t *testing.T) {
	vwap := 100.0
	if s := VWAPDeviationScore(99.7, &vwap); math.Abs(s-1) > 1e-9 {
		t.Errorf("0.3%% below VWAP = %v, want 1", s)
	}
	if s := VWAPDeviationScore(100.15, &vwap); math.Abs(s+0.5) > 1e-9 {
		t.Errorf("0.15%% above VWAP = %v, want -0.5", s)
	}
	if s := VWAPDeviationScore(100, nil); s != 0 {
		t.Errorf("missing VWAP = %v, want 0", s)
	}
}

func TestRSIScore(t *testing.T) {
	cases := map[float64]float64{0: 1, 15: 0.5, 30: 0, 50: 0, 70: 0, 85: -0.5, 100: -1}
	for rsi, want := range cases {
		if got := RSIScore(rsi); math.Abs(got-want) > 1e-9 {
			t.Errorf("RSIScore(%v) = %v, want %v", rsi, got, want)
		}
	}
}

func TestSpreadScore(t *testing.T) {
	if s := SpreadScore(0.005, 100); s != 1 {
		t.Errorf("0.005%% spread = %v, want 1", s)
	}
	if s := SpreadScore(0.06, 100); s != -1 {
		t.Errorf("0.06%% spread = %v, want -1", s)
	}
	if s := SpreadScore(0.03, 100); math.Abs(s) > 1e-9 {
		t.Errorf("0.03%% spread = %v, want 0", s)
	}
}
