package scoring

import (
	"testing"
	"time"

	"crypto-scalper/internal/models"
)

func flatBars(n int, price, volume float64) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Open: price, High: price, Low: price, Close: price, Volume: volume, VWAP: price}
	}
	return bars
}

func TestGenerateSignal_FlatMarketIsNone(t *testing.T) {
	scorer := NewSignalScorerWithClock(DefaultParams(), func() time.Time { return fixedNow })
	bars := flatBars(20, 100, 10)
	quote := models.NewQuoteSnapshot("ETH/USD", 99.995, 100.005, fixedNow)
	vwap := 100.0

	sig := scorer.GenerateSignal("ETH/USD", bars, quote, &vwap)

	if sig.Direction != models.DirectionNone {
		t.Fatalf("direction = %s, want none (score %.4f)", sig.Direction, sig.Score)
	}
	names := []string{NameEMACross, NameRSI, NameROC, NameVolumeSpike, NameVWAPDeviation, NameSpread}
	for i, ind := range sig.Indicators {
		if ind.Name != names[i] {
			t.Errorf("indicator %d = %s, want %s", i, ind.Name, names[i])
		}
	}
	if sig.Price != 100 || !sig.Timestamp.Equal(fixedNow) {
		t.Errorf("unexpected price/timestamp: %v %v", sig.Price, sig.Timestamp)
	}
}

func TestGenerateSignal_StrongSetupIsLong(t *testing.T) {
	// Decline then a high-volume breakout bar: fresh EMA cross, positive ROC,
	// bullish volume spike, price below VWAP and a tight spread.
	bars := make([]models.Bar, 0, 40)
	for i := 0; i < 39; i++ {
		p := 100 - float64(i)*0.05
		bars = append(bars, models.Bar{Close: p, Volume: 10})
	}
	bars = append(bars, models.Bar{Close: 101, Volume: 50})

	scorer := NewSignalScorerWithClock(DefaultParams(), func() time.Time { return fixedNow })
	quote := models.NewQuoteSnapshot("BTC/USD", 100.999, 101.001, fixedNow)
	vwap := 101.5

	sig := scorer.GenerateSignal("BTC/USD", bars, quote, &vwap)
	if sig.Direction != models.DirectionLong {
		t.Fatalf("direction = %s, want long (score %.4f)", sig.Direction, sig.Score)
	}
}

func TestWeightsSumToOne(t *testing.T) {
	if s := DefaultWeights().Sum(); s < 0.999999 || s > 1.000001 {
		t.Errorf("default weights sum = %v", s)
	}
}
