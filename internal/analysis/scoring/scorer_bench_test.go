package scoring

import (
	"fmt"
	"math"
	"testing"

	"crypto-scalper/internal/models"
)

func waveBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := range bars {
		p := 100 + 2*math.Sin(float64(i)/5)
		bars[i] = models.Bar{Open: p, High: p + 0.1, Low: p - 0.1, Close: p, Volume: 10 + float64(i%7), VWAP: p}
	}
	return bars
}

// BenchmarkGenerateSignal scores one symbol over the default 100-bar window.
func BenchmarkGenerateSignal(b *testing.B) {
	scorer := NewSignalScorer(DefaultParams())
	bars := waveBars(100)
	quote := models.NewQuoteSnapshot("BTC/USD", 99.99, 100.01, fixedNow)
	vwap := 100.0

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scorer.GenerateSignal("BTC/USD", bars, quote, &vwap)
	}
}

// BenchmarkGenerateSignalParallel scores from many goroutines at once, as a
// tick over several symbols could.
func BenchmarkGenerateSignalParallel(b *testing.B) {
	scorer := NewSignalScorer(DefaultParams())
	symbols := make([]models.Symbol, 8)
	for i := range symbols {
		symbols[i] = models.Symbol(fmt.Sprintf("C%d/USD", i))
	}
	bars := waveBars(100)
	quote := models.NewQuoteSnapshot("BTC/USD", 99.99, 100.01, fixedNow)

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			scorer.GenerateSignal(symbols[i%len(symbols)], bars, quote, nil)
			i++
		}
	})
}
