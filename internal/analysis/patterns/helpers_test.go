package patterns

import (
	"time"

	"chartpattern-scanner/internal/models"
)

type knot struct {
	i int
	p float64
}

// linear builds a piecewise-linear price path through the knots, which must start at index 0.
func linear(knots ...knot) []float64 {
	last := knots[len(knots)-1]
	prices := make([]float64, last.i+1)
	for k := 0; k+1 < len(knots); k++ {
		a, b := knots[k], knots[k+1]
		for i := a.i; i <= b.i; i++ {
			prices[i] = a.p + (b.p-a.p)*float64(i-a.i)/float64(b.i-a.i)
		}
	}
	return prices
}

func flat(n int, price float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = price
	}
	return prices
}

// pathCandles turns prices into candles whose open, high, low and close all equal the price.
func pathCandles(prices []float64, volume int64) []models.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(prices))
	for i, p := range prices {
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * 4 * time.Hour),
			Open:      p,
			High:      p,
			Low:       p,
			Close:     p,
			Volume:    volume,
		}
	}
	return candles
}

// cupFixture: left rim 100 at bar 30, bottom 80 at bar 55, right rim 102 at bar 80,
// a handle dipping to 98 and a last close of 101. Handle volume dries up.
func cupFixture() []models.Candle {
	prices := linear(
		knot{0, 90}, knot{29, 90}, knot{30, 100}, knot{55, 80},
		knot{80, 102}, knot{89, 98}, knot{99, 101},
	)
	candles := pathCandles(prices, 1000)
	for i := 81; i <= 89; i++ {
		candles[i].Volume = 2000
	}
	for i := 90; i <= 99; i++ {
		candles[i].Volume = 500
	}
	return candles
}

// rimFixture: flat at 70 with a left rim at bar 30 and a right rim of 100 at bar 80.
func rimFixture(leftRim float64) []models.Candle {
	prices := flat(100, 70)
	prices[30] = leftRim
	prices[80] = 100
	return pathCandles(prices, 1000)
}

// ihsFixture: shoulders at 50 and 52, head at 40, both intermediate peaks at 60.
func ihsFixture(lastClose float64) []models.Candle {
	prices := linear(
		knot{0, 70}, knot{30, 50}, knot{40, 60}, knot{50, 40},
		knot{60, 60}, knot{70, 52}, knot{80, 60}, knot{99, lastClose},
	)
	return pathCandles(prices, 1000)
}
