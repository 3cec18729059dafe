// Package indicator provides stateless technical indicator computations over
// an ordered price series. All functions are deterministic and side-effect-free.
package indicator

import "errors"

// ErrInsufficientData reports that a series is too short for the requested
// computation. Callers treat it as a neutral signal, not a failure.
var ErrInsufficientData = errors.New("insufficient price history")

// RSI computes the Relative Strength Index over the trailing period deltas
// using Wilder smoothing. Requires len(prices) >= period+1. The result is
// bounded to [0,100]: all-gain series return 100, all-loss series return 0,
// and a completely flat series returns the neutral 50.
func RSI(prices []float64, period int) (float64, error) {
	if period < 1 || len(prices) < period+1 {
		return 0, ErrInsufficientData
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing for deltas beyond the seed period.
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*(float64(period)-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*(float64(period)-1) + losses[i]) / float64(period)
	}

	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50, nil
	case avgLoss == 0:
		return 100, nil
	case avgGain == 0:
		return 0, nil
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// MACDValue carries the MACD line, its signal line, and the histogram.
type MACDValue struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD computes EMA(fast) - EMA(slow) as the MACD line, an EMA(signalPeriod)
// of that line as the signal line, and their difference as the histogram.
// Both EMAs are seeded with the SMA of the first slow prices; the signal EMA
// is seeded with the SMA of its first signalPeriod values. Requires
// len(prices) >= slow+signalPeriod.
func MACD(prices []float64, fast, slow, signalPeriod int) (MACDValue, error) {
	if fast < 1 || slow < 2 || signalPeriod < 1 || fast >= slow {
		return MACDValue{}, ErrInsufficientData
	}
	if len(prices) < slow+signalPeriod {
		return MACDValue{}, ErrInsufficientData
	}

	seed := sma(prices[:slow])
	emaFast, emaSlow := seed, seed
	fastAlpha := 2 / (float64(fast) + 1)
	slowAlpha := 2 / (float64(slow) + 1)

	line := make([]float64, 0, len(prices)-slow+1)
	line = append(line, 0) // both EMAs share the seed at the slow boundary
	for i := slow; i < len(prices); i++ {
		emaFast = prices[i]*fastAlpha + emaFast*(1-fastAlpha)
		emaSlow = prices[i]*slowAlpha + emaSlow*(1-slowAlpha)
		line = append(line, emaFast-emaSlow)
	}

	sig := sma(line[:signalPeriod])
	sigAlpha := 2 / (float64(signalPeriod) + 1)
	for i := signalPeriod; i < len(line); i++ {
		sig = line[i]*sigAlpha + sig*(1-sigAlpha)
	}

	macd := line[len(line)-1]
	return MACDValue{Line: macd, Signal: sig, Histogram: macd - sig}, nil
}

// Momentum returns the percent change between the latest price and the price
// period points earlier. Requires len(prices) >= period+1 and a non-zero
// reference price.
func Momentum(prices []float64, period int) (float64, error) {
	if period < 1 || len(prices) < period+1 {
		return 0, ErrInsufficientData
	}
	past := prices[len(prices)-1-period]
	if past == 0 {
		return 0, ErrInsufficientData
	}
	current := prices[len(prices)-1]
	return (current/past - 1) * 100, nil
}

func sma(prices []float64) float64 {
	var sum float64
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}
