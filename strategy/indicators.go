package strategy

import "math"

// RSISeries calculates the Relative Strength Index for every bar using
// Wilder smoothing. Entries before the warm-up period are 0.
func RSISeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// SMA calculates a simple moving average over the last period values
// ending at index i. Returns NaN during warm-up.
func SMA(values []float64, i, period int) float64 {
	if period <= 0 || i+1 < period {
		return math.NaN()
	}
	sum := 0.0
	for j := i + 1 - period; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(period)
}

// StdDev calculates the population standard deviation over the last
// period values ending at index i. Returns NaN during warm-up.
func StdDev(values []float64, i, period int) float64 {
	mean := SMA(values, i, period)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum := 0.0
	for j := i + 1 - period; j <= i; j++ {
		d := values[j] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}

// Bollinger returns the lower, middle and upper band series for the
// given period and width. Warm-up entries are NaN.
func Bollinger(closes []float64, period int, width float64) (lower, mid, upper []float64) {
	lower = make([]float64, len(closes))
	mid = make([]float64, len(closes))
	upper = make([]float64, len(closes))
	for i := range closes {
		m := SMA(closes, i, period)
		sd := StdDev(closes, i, period)
		mid[i] = m
		lower[i] = m - width*sd
		upper[i] = m + width*sd
	}
	return lower, mid, upper
}
