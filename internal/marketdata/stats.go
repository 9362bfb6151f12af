package marketdata

import (
	"math"
)

// tradingDaysPerYear is the annualization factor for daily returns.
const tradingDaysPerYear = 252

// Compute derives both statistics from one canonical price series. The pair
// is all-or-nothing: any failure leaves both fields nil.
func Compute(series *PriceSeries) (Stats, error) {
	vol, err := AnnualizedVolatility(series)
	if err != nil {
		return Stats{}, err
	}

	ret, err := ExpectedAnnualReturn(series)
	if err != nil {
		return Stats{}, err
	}

	vol = round2(vol)
	ret = round2(ret)
	return Stats{Volatility: &vol, ExpectedReturn: &ret}, nil
}

// AnnualizedVolatility computes the sample standard deviation of daily
// logarithmic returns, annualized by sqrt(252) and expressed as a percentage.
// Returns over missing or non-positive prices are dropped.
func AnnualizedVolatility(series *PriceSeries) (float64, error) {
	if series.Len() < 2 {
		return 0, ErrInsufficientData
	}

	returns := make([]float64, 0, series.Len()-1)
	for i := 1; i < len(series.Bars); i++ {
		prev := series.Bars[i-1].AdjClose
		cur := series.Bars[i].AdjClose
		if !validPrice(prev) || !validPrice(cur) {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}

	return stdDev(returns) * math.Sqrt(tradingDaysPerYear) * 100, nil
}

// ExpectedAnnualReturn computes the compound annual growth rate implied by the
// first and last observed prices over the elapsed calendar days, as a
// percentage. A zero-day span yields 0.0 rather than a division error.
func ExpectedAnnualReturn(series *PriceSeries) (float64, error) {
	first, last, ok := firstLastValid(series)
	if !ok {
		return 0, ErrInsufficientData
	}

	totalReturn := last.AdjClose/first.AdjClose - 1

	days := int(last.Date.Sub(first.Date).Hours() / 24)
	if days == 0 {
		// Single calendar day of data, annualizing is meaningless.
		return 0.0, nil
	}

	return (math.Pow(1+totalReturn, 365/float64(days)) - 1) * 100, nil
}

// firstLastValid finds the first and last bars carrying a usable price.
func firstLastValid(series *PriceSeries) (first, last PriceBar, ok bool) {
	if series.Len() < 2 {
		return PriceBar{}, PriceBar{}, false
	}

	firstIdx, lastIdx := -1, -1
	for i, bar := range series.Bars {
		if !validPrice(bar.AdjClose) {
			continue
		}
		if firstIdx < 0 {
			firstIdx = i
		}
		lastIdx = i
	}

	if firstIdx < 0 || firstIdx == lastIdx {
		return PriceBar{}, PriceBar{}, false
	}
	return series.Bars[firstIdx], series.Bars[lastIdx], true
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && p > 0
}

// mean computes the arithmetic mean.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev computes the sample standard deviation (n-1). Fewer than two samples
// yield 0.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
