package eval

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencySummary holds the latency columns of a CellResult.
type latencySummary struct {
	Mean time.Duration
	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
}

// summarize computes mean and empirical quantiles of the given latencies.
func summarize(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	x := make([]float64, len(latencies))
	for i, l := range latencies {
		x[i] = float64(l)
	}
	// stat.Quantile requires sorted input.
	slices.Sort(x)

	return latencySummary{
		Mean: time.Duration(stat.Mean(x, nil)),
		P50:  time.Duration(stat.Quantile(0.50, stat.Empirical, x, nil)),
		P95:  time.Duration(stat.Quantile(0.95, stat.Empirical, x, nil)),
		P99:  time.Duration(stat.Quantile(0.99, stat.Empirical, x, nil)),
		Max:  time.Duration(x[len(x)-1]),
	}
}
