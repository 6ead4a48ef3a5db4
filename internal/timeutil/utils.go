package timeutil

import (
	"time"

	"github.com/speedy-lang/sweep/internal/models"
)

// StampSeries converts cumulative elapsed seconds into absolute timestamps
// anchored at start, returning exactly n entries. Entries past the end of
// cumSecs reuse the last known offset, so short series still stamp every
// evaluation.
func StampSeries(start time.Time, cumSecs []float64, n int) []time.Time {
	stamps := make([]time.Time, n)
	last := 0.0
	for i := 0; i < n; i++ {
		if i < len(cumSecs) {
			last = cumSecs[i]
		}
		stamps[i] = start.Add(time.Duration(last * float64(time.Second)))
	}
	return stamps
}

// HistoryMetrics flattens a run's evaluation history into stepped tracker
// metrics: one observation per series per evaluation pass, stamped from the
// run's start time.
func HistoryMetrics(start time.Time, h models.History) []models.Metric {
	n := h.Evals()
	stamps := StampSeries(start, h.CumTimeSecs, n)

	var result []models.Metric
	for i := 0; i < n; i++ {
		add := func(key string, series []float64) {
			if i < len(series) {
				result = append(result, models.Metric{
					Key:       key,
					Value:     series[i],
					Timestamp: stamps[i],
					Step:      int64(i),
				})
			}
		}
		add("val_loss", h.ValLoss)
		add("val_acc", h.ValAcc)
		add("val_pplx", h.ValPplx)
		add("epoch", h.Epoch)
		if i < len(h.TokensSeen) {
			result = append(result, models.Metric{
				Key:       "tokens_seen",
				Value:     float64(h.TokensSeen[i]),
				Timestamp: stamps[i],
				Step:      int64(i),
			})
		}
	}
	return result
}
