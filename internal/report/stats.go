// Package report holds the pure aggregation logic behind the dashboard:
// per-table stat cards, the windowed profit report with CSV export, and the
// unified recent-transaction feed. Nothing here touches the store; callers
// pass in rows and get view models back.
package report

// StatRecord is the minimal shape the stats aggregator needs: an amount and
// the calendar date it belongs to. Sales feed it total_sales, expenses feed
// it amount.
type StatRecord struct {
	Amount float64
	Date   string
}

type Stats struct {
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Average    float64 `json:"average"`
	TodayTotal float64 `json:"today_total"`
}

// Compute aggregates records into the stat-card summary. today is the
// caller's current calendar date in YYYY-MM-DD form; the comparison is plain
// string equality, same as the client it replaces. Total over any input,
// including empty.
func Compute(records []StatRecord, today string) Stats {
	var total, todayTotal float64
	for _, r := range records {
		total += r.Amount
		if r.Date == today {
			todayTotal += r.Amount
		}
	}

	stats := Stats{
		Total:      total,
		Count:      len(records),
		TodayTotal: todayTotal,
	}
	if stats.Count > 0 {
		stats.Average = total / float64(stats.Count)
	}
	return stats
}
