package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bizbook/backend/internal/domain"
)

const dayLayout = "2006-01-02"

type ProfitTotals struct {
	TotalRevenue       float64 `json:"total_revenue"`
	TotalCosts         float64 `json:"total_costs"`
	TotalExpenses      float64 `json:"total_expenses"`
	NetProfit          float64 `json:"net_profit"`
	ProfitMargin       float64 `json:"profit_margin"`
	AverageDailyProfit float64 `json:"average_daily_profit"`
}

// ChartPoint is one time-series sample for the profit chart, in
// chronological order.
type ChartPoint struct {
	Date     string  `json:"date"`
	Sales    float64 `json:"sales"`
	Costs    float64 `json:"costs"`
	Expenses float64 `json:"expenses"`
	Profit   float64 `json:"profit"`
}

// FilterWindow keeps rows whose day falls within the last `days` days of
// now. Rows arrive ordered descending by day from the store and the order is
// preserved. YYYY-MM-DD strings compare correctly lexicographically, so no
// parsing is needed.
func FilterWindow(rows []domain.ProfitSummaryRow, days int, now time.Time) []domain.ProfitSummaryRow {
	cutoff := now.AddDate(0, 0, -days).Format(dayLayout)
	kept := make([]domain.ProfitSummaryRow, 0, len(rows))
	for _, row := range rows {
		if row.Day >= cutoff {
			kept = append(kept, row)
		}
	}
	return kept
}

// Totals rolls the filtered rows up into the report header figures. Margin
// and average are defined as 0 for empty input so the caller never sees
// NaN or Inf.
func Totals(rows []domain.ProfitSummaryRow) ProfitTotals {
	var t ProfitTotals
	for _, row := range rows {
		t.TotalRevenue += row.TotalSales
		t.TotalCosts += row.TotalPurchases
		t.TotalExpenses += row.TotalExpenses
	}
	t.NetProfit = t.TotalRevenue - t.TotalCosts - t.TotalExpenses
	if t.TotalRevenue != 0 {
		t.ProfitMargin = Round2(t.NetProfit / t.TotalRevenue * 100)
	}
	if len(rows) > 0 {
		t.AverageDailyProfit = t.NetProfit / float64(len(rows))
	}
	return t
}

// ChartPoints reverses the descending rows into chronological order and
// projects each onto the chart sample shape with a short display date.
func ChartPoints(rows []domain.ProfitSummaryRow) []ChartPoint {
	points := make([]ChartPoint, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		points = append(points, ChartPoint{
			Date:     shortDate(row.Day),
			Sales:    row.TotalSales,
			Costs:    row.TotalPurchases,
			Expenses: row.TotalExpenses,
			Profit:   row.NetProfit,
		})
	}
	return points
}

// CSV serializes rows as the downloadable report body. The header and the
// bare comma-joined fields are a fixed contract with the client; fields are
// dates and numbers only, so no quoting is applied.
func CSV(rows []domain.ProfitSummaryRow) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "Date,Sales,Purchases,Expenses,Net Profit,Margin %")
	for _, row := range rows {
		lines = append(lines, strings.Join([]string{
			row.Day,
			formatNumber(row.TotalSales),
			formatNumber(row.TotalPurchases),
			formatNumber(row.TotalExpenses),
			formatNumber(row.NetProfit),
			formatNumber(row.ProfitMarginPercent),
		}, ","))
	}
	return strings.Join(lines, "\n")
}

// FileName names the CSV download after the day it was generated.
func FileName(now time.Time) string {
	return fmt.Sprintf("business-report-%s.csv", now.Format(dayLayout))
}

// Round2 rounds to two decimal places, used for percentage display values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatNumber renders a float with no trailing zeros (100 not 100.00),
// matching how the client serialized report cells.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortDate(day string) string {
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return day
	}
	return t.Format("Jan 2")
}
