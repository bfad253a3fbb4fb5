package report

import (
	"testing"
	"time"

	"bizbook/backend/internal/domain"
)

func TestFilterWindowKeepsRecentRows(t *testing.T) {
	rows := []domain.ProfitSummaryRow{
		{Day: "2024-03-14"},
		{Day: "2024-03-01"},
		{Day: "2024-01-15"},
	}
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	kept := FilterWindow(rows, 30, now)
	if len(kept) != 2 {
		t.Fatalf("expected 2 rows in 30-day window, got %d", len(kept))
	}
	if kept[0].Day != "2024-03-14" || kept[1].Day != "2024-03-01" {
		t.Fatalf("expected descending order preserved, got %+v", kept)
	}

	if kept := FilterWindow(rows, 365, now); len(kept) != 3 {
		t.Fatalf("expected everything inside a year, got %d", len(kept))
	}
}

func TestTotalsMarginNeverNaN(t *testing.T) {
	totals := Totals(nil)
	if totals.ProfitMargin != 0 || totals.AverageDailyProfit != 0 {
		t.Fatalf("expected zero margin and average for empty input, got %+v", totals)
	}

	totals = Totals([]domain.ProfitSummaryRow{
		{Day: "2024-01-01", TotalSales: 0, TotalPurchases: 10, TotalExpenses: 5, NetProfit: -15},
	})
	if totals.ProfitMargin != 0 {
		t.Fatalf("expected zero margin with zero revenue, got %v", totals.ProfitMargin)
	}
	if totals.NetProfit != -15 {
		t.Fatalf("expected net -15, got %v", totals.NetProfit)
	}
}

func TestTotalsComputesFigures(t *testing.T) {
	totals := Totals([]domain.ProfitSummaryRow{
		{Day: "2024-01-02", TotalSales: 300, TotalPurchases: 100, TotalExpenses: 50},
		{Day: "2024-01-01", TotalSales: 100, TotalPurchases: 40, TotalExpenses: 10},
	})
	if totals.TotalRevenue != 400 || totals.TotalCosts != 140 || totals.TotalExpenses != 60 {
		t.Fatalf("unexpected totals %+v", totals)
	}
	if totals.NetProfit != 200 {
		t.Fatalf("expected net 200, got %v", totals.NetProfit)
	}
	if totals.ProfitMargin != 50 {
		t.Fatalf("expected margin 50, got %v", totals.ProfitMargin)
	}
	if totals.AverageDailyProfit != 100 {
		t.Fatalf("expected average daily profit 100, got %v", totals.AverageDailyProfit)
	}
}

func TestChartPointsChronological(t *testing.T) {
	points := ChartPoints([]domain.ProfitSummaryRow{
		{Day: "2024-01-02", TotalSales: 300, NetProfit: 150},
		{Day: "2024-01-01", TotalSales: 100, NetProfit: 50},
	})
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Date != "Jan 1" || points[1].Date != "Jan 2" {
		t.Fatalf("expected chronological short dates, got %+v", points)
	}
	if points[0].Profit != 50 || points[1].Sales != 300 {
		t.Fatalf("unexpected point values %+v", points)
	}
}

func TestCSVExactBody(t *testing.T) {
	got := CSV([]domain.ProfitSummaryRow{
		{
			Day:                 "2024-01-01",
			TotalSales:          100,
			TotalPurchases:      40,
			TotalExpenses:       10,
			NetProfit:           50,
			ProfitMarginPercent: 50,
		},
	})
	want := "Date,Sales,Purchases,Expenses,Net Profit,Margin %\n2024-01-01,100,40,10,50,50"
	if got != want {
		t.Fatalf("csv body mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestCSVHeaderOnlyForNoRows(t *testing.T) {
	if got := CSV(nil); got != "Date,Sales,Purchases,Expenses,Net Profit,Margin %" {
		t.Fatalf("unexpected empty csv %q", got)
	}
}

func TestFileNameUsesISODate(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	if got := FileName(now); got != "business-report-2024-03-15.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(33.333333); got != 33.33 {
		t.Fatalf("expected 33.33, got %v", got)
	}
	if got := Round2(66.666666); got != 66.67 {
		t.Fatalf("expected 66.67, got %v", got)
	}
}
