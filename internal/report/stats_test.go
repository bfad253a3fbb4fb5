package report

import "testing"

func TestComputeTotalsAndTodayFilter(t *testing.T) {
	records := []StatRecord{
		{Amount: 100, Date: "2024-01-01"},
		{Amount: 50, Date: "2024-01-02"},
		{Amount: 25, Date: "2024-01-02"},
	}

	stats := Compute(records, "2024-01-02")
	if stats.Total != 175 {
		t.Fatalf("expected total 175, got %v", stats.Total)
	}
	if stats.Count != 3 {
		t.Fatalf("expected count 3, got %d", stats.Count)
	}
	if stats.TodayTotal != 75 {
		t.Fatalf("expected today total 75, got %v", stats.TodayTotal)
	}
	if want := 175.0 / 3; stats.Average != want {
		t.Fatalf("expected average %v, got %v", want, stats.Average)
	}
}

func TestComputeEmptyInput(t *testing.T) {
	stats := Compute(nil, "2024-01-02")
	if stats.Total != 0 || stats.Count != 0 || stats.Average != 0 || stats.TodayTotal != 0 {
		t.Fatalf("expected all-zero stats for empty input, got %+v", stats)
	}
}

func TestComputeTreatsMissingAmountAsZero(t *testing.T) {
	records := []StatRecord{
		{Amount: 0, Date: "2024-01-01"},
		{Amount: 10, Date: "2024-01-01"},
	}

	stats := Compute(records, "2024-01-01")
	if stats.Total != 10 {
		t.Fatalf("expected total 10, got %v", stats.Total)
	}
	if stats.Count != 2 {
		t.Fatalf("expected zero-amount record to still count, got %d", stats.Count)
	}
	if stats.Average != 5 {
		t.Fatalf("expected average 5, got %v", stats.Average)
	}
}
