package report

import (
	"testing"

	"bizbook/backend/internal/domain"
)

func TestMergeRecentOrdersByDateDescending(t *testing.T) {
	sales := []domain.Sale{
		{ProductName: "Rice 5kg", TotalSales: 500, Date: "2024-02-01"},
	}
	purchases := []domain.Purchase{
		{ProductName: "Groundnut Oil 1L", TotalCost: 300, Date: "2024-02-02"},
	}
	expenses := []domain.Expense{
		{Description: "Market levy", Amount: 50, ExpenseDate: "2024-01-30"},
	}

	feed := MergeRecent(sales, purchases, expenses)
	if len(feed) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(feed))
	}
	if feed[0].Type != domain.TxTypePurchase || feed[0].Amount != "₦300" {
		t.Fatalf("expected purchase first, got %+v", feed[0])
	}
	if feed[1].Type != domain.TxTypeSale || feed[1].Item != "Rice 5kg" {
		t.Fatalf("expected sale second, got %+v", feed[1])
	}
	if feed[2].Type != domain.TxTypeExpense || feed[2].Item != "Market levy" {
		t.Fatalf("expected expense last, got %+v", feed[2])
	}
}

func TestMergeRecentCapsAtFive(t *testing.T) {
	sales := make([]domain.Sale, 4)
	for i := range sales {
		sales[i] = domain.Sale{ProductName: "Rice 5kg", TotalSales: 100, Date: "2024-02-10"}
	}
	purchases := []domain.Purchase{
		{ProductName: "Groundnut Oil 1L", TotalCost: 900, Date: "2024-02-12"},
		{ProductName: "Groundnut Oil 1L", TotalCost: 800, Date: "2024-02-11"},
	}

	feed := MergeRecent(sales, purchases, nil)
	if len(feed) != FeedLimit {
		t.Fatalf("expected feed capped at %d, got %d", FeedLimit, len(feed))
	}
	if feed[0].Amount != "₦900" || feed[1].Amount != "₦800" {
		t.Fatalf("expected newest purchases first, got %+v", feed[:2])
	}
}

func TestMergeRecentDropsEmptyDates(t *testing.T) {
	expenses := []domain.Expense{
		{Description: "No date", Amount: 10},
		{Description: "Dated", Amount: 20, ExpenseDate: "2024-02-01"},
	}

	feed := MergeRecent(nil, nil, expenses)
	if len(feed) != 1 || feed[0].Item != "Dated" {
		t.Fatalf("expected undated entry dropped, got %+v", feed)
	}
}

func TestMergeRecentFallsBackToGenericProductLabel(t *testing.T) {
	feed := MergeRecent([]domain.Sale{{TotalSales: 10, Date: "2024-02-01"}}, nil, nil)
	if len(feed) != 1 || feed[0].Item != "Product" {
		t.Fatalf("expected generic label for missing product name, got %+v", feed)
	}
}

func TestFormatAmountThousands(t *testing.T) {
	if got := FormatAmount(1234567); got != "₦1,234,567" {
		t.Fatalf("unexpected formatting %q", got)
	}
	if got := FormatAmount(950); got != "₦950" {
		t.Fatalf("unexpected formatting %q", got)
	}
	if got := FormatAmount(1234.5); got != "₦1,234.5" {
		t.Fatalf("unexpected formatting %q", got)
	}
}
