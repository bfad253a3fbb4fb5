package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"bizbook/backend/internal/domain"
	"bizbook/backend/internal/profilecache"
	"bizbook/backend/internal/store"
	"bizbook/backend/internal/store/memory"
)

func newTestService() (*Service, context.Context) {
	svc := New(memory.NewSeeded(), profilecache.Noop{})
	svc.now = func() time.Time {
		return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	}
	ctx := WithUser(context.Background(), domain.Identity{UserID: "usr-demo", Email: "demo@bizbook.local"})
	return svc, ctx
}

func TestCreateSaleComputesTotalAndDecrementsStock(t *testing.T) {
	svc, ctx := newTestService()

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ProductID: "prd-rice",
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if sale.TotalSales != 3*5500 {
		t.Fatalf("expected total 16500, got %v", sale.TotalSales)
	}
	if sale.Date != "2024-03-15" {
		t.Fatalf("expected date to default to today, got %q", sale.Date)
	}
	if sale.ProductName != "Rice 5kg" {
		t.Fatalf("expected joined product name, got %q", sale.ProductName)
	}

	product, err := svc.repo.GetProduct(ctx, "usr-demo", "prd-rice")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockQuantity != 37 {
		t.Fatalf("expected stock 37 after sale, got %d", product.StockQuantity)
	}
}

func TestCreateSaleRejectsOversellWithAvailableQuantity(t *testing.T) {
	svc, ctx := newTestService()

	_, err := svc.CreateSale(ctx, domain.SaleCreateRequest{
		ProductID: "prd-oil",
		Quantity:  26,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "25") {
		t.Fatalf("expected message to name available quantity, got %q", err.Error())
	}
}

func TestCreateCategoryRejectsDuplicateName(t *testing.T) {
	svc, ctx := newTestService()

	if _, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Rent"}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Rent"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateExpenseDefaultsDateAndValidatesAmount(t *testing.T) {
	svc, ctx := newTestService()

	amount := 1200.0
	expense, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Description: "Fuel",
		Amount:      &amount,
	})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}
	if expense.ExpenseDate != "2024-03-15" {
		t.Fatalf("expected default expense date, got %q", expense.ExpenseDate)
	}

	negative := -5.0
	_, err = svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Description: "Fuel",
		Amount:      &negative,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}

	_, err = svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Description: "Fuel"})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for missing amount, got %v", err)
	}
}

func TestDeleteExpenseRemovesExactlyOne(t *testing.T) {
	svc, ctx := newTestService()

	amount := 100.0
	first, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Description: "Water", Amount: &amount})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}
	second, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Description: "Power", Amount: &amount})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}

	if err := svc.DeleteExpense(ctx, first.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	remaining, err := svc.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != second.ID {
		t.Fatalf("expected only %s to remain, got %+v", second.ID, remaining)
	}

	if err := svc.DeleteExpense(ctx, first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for second delete, got %v", err)
	}
}

func TestUpdateSaleRecomputesTotalFromCurrentPrice(t *testing.T) {
	svc, ctx := newTestService()

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: "prd-oil", Quantity: 2})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	quantity := 4
	if err := svc.UpdateSale(ctx, domain.SaleUpdateRequest{ID: sale.ID, Quantity: &quantity}); err != nil {
		t.Fatalf("update sale failed: %v", err)
	}

	sales, err := svc.ListSales(ctx)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected one sale, got %d", len(sales))
	}
	if sales[0].TotalSales != 4*2100 {
		t.Fatalf("expected total 8400, got %v", sales[0].TotalSales)
	}
}

func TestOperationsAreScopedToTheCallingUser(t *testing.T) {
	svc, ctx := newTestService()

	sale, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: "prd-rice", Quantity: 1})
	if err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	other := WithUser(context.Background(), domain.Identity{UserID: "usr-other", Email: "other@bizbook.local"})
	if err := svc.DeleteSale(other, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found across users, got %v", err)
	}

	sales, err := svc.ListSales(other)
	if err != nil {
		t.Fatalf("list sales failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected empty list for other user, got %d rows", len(sales))
	}
}

func TestRecentTransactionsMergesAndCaps(t *testing.T) {
	svc, ctx := newTestService()

	for i := 0; i < 4; i++ {
		if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: "prd-rice", Quantity: 1, Date: "2024-03-10"}); err != nil {
			t.Fatalf("create sale failed: %v", err)
		}
	}
	if _, err := svc.CreatePurchase(ctx, domain.PurchaseCreateRequest{ProductID: "prd-oil", Quantity: 10, TotalCost: 15000, Date: "2024-03-14"}); err != nil {
		t.Fatalf("create purchase failed: %v", err)
	}
	amount := 500.0
	if _, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{Description: "Transport fare", Amount: &amount, ExpenseDate: "2024-03-12"}); err != nil {
		t.Fatalf("create expense failed: %v", err)
	}

	feed, err := svc.RecentTransactions(ctx)
	if err != nil {
		t.Fatalf("recent transactions failed: %v", err)
	}
	if len(feed) != 5 {
		t.Fatalf("expected feed capped at 5, got %d", len(feed))
	}
	if feed[0].Type != domain.TxTypePurchase || feed[0].Date != "2024-03-14" {
		t.Fatalf("expected newest entry to be the purchase, got %+v", feed[0])
	}
	if feed[1].Type != domain.TxTypeExpense || feed[1].Item != "Transport fare" {
		t.Fatalf("expected expense second, got %+v", feed[1])
	}
}

func TestBuildProfitReportWindowsRows(t *testing.T) {
	svc, ctx := newTestService()

	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: "prd-rice", Quantity: 2, Date: "2024-03-14"}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.CreateSale(ctx, domain.SaleCreateRequest{ProductID: "prd-rice", Quantity: 1, Date: "2024-01-01"}); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}
	if _, err := svc.RefreshProfitSummary(ctx); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	rep, err := svc.BuildProfitReport(ctx, 7)
	if err != nil {
		t.Fatalf("build report failed: %v", err)
	}
	if rep.Totals.TotalRevenue != 11000 {
		t.Fatalf("expected windowed revenue 11000, got %v", rep.Totals.TotalRevenue)
	}
	if len(rep.Chart) != 1 {
		t.Fatalf("expected one chart point in window, got %d", len(rep.Chart))
	}

	wide, err := svc.BuildProfitReport(ctx, 365)
	if err != nil {
		t.Fatalf("build report failed: %v", err)
	}
	if len(wide.Chart) != 2 {
		t.Fatalf("expected two chart points over a year, got %d", len(wide.Chart))
	}
}

func TestDeleteCategoryDetachesExpenses(t *testing.T) {
	svc, ctx := newTestService()

	amount := 250.0
	categoryID := "cat-transport"
	expense, err := svc.CreateExpense(ctx, domain.ExpenseCreateRequest{
		Description: "Bus fare",
		Amount:      &amount,
		CategoryID:  &categoryID,
	})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}

	if err := svc.DeleteCategory(ctx, categoryID); err != nil {
		t.Fatalf("delete category failed: %v", err)
	}

	expenses, err := svc.ListExpenses(ctx)
	if err != nil {
		t.Fatalf("list expenses failed: %v", err)
	}
	for _, e := range expenses {
		if e.ID == expense.ID && e.CategoryID != nil {
			t.Fatalf("expected category reference cleared, got %v", *e.CategoryID)
		}
	}
}
