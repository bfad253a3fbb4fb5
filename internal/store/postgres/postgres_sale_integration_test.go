package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"bizbook/backend/internal/domain"
	"bizbook/backend/internal/store"
)

func TestSaleCreationDecrementsStock(t *testing.T) {
	databaseURL := os.Getenv("BIZBOOK_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BIZBOOK_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	if err := RunMigrations(databaseURL); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	email := fmt.Sprintf("it-%d@example.com", stamp)

	user, err := s.CreateUser(ctx, domain.UserAccount{
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		DisplayName:  "Integration",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM expense_categories WHERE user_id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, user.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
	})

	product, err := s.CreateProduct(ctx, user.ID, domain.Product{
		Name:          "IT Widget",
		CostPrice:     100,
		SellingPrice:  150,
		StockQuantity: 10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	sale, err := s.CreateSale(ctx, user.ID, domain.Sale{
		ProductID:  product.ID,
		Quantity:   4,
		TotalSales: 600,
		Date:       "2024-03-15",
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.ProductName != "IT Widget" {
		t.Fatalf("expected joined product name, got %q", sale.ProductName)
	}

	after, err := s.GetProduct(ctx, user.ID, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if after.StockQuantity != 6 {
		t.Fatalf("expected stock 6 after sale, got %d", after.StockQuantity)
	}

	_, err = s.CreateSale(ctx, user.ID, domain.Sale{
		ProductID:  product.ID,
		Quantity:   7,
		TotalSales: 1050,
		Date:       "2024-03-15",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for oversell, got %v", err)
	}
}

func TestCategoryUniquePerUser(t *testing.T) {
	databaseURL := os.Getenv("BIZBOOK_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set BIZBOOK_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	if err := RunMigrations(databaseURL); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	makeUser := func(label string) *domain.UserAccount {
		user, err := s.CreateUser(ctx, domain.UserAccount{
			Email:        fmt.Sprintf("it-%s-%d@example.com", label, stamp),
			PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
			DisplayName:  "Integration",
		})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		t.Cleanup(func() {
			_, _ = s.db.ExecContext(ctx, `DELETE FROM expense_categories WHERE user_id = $1`, user.ID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, user.ID)
			_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, user.ID)
		})
		return user
	}

	first := makeUser("a")
	second := makeUser("b")

	if _, err := s.CreateCategory(ctx, first.ID, "Rent"); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := s.CreateCategory(ctx, first.ID, "Rent"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
	// Same name under a different user is fine.
	if _, err := s.CreateCategory(ctx, second.ID, "Rent"); err != nil {
		t.Fatalf("expected cross-user create to succeed, got %v", err)
	}
}
