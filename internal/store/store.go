package store

import (
	"context"
	"errors"

	"bizbook/backend/internal/domain"
)

// Sentinel errors shared by all repository implementations. The HTTP layer
// maps them to 400, 409 and 404 respectively; anything else becomes a 500.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("invalid input")
)

// Repository is the remote data gateway contract. Every method is scoped to
// the owning user: lists filter by user id and mutations match on both row
// id and user id, so a guessed id never crosses accounts.
type Repository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	GetDisplayName(ctx context.Context, userID string) (string, error)

	ListProducts(ctx context.Context, userID string) ([]domain.Product, error)
	GetProduct(ctx context.Context, userID string, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, userID string, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, userID string, product domain.Product) error
	DeleteProduct(ctx context.Context, userID string, id string) error

	ListSales(ctx context.Context, userID string) ([]domain.Sale, error)
	RecentSales(ctx context.Context, userID string, limit int) ([]domain.Sale, error)
	CreateSale(ctx context.Context, userID string, sale domain.Sale) (*domain.Sale, error)
	UpdateSale(ctx context.Context, userID string, sale domain.Sale) error
	DeleteSale(ctx context.Context, userID string, id string) error

	ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error)
	RecentPurchases(ctx context.Context, userID string, limit int) ([]domain.Purchase, error)
	CreatePurchase(ctx context.Context, userID string, purchase domain.Purchase) (*domain.Purchase, error)
	UpdatePurchase(ctx context.Context, userID string, purchase domain.Purchase) error
	DeletePurchase(ctx context.Context, userID string, id string) error

	ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error)
	RecentExpenses(ctx context.Context, userID string, limit int) ([]domain.Expense, error)
	CreateExpense(ctx context.Context, userID string, expense domain.Expense) (*domain.Expense, error)
	UpdateExpense(ctx context.Context, userID string, expense domain.Expense) error
	DeleteExpense(ctx context.Context, userID string, id string) error

	ListCategories(ctx context.Context, userID string) ([]domain.ExpenseCategory, error)
	CreateCategory(ctx context.Context, userID string, name string) (*domain.ExpenseCategory, error)
	RenameCategory(ctx context.Context, userID string, id string, name string) error
	DeleteCategory(ctx context.Context, userID string, id string) error

	ListProfitSummary(ctx context.Context, userID string) ([]domain.ProfitSummaryRow, error)
	RefreshProfitSummary(ctx context.Context, userID string) (string, error)
}
