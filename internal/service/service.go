package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"bizbook/backend/internal/domain"
	"bizbook/backend/internal/profilecache"
	"bizbook/backend/internal/report"
	"bizbook/backend/internal/store"
)

type userContextKey struct{}

// WithUser stamps the authenticated identity onto the context. The HTTP
// layer does this once per request after verifying the bearer token.
func WithUser(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, userContextKey{}, identity)
}

func UserFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(userContextKey{}).(domain.Identity)
	return identity, ok
}

const (
	dayLayout  = "2006-01-02"
	profileTTL = 30 * time.Minute
)

type Service struct {
	repo     store.Repository
	profiles profilecache.Cache
	now      func() time.Time
}

func New(repo store.Repository, profiles profilecache.Cache) *Service {
	if profiles == nil {
		profiles = profilecache.Noop{}
	}
	return &Service{
		repo:     repo,
		profiles: profiles,
		now:      time.Now,
	}
}

func (s *Service) userID(ctx context.Context) (string, error) {
	identity, ok := UserFromContext(ctx)
	if !ok || identity.UserID == "" {
		return "", fmt.Errorf("authenticated user required")
	}
	return identity.UserID, nil
}

func (s *Service) today() string {
	return s.now().UTC().Format(dayLayout)
}

// DisplayName resolves the caller's display name through the cache, falling
// back to the repository on a miss. Cache failures degrade to a direct read.
func (s *Service) DisplayName(ctx context.Context) (string, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return "", err
	}

	if name, ok, err := s.profiles.Get(ctx, userID); err != nil {
		log.Printf("[service] WARN: profile cache get user=%s: %v", userID, err)
	} else if ok {
		return name, nil
	}

	name, err := s.repo.GetDisplayName(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.profiles.Set(ctx, userID, name, profileTTL); err != nil {
		log.Printf("[service] WARN: profile cache set user=%s: %v", userID, err)
	}
	return name, nil
}

// Logout drops the cached profile so a stale display name cannot outlive the
// session that populated it.
func (s *Service) Logout(ctx context.Context) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if err := s.profiles.Invalidate(ctx, userID); err != nil {
		log.Printf("[service] WARN: profile cache invalidate user=%s: %v", userID, err)
	}
	return nil
}

func (s *Service) ListProductRefs(ctx context.Context) ([]domain.ProductRef, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]domain.ProductRef, 0, len(products))
	for _, p := range products {
		refs = append(refs, domain.ProductRef{ID: p.ID, Name: p.Name})
	}
	return refs, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if !validAmount(req.CostPrice) || !validAmount(req.SellingPrice) {
		return domain.Product{}, fmt.Errorf("%w: prices must be non-negative numbers", store.ErrValidation)
	}
	if req.StockQuantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock quantity cannot be negative", store.ErrValidation)
	}

	created, err := s.repo.CreateProduct(ctx, userID, domain.Product{
		Name:          req.Name,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		return domain.Product{}, err
	}
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, req domain.ProductUpdateRequest) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if req.ID == "" {
		return fmt.Errorf("%w: product id is required", store.ErrValidation)
	}

	existing, err := s.repo.GetProduct(ctx, userID, req.ID)
	if err != nil {
		return err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return fmt.Errorf("%w: product name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.CostPrice != nil {
		if !validAmount(*req.CostPrice) {
			return fmt.Errorf("%w: cost price must be a non-negative number", store.ErrValidation)
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if !validAmount(*req.SellingPrice) {
			return fmt.Errorf("%w: selling price must be a non-negative number", store.ErrValidation)
		}
		updated.SellingPrice = *req.SellingPrice
	}
	if req.StockQuantity != nil {
		if *req.StockQuantity < 0 {
			return fmt.Errorf("%w: stock quantity cannot be negative", store.ErrValidation)
		}
		updated.StockQuantity = *req.StockQuantity
	}

	return s.repo.UpdateProduct(ctx, userID, updated)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: product id is required", store.ErrValidation)
	}
	return s.repo.DeleteProduct(ctx, userID, id)
}

func (s *Service) ListSales(ctx context.Context) ([]domain.Sale, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSales(ctx, userID)
}

// CreateSale prices the sale server-side: total is quantity times the
// product's current selling price, never a client-supplied figure. Stock is
// checked here for a friendly message and again atomically in the store.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return domain.Sale{}, err
	}

	if req.ProductID == "" {
		return domain.Sale{}, fmt.Errorf("%w: product is required", store.ErrValidation)
	}
	if req.Quantity < 1 {
		return domain.Sale{}, fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
	}
	date, err := s.normalizeDate(req.Date)
	if err != nil {
		return domain.Sale{}, err
	}

	product, err := s.repo.GetProduct(ctx, userID, req.ProductID)
	if err != nil {
		return domain.Sale{}, err
	}
	if req.Quantity > product.StockQuantity {
		return domain.Sale{}, fmt.Errorf("%w: only %d units of %s available", store.ErrValidation, product.StockQuantity, product.Name)
	}

	created, err := s.repo.CreateSale(ctx, userID, domain.Sale{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		TotalSales: float64(req.Quantity) * product.SellingPrice,
		Date:       date,
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return *created, nil
}

func (s *Service) UpdateSale(ctx context.Context, req domain.SaleUpdateRequest) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if req.ID == "" {
		return fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}

	existing, err := s.findSale(ctx, userID, req.ID)
	if err != nil {
		return err
	}

	updated := existing
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
		}
		product, err := s.repo.GetProduct(ctx, userID, existing.ProductID)
		if err != nil {
			return err
		}
		updated.Quantity = *req.Quantity
		updated.TotalSales = float64(*req.Quantity) * product.SellingPrice
	}
	if req.Date != nil {
		date, err := s.normalizeDate(*req.Date)
		if err != nil {
			return err
		}
		updated.Date = date
	}

	return s.repo.UpdateSale(ctx, userID, updated)
}

func (s *Service) DeleteSale(ctx context.Context, id string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: sale id is required", store.ErrValidation)
	}
	return s.repo.DeleteSale(ctx, userID, id)
}

func (s *Service) ListPurchases(ctx context.Context) ([]domain.Purchase, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPurchases(ctx, userID)
}

func (s *Service) CreatePurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.Purchase, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return domain.Purchase{}, err
	}

	if req.ProductID == "" {
		return domain.Purchase{}, fmt.Errorf("%w: product is required", store.ErrValidation)
	}
	if req.Quantity < 1 {
		return domain.Purchase{}, fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
	}
	if !validAmount(req.TotalCost) {
		return domain.Purchase{}, fmt.Errorf("%w: total cost must be a non-negative number", store.ErrValidation)
	}
	date, err := s.normalizeDate(req.Date)
	if err != nil {
		return domain.Purchase{}, err
	}

	created, err := s.repo.CreatePurchase(ctx, userID, domain.Purchase{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		TotalCost: req.TotalCost,
		Date:      date,
	})
	if err != nil {
		return domain.Purchase{}, err
	}
	return *created, nil
}

func (s *Service) UpdatePurchase(ctx context.Context, req domain.PurchaseUpdateRequest) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if req.ID == "" {
		return fmt.Errorf("%w: purchase id is required", store.ErrValidation)
	}

	existing, err := s.findPurchase(ctx, userID, req.ID)
	if err != nil {
		return err
	}

	updated := existing
	if req.ProductID != nil {
		if *req.ProductID == "" {
			return fmt.Errorf("%w: product is required", store.ErrValidation)
		}
		if _, err := s.repo.GetProduct(ctx, userID, *req.ProductID); err != nil {
			return err
		}
		updated.ProductID = *req.ProductID
	}
	if req.Quantity != nil {
		if *req.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
		}
		updated.Quantity = *req.Quantity
	}
	if req.TotalCost != nil {
		if !validAmount(*req.TotalCost) {
			return fmt.Errorf("%w: total cost must be a non-negative number", store.ErrValidation)
		}
		updated.TotalCost = *req.TotalCost
	}
	if req.Date != nil {
		date, err := s.normalizeDate(*req.Date)
		if err != nil {
			return err
		}
		updated.Date = date
	}

	return s.repo.UpdatePurchase(ctx, userID, updated)
}

func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: purchase id is required", store.ErrValidation)
	}
	return s.repo.DeletePurchase(ctx, userID, id)
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, userID)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return domain.Expense{}, err
	}

	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		return domain.Expense{}, fmt.Errorf("%w: description is required", store.ErrValidation)
	}
	if req.Amount == nil || !validAmount(*req.Amount) {
		return domain.Expense{}, fmt.Errorf("%w: amount must be a non-negative number", store.ErrValidation)
	}
	date, err := s.normalizeDate(req.ExpenseDate)
	if err != nil {
		return domain.Expense{}, err
	}
	categoryID := normalizeCategoryID(req.CategoryID)
	if err := s.checkCategory(ctx, userID, categoryID); err != nil {
		return domain.Expense{}, err
	}

	created, err := s.repo.CreateExpense(ctx, userID, domain.Expense{
		Description: req.Description,
		Amount:      *req.Amount,
		ExpenseDate: date,
		CategoryID:  categoryID,
	})
	if err != nil {
		return domain.Expense{}, err
	}
	return *created, nil
}

func (s *Service) UpdateExpense(ctx context.Context, req domain.ExpenseUpdateRequest) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if req.ID == "" {
		return fmt.Errorf("%w: expense id is required", store.ErrValidation)
	}

	existing, err := s.findExpense(ctx, userID, req.ID)
	if err != nil {
		return err
	}

	updated := existing
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return fmt.Errorf("%w: description is required", store.ErrValidation)
		}
		updated.Description = description
	}
	if req.Amount != nil {
		if !validAmount(*req.Amount) {
			return fmt.Errorf("%w: amount must be a non-negative number", store.ErrValidation)
		}
		updated.Amount = *req.Amount
	}
	if req.ExpenseDate != nil {
		date, err := s.normalizeDate(*req.ExpenseDate)
		if err != nil {
			return err
		}
		updated.ExpenseDate = date
	}
	if req.CategoryID != nil {
		categoryID := normalizeCategoryID(req.CategoryID)
		if err := s.checkCategory(ctx, userID, categoryID); err != nil {
			return err
		}
		updated.CategoryID = categoryID
	}

	return s.repo.UpdateExpense(ctx, userID, updated)
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: expense id is required", store.ErrValidation)
	}
	return s.repo.DeleteExpense(ctx, userID, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]domain.ExpenseCategory, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, userID)
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.ExpenseCategory, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return domain.ExpenseCategory{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ExpenseCategory{}, fmt.Errorf("%w: category name is required", store.ErrValidation)
	}

	created, err := s.repo.CreateCategory(ctx, userID, name)
	if err != nil {
		return domain.ExpenseCategory{}, err
	}
	return *created, nil
}

func (s *Service) RenameCategory(ctx context.Context, req domain.CategoryUpdateRequest) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if req.ID == "" {
		return fmt.Errorf("%w: category id is required", store.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fmt.Errorf("%w: category name is required", store.ErrValidation)
	}
	return s.repo.RenameCategory(ctx, userID, req.ID, name)
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("%w: category id is required", store.ErrValidation)
	}
	return s.repo.DeleteCategory(ctx, userID, id)
}

func (s *Service) ProfitSummary(ctx context.Context) ([]domain.ProfitSummaryRow, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProfitSummary(ctx, userID)
}

func (s *Service) RefreshProfitSummary(ctx context.Context) (string, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return "", err
	}
	return s.repo.RefreshProfitSummary(ctx, userID)
}

// ProfitReport is the windowed report payload: header totals plus the
// chronological chart series.
type ProfitReport struct {
	Days   int                 `json:"days"`
	Totals report.ProfitTotals `json:"totals"`
	Chart  []report.ChartPoint `json:"chart"`
}

func (s *Service) BuildProfitReport(ctx context.Context, days int) (ProfitReport, error) {
	rows, err := s.reportWindow(ctx, days)
	if err != nil {
		return ProfitReport{}, err
	}
	return ProfitReport{
		Days:   days,
		Totals: report.Totals(rows),
		Chart:  report.ChartPoints(rows),
	}, nil
}

// ExportProfitCSV renders the same window as a CSV download body and its
// suggested file name.
func (s *Service) ExportProfitCSV(ctx context.Context, days int) (string, string, error) {
	rows, err := s.reportWindow(ctx, days)
	if err != nil {
		return "", "", err
	}
	return report.CSV(rows), report.FileName(s.now().UTC()), nil
}

func (s *Service) reportWindow(ctx context.Context, days int) ([]domain.ProfitSummaryRow, error) {
	if days < 1 {
		return nil, fmt.Errorf("%w: days must be at least 1", store.ErrValidation)
	}
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListProfitSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	return report.FilterWindow(rows, days, s.now().UTC()), nil
}

func (s *Service) RecentTransactions(ctx context.Context) ([]report.FeedEntry, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	sales, err := s.repo.RecentSales(ctx, userID, report.FeedLimit)
	if err != nil {
		return nil, err
	}
	purchases, err := s.repo.RecentPurchases(ctx, userID, report.FeedLimit)
	if err != nil {
		return nil, err
	}
	expenses, err := s.repo.RecentExpenses(ctx, userID, report.FeedLimit)
	if err != nil {
		return nil, err
	}

	return report.MergeRecent(sales, purchases, expenses), nil
}

// findSale, findPurchase and findExpense resolve a single row through the
// user-scoped list, which is how every read in this system is bounded.

func (s *Service) findSale(ctx context.Context, userID string, id string) (domain.Sale, error) {
	sales, err := s.repo.ListSales(ctx, userID)
	if err != nil {
		return domain.Sale{}, err
	}
	for _, sale := range sales {
		if sale.ID == id {
			return sale, nil
		}
	}
	return domain.Sale{}, store.ErrNotFound
}

func (s *Service) findPurchase(ctx context.Context, userID string, id string) (domain.Purchase, error) {
	purchases, err := s.repo.ListPurchases(ctx, userID)
	if err != nil {
		return domain.Purchase{}, err
	}
	for _, purchase := range purchases {
		if purchase.ID == id {
			return purchase, nil
		}
	}
	return domain.Purchase{}, store.ErrNotFound
}

func (s *Service) findExpense(ctx context.Context, userID string, id string) (domain.Expense, error) {
	expenses, err := s.repo.ListExpenses(ctx, userID)
	if err != nil {
		return domain.Expense{}, err
	}
	for _, expense := range expenses {
		if expense.ID == id {
			return expense, nil
		}
	}
	return domain.Expense{}, store.ErrNotFound
}

// normalizeCategoryID collapses an empty id to nil so "no category" is
// stored as NULL rather than an empty string.
func normalizeCategoryID(categoryID *string) *string {
	if categoryID == nil || strings.TrimSpace(*categoryID) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*categoryID)
	return &trimmed
}

func (s *Service) checkCategory(ctx context.Context, userID string, categoryID *string) error {
	if categoryID == nil {
		return nil
	}
	categories, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	for _, category := range categories {
		if category.ID == *categoryID {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown category", store.ErrValidation)
}

// normalizeDate validates a YYYY-MM-DD value, defaulting empty input to the
// current day.
func (s *Service) normalizeDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.today(), nil
	}
	if _, err := time.Parse(dayLayout, date); err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation)
	}
	return date, nil
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
