package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bizbook/backend/internal/domain"
	"bizbook/backend/internal/report"
	"bizbook/backend/internal/store"
	"bizbook/backend/internal/xid"
)

// Store is the in-memory repository used for dev mode and tests. Rows are
// held per user so the same isolation rules apply as in postgres.
type Store struct {
	mu            sync.RWMutex
	usersByEmail  map[string]domain.UserAccount
	products      map[string]map[string]domain.Product  // userID -> id -> row
	sales         map[string]map[string]domain.Sale
	purchases     map[string]map[string]domain.Purchase
	expenses      map[string]map[string]domain.Expense
	categories    map[string]map[string]domain.ExpenseCategory
	profitSummary map[string][]domain.ProfitSummaryRow
}

func New() *Store {
	return &Store{
		usersByEmail:  make(map[string]domain.UserAccount),
		products:      make(map[string]map[string]domain.Product),
		sales:         make(map[string]map[string]domain.Sale),
		purchases:     make(map[string]map[string]domain.Purchase),
		expenses:      make(map[string]map[string]domain.Expense),
		categories:    make(map[string]map[string]domain.ExpenseCategory),
		profitSummary: make(map[string][]domain.ProfitSummaryRow),
	}
}

// NewSeeded returns a store preloaded with a demo account and a few
// products so the app is usable without postgres. The demo password comes
// from SEED_DEMO_PASSWORD; a dev default is used with a warning otherwise.
func NewSeeded() *Store {
	s := New()

	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = "demo12345"
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_DEMO_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}

	now := time.Now().UTC()
	user := domain.UserAccount{
		ID:           "usr-demo",
		Email:        "demo@bizbook.local",
		PasswordHash: string(hash),
		DisplayName:  "Demo Trader",
		CreatedAt:    now,
	}
	s.usersByEmail[user.Email] = user

	s.products[user.ID] = map[string]domain.Product{
		"prd-rice": {ID: "prd-rice", Name: "Rice 5kg", CostPrice: 4200, SellingPrice: 5500, StockQuantity: 40, CreatedAt: now},
		"prd-oil":  {ID: "prd-oil", Name: "Groundnut Oil 1L", CostPrice: 1500, SellingPrice: 2100, StockQuantity: 25, CreatedAt: now},
	}
	s.categories[user.ID] = map[string]domain.ExpenseCategory{
		"cat-transport": {ID: "cat-transport", Name: "Transport"},
	}

	return s
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return nil, fmt.Errorf("account %w", store.ErrConflict)
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByEmail[user.Email] = user
	created := user
	return &created, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := user
	return &found, nil
}

func (s *Store) GetDisplayName(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.usersByEmail {
		if user.ID == userID {
			return user.DisplayName, nil
		}
	}
	return "", store.ErrNotFound
}

func (s *Store) ListProducts(_ context.Context, userID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products[userID]))
	for _, p := range s.products[userID] {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, userID string, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[userID][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := p
	return &found, nil
}

func (s *Store) CreateProduct(_ context.Context, userID string, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	if s.products[userID] == nil {
		s.products[userID] = make(map[string]domain.Product)
	}
	s.products[userID][product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, userID string, product domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[userID][product.ID]
	if !ok {
		return store.ErrNotFound
	}
	product.CreatedAt = existing.CreatedAt
	s.products[userID][product.ID] = product
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[userID][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products[userID], id)
	return nil
}

func (s *Store) ListSales(ctx context.Context, userID string) ([]domain.Sale, error) {
	return s.RecentSales(ctx, userID, 0)
}

func (s *Store) RecentSales(_ context.Context, userID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales[userID]))
	for _, sale := range s.sales[userID] {
		sale.ProductName = s.productNameLocked(userID, sale.ProductID)
		sales = append(sales, sale)
	}
	sortByDateDesc(sales, func(x domain.Sale) (string, time.Time) { return x.Date, x.CreatedAt })
	if limit > 0 && len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) CreateSale(_ context.Context, userID string, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[userID][sale.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if product.StockQuantity < sale.Quantity {
		return nil, fmt.Errorf("%w: insufficient stock", store.ErrValidation)
	}
	product.StockQuantity -= sale.Quantity
	s.products[userID][sale.ProductID] = product

	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if s.sales[userID] == nil {
		s.sales[userID] = make(map[string]domain.Sale)
	}
	s.sales[userID][sale.ID] = sale

	created := sale
	created.ProductName = product.Name
	return &created, nil
}

func (s *Store) UpdateSale(_ context.Context, userID string, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[userID][sale.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Quantity = sale.Quantity
	existing.TotalSales = sale.TotalSales
	existing.Date = sale.Date
	s.sales[userID][sale.ID] = existing
	return nil
}

func (s *Store) DeleteSale(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[userID][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.sales[userID], id)
	return nil
}

func (s *Store) ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error) {
	return s.RecentPurchases(ctx, userID, 0)
}

func (s *Store) RecentPurchases(_ context.Context, userID string, limit int) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchases[userID]))
	for _, purchase := range s.purchases[userID] {
		purchase.ProductName = s.productNameLocked(userID, purchase.ProductID)
		purchases = append(purchases, purchase)
	}
	sortByDateDesc(purchases, func(x domain.Purchase) (string, time.Time) { return x.Date, x.CreatedAt })
	if limit > 0 && len(purchases) > limit {
		purchases = purchases[:limit]
	}
	return purchases, nil
}

func (s *Store) CreatePurchase(_ context.Context, userID string, purchase domain.Purchase) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[userID][purchase.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	if s.purchases[userID] == nil {
		s.purchases[userID] = make(map[string]domain.Purchase)
	}
	s.purchases[userID][purchase.ID] = purchase
	created := purchase
	return &created, nil
}

func (s *Store) UpdatePurchase(_ context.Context, userID string, purchase domain.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.purchases[userID][purchase.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.ProductID = purchase.ProductID
	existing.Quantity = purchase.Quantity
	existing.TotalCost = purchase.TotalCost
	existing.Date = purchase.Date
	s.purchases[userID][purchase.ID] = existing
	return nil
}

func (s *Store) DeletePurchase(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.purchases[userID][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.purchases[userID], id)
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	return s.RecentExpenses(ctx, userID, 0)
}

func (s *Store) RecentExpenses(_ context.Context, userID string, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expenses[userID]))
	for _, expense := range s.expenses[userID] {
		expenses = append(expenses, expense)
	}
	sortByDateDesc(expenses, func(x domain.Expense) (string, time.Time) { return x.ExpenseDate, x.CreatedAt })
	if limit > 0 && len(expenses) > limit {
		expenses = expenses[:limit]
	}
	return expenses, nil
}

func (s *Store) CreateExpense(_ context.Context, userID string, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	if s.expenses[userID] == nil {
		s.expenses[userID] = make(map[string]domain.Expense)
	}
	s.expenses[userID][expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) UpdateExpense(_ context.Context, userID string, expense domain.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.expenses[userID][expense.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.Description = expense.Description
	existing.Amount = expense.Amount
	existing.ExpenseDate = expense.ExpenseDate
	existing.CategoryID = expense.CategoryID
	s.expenses[userID][expense.ID] = existing
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expenses[userID][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.expenses[userID], id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]domain.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.ExpenseCategory, 0, len(s.categories[userID]))
	for _, c := range s.categories[userID] {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

func (s *Store) CreateCategory(_ context.Context, userID string, name string) (*domain.ExpenseCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.categories[userID] {
		if c.Name == name {
			return nil, fmt.Errorf("category %w", store.ErrConflict)
		}
	}
	category := domain.ExpenseCategory{ID: xid.New("cat"), Name: name}
	if s.categories[userID] == nil {
		s.categories[userID] = make(map[string]domain.ExpenseCategory)
	}
	s.categories[userID][category.ID] = category
	return &category, nil
}

func (s *Store) RenameCategory(_ context.Context, userID string, id string, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[userID][id]
	if !ok {
		return store.ErrNotFound
	}
	for _, c := range s.categories[userID] {
		if c.ID != id && c.Name == name {
			return fmt.Errorf("category name %w", store.ErrConflict)
		}
	}
	existing.Name = name
	s.categories[userID][id] = existing
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, userID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[userID][id]; !ok {
		return store.ErrNotFound
	}
	for expenseID, expense := range s.expenses[userID] {
		if expense.CategoryID != nil && *expense.CategoryID == id {
			expense.CategoryID = nil
			s.expenses[userID][expenseID] = expense
		}
	}
	delete(s.categories[userID], id)
	return nil
}

func (s *Store) ListProfitSummary(_ context.Context, userID string) ([]domain.ProfitSummaryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.ProfitSummaryRow, len(s.profitSummary[userID]))
	copy(rows, s.profitSummary[userID])
	return rows, nil
}

// RefreshProfitSummary recomputes the per-day rollup in Go. This is the
// dev/test stand-in for the manual_refresh_profit_data SQL function; the
// service treats both as opaque.
func (s *Store) RefreshProfitSummary(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type bucket struct {
		sales     float64
		purchases float64
		expenses  float64
	}
	byDay := make(map[string]*bucket)
	day := func(key string) *bucket {
		b, ok := byDay[key]
		if !ok {
			b = &bucket{}
			byDay[key] = b
		}
		return b
	}

	for _, sale := range s.sales[userID] {
		day(sale.Date).sales += sale.TotalSales
	}
	for _, purchase := range s.purchases[userID] {
		day(purchase.Date).purchases += purchase.TotalCost
	}
	for _, expense := range s.expenses[userID] {
		day(expense.ExpenseDate).expenses += expense.Amount
	}

	rows := make([]domain.ProfitSummaryRow, 0, len(byDay))
	for key, b := range byDay {
		net := b.sales - b.purchases - b.expenses
		margin := 0.0
		if b.sales != 0 {
			margin = report.Round2(net / b.sales * 100)
		}
		rows = append(rows, domain.ProfitSummaryRow{
			Day:                 key,
			TotalSales:          b.sales,
			TotalPurchases:      b.purchases,
			TotalExpenses:       b.expenses,
			NetProfit:           net,
			ProfitMarginPercent: margin,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day > rows[j].Day })
	s.profitSummary[userID] = rows

	return "Profit summaries refreshed!", nil
}

// productNameLocked resolves a product name for display joins; callers must
// hold at least the read lock.
func (s *Store) productNameLocked(userID string, productID string) string {
	if p, ok := s.products[userID][productID]; ok {
		return p.Name
	}
	return ""
}

func sortByDateDesc[T any](items []T, key func(T) (string, time.Time)) {
	sort.SliceStable(items, func(i, j int) bool {
		di, ti := key(items[i])
		dj, tj := key(items[j])
		if di != dj {
			return strings.Compare(di, dj) > 0
		}
		return ti.After(tj)
	})
}
