package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"bizbook/backend/internal/domain"
	"bizbook/backend/internal/store"
	"bizbook/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) (*domain.UserAccount, error) {
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1,$2,$3,$4)
	`, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %w", store.ErrConflict)
		}
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name)
		VALUES ($1,$2)
	`, user.ID, user.DisplayName)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := user
	return &created, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.password_hash, COALESCE(p.display_name, ''), u.created_at
		FROM users u
		LEFT JOIN profiles p ON p.id = u.id
		WHERE u.email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetDisplayName(ctx context.Context, userID string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT display_name FROM profiles WHERE id = $1
	`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return name, nil
}

func (s *Store) ListProducts(ctx context.Context, userID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cost_price, selling_price, stock_quantity, created_at
		FROM products
		WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CostPrice, &p.SellingPrice, &p.StockQuantity, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, userID string, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, cost_price, selling_price, stock_quantity, created_at
		FROM products
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&p.ID, &p.Name, &p.CostPrice, &p.SellingPrice, &p.StockQuantity, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, userID string, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, user_id, name, cost_price, selling_price, stock_quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, userID, product.Name, product.CostPrice, product.SellingPrice, product.StockQuantity, product.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, userID string, product domain.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $3, cost_price = $4, selling_price = $5, stock_quantity = $6
		WHERE id = $1 AND user_id = $2
	`, product.ID, userID, product.Name, product.CostPrice, product.SellingPrice, product.StockQuantity)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteProduct(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM products WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const saleColumns = `
	s.id, s.product_id, COALESCE(p.name, ''), s.quantity, s.total_sales,
	to_char(s.date, 'YYYY-MM-DD'), s.created_at
`

func (s *Store) ListSales(ctx context.Context, userID string) ([]domain.Sale, error) {
	return s.querySales(ctx, userID, 0)
}

func (s *Store) RecentSales(ctx context.Context, userID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 5
	}
	return s.querySales(ctx, userID, limit)
}

func (s *Store) querySales(ctx context.Context, userID string, limit int) ([]domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales s
		LEFT JOIN products p ON p.id = s.product_id
		WHERE s.user_id = $1
		ORDER BY s.date DESC, s.created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(&sale.ID, &sale.ProductID, &sale.ProductName, &sale.Quantity, &sale.TotalSales, &sale.Date, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sale.CreatedAt = sale.CreatedAt.UTC()
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

// CreateSale inserts the sale and decrements the product's stock in one
// transaction. The service validates quantity against stock first; the
// guarded UPDATE here is the authoritative check under concurrency.
func (s *Store) CreateSale(ctx context.Context, userID string, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" {
		sale.ID = xid.New("sal")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $3
		WHERE id = $1 AND user_id = $2 AND stock_quantity >= $3
	`, sale.ProductID, userID, sale.Quantity)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("%w: insufficient stock", store.ErrValidation)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, user_id, product_id, quantity, total_sales, date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, sale.ID, userID, sale.ProductID, sale.Quantity, sale.TotalSales, sale.Date, sale.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func (s *Store) UpdateSale(ctx context.Context, userID string, sale domain.Sale) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET quantity = $3, total_sales = $4, date = $5
		WHERE id = $1 AND user_id = $2
	`, sale.ID, userID, sale.Quantity, sale.TotalSales, sale.Date)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteSale(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sales WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const purchaseColumns = `
	pu.id, pu.product_id, COALESCE(p.name, ''), pu.quantity, pu.total_cost,
	to_char(pu.date, 'YYYY-MM-DD'), pu.created_at
`

func (s *Store) ListPurchases(ctx context.Context, userID string) ([]domain.Purchase, error) {
	return s.queryPurchases(ctx, userID, 0)
}

func (s *Store) RecentPurchases(ctx context.Context, userID string, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 5
	}
	return s.queryPurchases(ctx, userID, limit)
}

func (s *Store) queryPurchases(ctx context.Context, userID string, limit int) ([]domain.Purchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM purchases pu
		LEFT JOIN products p ON p.id = pu.product_id
		WHERE pu.user_id = $1
		ORDER BY pu.date DESC, pu.created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, 64)
	for rows.Next() {
		var pu domain.Purchase
		if err := rows.Scan(&pu.ID, &pu.ProductID, &pu.ProductName, &pu.Quantity, &pu.TotalCost, &pu.Date, &pu.CreatedAt); err != nil {
			return nil, err
		}
		pu.CreatedAt = pu.CreatedAt.UTC()
		purchases = append(purchases, pu)
	}
	return purchases, rows.Err()
}

func (s *Store) CreatePurchase(ctx context.Context, userID string, purchase domain.Purchase) (*domain.Purchase, error) {
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, product_id, quantity, total_cost, date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, purchase.ID, userID, purchase.ProductID, purchase.Quantity, purchase.TotalCost, purchase.Date, purchase.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := purchase
	return &created, nil
}

func (s *Store) UpdatePurchase(ctx context.Context, userID string, purchase domain.Purchase) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE purchases
		SET product_id = $3, quantity = $4, total_cost = $5, date = $6
		WHERE id = $1 AND user_id = $2
	`, purchase.ID, userID, purchase.ProductID, purchase.Quantity, purchase.TotalCost, purchase.Date)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeletePurchase(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM purchases WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const expenseColumns = `
	id, description, amount, to_char(expense_date, 'YYYY-MM-DD'), category_id, created_at
`

func (s *Store) ListExpenses(ctx context.Context, userID string) ([]domain.Expense, error) {
	return s.queryExpenses(ctx, userID, 0)
}

func (s *Store) RecentExpenses(ctx context.Context, userID string, limit int) ([]domain.Expense, error) {
	if limit < 1 {
		limit = 5
	}
	return s.queryExpenses(ctx, userID, limit)
}

func (s *Store) queryExpenses(ctx context.Context, userID string, limit int) ([]domain.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses
		WHERE user_id = $1
		ORDER BY expense_date DESC, created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 64)
	for rows.Next() {
		var e domain.Expense
		var categoryID sql.NullString
		if err := rows.Scan(&e.ID, &e.Description, &e.Amount, &e.ExpenseDate, &categoryID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			e.CategoryID = &categoryID.String
		}
		e.CreatedAt = e.CreatedAt.UTC()
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, userID string, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, description, amount, expense_date, category_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, expense.ID, userID, expense.Description, expense.Amount, expense.ExpenseDate, nullIfNil(expense.CategoryID), expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) UpdateExpense(ctx context.Context, userID string, expense domain.Expense) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET description = $3, amount = $4, expense_date = $5, category_id = $6
		WHERE id = $1 AND user_id = $2
	`, expense.ID, userID, expense.Description, expense.Amount, expense.ExpenseDate, nullIfNil(expense.CategoryID))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteExpense(ctx context.Context, userID string, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM expenses WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.ExpenseCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM expense_categories
		WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.ExpenseCategory, 0, 16)
	for rows.Next() {
		var c domain.ExpenseCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, userID string, name string) (*domain.ExpenseCategory, error) {
	category := domain.ExpenseCategory{ID: xid.New("cat"), Name: name}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_categories (id, user_id, name)
		VALUES ($1,$2,$3)
	`, category.ID, userID, category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %w", store.ErrConflict)
		}
		return nil, err
	}
	return &category, nil
}

func (s *Store) RenameCategory(ctx context.Context, userID string, id string, name string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expense_categories
		SET name = $3
		WHERE id = $1 AND user_id = $2
	`, id, userID, name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category name %w", store.ErrConflict)
		}
		return err
	}
	return requireAffected(res)
}

// DeleteCategory nulls out references first so existing expenses fall back
// to "Uncategorized" rather than blocking the delete.
func (s *Store) DeleteCategory(ctx context.Context, userID string, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		UPDATE expenses SET category_id = NULL WHERE category_id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM expense_categories WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListProfitSummary(ctx context.Context, userID string) ([]domain.ProfitSummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(day, 'YYYY-MM-DD'), total_sales, total_purchases, total_expenses,
			net_profit, profit_margin_percent
		FROM profit_summary
		WHERE user_id = $1
		ORDER BY day DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := make([]domain.ProfitSummaryRow, 0, 90)
	for rows.Next() {
		var row domain.ProfitSummaryRow
		if err := rows.Scan(&row.Day, &row.TotalSales, &row.TotalPurchases, &row.TotalExpenses, &row.NetProfit, &row.ProfitMarginPercent); err != nil {
			return nil, err
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}

// RefreshProfitSummary invokes the rollup function shipped in migrations.
// The Go side treats the rollup as an opaque computation it can only trigger
// or read.
func (s *Store) RefreshProfitSummary(ctx context.Context, userID string) (string, error) {
	var msg string
	if err := s.db.QueryRowContext(ctx, `SELECT manual_refresh_profit_data($1)`, userID).Scan(&msg); err != nil {
		return "", err
	}
	return msg, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfNil(val *string) any {
	if val == nil || strings.TrimSpace(*val) == "" {
		return nil
	}
	return *val
}
