package domain

import "time"

// Calendar dates (sale date, expense date, rollup day) travel as
// "YYYY-MM-DD" strings end to end, matching the wire format the
// client already speaks.

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CostPrice     float64   `json:"cost_price"`
	SellingPrice  float64   `json:"selling_price"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProductRef is the trimmed shape returned by GET /api/products,
// used by the client to populate product pickers.
type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ProductCreateRequest struct {
	Name          string  `json:"name"`
	CostPrice     float64 `json:"cost_price"`
	SellingPrice  float64 `json:"selling_price"`
	StockQuantity int     `json:"stock_quantity"`
}

type ProductUpdateRequest struct {
	ID            string   `json:"id"`
	Name          *string  `json:"name,omitempty"`
	CostPrice     *float64 `json:"cost_price,omitempty"`
	SellingPrice  *float64 `json:"selling_price,omitempty"`
	StockQuantity *int     `json:"stock_quantity,omitempty"`
}

type Sale struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	TotalSales  float64   `json:"total_sales"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type SaleCreateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Date      string `json:"date,omitempty"`
}

type SaleUpdateRequest struct {
	ID       string  `json:"id"`
	Quantity *int    `json:"quantity,omitempty"`
	Date     *string `json:"date,omitempty"`
}

type Purchase struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	TotalCost   float64   `json:"total_cost"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type PurchaseCreateRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	TotalCost float64 `json:"total_cost"`
	Date      string  `json:"date,omitempty"`
}

type PurchaseUpdateRequest struct {
	ID        string   `json:"id"`
	ProductID *string  `json:"product_id,omitempty"`
	Quantity  *int     `json:"quantity,omitempty"`
	TotalCost *float64 `json:"total_cost,omitempty"`
	Date      *string  `json:"date,omitempty"`
}

type ExpenseCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CategoryCreateRequest struct {
	Name string `json:"name"`
}

type CategoryUpdateRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	ExpenseDate string    `json:"expense_date"`
	CategoryID  *string   `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type ExpenseCreateRequest struct {
	Description string   `json:"description"`
	Amount      *float64 `json:"amount"`
	CategoryID  *string  `json:"category_id,omitempty"`
	ExpenseDate string   `json:"expense_date,omitempty"`
}

type ExpenseUpdateRequest struct {
	ID          string   `json:"id"`
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	CategoryID  *string  `json:"category_id,omitempty"`
	ExpenseDate *string  `json:"expense_date,omitempty"`
}

// DeleteRequest carries the row id for DELETE calls, which take the id in
// the JSON body rather than the path.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ProfitSummaryRow is a read-only daily rollup. Rows are produced by the
// manual_refresh_profit_data database function (or its in-memory stand-in),
// never recomputed by request handlers.
type ProfitSummaryRow struct {
	Day                 string  `json:"day"`
	TotalSales          float64 `json:"total_sales"`
	TotalPurchases      float64 `json:"total_purchases"`
	TotalExpenses       float64 `json:"total_expenses"`
	NetProfit           float64 `json:"net_profit"`
	ProfitMarginPercent float64 `json:"profit_margin_percent"`
}

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ExpiresAt lets the client schedule its forced-logout timer off the token
// lifetime.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	DisplayName string `json:"display_name"`
}

// Identity is the authenticated caller extracted from the bearer token.
// Every repository call is scoped to Identity.UserID.
type Identity struct {
	UserID string
	Email  string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

const (
	TxTypeSale     = "Sale"
	TxTypePurchase = "Purchase"
	TxTypeExpense  = "Expense"
)
