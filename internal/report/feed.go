package report

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"bizbook/backend/internal/domain"
)

// FeedLimit caps the unified recent-activity feed.
const FeedLimit = 5

// FeedEntry is the unified transaction view model: one row of the
// recent-activity table, regardless of source table. Amount is
// pre-formatted for display.
type FeedEntry struct {
	Date   string `json:"date"`
	Type   string `json:"type"`
	Item   string `json:"item"`
	Amount string `json:"amount"`
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders a display amount with the naira symbol and thousands
// separators, e.g. 1234.5 -> "₦1,234.5".
func FormatAmount(v float64) string {
	return "₦" + amountPrinter.Sprint(number.Decimal(v))
}

// MergeRecent folds the three per-table recent lists into one feed: map each
// row to the common shape, drop entries without a date, sort the union
// descending by date and keep the newest FeedLimit. The sort is stable, so
// rows sharing a date keep concatenation order (sales, purchases, expenses).
func MergeRecent(sales []domain.Sale, purchases []domain.Purchase, expenses []domain.Expense) []FeedEntry {
	entries := make([]FeedEntry, 0, len(sales)+len(purchases)+len(expenses))

	for _, s := range sales {
		item := s.ProductName
		if item == "" {
			item = "Product"
		}
		entries = append(entries, FeedEntry{
			Date:   s.Date,
			Type:   domain.TxTypeSale,
			Item:   item,
			Amount: FormatAmount(s.TotalSales),
		})
	}
	for _, p := range purchases {
		item := p.ProductName
		if item == "" {
			item = "Product"
		}
		entries = append(entries, FeedEntry{
			Date:   p.Date,
			Type:   domain.TxTypePurchase,
			Item:   item,
			Amount: FormatAmount(p.TotalCost),
		})
	}
	for _, e := range expenses {
		entries = append(entries, FeedEntry{
			Date:   e.ExpenseDate,
			Type:   domain.TxTypeExpense,
			Item:   e.Description,
			Amount: FormatAmount(e.Amount),
		})
	}

	kept := entries[:0]
	for _, entry := range entries {
		if entry.Date != "" {
			kept = append(kept, entry)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date > kept[j].Date
	})

	if len(kept) > FeedLimit {
		kept = kept[:FeedLimit]
	}
	return kept
}
