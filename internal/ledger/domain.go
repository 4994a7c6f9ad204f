// Package ledger implements the supplier ledger: its entities, the pure
// balance aggregation, and the offline-first read/write facade the
// presentation layer talks to.
package ledger

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format for transaction dates.
// Dates carry no time component and compare lexicographically.
const DateLayout = "2006-01-02"

// TransactionType enumerates ledger entry kinds.
type TransactionType string

const (
	TypeInvoice TransactionType = "invoice"
	TypePayment TransactionType = "payment"
	TypeReturn  TransactionType = "return"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeInvoice, TypePayment, TypeReturn:
		return true
	}
	return false
}

// Supplier is a vendor the business buys from.
type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Provisional reports whether the supplier has not been confirmed by the
// remote store yet.
func (s Supplier) Provisional() bool { return IsProvisionalID(s.ID) }

// User is a staff operator. The access code is a shared PIN used only to
// stamp created_by on transactions, not for route protection.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// Provisional reports whether the user has not been confirmed remotely yet.
func (u User) Provisional() bool { return IsProvisionalID(u.ID) }

// Transaction is one ledger entry against a supplier.
type Transaction struct {
	ID              int64           `json:"id"`
	SupplierID      int64           `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name,omitempty"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Provisional reports whether the transaction has not been confirmed
// remotely yet.
func (t Transaction) Provisional() bool { return IsProvisionalID(t.ID) }

// AppSettings is the singleton configuration record. It is never created or
// deleted, only upserted.
type AppSettings struct {
	CompanyName       string `json:"company_name"`
	LogoURL           string `json:"logo_url,omitempty"`
	AdminPasswordHash string `json:"admin_password_hash,omitempty"`
}

// DefaultSettings is the hardcoded last-resort fallback when neither the
// remote store nor the cache has a settings record.
func DefaultSettings() AppSettings {
	return AppSettings{CompanyName: "Supplier Ledger"}
}

// SupplierSummary is the derived financial position of one supplier.
type SupplierSummary struct {
	Supplier      Supplier        `json:"supplier"`
	TotalInvoices decimal.Decimal `json:"total_invoices"`
	TotalPayments decimal.Decimal `json:"total_payments"`
	TotalReturns  decimal.Decimal `json:"total_returns"`
	Balance       decimal.Decimal `json:"balance"`
}

// provisionalClock backs provisional id minting. Seeded from the wall clock
// so ids stay unique across restarts that happen while mutations are still
// queued; incremented per mint so rapid successive creates never collide.
var provisionalClock atomic.Int64

func init() {
	provisionalClock.Store(time.Now().UnixMilli())
}

// NextProvisionalID mints a fresh negative id for a record created while
// offline. Negating the clock value keeps provisional records sorted
// oldest-first when negated back.
func NextProvisionalID() int64 {
	return -provisionalClock.Add(1)
}

// IsProvisionalID reports whether id denotes a record not yet confirmed by
// the remote store. This predicate is the only sanctioned sign check.
func IsProvisionalID(id int64) bool { return id < 0 }
