package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// StatementFilter narrows the period view of a statement. An empty Types
// slice keeps every kind; Reference keeps only entries whose reference
// number contains the given substring (case-folded).
type StatementFilter struct {
	Types     []TransactionType
	Reference string
}

func (f StatementFilter) matches(t Transaction) bool {
	if len(f.Types) > 0 {
		found := false
		for _, typ := range f.Types {
			if t.Type == typ {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Reference != "" {
		fold := cases.Fold()
		return strings.Contains(fold.String(t.ReferenceNumber), fold.String(f.Reference))
	}
	return true
}

// StatementLine is one period entry with the balance after applying it.
type StatementLine struct {
	Transaction
	Balance decimal.Decimal `json:"balance"`
}

// Statement is a supplier account statement over a reporting period.
// Transactions dated strictly before the period fold into the opening
// balance; those inside [From, To] inclusive are listed ascending by date
// with a running balance; later ones are excluded entirely.
type Statement struct {
	From           string          `json:"from"`
	To             string          `json:"to"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Lines          []StatementLine `json:"lines"`
	PeriodDebit    decimal.Decimal `json:"period_debit"`
	PeriodCredit   decimal.Decimal `json:"period_credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// BuildStatement partitions the transaction set around [from, to] and
// computes opening and running balances with the invoice-adds,
// everything-else-subtracts rule. Entries with equal dates keep their
// incoming relative order; no secondary order is defined.
func BuildStatement(transactions []Transaction, from, to string, filter StatementFilter) Statement {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	opening := decimal.Zero
	var period []Transaction
	for _, t := range sorted {
		switch {
		case t.Date < from:
			if t.Type == TypeInvoice {
				opening = opening.Add(t.Amount)
			} else {
				opening = opening.Sub(t.Amount)
			}
		case t.Date >= from && t.Date <= to:
			period = append(period, t)
		}
	}

	st := Statement{
		From:           from,
		To:             to,
		OpeningBalance: opening,
		PeriodDebit:    decimal.Zero,
		PeriodCredit:   decimal.Zero,
	}
	running := opening
	for _, t := range period {
		if !filter.matches(t) {
			continue
		}
		if t.Type == TypeInvoice {
			st.PeriodDebit = st.PeriodDebit.Add(t.Amount)
			running = running.Add(t.Amount)
		} else {
			st.PeriodCredit = st.PeriodCredit.Add(t.Amount)
			running = running.Sub(t.Amount)
		}
		st.Lines = append(st.Lines, StatementLine{Transaction: t, Balance: running})
	}
	st.ClosingBalance = running
	return st
}
