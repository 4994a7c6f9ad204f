package ledger

import "github.com/shopspring/decimal"

// Summarize computes the financial position of one supplier from the full
// transaction set: balance = invoices − (payments + returns). Pure function,
// recomputed on every call; transaction volumes are small enough that
// incremental maintenance would buy nothing.
func Summarize(supplier Supplier, transactions []Transaction) SupplierSummary {
	sum := SupplierSummary{
		Supplier:      supplier,
		TotalInvoices: decimal.Zero,
		TotalPayments: decimal.Zero,
		TotalReturns:  decimal.Zero,
		Balance:       decimal.Zero,
	}
	for _, t := range transactions {
		if t.SupplierID != supplier.ID {
			continue
		}
		switch t.Type {
		case TypeInvoice:
			sum.TotalInvoices = sum.TotalInvoices.Add(t.Amount)
		case TypePayment:
			sum.TotalPayments = sum.TotalPayments.Add(t.Amount)
		case TypeReturn:
			sum.TotalReturns = sum.TotalReturns.Add(t.Amount)
		}
	}
	sum.Balance = sum.TotalInvoices.Sub(sum.TotalPayments.Add(sum.TotalReturns))
	return sum
}

// SummarizeAll derives the per-supplier summary list shown on the supplier
// overview, in the order the suppliers were given.
func SummarizeAll(suppliers []Supplier, transactions []Transaction) []SupplierSummary {
	out := make([]SupplierSummary, 0, len(suppliers))
	for _, s := range suppliers {
		out = append(out, Summarize(s, transactions))
	}
	return out
}
