package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func tx(supplierID int64, typ TransactionType, amount string) Transaction {
	return Transaction{SupplierID: supplierID, Type: typ, Amount: dec(amount)}
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(Supplier{ID: 1, Name: "Acme"}, nil)
	require.True(t, sum.TotalInvoices.IsZero())
	require.True(t, sum.TotalPayments.IsZero())
	require.True(t, sum.TotalReturns.IsZero())
	require.True(t, sum.Balance.IsZero())
}

func TestSummarizeMixed(t *testing.T) {
	sup := Supplier{ID: 1, Name: "Acme"}
	txs := []Transaction{
		tx(1, TypeInvoice, "1000"),
		tx(1, TypePayment, "300"),
		tx(1, TypeReturn, "200"),
		tx(2, TypeInvoice, "999"), // other supplier, ignored
	}
	sum := Summarize(sup, txs)
	require.True(t, sum.TotalInvoices.Equal(dec("1000")))
	require.True(t, sum.TotalPayments.Equal(dec("300")))
	require.True(t, sum.TotalReturns.Equal(dec("200")))
	require.True(t, sum.Balance.Equal(dec("500")))
}

func TestSummarizeDecimalPrecision(t *testing.T) {
	sup := Supplier{ID: 1}
	txs := []Transaction{
		tx(1, TypeInvoice, "0.1"),
		tx(1, TypeInvoice, "0.2"),
		tx(1, TypePayment, "0.3"),
	}
	sum := Summarize(sup, txs)
	require.True(t, sum.Balance.IsZero(), "0.1 + 0.2 - 0.3 must be exactly zero")
}

func TestSummarizeAllKeepsOrder(t *testing.T) {
	suppliers := []Supplier{{ID: 2, Name: "b"}, {ID: 1, Name: "a"}}
	out := SummarizeAll(suppliers, []Transaction{tx(1, TypeInvoice, "10")})
	require.Len(t, out, 2)
	require.Equal(t, int64(2), out[0].Supplier.ID)
	require.True(t, out[0].Balance.IsZero())
	require.True(t, out[1].Balance.Equal(dec("10")))
}

func TestSummarizeBalanceIdentity(t *testing.T) {
	types := []TransactionType{TypeInvoice, TypePayment, TypeReturn}
	rapid.Check(t, func(t *rapid.T) {
		var txs []Transaction
		n := rapid.IntRange(0, 20).Draw(t, "n")
		for i := 0; i < n; i++ {
			cents := rapid.Int64Range(0, 1_000_000).Draw(t, "cents")
			txs = append(txs, Transaction{
				SupplierID: 1,
				Type:       types[rapid.IntRange(0, 2).Draw(t, "type")],
				Amount:     decimal.New(cents, -2),
			})
		}
		sum := Summarize(Supplier{ID: 1}, txs)
		identity := sum.TotalInvoices.Sub(sum.TotalPayments.Add(sum.TotalReturns))
		require.True(t, sum.Balance.Equal(identity))
	})
}
