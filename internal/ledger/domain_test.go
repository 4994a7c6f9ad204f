package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextProvisionalID(t *testing.T) {
	a := NextProvisionalID()
	b := NextProvisionalID()
	require.Negative(t, a)
	require.Negative(t, b)
	require.NotEqual(t, a, b)
	require.Less(t, b, a, "ids grow more negative over time")
}

func TestIsProvisionalID(t *testing.T) {
	require.True(t, IsProvisionalID(-1))
	require.False(t, IsProvisionalID(0))
	require.False(t, IsProvisionalID(42))
}

func TestTransactionTypeValid(t *testing.T) {
	require.True(t, TypeInvoice.Valid())
	require.True(t, TypePayment.Valid())
	require.True(t, TypeReturn.Valid())
	require.False(t, TransactionType("refund").Valid())
	require.False(t, TransactionType("").Valid())
}
