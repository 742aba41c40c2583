package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransactionStatus_OpenAndTerminalPartition(t *testing.T) {
	all := []TransactionStatus{
		TransactionStatusPending,
		TransactionStatusProcessing,
		TransactionStatusCompleted,
		TransactionStatusFailed,
		TransactionStatusCanceled,
	}
	for _, s := range all {
		require.NotEqual(t, s.Open(), s.Terminal(), "status %q must be exactly one of open/terminal", s)
	}
}

func TestPlanKind(t *testing.T) {
	require.Equal(t, PaymentKindRecurring, (&Plan{Recurring: true}).Kind())
	require.Equal(t, PaymentKindOneOff, (&Plan{}).Kind())

	var nilPlan *Plan
	require.Equal(t, PaymentKindOneOff, nilPlan.Kind())
}
