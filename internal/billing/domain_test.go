package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChargeBalance(t *testing.T) {
	charge := &UnitCharge{
		TotalAmount: dec("290.00"),
		LateFee:     dec("5.80"),
		Interest:    dec("2.90"),
		AmountPaid:  dec("100.00"),
	}
	require.True(t, charge.Balance().Equal(dec("198.70")))
}

func TestChargeIsOverdueUsesCalendarDays(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	charge := &UnitCharge{DueDate: due, Status: ChargeStatusPending}

	// Not overdue on the due date itself, regardless of time of day.
	require.False(t, charge.IsOverdue(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))
	require.True(t, charge.IsOverdue(time.Date(2026, 3, 11, 0, 1, 0, 0, time.UTC)))

	charge.Status = ChargeStatusPaid
	require.False(t, charge.IsOverdue(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))

	charge.Status = ChargeStatusCancelled
	require.False(t, charge.IsOverdue(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestChargeDaysOverdue(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	charge := &UnitCharge{DueDate: due, Status: ChargeStatusPending}

	require.Equal(t, 0, charge.DaysOverdue(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, 1, charge.DaysOverdue(time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)))
	require.Equal(t, 22, charge.DaysOverdue(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)))
}

func TestResolveStatusPrecedence(t *testing.T) {
	due := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	past := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	before := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		charge UnitCharge
		at     time.Time
		want   ChargeStatus
	}{
		{"cancelled wins over full payment", UnitCharge{Status: ChargeStatusCancelled, TotalAmount: dec("100"), AmountPaid: dec("100"), DueDate: due}, past, ChargeStatusCancelled},
		{"paid wins over overdue", UnitCharge{Status: ChargeStatusOverdue, TotalAmount: dec("100"), AmountPaid: dec("100"), DueDate: due}, past, ChargeStatusPaid},
		{"overpaid is paid", UnitCharge{Status: ChargeStatusPending, TotalAmount: dec("100"), AmountPaid: dec("150"), DueDate: due}, before, ChargeStatusPaid},
		{"partial wins over overdue", UnitCharge{Status: ChargeStatusPending, TotalAmount: dec("100"), AmountPaid: dec("30"), DueDate: due}, past, ChargeStatusPartiallyPaid},
		{"past due unpaid is overdue", UnitCharge{Status: ChargeStatusPending, TotalAmount: dec("100"), DueDate: due}, past, ChargeStatusOverdue},
		{"before due unpaid is pending", UnitCharge{Status: ChargeStatusOverdue, TotalAmount: dec("100"), DueDate: due}, before, ChargeStatusPending},
		{"zero total zero paid is paid", UnitCharge{Status: ChargeStatusPending, DueDate: due}, before, ChargeStatusPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.charge.ResolveStatus(tt.at))
		})
	}
}

func TestEnumValidity(t *testing.T) {
	require.True(t, PoolStatusIssued.Valid())
	require.False(t, PoolStatus("archived").Valid())

	require.True(t, ChargeStatusPartiallyPaid.Valid())
	require.False(t, ChargeStatus("open").Valid())

	require.True(t, MethodPix.Valid())
	require.False(t, PaymentMethod("check").Valid())
	require.Len(t, PaymentMethods(), 7)

	require.True(t, SourceBankFile.Valid())
	require.False(t, PaymentSource("webhook").Valid())
	require.Len(t, PaymentSources(), 3)
}
