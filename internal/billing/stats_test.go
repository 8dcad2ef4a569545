package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetPoolStatisticsCollectionRate(t *testing.T) {
	svc, _ := setupBilling(t)
	pool := createTestPool(t, svc, "100", futureDue())

	inputs := make([]GenerateChargeInput, 0, 10)
	for unit := int64(1); unit <= 10; unit++ {
		inputs = append(inputs, GenerateChargeInput{UnitID: unit, IdealFraction: dec("1")})
	}
	charges, err := svc.GenerateCharges(context.Background(), pool.ID, inputs)
	require.NoError(t, err)

	for _, ch := range charges[:3] {
		_, err := svc.RecordPayment(context.Background(), CreatePaymentInput{
			ChargeID:    ch.ID,
			PaymentDate: time.Now(),
			AmountPaid:  dec("100"),
			Method:      MethodPix,
			Source:      SourceManual,
		})
		require.NoError(t, err)
	}
	_, err = svc.RecordPayment(context.Background(), CreatePaymentInput{
		ChargeID:    charges[3].ID,
		PaymentDate: time.Now(),
		AmountPaid:  dec("40"),
		Method:      MethodTransfer,
		Source:      SourceManual,
	})
	require.NoError(t, err)
	_, err = svc.CancelCharge(context.Background(), charges[9].ID)
	require.NoError(t, err)

	stats, err := svc.GetPoolStatistics(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, 10, stats.TotalUnits)
	require.Equal(t, 3, stats.PaidUnits)
	require.Equal(t, 1, stats.PartiallyPaidUnits)
	require.Equal(t, 1, stats.CancelledUnits)
	// The five untouched pending units all count toward overdue.
	require.Equal(t, 5, stats.OverdueUnits)
	require.True(t, stats.TotalExpected.Equal(dec("1000")))
	require.True(t, stats.TotalCollected.Equal(dec("340")))
	require.True(t, stats.TotalPending.Equal(dec("660")))
	require.True(t, stats.CollectionRate.Equal(dec("30")))
}

func TestGetPoolStatisticsEmptyPool(t *testing.T) {
	svc, _ := setupBilling(t)
	pool := createTestPool(t, svc, "100", futureDue())

	stats, err := svc.GetPoolStatistics(context.Background(), pool.ID)
	require.NoError(t, err)
	require.Equal(t, 0, stats.TotalUnits)
	require.True(t, stats.CollectionRate.IsZero())
	require.True(t, stats.TotalExpected.IsZero())
}

func TestGetPoolStatisticsUnknownPool(t *testing.T) {
	svc, _ := setupBilling(t)

	_, err := svc.GetPoolStatistics(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetPaymentStatistics(t *testing.T) {
	svc, _ := setupBilling(t)
	pool := createTestPool(t, svc, "1000", futureDue())
	charges, err := svc.GenerateCharges(context.Background(), pool.ID, []GenerateChargeInput{
		{UnitID: 1, IdealFraction: dec("1")},
	})
	require.NoError(t, err)

	payments := []CreatePaymentInput{
		{ChargeID: charges[0].ID, PaymentDate: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), AmountPaid: dec("200"), Method: MethodPix, Source: SourceManual},
		{ChargeID: charges[0].ID, PaymentDate: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), AmountPaid: dec("100"), Method: MethodPix, Source: SourceAPI},
		{ChargeID: charges[0].ID, PaymentDate: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), AmountPaid: dec("300"), Method: MethodBankSlip, Source: SourceBankFile},
	}
	for _, in := range payments {
		_, err := svc.RecordPayment(context.Background(), in)
		require.NoError(t, err)
	}

	stats, err := svc.GetPaymentStatistics(context.Background(), PaymentStatsFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalPayments)
	require.True(t, stats.TotalAmount.Equal(dec("600")))
	require.True(t, stats.ByMethod[MethodPix].Equal(dec("300")))
	require.True(t, stats.ByMethod[MethodBankSlip].Equal(dec("300")))
	require.True(t, stats.ByMethod[MethodCash].IsZero())
	require.True(t, stats.BySource[SourceManual].Equal(dec("200")))
	require.True(t, stats.BySource[SourceAPI].Equal(dec("100")))
	require.True(t, stats.BySource[SourceBankFile].Equal(dec("300")))

	// Date window trims the buckets consistently.
	windowed, err := svc.GetPaymentStatistics(context.Background(), PaymentStatsFilter{
		DateFrom: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 1, windowed.TotalPayments)
	require.True(t, windowed.TotalAmount.Equal(dec("100")))
	require.True(t, windowed.ByMethod[MethodPix].Equal(dec("100")))
}
