package billing

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PoolStatistics is the per-pool collection rollup. Derived on demand from
// the charge set, never stored.
type PoolStatistics struct {
	PoolID             int64
	TotalUnits         int
	PaidUnits          int
	OverdueUnits       int
	PartiallyPaidUnits int
	CancelledUnits     int
	TotalExpected      decimal.Decimal
	TotalCollected     decimal.Decimal
	TotalPending       decimal.Decimal
	TotalLateFee       decimal.Decimal
	TotalInterest      decimal.Decimal
	CollectionRate     decimal.Decimal
}

// GetPoolStatistics computes the full reporting rollup for one pool.
// Collection rate is paid units over total units as a percentage, 0 for an
// empty pool. OverdueUnits includes pending charges, matching GetPoolSummary.
func (s *Service) GetPoolStatistics(ctx context.Context, poolID int64) (*PoolStatistics, error) {
	if _, err := s.repo.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	charges, _, err := s.repo.ListCharges(ctx, ListChargesRequest{PoolID: poolID})
	if err != nil {
		return nil, err
	}
	stats := &PoolStatistics{PoolID: poolID, TotalUnits: len(charges)}
	for _, ch := range charges {
		stats.TotalExpected = stats.TotalExpected.Add(ch.TotalAmount)
		stats.TotalCollected = stats.TotalCollected.Add(ch.AmountPaid)
		stats.TotalLateFee = stats.TotalLateFee.Add(ch.LateFee)
		stats.TotalInterest = stats.TotalInterest.Add(ch.Interest)
		switch ch.Status {
		case ChargeStatusPaid:
			stats.PaidUnits++
		case ChargeStatusOverdue, ChargeStatusPending:
			stats.OverdueUnits++
		case ChargeStatusPartiallyPaid:
			stats.PartiallyPaidUnits++
		case ChargeStatusCancelled:
			stats.CancelledUnits++
		}
	}
	stats.TotalPending = stats.TotalExpected.Sub(stats.TotalCollected)
	if stats.TotalUnits > 0 {
		stats.CollectionRate = decimal.NewFromInt(int64(stats.PaidUnits)).
			Div(decimal.NewFromInt(int64(stats.TotalUnits))).
			Mul(decimal.NewFromInt(100))
	}
	return stats, nil
}

// PaymentStatsFilter scopes period payment statistics.
type PaymentStatsFilter struct {
	CondominiumID int64
	DateFrom      time.Time
	DateTo        time.Time
}

// PaymentStatistics is the per-period payment rollup with fixed method and
// source buckets.
type PaymentStatistics struct {
	TotalPayments int
	TotalAmount   decimal.Decimal
	ByMethod      map[PaymentMethod]decimal.Decimal
	BySource      map[PaymentSource]decimal.Decimal
}

// GetPaymentStatistics sums payments in a date range, optionally scoped to a
// condominium. Every bucket is summed independently against the same filter;
// the bucket scans fan out concurrently.
func (s *Service) GetPaymentStatistics(ctx context.Context, f PaymentStatsFilter) (*PaymentStatistics, error) {
	count, total, err := s.repo.CountPayments(ctx, f)
	if err != nil {
		return nil, err
	}
	stats := &PaymentStatistics{
		TotalPayments: count,
		TotalAmount:   total,
		ByMethod:      make(map[PaymentMethod]decimal.Decimal, len(PaymentMethods())),
		BySource:      make(map[PaymentSource]decimal.Decimal, len(PaymentSources())),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, method := range PaymentMethods() {
		g.Go(func() error {
			sum, err := s.repo.SumPaymentsByMethod(gctx, f, method)
			if err != nil {
				return err
			}
			mu.Lock()
			stats.ByMethod[method] = sum
			mu.Unlock()
			return nil
		})
	}
	for _, source := range PaymentSources() {
		g.Go(func() error {
			sum, err := s.repo.SumPaymentsBySource(gctx, f, source)
			if err != nil {
				return err
			}
			mu.Lock()
			stats.BySource[source] = sum
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
