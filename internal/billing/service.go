package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/condoflow/condoflow/internal/shared"
)

// RepositoryPort defines data access methods for billing.
type RepositoryPort interface {
	CreatePool(ctx context.Context, pool *FeePool) (*FeePool, error)
	GetPool(ctx context.Context, id int64) (*FeePool, error)
	UpdatePool(ctx context.Context, pool *FeePool) error
	DeletePool(ctx context.Context, id int64) error
	ListPools(ctx context.Context, req ListPoolsRequest) ([]FeePool, int, error)
	CountPoolCharges(ctx context.Context, poolID int64) (int, error)

	CreateCharges(ctx context.Context, charges []UnitCharge) ([]UnitCharge, error)
	GetCharge(ctx context.Context, id int64) (*UnitCharge, error)
	UpdateCharge(ctx context.Context, charge *UnitCharge) error
	DeleteCharge(ctx context.Context, id int64) error
	ListCharges(ctx context.Context, req ListChargesRequest) ([]UnitCharge, int, error)
	ListDueCharges(ctx context.Context, before time.Time) ([]UnitCharge, error)

	GetPayment(ctx context.Context, id int64) (*Payment, error)
	ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error)

	CountPayments(ctx context.Context, f PaymentStatsFilter) (int, decimal.Decimal, error)
	SumPaymentsByMethod(ctx context.Context, f PaymentStatsFilter, method PaymentMethod) (decimal.Decimal, error)
	SumPaymentsBySource(ctx context.Context, f PaymentStatsFilter, source PaymentSource) (decimal.Decimal, error)

	InChargeTx(ctx context.Context, chargeID int64, fn func(ctx context.Context, tx ChargeTxPort) error) error
}

// ChargeTxPort exposes the operations available inside a charge-locked
// transaction. LockCharge must be called first; it takes a row lock that is
// held until the transaction ends.
type ChargeTxPort interface {
	LockCharge(ctx context.Context, id int64) (*UnitCharge, error)
	InsertPayment(ctx context.Context, payment *Payment) (*Payment, error)
	UpdatePayment(ctx context.Context, payment *Payment) error
	DeletePayment(ctx context.Context, id int64) error
	ListChargePayments(ctx context.Context, chargeID int64) ([]Payment, error)
	UpdateChargeDerived(ctx context.Context, charge *UnitCharge) error
}

// ImportDeduper persists processed bank references so a statement row is
// never recorded twice. Satisfied by shared.IdempotencyStore.
type ImportDeduper interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const importModule = "billing.bank_import"

// Service handles billing business logic.
type Service struct {
	repo    RepositoryPort
	locker  *ChargeLocker
	deduper ImportDeduper
}

// NewService builds a Service instance. locker and deduper may be nil; the
// corresponding guards are then skipped (service tests run without redis).
func NewService(repo RepositoryPort, locker *ChargeLocker, deduper ImportDeduper) *Service {
	return &Service{repo: repo, locker: locker, deduper: deduper}
}

// --- Pools ---

// CreatePoolInput carries operator-supplied pool fields.
type CreatePoolInput struct {
	CondominiumID  int64
	ReferenceMonth time.Time
	BaseValue      decimal.Decimal
	DueDate        time.Time
	IssueDate      *time.Time
	Notes          string
	Metadata       map[string]any
}

// CreatePool creates one billing cycle in draft status.
func (s *Service) CreatePool(ctx context.Context, input CreatePoolInput) (*FeePool, error) {
	if input.CondominiumID == 0 {
		return nil, fmt.Errorf("%w: condominium ID required", ErrValidation)
	}
	if input.ReferenceMonth.IsZero() {
		return nil, fmt.Errorf("%w: reference month required", ErrValidation)
	}
	if input.BaseValue.IsNegative() {
		return nil, fmt.Errorf("%w: base value must not be negative", ErrValidation)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date required", ErrValidation)
	}
	now := time.Now()
	pool := &FeePool{
		CondominiumID:  input.CondominiumID,
		ReferenceMonth: input.ReferenceMonth,
		BaseValue:      input.BaseValue,
		DueDate:        input.DueDate,
		IssueDate:      input.IssueDate,
		Status:         PoolStatusDraft,
		Notes:          input.Notes,
		Metadata:       input.Metadata,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return s.repo.CreatePool(ctx, pool)
}

// GetPool fetches one pool.
func (s *Service) GetPool(ctx context.Context, id int64) (*FeePool, error) {
	return s.repo.GetPool(ctx, id)
}

// UpdatePoolInput carries mutable pool fields; nil pointers leave a field untouched.
type UpdatePoolInput struct {
	ReferenceMonth *time.Time
	BaseValue      *decimal.Decimal
	DueDate        *time.Time
	IssueDate      *time.Time
	Status         *PoolStatus
	Notes          *string
	Metadata       map[string]any
}

// UpdatePool applies direct field updates to a pool.
func (s *Service) UpdatePool(ctx context.Context, id int64, input UpdatePoolInput) (*FeePool, error) {
	pool, err := s.repo.GetPool(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.ReferenceMonth != nil {
		pool.ReferenceMonth = *input.ReferenceMonth
	}
	if input.BaseValue != nil {
		if input.BaseValue.IsNegative() {
			return nil, fmt.Errorf("%w: base value must not be negative", ErrValidation)
		}
		pool.BaseValue = *input.BaseValue
	}
	if input.DueDate != nil {
		pool.DueDate = *input.DueDate
	}
	if input.IssueDate != nil {
		pool.IssueDate = input.IssueDate
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown pool status %q", ErrValidation, *input.Status)
		}
		pool.Status = *input.Status
	}
	if input.Notes != nil {
		pool.Notes = *input.Notes
	}
	if input.Metadata != nil {
		pool.Metadata = input.Metadata
	}
	pool.UpdatedAt = time.Now()
	if err := s.repo.UpdatePool(ctx, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// DeletePool removes a pool. Refused while charges exist so dependents can
// never be orphaned.
func (s *Service) DeletePool(ctx context.Context, id int64) error {
	if _, err := s.repo.GetPool(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountPoolCharges(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: pool %d still has %d charges", ErrHasDependents, id, count)
	}
	return s.repo.DeletePool(ctx, id)
}

// ListPoolsRequest filters pool listings.
type ListPoolsRequest struct {
	CondominiumID  int64
	Status         PoolStatus
	ReferenceMonth time.Time
	Limit          int
	Offset         int
}

// ListPools returns pools matching the filters plus a total count.
func (s *Service) ListPools(ctx context.Context, req ListPoolsRequest) ([]FeePool, int, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown pool status %q", ErrValidation, req.Status)
	}
	return s.repo.ListPools(ctx, req)
}

// PoolSummary aggregates a pool's charges at read time.
type PoolSummary struct {
	TotalExpected  decimal.Decimal
	TotalCollected decimal.Decimal
	TotalPending   decimal.Decimal
	PaidUnits      int
	OverdueUnits   int
}

// GetPoolSummary computes the pool rollup from its current charge set.
// OverdueUnits counts pending charges alongside overdue ones, matching the
// historical collection-report behavior.
func (s *Service) GetPoolSummary(ctx context.Context, poolID int64) (*PoolSummary, error) {
	if _, err := s.repo.GetPool(ctx, poolID); err != nil {
		return nil, err
	}
	charges, _, err := s.repo.ListCharges(ctx, ListChargesRequest{PoolID: poolID})
	if err != nil {
		return nil, err
	}
	summary := &PoolSummary{}
	for _, ch := range charges {
		summary.TotalExpected = summary.TotalExpected.Add(ch.TotalAmount)
		summary.TotalCollected = summary.TotalCollected.Add(ch.AmountPaid)
		switch ch.Status {
		case ChargeStatusPaid:
			summary.PaidUnits++
		case ChargeStatusOverdue, ChargeStatusPending:
			summary.OverdueUnits++
		}
	}
	summary.TotalPending = summary.TotalExpected.Sub(summary.TotalCollected)
	return summary, nil
}

// --- Charges ---

// GenerateChargeInput is one (unit, fraction, adjustments) tuple for bulk generation.
type GenerateChargeInput struct {
	UnitID            int64
	IdealFraction     decimal.Decimal
	AdditionalCharges decimal.Decimal
	Discounts         decimal.Decimal
	Barcode           string
	DigitableLine     string
	OurNumber         string
	Notes             string
	Metadata          map[string]any
}

// GenerateCharges fans out one charge per unit from a pool's base value.
// The batch is validated up front and inserted in one transaction, so a bad
// tuple never leaves a partial batch behind. Uniqueness per unit is the
// caller's responsibility.
func (s *Service) GenerateCharges(ctx context.Context, poolID int64, inputs []GenerateChargeInput) ([]UnitCharge, error) {
	pool, err := s.repo.GetPool(ctx, poolID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: pool %d does not exist", ErrValidation, poolID)
		}
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no units to generate charges for", ErrValidation)
	}
	for i, in := range inputs {
		if in.UnitID == 0 {
			return nil, fmt.Errorf("%w: unit reference missing at position %d", ErrValidation, i)
		}
		if in.IdealFraction.IsNegative() {
			return nil, fmt.Errorf("%w: ideal fraction must not be negative for unit %d", ErrValidation, in.UnitID)
		}
		if in.AdditionalCharges.IsNegative() || in.Discounts.IsNegative() {
			return nil, fmt.Errorf("%w: adjustments must not be negative for unit %d", ErrValidation, in.UnitID)
		}
	}

	now := time.Now()
	charges := make([]UnitCharge, 0, len(inputs))
	for _, in := range inputs {
		base := pool.BaseValue.Mul(in.IdealFraction)
		charges = append(charges, UnitCharge{
			PoolID:            poolID,
			UnitID:            in.UnitID,
			IdealFraction:     in.IdealFraction,
			BaseAmount:        base,
			AdditionalCharges: in.AdditionalCharges,
			Discounts:         in.Discounts,
			TotalAmount:       base.Add(in.AdditionalCharges).Sub(in.Discounts),
			Barcode:           in.Barcode,
			DigitableLine:     in.DigitableLine,
			OurNumber:         in.OurNumber,
			DueDate:           pool.DueDate,
			Status:            ChargeStatusPending,
			Notes:             in.Notes,
			Metadata:          in.Metadata,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return s.repo.CreateCharges(ctx, charges)
}

// GetCharge fetches a charge with its derived fields re-evaluated against
// the clock, so callers never see a stale overdue flag.
func (s *Service) GetCharge(ctx context.Context, id int64) (*UnitCharge, error) {
	charge, err := s.repo.GetCharge(ctx, id)
	if err != nil {
		return nil, err
	}
	return charge, nil
}

// ListChargesRequest filters charge listings.
type ListChargesRequest struct {
	PoolID  int64
	UnitID  int64
	Status  ChargeStatus
	DueFrom time.Time
	DueTo   time.Time
	Limit   int
	Offset  int
}

// ListCharges returns charges matching the filters plus a total count.
func (s *Service) ListCharges(ctx context.Context, req ListChargesRequest) ([]UnitCharge, int, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown charge status %q", ErrValidation, req.Status)
	}
	return s.repo.ListCharges(ctx, req)
}

// UpdateChargeInput carries mutable charge fields; nil pointers leave a field
// untouched. TotalAmount is only changed when explicitly set: component edits
// do not recompute it. Status is not settable here.
type UpdateChargeInput struct {
	AdditionalCharges *decimal.Decimal
	Discounts         *decimal.Decimal
	TotalAmount       *decimal.Decimal
	LateFee           *decimal.Decimal
	Interest          *decimal.Decimal
	DueDate           *time.Time
	Barcode           *string
	DigitableLine     *string
	OurNumber         *string
	Notes             *string
	Metadata          map[string]any
}

// UpdateCharge applies direct field updates to a charge.
func (s *Service) UpdateCharge(ctx context.Context, id int64, input UpdateChargeInput) (*UnitCharge, error) {
	charge, err := s.repo.GetCharge(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, check := range []*decimal.Decimal{input.AdditionalCharges, input.Discounts, input.TotalAmount, input.LateFee, input.Interest} {
		if check != nil && check.IsNegative() {
			return nil, fmt.Errorf("%w: amounts must not be negative", ErrValidation)
		}
	}
	if input.AdditionalCharges != nil {
		charge.AdditionalCharges = *input.AdditionalCharges
	}
	if input.Discounts != nil {
		charge.Discounts = *input.Discounts
	}
	if input.TotalAmount != nil {
		charge.TotalAmount = *input.TotalAmount
	}
	if input.LateFee != nil {
		charge.LateFee = *input.LateFee
	}
	if input.Interest != nil {
		charge.Interest = *input.Interest
	}
	if input.DueDate != nil {
		charge.DueDate = *input.DueDate
	}
	if input.Barcode != nil {
		charge.Barcode = *input.Barcode
	}
	if input.DigitableLine != nil {
		charge.DigitableLine = *input.DigitableLine
	}
	if input.OurNumber != nil {
		charge.OurNumber = *input.OurNumber
	}
	if input.Notes != nil {
		charge.Notes = *input.Notes
	}
	if input.Metadata != nil {
		charge.Metadata = input.Metadata
	}
	charge.UpdatedAt = time.Now()
	if err := s.repo.UpdateCharge(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

// CancelCharge marks a charge cancelled. Cancellation is terminal: later
// payment recomputations keep the status as-is.
func (s *Service) CancelCharge(ctx context.Context, id int64) (*UnitCharge, error) {
	charge, err := s.repo.GetCharge(ctx, id)
	if err != nil {
		return nil, err
	}
	charge.Status = ChargeStatusCancelled
	charge.UpdatedAt = time.Now()
	if err := s.repo.UpdateCharge(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

// DeleteCharge removes a charge and its payments.
func (s *Service) DeleteCharge(ctx context.Context, id int64) error {
	if _, err := s.repo.GetCharge(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteCharge(ctx, id)
}

// RefreshChargeStatus re-derives a charge's payment aggregates and status
// from its current payment set. The recomputation is a full re-derivation, so
// running it twice is a no-op the second time.
func (s *Service) RefreshChargeStatus(ctx context.Context, id int64) (*UnitCharge, error) {
	var refreshed *UnitCharge
	err := s.withChargeLock(ctx, id, func(ctx context.Context, tx ChargeTxPort) error {
		charge, err := tx.LockCharge(ctx, id)
		if err != nil {
			return err
		}
		updated, err := s.recomputeCharge(ctx, tx, charge)
		if err != nil {
			return err
		}
		refreshed = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refreshed, nil
}

// RefreshOverdueStatuses re-evaluates every non-terminal charge past its due
// date and returns how many transitioned. Invoked by the scheduled worker so
// untouched charges do not sit in pending forever.
func (s *Service) RefreshOverdueStatuses(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.repo.ListDueCharges(ctx, asOf)
	if err != nil {
		return 0, err
	}
	transitioned := 0
	for _, ch := range due {
		before := ch.Status
		refreshed, err := s.RefreshChargeStatus(ctx, ch.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return transitioned, err
		}
		if refreshed.Status != before {
			transitioned++
		}
	}
	return transitioned, nil
}

// --- Payments ---

// CreatePaymentInput carries a new payment record.
type CreatePaymentInput struct {
	ChargeID      int64
	PaymentDate   time.Time
	AmountPaid    decimal.Decimal
	Method        PaymentMethod
	Reference     string
	BankReference string
	Source        PaymentSource
	Notes         string
	Metadata      map[string]any
}

func (in CreatePaymentInput) validate() error {
	if in.ChargeID == 0 {
		return fmt.Errorf("%w: charge ID required", ErrValidation)
	}
	if in.PaymentDate.IsZero() {
		return fmt.Errorf("%w: payment date required", ErrValidation)
	}
	if in.AmountPaid.IsNegative() {
		return fmt.Errorf("%w: amount paid must not be negative", ErrValidation)
	}
	if !in.Method.Valid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.Method)
	}
	if !in.Source.Valid() {
		return fmt.Errorf("%w: unknown payment source %q", ErrValidation, in.Source)
	}
	return nil
}

// RecordPayment persists a payment and re-derives its charge inside one
// charge-locked transaction: amount paid is re-summed from the full payment
// set, payment date follows the latest payment, then the status rule runs.
func (s *Service) RecordPayment(ctx context.Context, input CreatePaymentInput) (*Payment, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	payment := &Payment{
		ChargeID:      input.ChargeID,
		PaymentDate:   input.PaymentDate,
		AmountPaid:    input.AmountPaid,
		Method:        input.Method,
		Reference:     input.Reference,
		BankReference: input.BankReference,
		Source:        input.Source,
		Notes:         input.Notes,
		Metadata:      input.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := s.withChargeLock(ctx, input.ChargeID, func(ctx context.Context, tx ChargeTxPort) error {
		charge, err := tx.LockCharge(ctx, input.ChargeID)
		if err != nil {
			return err
		}
		created, err := tx.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment = created
		_, err = s.recomputeCharge(ctx, tx, charge)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// UpdatePaymentInput carries mutable payment fields; nil pointers leave a
// field untouched. A payment cannot move to another charge.
type UpdatePaymentInput struct {
	PaymentDate   *time.Time
	AmountPaid    *decimal.Decimal
	Method        *PaymentMethod
	Reference     *string
	BankReference *string
	Source        *PaymentSource
	Notes         *string
	Metadata      map[string]any
}

// UpdatePayment edits a payment and re-derives its charge.
func (s *Service) UpdatePayment(ctx context.Context, id int64, input UpdatePaymentInput) (*Payment, error) {
	payment, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.PaymentDate != nil {
		payment.PaymentDate = *input.PaymentDate
	}
	if input.AmountPaid != nil {
		if input.AmountPaid.IsNegative() {
			return nil, fmt.Errorf("%w: amount paid must not be negative", ErrValidation)
		}
		payment.AmountPaid = *input.AmountPaid
	}
	if input.Method != nil {
		if !input.Method.Valid() {
			return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, *input.Method)
		}
		payment.Method = *input.Method
	}
	if input.Reference != nil {
		payment.Reference = *input.Reference
	}
	if input.BankReference != nil {
		payment.BankReference = *input.BankReference
	}
	if input.Source != nil {
		if !input.Source.Valid() {
			return nil, fmt.Errorf("%w: unknown payment source %q", ErrValidation, *input.Source)
		}
		payment.Source = *input.Source
	}
	if input.Notes != nil {
		payment.Notes = *input.Notes
	}
	if input.Metadata != nil {
		payment.Metadata = input.Metadata
	}
	payment.UpdatedAt = time.Now()

	err = s.withChargeLock(ctx, payment.ChargeID, func(ctx context.Context, tx ChargeTxPort) error {
		charge, err := tx.LockCharge(ctx, payment.ChargeID)
		if err != nil {
			return err
		}
		if err := tx.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		_, err = s.recomputeCharge(ctx, tx, charge)
		return err
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// DeletePayment hard-deletes a payment; the charge forgets its contribution
// through the same recomputation as any other mutation.
func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	payment, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	return s.withChargeLock(ctx, payment.ChargeID, func(ctx context.Context, tx ChargeTxPort) error {
		charge, err := tx.LockCharge(ctx, payment.ChargeID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, id); err != nil {
			return err
		}
		_, err = s.recomputeCharge(ctx, tx, charge)
		return err
	})
}

// GetPayment fetches one payment.
func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.GetPayment(ctx, id)
}

// ListPaymentsRequest filters payment listings.
type ListPaymentsRequest struct {
	ChargeID      int64
	CondominiumID int64
	Method        PaymentMethod
	Source        PaymentSource
	DateFrom      time.Time
	DateTo        time.Time
	Limit         int
	Offset        int
}

// ListPayments returns payments matching the filters.
func (s *Service) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	if req.Method != "" && !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.Method)
	}
	if req.Source != "" && !req.Source.Valid() {
		return nil, fmt.Errorf("%w: unknown payment source %q", ErrValidation, req.Source)
	}
	return s.repo.ListPayments(ctx, req)
}

// --- Bank file import ---

// ImportRow is one statement line from a bank return file.
type ImportRow struct {
	ChargeID      int64
	PaymentDate   time.Time
	AmountPaid    decimal.Decimal
	BankReference string
	Method        PaymentMethod
	Notes         string
}

// ImportRowResult reports the outcome for one statement line.
type ImportRowResult struct {
	BankReference string
	PaymentID     int64
	Duplicate     bool
	Err           error
}

// ImportResult summarises a bank file import.
type ImportResult struct {
	BatchID    string
	Accepted   int
	Duplicates int
	Failed     int
	Rows       []ImportRowResult
}

// ImportBankPayments records a batch of statement rows as bank_file payments.
// Rows are deduplicated on bank reference, so re-submitting the same file is
// harmless. Each accepted row goes through the normal payment entry point and
// therefore triggers the charge recomputation.
func (s *Service) ImportBankPayments(ctx context.Context, batchID string, rows []ImportRow) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: import file has no rows", ErrValidation)
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}
	result := &ImportResult{BatchID: batchID}
	for _, row := range rows {
		rowResult := ImportRowResult{BankReference: row.BankReference}
		if row.BankReference == "" {
			rowResult.Err = fmt.Errorf("%w: bank reference required", ErrValidation)
			result.Failed++
			result.Rows = append(result.Rows, rowResult)
			continue
		}
		if s.deduper != nil {
			if err := s.deduper.CheckAndInsert(ctx, row.BankReference, importModule); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					rowResult.Duplicate = true
					result.Duplicates++
					result.Rows = append(result.Rows, rowResult)
					continue
				}
				return nil, err
			}
		}
		method := row.Method
		if method == "" {
			method = MethodBankSlip
		}
		payment, err := s.RecordPayment(ctx, CreatePaymentInput{
			ChargeID:      row.ChargeID,
			PaymentDate:   row.PaymentDate,
			AmountPaid:    row.AmountPaid,
			Method:        method,
			Reference:     "import:" + batchID,
			BankReference: row.BankReference,
			Source:        SourceBankFile,
			Notes:         row.Notes,
		})
		if err != nil {
			if s.deduper != nil {
				_ = s.deduper.Delete(ctx, row.BankReference)
			}
			rowResult.Err = err
			result.Failed++
			result.Rows = append(result.Rows, rowResult)
			continue
		}
		rowResult.PaymentID = payment.ID
		result.Accepted++
		result.Rows = append(result.Rows, rowResult)
	}
	return result, nil
}

// --- Recomputation core ---

// recomputeCharge re-derives amount paid, payment date and status from the
// charge's current payment set and persists the result. The caller must hold
// the charge row lock. Payment date keeps its previous value when no payments
// remain.
func (s *Service) recomputeCharge(ctx context.Context, tx ChargeTxPort, charge *UnitCharge) (*UnitCharge, error) {
	payments, err := tx.ListChargePayments(ctx, charge.ID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	var latest *time.Time
	for i := range payments {
		total = total.Add(payments[i].AmountPaid)
		if latest == nil || payments[i].PaymentDate.After(*latest) {
			d := payments[i].PaymentDate
			latest = &d
		}
	}
	charge.AmountPaid = total
	if latest != nil {
		charge.PaymentDate = latest
	}
	charge.Status = charge.ResolveStatus(time.Now())
	charge.UpdatedAt = time.Now()
	if err := tx.UpdateChargeDerived(ctx, charge); err != nil {
		return nil, err
	}
	return charge, nil
}

// withChargeLock wraps a charge mutation in the redis mutex (when configured)
// and the repository transaction.
func (s *Service) withChargeLock(ctx context.Context, chargeID int64, fn func(ctx context.Context, tx ChargeTxPort) error) error {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, shared.ChargeLockKey(chargeID))
		if err != nil {
			return err
		}
		defer release()
	}
	return s.repo.InChargeTx(ctx, chargeID, fn)
}
