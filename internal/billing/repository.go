package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/condoflow/condoflow/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const poolColumns = `id, condominium_id, reference_month, base_value, due_date, issue_date,
	status, notes, metadata, created_at, updated_at`

const chargeColumns = `id, pool_id, unit_id, ideal_fraction, base_amount, additional_charges,
	discounts, total_amount, barcode, digitable_line, our_number, due_date, status,
	payment_date, amount_paid, late_fee, interest, notes, metadata, created_at, updated_at`

const paymentColumns = `id, charge_id, payment_date, amount_paid, method, reference,
	bank_reference, source, notes, metadata, created_at, updated_at`

// --- Pool operations ---

// CreatePool inserts a fee pool.
func (r *Repository) CreatePool(ctx context.Context, pool *FeePool) (*FeePool, error) {
	meta, err := metadataToJSON(pool.Metadata)
	if err != nil {
		return nil, err
	}
	query := `
		INSERT INTO fee_pools (
			condominium_id, reference_month, base_value, due_date, issue_date,
			status, notes, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err = r.pool.QueryRow(ctx, query,
		pool.CondominiumID,
		pool.ReferenceMonth,
		pool.BaseValue,
		pool.DueDate,
		pool.IssueDate,
		string(pool.Status),
		pool.Notes,
		meta,
		pool.CreatedAt,
		pool.UpdatedAt,
	).Scan(&pool.ID)
	if err != nil {
		return nil, fmt.Errorf("billing: create pool: %w", err)
	}
	return pool, nil
}

// GetPool retrieves a pool by ID.
func (r *Repository) GetPool(ctx context.Context, id int64) (*FeePool, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+poolColumns+` FROM fee_pools WHERE id = $1`, id)
	pool, err := scanPool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: pool %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// UpdatePool persists all mutable pool fields.
func (r *Repository) UpdatePool(ctx context.Context, pool *FeePool) error {
	meta, err := metadataToJSON(pool.Metadata)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_pools
		SET reference_month = $2, base_value = $3, due_date = $4, issue_date = $5,
			status = $6, notes = $7, metadata = $8, updated_at = $9
		WHERE id = $1`,
		pool.ID,
		pool.ReferenceMonth,
		pool.BaseValue,
		pool.DueDate,
		pool.IssueDate,
		string(pool.Status),
		pool.Notes,
		meta,
		pool.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: update pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pool %d", ErrNotFound, pool.ID)
	}
	return nil
}

// DeletePool removes a pool row. The service refuses the delete while charges
// exist, so no dangling charges can be left behind.
func (r *Repository) DeletePool(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fee_pools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("billing: delete pool: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pool %d", ErrNotFound, id)
	}
	return nil
}

// ListPools returns pools with optional filtering plus the unpaginated count.
func (r *Repository) ListPools(ctx context.Context, req ListPoolsRequest) ([]FeePool, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if req.CondominiumID > 0 {
		where += fmt.Sprintf(" AND condominium_id = $%d", argNum)
		args = append(args, req.CondominiumID)
		argNum++
	}
	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if !req.ReferenceMonth.IsZero() {
		where += fmt.Sprintf(" AND date_trunc('month', reference_month) = date_trunc('month', $%d::timestamptz)", argNum)
		args = append(args, req.ReferenceMonth)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM fee_pools`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count pools: %w", err)
	}

	query := `SELECT ` + poolColumns + ` FROM fee_pools` + where + ` ORDER BY reference_month DESC, id DESC`
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list pools: %w", err)
	}
	defer rows.Close()

	var pools []FeePool
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, 0, err
		}
		pools = append(pools, *pool)
	}
	return pools, total, rows.Err()
}

// CountPoolCharges counts charges attached to a pool.
func (r *Repository) CountPoolCharges(ctx context.Context, poolID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unit_charges WHERE pool_id = $1`, poolID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("billing: count pool charges: %w", err)
	}
	return count, nil
}

// --- Charge operations ---

// CreateCharges inserts a generation batch inside one transaction: a failure
// on any row rolls back the whole batch.
func (r *Repository) CreateCharges(ctx context.Context, charges []UnitCharge) ([]UnitCharge, error) {
	created := make([]UnitCharge, 0, len(charges))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, charge := range charges {
			meta, err := metadataToJSON(charge.Metadata)
			if err != nil {
				return err
			}
			err = tx.QueryRow(ctx, `
				INSERT INTO unit_charges (
					pool_id, unit_id, ideal_fraction, base_amount, additional_charges,
					discounts, total_amount, barcode, digitable_line, our_number,
					due_date, status, amount_paid, late_fee, interest, notes, metadata,
					created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
				RETURNING id`,
				charge.PoolID,
				charge.UnitID,
				charge.IdealFraction,
				charge.BaseAmount,
				charge.AdditionalCharges,
				charge.Discounts,
				charge.TotalAmount,
				charge.Barcode,
				charge.DigitableLine,
				charge.OurNumber,
				charge.DueDate,
				string(charge.Status),
				charge.AmountPaid,
				charge.LateFee,
				charge.Interest,
				charge.Notes,
				meta,
				charge.CreatedAt,
				charge.UpdatedAt,
			).Scan(&charge.ID)
			if err != nil {
				return fmt.Errorf("billing: insert charge for unit %d: %w", charge.UnitID, err)
			}
			created = append(created, charge)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetCharge retrieves a charge by ID.
func (r *Repository) GetCharge(ctx context.Context, id int64) (*UnitCharge, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+chargeColumns+` FROM unit_charges WHERE id = $1`, id)
	charge, err := scanCharge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: charge %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return charge, nil
}

// UpdateCharge persists operator-editable charge fields. Derived payment
// fields go through UpdateChargeDerived inside the locked transaction instead.
func (r *Repository) UpdateCharge(ctx context.Context, charge *UnitCharge) error {
	meta, err := metadataToJSON(charge.Metadata)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE unit_charges
		SET additional_charges = $2, discounts = $3, total_amount = $4, late_fee = $5,
			interest = $6, due_date = $7, barcode = $8, digitable_line = $9,
			our_number = $10, status = $11, notes = $12, metadata = $13, updated_at = $14
		WHERE id = $1`,
		charge.ID,
		charge.AdditionalCharges,
		charge.Discounts,
		charge.TotalAmount,
		charge.LateFee,
		charge.Interest,
		charge.DueDate,
		charge.Barcode,
		charge.DigitableLine,
		charge.OurNumber,
		string(charge.Status),
		charge.Notes,
		meta,
		charge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: update charge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: charge %d", ErrNotFound, charge.ID)
	}
	return nil
}

// DeleteCharge removes a charge and its payments in one transaction.
func (r *Repository) DeleteCharge(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE charge_id = $1`, id); err != nil {
			return fmt.Errorf("billing: delete charge payments: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM unit_charges WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("billing: delete charge: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: charge %d", ErrNotFound, id)
		}
		return nil
	})
}

// ListCharges returns charges with optional filtering plus the unpaginated count.
func (r *Repository) ListCharges(ctx context.Context, req ListChargesRequest) ([]UnitCharge, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 1

	if req.PoolID > 0 {
		where += fmt.Sprintf(" AND pool_id = $%d", argNum)
		args = append(args, req.PoolID)
		argNum++
	}
	if req.UnitID > 0 {
		where += fmt.Sprintf(" AND unit_id = $%d", argNum)
		args = append(args, req.UnitID)
		argNum++
	}
	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if !req.DueFrom.IsZero() {
		where += fmt.Sprintf(" AND due_date >= $%d", argNum)
		args = append(args, req.DueFrom)
		argNum++
	}
	if !req.DueTo.IsZero() {
		where += fmt.Sprintf(" AND due_date <= $%d", argNum)
		args = append(args, req.DueTo)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM unit_charges`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("billing: count charges: %w", err)
	}

	query := `SELECT ` + chargeColumns + ` FROM unit_charges` + where + ` ORDER BY due_date, id`
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("billing: list charges: %w", err)
	}
	defer rows.Close()

	var charges []UnitCharge
	for rows.Next() {
		charge, err := scanCharge(rows)
		if err != nil {
			return nil, 0, err
		}
		charges = append(charges, *charge)
	}
	return charges, total, rows.Err()
}

// ListDueCharges returns non-terminal charges whose due date is strictly in
// the past, for the scheduled status refresh.
func (r *Repository) ListDueCharges(ctx context.Context, before time.Time) ([]UnitCharge, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+chargeColumns+`
		FROM unit_charges
		WHERE status IN ('pending', 'partially_paid') AND due_date < $1
		ORDER BY due_date, id`, before)
	if err != nil {
		return nil, fmt.Errorf("billing: list due charges: %w", err)
	}
	defer rows.Close()

	var charges []UnitCharge
	for rows.Next() {
		charge, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, *charge)
	}
	return charges, rows.Err()
}

// --- Payment operations ---

// GetPayment retrieves a payment by ID.
func (r *Repository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	payment, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPayments returns payments with optional filtering.
func (r *Repository) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	query := `SELECT p.id, p.charge_id, p.payment_date, p.amount_paid, p.method, p.reference,
		p.bank_reference, p.source, p.notes, p.metadata, p.created_at, p.updated_at
		FROM payments p`
	args := []any{}
	argNum := 1

	if req.CondominiumID > 0 {
		query += ` JOIN unit_charges c ON c.id = p.charge_id JOIN fee_pools fp ON fp.id = c.pool_id`
	}
	query += ` WHERE 1=1`
	if req.CondominiumID > 0 {
		query += fmt.Sprintf(" AND fp.condominium_id = $%d", argNum)
		args = append(args, req.CondominiumID)
		argNum++
	}
	if req.ChargeID > 0 {
		query += fmt.Sprintf(" AND p.charge_id = $%d", argNum)
		args = append(args, req.ChargeID)
		argNum++
	}
	if req.Method != "" {
		query += fmt.Sprintf(" AND p.method = $%d", argNum)
		args = append(args, string(req.Method))
		argNum++
	}
	if req.Source != "" {
		query += fmt.Sprintf(" AND p.source = $%d", argNum)
		args = append(args, string(req.Source))
		argNum++
	}
	if !req.DateFrom.IsZero() {
		query += fmt.Sprintf(" AND p.payment_date >= $%d", argNum)
		args = append(args, req.DateFrom)
		argNum++
	}
	if !req.DateTo.IsZero() {
		query += fmt.Sprintf(" AND p.payment_date <= $%d", argNum)
		args = append(args, req.DateTo)
		argNum++
	}

	query += ` ORDER BY p.payment_date DESC, p.id DESC`
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("billing: list payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

// --- Statistics operations ---

func paymentStatsWhere(f PaymentStatsFilter) (string, []any, int) {
	clause := ` WHERE 1=1`
	args := []any{}
	argNum := 1
	if f.CondominiumID > 0 {
		clause += fmt.Sprintf(" AND fp.condominium_id = $%d", argNum)
		args = append(args, f.CondominiumID)
		argNum++
	}
	if !f.DateFrom.IsZero() {
		clause += fmt.Sprintf(" AND p.payment_date >= $%d", argNum)
		args = append(args, f.DateFrom)
		argNum++
	}
	if !f.DateTo.IsZero() {
		clause += fmt.Sprintf(" AND p.payment_date <= $%d", argNum)
		args = append(args, f.DateTo)
		argNum++
	}
	return clause, args, argNum
}

const paymentStatsFrom = ` FROM payments p
	JOIN unit_charges c ON c.id = p.charge_id
	JOIN fee_pools fp ON fp.id = c.pool_id`

// CountPayments returns the count and total amount for the filtered period.
func (r *Repository) CountPayments(ctx context.Context, f PaymentStatsFilter) (int, decimal.Decimal, error) {
	where, args, _ := paymentStatsWhere(f)
	var count int
	var total pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(p.amount_paid), 0)`+paymentStatsFrom+where, args...,
	).Scan(&count, &total)
	if err != nil {
		return 0, decimal.Decimal{}, fmt.Errorf("billing: count payments: %w", err)
	}
	return count, numericToDecimal(total), nil
}

// SumPaymentsByMethod sums the filtered period for one method bucket.
func (r *Repository) SumPaymentsByMethod(ctx context.Context, f PaymentStatsFilter, method PaymentMethod) (decimal.Decimal, error) {
	where, args, argNum := paymentStatsWhere(f)
	args = append(args, string(method))
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(p.amount_paid), 0)`+paymentStatsFrom+where+fmt.Sprintf(" AND p.method = $%d", argNum),
		args...,
	).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("billing: sum payments by method: %w", err)
	}
	return numericToDecimal(sum), nil
}

// SumPaymentsBySource sums the filtered period for one source bucket.
func (r *Repository) SumPaymentsBySource(ctx context.Context, f PaymentStatsFilter, source PaymentSource) (decimal.Decimal, error) {
	where, args, argNum := paymentStatsWhere(f)
	args = append(args, string(source))
	var sum pgtype.Numeric
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(p.amount_paid), 0)`+paymentStatsFrom+where+fmt.Sprintf(" AND p.source = $%d", argNum),
		args...,
	).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("billing: sum payments by source: %w", err)
	}
	return numericToDecimal(sum), nil
}

// --- Transactional recomputation ---

// InChargeTx runs fn inside a repeatable-read transaction scoped to one
// charge. fn is expected to call LockCharge first so the row lock is held for
// the payment mutation and the derived-field write.
func (r *Repository) InChargeTx(ctx context.Context, chargeID int64, fn func(ctx context.Context, tx ChargeTxPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &chargeTx{tx: tx})
	})
}

type chargeTx struct {
	tx pgx.Tx
}

// LockCharge fetches the charge with FOR UPDATE, blocking concurrent
// recomputations of the same charge until this transaction ends.
func (t *chargeTx) LockCharge(ctx context.Context, id int64) (*UnitCharge, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+chargeColumns+` FROM unit_charges WHERE id = $1 FOR UPDATE`, id)
	charge, err := scanCharge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: charge %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return charge, nil
}

func (t *chargeTx) InsertPayment(ctx context.Context, payment *Payment) (*Payment, error) {
	meta, err := metadataToJSON(payment.Metadata)
	if err != nil {
		return nil, err
	}
	err = t.tx.QueryRow(ctx, `
		INSERT INTO payments (
			charge_id, payment_date, amount_paid, method, reference,
			bank_reference, source, notes, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		payment.ChargeID,
		payment.PaymentDate,
		payment.AmountPaid,
		string(payment.Method),
		payment.Reference,
		payment.BankReference,
		string(payment.Source),
		payment.Notes,
		meta,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Scan(&payment.ID)
	if err != nil {
		return nil, fmt.Errorf("billing: insert payment: %w", err)
	}
	return payment, nil
}

func (t *chargeTx) UpdatePayment(ctx context.Context, payment *Payment) error {
	meta, err := metadataToJSON(payment.Metadata)
	if err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE payments
		SET payment_date = $2, amount_paid = $3, method = $4, reference = $5,
			bank_reference = $6, source = $7, notes = $8, metadata = $9, updated_at = $10
		WHERE id = $1`,
		payment.ID,
		payment.PaymentDate,
		payment.AmountPaid,
		string(payment.Method),
		payment.Reference,
		payment.BankReference,
		string(payment.Source),
		payment.Notes,
		meta,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %d", ErrNotFound, payment.ID)
	}
	return nil
}

func (t *chargeTx) DeletePayment(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("billing: delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: payment %d", ErrNotFound, id)
	}
	return nil
}

func (t *chargeTx) ListChargePayments(ctx context.Context, chargeID int64) ([]Payment, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE charge_id = $1 ORDER BY payment_date, id`, chargeID)
	if err != nil {
		return nil, fmt.Errorf("billing: list charge payments: %w", err)
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	return payments, rows.Err()
}

func (t *chargeTx) UpdateChargeDerived(ctx context.Context, charge *UnitCharge) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE unit_charges
		SET amount_paid = $2, payment_date = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		charge.ID,
		charge.AmountPaid,
		charge.PaymentDate,
		string(charge.Status),
		charge.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("billing: update charge derived fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: charge %d", ErrNotFound, charge.ID)
	}
	return nil
}

// --- Scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanPool(row scannable) (*FeePool, error) {
	var pool FeePool
	var baseValue pgtype.Numeric
	var issueDate pgtype.Timestamptz
	var meta []byte
	var status string
	err := row.Scan(
		&pool.ID, &pool.CondominiumID, &pool.ReferenceMonth, &baseValue, &pool.DueDate, &issueDate,
		&status, &pool.Notes, &meta, &pool.CreatedAt, &pool.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pool.BaseValue = numericToDecimal(baseValue)
	pool.Status = PoolStatus(status)
	if issueDate.Valid {
		pool.IssueDate = &issueDate.Time
	}
	pool.Metadata, err = metadataFromJSON(meta)
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

func scanCharge(row scannable) (*UnitCharge, error) {
	var charge UnitCharge
	var fraction, base, additional, discounts, total, paid, lateFee, interest pgtype.Numeric
	var paymentDate pgtype.Timestamptz
	var meta []byte
	var status string
	err := row.Scan(
		&charge.ID, &charge.PoolID, &charge.UnitID, &fraction, &base, &additional,
		&discounts, &total, &charge.Barcode, &charge.DigitableLine, &charge.OurNumber,
		&charge.DueDate, &status, &paymentDate, &paid, &lateFee, &interest,
		&charge.Notes, &meta, &charge.CreatedAt, &charge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	charge.IdealFraction = numericToDecimal(fraction)
	charge.BaseAmount = numericToDecimal(base)
	charge.AdditionalCharges = numericToDecimal(additional)
	charge.Discounts = numericToDecimal(discounts)
	charge.TotalAmount = numericToDecimal(total)
	charge.AmountPaid = numericToDecimal(paid)
	charge.LateFee = numericToDecimal(lateFee)
	charge.Interest = numericToDecimal(interest)
	charge.Status = ChargeStatus(status)
	if paymentDate.Valid {
		charge.PaymentDate = &paymentDate.Time
	}
	charge.Metadata, err = metadataFromJSON(meta)
	if err != nil {
		return nil, err
	}
	return &charge, nil
}

func scanPayment(row scannable) (*Payment, error) {
	var payment Payment
	var amount pgtype.Numeric
	var meta []byte
	var method, source string
	err := row.Scan(
		&payment.ID, &payment.ChargeID, &payment.PaymentDate, &amount, &method, &payment.Reference,
		&payment.BankReference, &source, &payment.Notes, &meta, &payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	payment.AmountPaid = numericToDecimal(amount)
	payment.Method = PaymentMethod(method)
	payment.Source = PaymentSource(source)
	payment.Metadata, err = metadataFromJSON(meta)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Decimal{}
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func metadataToJSON(meta map[string]any) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("billing: encode metadata: %w", err)
	}
	return data, nil
}

func metadataFromJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("billing: decode metadata: %w", err)
	}
	return meta, nil
}
