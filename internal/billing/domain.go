package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PoolStatus enumerates fee pool statuses.
type PoolStatus string

const (
	PoolStatusDraft     PoolStatus = "draft"
	PoolStatusIssued    PoolStatus = "issued"
	PoolStatusClosed    PoolStatus = "closed"
	PoolStatusCancelled PoolStatus = "cancelled"
)

// Valid reports whether the status is a known pool status.
func (s PoolStatus) Valid() bool {
	switch s {
	case PoolStatusDraft, PoolStatusIssued, PoolStatusClosed, PoolStatusCancelled:
		return true
	}
	return false
}

// ChargeStatus enumerates unit charge statuses.
type ChargeStatus string

const (
	ChargeStatusPending       ChargeStatus = "pending"
	ChargeStatusPaid          ChargeStatus = "paid"
	ChargeStatusOverdue       ChargeStatus = "overdue"
	ChargeStatusPartiallyPaid ChargeStatus = "partially_paid"
	ChargeStatusCancelled     ChargeStatus = "cancelled"
)

// Valid reports whether the status is a known charge status.
func (s ChargeStatus) Valid() bool {
	switch s {
	case ChargeStatusPending, ChargeStatusPaid, ChargeStatusOverdue, ChargeStatusPartiallyPaid, ChargeStatusCancelled:
		return true
	}
	return false
}

// PaymentMethod enumerates how a payment was made.
type PaymentMethod string

const (
	MethodBankSlip   PaymentMethod = "bank_slip"
	MethodTransfer   PaymentMethod = "transfer"
	MethodPix        PaymentMethod = "pix"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodCash       PaymentMethod = "cash"
	MethodOther      PaymentMethod = "other"
)

// PaymentMethods lists the fixed method buckets used by statistics.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		MethodBankSlip, MethodTransfer, MethodPix,
		MethodCreditCard, MethodDebitCard, MethodCash, MethodOther,
	}
}

// Valid reports whether the method is recognized.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods() {
		if m == known {
			return true
		}
	}
	return false
}

// PaymentSource enumerates where a payment record came from.
type PaymentSource string

const (
	SourceManual   PaymentSource = "manual"
	SourceBankFile PaymentSource = "bank_file"
	SourceAPI      PaymentSource = "api"
)

// PaymentSources lists the fixed source buckets used by statistics.
func PaymentSources() []PaymentSource {
	return []PaymentSource{SourceManual, SourceBankFile, SourceAPI}
}

// Valid reports whether the source is recognized.
func (s PaymentSource) Valid() bool {
	switch s {
	case SourceManual, SourceBankFile, SourceAPI:
		return true
	}
	return false
}

// FeePool represents one billing cycle for a condominium: the shared base
// value, due date and lifecycle status. Aggregates over its charges are
// always computed at read time, never stored on the pool.
type FeePool struct {
	ID             int64
	CondominiumID  int64
	ReferenceMonth time.Time
	BaseValue      decimal.Decimal
	DueDate        time.Time
	IssueDate      *time.Time
	Status         PoolStatus
	Notes          string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UnitCharge is one unit's individual amount owed within a pool.
//
// AmountPaid and PaymentDate are materialized from the charge's payment set;
// they are only ever written through the payment recomputation path.
type UnitCharge struct {
	ID                int64
	PoolID            int64
	UnitID            int64
	IdealFraction     decimal.Decimal
	BaseAmount        decimal.Decimal
	AdditionalCharges decimal.Decimal
	Discounts         decimal.Decimal
	TotalAmount       decimal.Decimal
	Barcode           string
	DigitableLine     string
	OurNumber         string
	DueDate           time.Time
	Status            ChargeStatus
	PaymentDate       *time.Time
	AmountPaid        decimal.Decimal
	LateFee           decimal.Decimal
	Interest          decimal.Decimal
	Notes             string
	Metadata          map[string]any
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Balance returns the outstanding amount: (total + late fee + interest) minus
// what was paid. Negative when overpaid.
func (c *UnitCharge) Balance() decimal.Decimal {
	return c.TotalAmount.Add(c.LateFee).Add(c.Interest).Sub(c.AmountPaid)
}

// IsOverdue reports whether the charge is past due and still collectible.
func (c *UnitCharge) IsOverdue(at time.Time) bool {
	if c.Status == ChargeStatusPaid || c.Status == ChargeStatusCancelled {
		return false
	}
	return dateOf(c.DueDate).Before(dateOf(at))
}

// DaysOverdue returns the calendar days elapsed since the due date, or 0 when
// the charge is not overdue.
func (c *UnitCharge) DaysOverdue(at time.Time) int {
	if !c.IsOverdue(at) {
		return 0
	}
	return int(dateOf(at).Sub(dateOf(c.DueDate)).Hours() / 24)
}

// ResolveStatus evaluates the status transition rule against the charge's
// current payment aggregates. Cancelled is terminal; the remaining branches
// are checked in precedence order.
func (c *UnitCharge) ResolveStatus(at time.Time) ChargeStatus {
	switch {
	case c.Status == ChargeStatusCancelled:
		return ChargeStatusCancelled
	case c.AmountPaid.GreaterThanOrEqual(c.TotalAmount):
		return ChargeStatusPaid
	case c.AmountPaid.GreaterThan(decimal.Zero):
		return ChargeStatusPartiallyPaid
	case dateOf(c.DueDate).Before(dateOf(at)):
		return ChargeStatusOverdue
	default:
		return ChargeStatusPending
	}
}

// Payment is an immutable record of money received against one charge.
type Payment struct {
	ID            int64
	ChargeID      int64
	PaymentDate   time.Time
	AmountPaid    decimal.Decimal
	Method        PaymentMethod
	Reference     string
	BankReference string
	Source        PaymentSource
	Notes         string
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// dateOf truncates to the calendar day in the timestamp's location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
