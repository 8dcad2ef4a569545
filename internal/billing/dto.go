package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/condoflow/condoflow/internal/shared"
)

// Dates cross the wire as plain strings: reference months as "2006-01",
// everything else as "2006-01-02".

type createPoolRequest struct {
	CondominiumID  int64           `json:"condominium_id" validate:"required,gt=0"`
	ReferenceMonth string          `json:"reference_month" validate:"required"`
	BaseValue      decimal.Decimal `json:"base_value"`
	DueDate        string          `json:"due_date" validate:"required"`
	IssueDate      string          `json:"issue_date"`
	Notes          string          `json:"notes"`
	Metadata       map[string]any  `json:"metadata"`
}

type updatePoolRequest struct {
	ReferenceMonth *string          `json:"reference_month"`
	BaseValue      *decimal.Decimal `json:"base_value"`
	DueDate        *string          `json:"due_date"`
	IssueDate      *string          `json:"issue_date"`
	Status         *string          `json:"status"`
	Notes          *string          `json:"notes"`
	Metadata       map[string]any   `json:"metadata"`
}

type generateChargeRequest struct {
	UnitID            int64           `json:"unit_id" validate:"required,gt=0"`
	IdealFraction     decimal.Decimal `json:"ideal_fraction"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	Discounts         decimal.Decimal `json:"discounts"`
	Barcode           string          `json:"barcode"`
	DigitableLine     string          `json:"digitable_line"`
	OurNumber         string          `json:"our_number"`
	Notes             string          `json:"notes"`
	Metadata          map[string]any  `json:"metadata"`
}

type generateChargesRequest struct {
	Units []generateChargeRequest `json:"units" validate:"required,min=1,dive"`
}

type updateChargeRequest struct {
	AdditionalCharges *decimal.Decimal `json:"additional_charges"`
	Discounts         *decimal.Decimal `json:"discounts"`
	TotalAmount       *decimal.Decimal `json:"total_amount"`
	LateFee           *decimal.Decimal `json:"late_fee"`
	Interest          *decimal.Decimal `json:"interest"`
	DueDate           *string          `json:"due_date"`
	Barcode           *string          `json:"barcode"`
	DigitableLine     *string          `json:"digitable_line"`
	OurNumber         *string          `json:"our_number"`
	Notes             *string          `json:"notes"`
	Metadata          map[string]any   `json:"metadata"`
}

type createPaymentRequest struct {
	ChargeID      int64           `json:"charge_id" validate:"required,gt=0"`
	PaymentDate   string          `json:"payment_date"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Method        string          `json:"method" validate:"required"`
	Reference     string          `json:"reference"`
	BankReference string          `json:"bank_reference"`
	Source        string          `json:"source"`
	Notes         string          `json:"notes"`
	Metadata      map[string]any  `json:"metadata"`
}

type updatePaymentRequest struct {
	PaymentDate   *string          `json:"payment_date"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
	Method        *string          `json:"method"`
	Reference     *string          `json:"reference"`
	BankReference *string          `json:"bank_reference"`
	Source        *string          `json:"source"`
	Notes         *string          `json:"notes"`
	Metadata      map[string]any   `json:"metadata"`
}

type importRowRequest struct {
	ChargeID      int64           `json:"charge_id" validate:"required,gt=0"`
	PaymentDate   string          `json:"payment_date" validate:"required"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	BankReference string          `json:"bank_reference" validate:"required"`
	Method        string          `json:"method"`
	Notes         string          `json:"notes"`
}

type importPaymentsRequest struct {
	BatchID string             `json:"batch_id"`
	Rows    []importRowRequest `json:"rows" validate:"required,min=1,dive"`
}

// --- Responses ---

type poolResponse struct {
	ID             int64           `json:"id"`
	CondominiumID  int64           `json:"condominium_id"`
	ReferenceMonth string          `json:"reference_month"`
	BaseValue      decimal.Decimal `json:"base_value"`
	DueDate        string          `json:"due_date"`
	IssueDate      *string         `json:"issue_date,omitempty"`
	Status         PoolStatus      `json:"status"`
	Notes          string          `json:"notes,omitempty"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func newPoolResponse(pool *FeePool) poolResponse {
	resp := poolResponse{
		ID:             pool.ID,
		CondominiumID:  pool.CondominiumID,
		ReferenceMonth: pool.ReferenceMonth.Format("2006-01"),
		BaseValue:      pool.BaseValue,
		DueDate:        pool.DueDate.Format("2006-01-02"),
		Status:         pool.Status,
		Notes:          pool.Notes,
		Metadata:       pool.Metadata,
		CreatedAt:      pool.CreatedAt,
		UpdatedAt:      pool.UpdatedAt,
	}
	if pool.IssueDate != nil {
		issued := pool.IssueDate.Format("2006-01-02")
		resp.IssueDate = &issued
	}
	return resp
}

// chargeResponse always carries the derived fields re-evaluated at response
// time; stored status alone is never trusted for freshness.
type chargeResponse struct {
	ID                int64           `json:"id"`
	PoolID            int64           `json:"pool_id"`
	UnitID            int64           `json:"unit_id"`
	IdealFraction     decimal.Decimal `json:"ideal_fraction"`
	BaseAmount        decimal.Decimal `json:"base_amount"`
	AdditionalCharges decimal.Decimal `json:"additional_charges"`
	Discounts         decimal.Decimal `json:"discounts"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	FormattedTotal    string          `json:"formatted_total"`
	Barcode           string          `json:"barcode,omitempty"`
	DigitableLine     string          `json:"digitable_line,omitempty"`
	OurNumber         string          `json:"our_number,omitempty"`
	DueDate           string          `json:"due_date"`
	Status            ChargeStatus    `json:"status"`
	PaymentDate       *string         `json:"payment_date,omitempty"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	LateFee           decimal.Decimal `json:"late_fee"`
	Interest          decimal.Decimal `json:"interest"`
	Balance           decimal.Decimal `json:"balance"`
	FormattedBalance  string          `json:"formatted_balance"`
	IsOverdue         bool            `json:"is_overdue"`
	DaysOverdue       int             `json:"days_overdue"`
	Notes             string          `json:"notes,omitempty"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func newChargeResponse(charge *UnitCharge, at time.Time) chargeResponse {
	resp := chargeResponse{
		ID:                charge.ID,
		PoolID:            charge.PoolID,
		UnitID:            charge.UnitID,
		IdealFraction:     charge.IdealFraction,
		BaseAmount:        charge.BaseAmount,
		AdditionalCharges: charge.AdditionalCharges,
		Discounts:         charge.Discounts,
		TotalAmount:       charge.TotalAmount,
		FormattedTotal:    shared.FormatBRL(charge.TotalAmount),
		Barcode:           charge.Barcode,
		DigitableLine:     charge.DigitableLine,
		OurNumber:         charge.OurNumber,
		DueDate:           charge.DueDate.Format("2006-01-02"),
		Status:            charge.ResolveStatus(at),
		AmountPaid:        charge.AmountPaid,
		LateFee:           charge.LateFee,
		Interest:          charge.Interest,
		Balance:           charge.Balance(),
		FormattedBalance:  shared.FormatBRL(charge.Balance()),
		IsOverdue:         charge.IsOverdue(at),
		DaysOverdue:       charge.DaysOverdue(at),
		Notes:             charge.Notes,
		Metadata:          charge.Metadata,
		CreatedAt:         charge.CreatedAt,
		UpdatedAt:         charge.UpdatedAt,
	}
	if charge.PaymentDate != nil {
		paid := charge.PaymentDate.Format("2006-01-02")
		resp.PaymentDate = &paid
	}
	return resp
}

type paymentResponse struct {
	ID            int64           `json:"id"`
	ChargeID      int64           `json:"charge_id"`
	PaymentDate   string          `json:"payment_date"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Method        PaymentMethod   `json:"method"`
	Reference     string          `json:"reference,omitempty"`
	BankReference string          `json:"bank_reference,omitempty"`
	Source        PaymentSource   `json:"source"`
	Notes         string          `json:"notes,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func newPaymentResponse(payment *Payment) paymentResponse {
	return paymentResponse{
		ID:            payment.ID,
		ChargeID:      payment.ChargeID,
		PaymentDate:   payment.PaymentDate.Format("2006-01-02"),
		AmountPaid:    payment.AmountPaid,
		Method:        payment.Method,
		Reference:     payment.Reference,
		BankReference: payment.BankReference,
		Source:        payment.Source,
		Notes:         payment.Notes,
		Metadata:      payment.Metadata,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
}

type listResponse[T any] struct {
	Items      []T               `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
