package billing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/condoflow/condoflow/internal/observability"
	"github.com/condoflow/condoflow/internal/platform/httpx"
	"github.com/condoflow/condoflow/internal/shared"
)

// Handler manages billing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/pools", func(r chi.Router) {
		r.Post("/", h.createPool)
		r.Get("/", h.listPools)
		r.Get("/{id}", h.getPool)
		r.Put("/{id}", h.updatePool)
		r.Delete("/{id}", h.deletePool)
		r.Get("/{id}/summary", h.getPoolSummary)
		r.Post("/{id}/generate-charges", h.generateCharges)
	})

	r.Route("/charges", func(r chi.Router) {
		r.Get("/", h.listCharges)
		r.Get("/{id}", h.getCharge)
		r.Put("/{id}", h.updateCharge)
		r.Delete("/{id}", h.deleteCharge)
		r.Post("/{id}/cancel", h.cancelCharge)
		r.Post("/{id}/refresh-status", h.refreshChargeStatus)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.createPayment)
		r.Get("/", h.listPayments)
		r.Get("/{id}", h.getPayment)
		r.Put("/{id}", h.updatePayment)
		r.Delete("/{id}", h.deletePayment)
		r.Post("/import", h.importPayments)
	})

	r.Route("/statistics", func(r chi.Router) {
		r.Get("/pools/{id}", h.getPoolStatistics)
		r.Get("/payments", h.getPaymentStatistics)
	})
}

// --- Pools ---

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	refMonth, err := time.Parse("2006-01", req.ReferenceMonth)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference_month must be YYYY-MM")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
		return
	}
	var issueDate *time.Time
	if req.IssueDate != "" {
		issued, err := time.Parse("2006-01-02", req.IssueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issue_date must be YYYY-MM-DD")
			return
		}
		issueDate = &issued
	}

	pool, err := h.service.CreatePool(r.Context(), CreatePoolInput{
		CondominiumID:  req.CondominiumID,
		ReferenceMonth: refMonth,
		BaseValue:      req.BaseValue,
		DueDate:        dueDate,
		IssueDate:      issueDate,
		Notes:          req.Notes,
		Metadata:       req.Metadata,
	})
	if err != nil {
		h.respondError(w, r, "create pool", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newPoolResponse(pool))
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	pool, err := h.service.GetPool(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get pool", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPoolResponse(pool))
}

func (h *Handler) listPools(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePageParams(q.Get("page"), q.Get("per_page"))
	req := ListPoolsRequest{
		Status: PoolStatus(q.Get("status")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if v := q.Get("condominium_id"); v != "" {
		req.CondominiumID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("reference_month"); v != "" {
		month, err := time.Parse("2006-01", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference_month must be YYYY-MM")
			return
		}
		req.ReferenceMonth = month
	}

	pools, total, err := h.service.ListPools(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list pools", err)
		return
	}
	items := make([]poolResponse, 0, len(pools))
	for i := range pools {
		items = append(items, newPoolResponse(&pools[i]))
	}
	httpx.JSON(w, http.StatusOK, listResponse[poolResponse]{
		Items:      items,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) updatePool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updatePoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	input := UpdatePoolInput{
		BaseValue: req.BaseValue,
		Notes:     req.Notes,
		Metadata:  req.Metadata,
	}
	if req.ReferenceMonth != nil {
		month, err := time.Parse("2006-01", *req.ReferenceMonth)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reference_month must be YYYY-MM")
			return
		}
		input.ReferenceMonth = &month
	}
	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
			return
		}
		input.DueDate = &due
	}
	if req.IssueDate != nil {
		issued, err := time.Parse("2006-01-02", *req.IssueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "issue_date must be YYYY-MM-DD")
			return
		}
		input.IssueDate = &issued
	}
	if req.Status != nil {
		status := PoolStatus(*req.Status)
		input.Status = &status
	}

	pool, err := h.service.UpdatePool(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "update pool", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPoolResponse(pool))
}

func (h *Handler) deletePool(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePool(r.Context(), id); err != nil {
		h.respondError(w, r, "delete pool", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getPoolSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetPoolSummary(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "pool summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"pool_id":         id,
		"total_expected":  summary.TotalExpected,
		"total_collected": summary.TotalCollected,
		"total_pending":   summary.TotalPending,
		"paid_units":      summary.PaidUnits,
		"overdue_units":   summary.OverdueUnits,
	})
}

func (h *Handler) generateCharges(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req generateChargesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inputs := make([]GenerateChargeInput, 0, len(req.Units))
	for _, unit := range req.Units {
		inputs = append(inputs, GenerateChargeInput{
			UnitID:            unit.UnitID,
			IdealFraction:     unit.IdealFraction,
			AdditionalCharges: unit.AdditionalCharges,
			Discounts:         unit.Discounts,
			Barcode:           unit.Barcode,
			DigitableLine:     unit.DigitableLine,
			OurNumber:         unit.OurNumber,
			Notes:             unit.Notes,
			Metadata:          unit.Metadata,
		})
	}

	charges, err := h.service.GenerateCharges(r.Context(), id, inputs)
	if err != nil {
		h.respondError(w, r, "generate charges", err)
		return
	}
	h.metrics.ChargesGenerated(len(charges))

	now := time.Now()
	items := make([]chargeResponse, 0, len(charges))
	for i := range charges {
		items = append(items, newChargeResponse(&charges[i], now))
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"count":   len(items),
		"charges": items,
	})
}

// --- Charges ---

func (h *Handler) getCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	charge, err := h.service.GetCharge(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get charge", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newChargeResponse(charge, time.Now()))
}

func (h *Handler) listCharges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePageParams(q.Get("page"), q.Get("per_page"))
	req := ListChargesRequest{
		Status: ChargeStatus(q.Get("status")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if v := q.Get("pool_id"); v != "" {
		req.PoolID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("unit_id"); v != "" {
		req.UnitID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("due_from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_from must be YYYY-MM-DD")
			return
		}
		req.DueFrom = from
	}
	if v := q.Get("due_to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_to must be YYYY-MM-DD")
			return
		}
		req.DueTo = to
	}

	charges, total, err := h.service.ListCharges(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list charges", err)
		return
	}
	now := time.Now()
	items := make([]chargeResponse, 0, len(charges))
	for i := range charges {
		items = append(items, newChargeResponse(&charges[i], now))
	}
	httpx.JSON(w, http.StatusOK, listResponse[chargeResponse]{
		Items:      items,
		Pagination: shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) updateCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateChargeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	input := UpdateChargeInput{
		AdditionalCharges: req.AdditionalCharges,
		Discounts:         req.Discounts,
		TotalAmount:       req.TotalAmount,
		LateFee:           req.LateFee,
		Interest:          req.Interest,
		Barcode:           req.Barcode,
		DigitableLine:     req.DigitableLine,
		OurNumber:         req.OurNumber,
		Notes:             req.Notes,
		Metadata:          req.Metadata,
	}
	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "due_date must be YYYY-MM-DD")
			return
		}
		input.DueDate = &due
	}

	charge, err := h.service.UpdateCharge(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "update charge", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newChargeResponse(charge, time.Now()))
}

func (h *Handler) deleteCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCharge(r.Context(), id); err != nil {
		h.respondError(w, r, "delete charge", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cancelCharge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	charge, err := h.service.CancelCharge(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "cancel charge", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newChargeResponse(charge, time.Now()))
}

func (h *Handler) refreshChargeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	charge, err := h.service.RefreshChargeStatus(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "refresh charge status", err)
		return
	}
	h.metrics.StatusRefreshed()
	httpx.JSON(w, http.StatusOK, newChargeResponse(charge, time.Now()))
}

// --- Payments ---

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	paymentDate := time.Now()
	if req.PaymentDate != "" {
		parsed, err := time.Parse("2006-01-02", req.PaymentDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
			return
		}
		paymentDate = parsed
	}
	source := PaymentSource(req.Source)
	if req.Source == "" {
		source = SourceManual
	}

	payment, err := h.service.RecordPayment(r.Context(), CreatePaymentInput{
		ChargeID:      req.ChargeID,
		PaymentDate:   paymentDate,
		AmountPaid:    req.AmountPaid,
		Method:        PaymentMethod(req.Method),
		Reference:     req.Reference,
		BankReference: req.BankReference,
		Source:        source,
		Notes:         req.Notes,
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.respondError(w, r, "record payment", err)
		return
	}
	h.metrics.PaymentRecorded()
	httpx.JSON(w, http.StatusCreated, newPaymentResponse(payment))
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payment, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "get payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPaymentResponse(payment))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := parsePageParams(q.Get("page"), q.Get("per_page"))
	req := ListPaymentsRequest{
		Method: PaymentMethod(q.Get("method")),
		Source: PaymentSource(q.Get("source")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if v := q.Get("charge_id"); v != "" {
		req.ChargeID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("condominium_id"); v != "" {
		req.CondominiumID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("date_from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_from must be YYYY-MM-DD")
			return
		}
		req.DateFrom = from
	}
	if v := q.Get("date_to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_to must be YYYY-MM-DD")
			return
		}
		req.DateTo = to
	}

	payments, err := h.service.ListPayments(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list payments", err)
		return
	}
	items := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		items = append(items, newPaymentResponse(&payments[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updatePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	input := UpdatePaymentInput{
		AmountPaid:    req.AmountPaid,
		Reference:     req.Reference,
		BankReference: req.BankReference,
		Notes:         req.Notes,
		Metadata:      req.Metadata,
	}
	if req.PaymentDate != nil {
		paid, err := time.Parse("2006-01-02", *req.PaymentDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
			return
		}
		input.PaymentDate = &paid
	}
	if req.Method != nil {
		method := PaymentMethod(*req.Method)
		input.Method = &method
	}
	if req.Source != nil {
		source := PaymentSource(*req.Source)
		input.Source = &source
	}

	payment, err := h.service.UpdatePayment(r.Context(), id, input)
	if err != nil {
		h.respondError(w, r, "update payment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newPaymentResponse(payment))
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePayment(r.Context(), id); err != nil {
		h.respondError(w, r, "delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importPayments(w http.ResponseWriter, r *http.Request) {
	var req importPaymentsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rows := make([]ImportRow, 0, len(req.Rows))
	for _, row := range req.Rows {
		paid, err := time.Parse("2006-01-02", row.PaymentDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "payment_date must be YYYY-MM-DD")
			return
		}
		rows = append(rows, ImportRow{
			ChargeID:      row.ChargeID,
			PaymentDate:   paid,
			AmountPaid:    row.AmountPaid,
			BankReference: row.BankReference,
			Method:        PaymentMethod(row.Method),
			Notes:         row.Notes,
		})
	}

	result, err := h.service.ImportBankPayments(r.Context(), req.BatchID, rows)
	if err != nil {
		h.respondError(w, r, "import payments", err)
		return
	}
	for _, row := range result.Rows {
		switch {
		case row.Duplicate:
			h.metrics.ImportRow("duplicate")
		case row.Err != nil:
			h.metrics.ImportRow("failed")
		default:
			h.metrics.ImportRow("accepted")
			h.metrics.PaymentRecorded()
		}
	}

	rowResults := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		entry := map[string]any{
			"bank_reference": row.BankReference,
			"duplicate":      row.Duplicate,
		}
		if row.PaymentID > 0 {
			entry["payment_id"] = row.PaymentID
		}
		if row.Err != nil {
			entry["error"] = row.Err.Error()
		}
		rowResults = append(rowResults, entry)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"batch_id":   result.BatchID,
		"accepted":   result.Accepted,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
		"rows":       rowResults,
	})
}

// --- Statistics ---

func (h *Handler) getPoolStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetPoolStatistics(r.Context(), id)
	if err != nil {
		h.respondError(w, r, "pool statistics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"pool_id":              stats.PoolID,
		"total_units":          stats.TotalUnits,
		"paid_units":           stats.PaidUnits,
		"overdue_units":        stats.OverdueUnits,
		"partially_paid_units": stats.PartiallyPaidUnits,
		"cancelled_units":      stats.CancelledUnits,
		"total_expected":       stats.TotalExpected,
		"total_collected":      stats.TotalCollected,
		"total_pending":        stats.TotalPending,
		"total_late_fee":       stats.TotalLateFee,
		"total_interest":       stats.TotalInterest,
		"collection_rate":      stats.CollectionRate,
	})
}

func (h *Handler) getPaymentStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := PaymentStatsFilter{}
	if v := q.Get("condominium_id"); v != "" {
		filter.CondominiumID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("date_from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_from must be YYYY-MM-DD")
			return
		}
		filter.DateFrom = from
	}
	if v := q.Get("date_to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date_to must be YYYY-MM-DD")
			return
		}
		filter.DateTo = to
	}

	stats, err := h.service.GetPaymentStatistics(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, "payment statistics", err)
		return
	}
	byMethod := make(map[string]decimal.Decimal, len(stats.ByMethod))
	for method, sum := range stats.ByMethod {
		byMethod[string(method)] = sum
	}
	bySource := make(map[string]decimal.Decimal, len(stats.BySource))
	for source, sum := range stats.BySource {
		bySource[string(source)] = sum
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"total_payments": stats.TotalPayments,
		"total_amount":   stats.TotalAmount,
		"by_method":      byMethod,
		"by_source":      bySource,
	})
}

// --- Helpers ---

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "path ID must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrHasDependents):
		httpx.Problem(w, http.StatusConflict, "Dependent Records Exist", err.Error())
	case errors.Is(err, ErrConcurrencyConflict):
		httpx.Problem(w, http.StatusConflict, "Concurrent Modification", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parsePageParams(pageStr, perPageStr string) (page, perPage int) {
	page, _ = strconv.Atoi(pageStr)
	if page <= 0 {
		page = 1
	}
	perPage, _ = strconv.Atoi(perPageStr)
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}
	return page, perPage
}
