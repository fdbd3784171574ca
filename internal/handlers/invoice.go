package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nordvale/planline-backend/internal/data/repos"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
)

type InvoiceHandler struct {
	log      *logger.Logger
	invoices repos.InvoiceRepo
	payments repos.PaymentRepo
	clients  repos.ClientRepo
}

func NewInvoiceHandler(
	log *logger.Logger,
	invoices repos.InvoiceRepo,
	payments repos.PaymentRepo,
	clients repos.ClientRepo,
) *InvoiceHandler {
	return &InvoiceHandler{
		log:      log.With("handler", "InvoiceHandler"),
		invoices: invoices,
		payments: payments,
		clients:  clients,
	}
}

func (h *InvoiceHandler) List(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	invoices, err := h.invoices.List(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID)
	if err != nil {
		h.log.Error("List invoices failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "list_invoices_failed", err)
		return
	}
	RespondOK(c, gin.H{"invoices": invoices})
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := h.invoices.GetByID(dbctx.Context{Ctx: c.Request.Context()}, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "invoice_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_invoice_failed", err)
		return
	}
	RespondOK(c, gin.H{"invoice": invoice})
}

type invoiceCreateRequest struct {
	ClientID  uuid.UUID  `json:"client_id" binding:"required"`
	ProjectID *uuid.UUID `json:"project_id"`
	Amount    float64    `json:"amount" binding:"required"`
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	var req invoiceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Amount <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_amount", errors.New("amount must be positive"))
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.clients.GetByID(dbc, rd.TenantID, req.ClientID); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "client_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_client_failed", err)
		return
	}
	invoice := &domain.Invoice{
		TenantID:  rd.TenantID,
		ClientID:  req.ClientID,
		ProjectID: req.ProjectID,
		Amount:    req.Amount,
		IssuedAt:  time.Now().UTC(),
	}
	if err := h.invoices.Create(dbc, invoice); err != nil {
		h.log.Error("Create invoice failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "create_invoice_failed", err)
		return
	}
	RespondCreated(c, gin.H{"invoice": invoice})
}

type paymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// RecordPayment appends a payment and marks the invoice paid once the
// payments cover the invoiced amount.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Amount <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_amount", errors.New("amount must be positive"))
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	invoice, err := h.invoices.GetByID(dbc, rd.TenantID, id)
	if err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "invoice_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_invoice_failed", err)
		return
	}
	if invoice.Paid {
		RespondError(c, http.StatusConflict, "invoice_already_paid", errors.New("invoice is already settled"))
		return
	}
	payment := &domain.Payment{
		TenantID:  rd.TenantID,
		InvoiceID: invoice.ID,
		Amount:    req.Amount,
		PaidAt:    time.Now().UTC(),
	}
	if err := h.payments.Create(dbc, payment); err != nil {
		h.log.Error("Record payment failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "record_payment_failed", err)
		return
	}
	payments, err := h.payments.ListByInvoice(dbc, invoice.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_payments_failed", err)
		return
	}
	var total float64
	for _, p := range payments {
		total += p.Amount
	}
	if total >= invoice.Amount {
		if err := h.invoices.UpdateFields(dbc, invoice.ID, map[string]any{"paid": true}); err != nil {
			RespondError(c, http.StatusInternalServerError, "update_invoice_failed", err)
			return
		}
		invoice.Paid = true
	}
	RespondCreated(c, gin.H{"payment": payment, "invoice": invoice, "total_paid": total})
}

func (h *InvoiceHandler) Payments(c *gin.Context) {
	rd, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if _, err := h.invoices.GetByID(dbc, rd.TenantID, id); err != nil {
		if isNotFound(err) {
			RespondError(c, http.StatusNotFound, "invoice_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "load_invoice_failed", err)
		return
	}
	payments, err := h.payments.ListByInvoice(dbc, id)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_payments_failed", err)
		return
	}
	RespondOK(c, gin.H{"payments": payments})
}
