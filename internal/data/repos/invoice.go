package repos

import (
	"github.com/google/uuid"
	"github.com/nordvale/planline-backend/internal/domain"
	"github.com/nordvale/planline-backend/internal/pkg/dbctx"
	"github.com/nordvale/planline-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

type InvoiceRepo interface {
	Create(dbc dbctx.Context, invoice *domain.Invoice) error
	GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Invoice, error)
	List(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Invoice, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
}

type invoiceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInvoiceRepo(db *gorm.DB, baseLog *logger.Logger) InvoiceRepo {
	return &invoiceRepo{db: db, log: baseLog.With("repo", "InvoiceRepo")}
}

func (r *invoiceRepo) Create(dbc dbctx.Context, invoice *domain.Invoice) error {
	return conn(r.db, dbc).Create(invoice).Error
}

func (r *invoiceRepo) GetByID(dbc dbctx.Context, tenantID, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	if err := conn(r.db, dbc).Where("tenant_id = ? AND id = ?", tenantID, id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) List(dbc dbctx.Context, tenantID uuid.UUID) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	if err := conn(r.db, dbc).
		Where("tenant_id = ?", tenantID).
		Order("issued_at DESC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return conn(r.db, dbc).Model(&domain.Invoice{}).Where("id = ?", id).Updates(updates).Error
}

type PaymentRepo interface {
	Create(dbc dbctx.Context, payment *domain.Payment) error
	ListByInvoice(dbc dbctx.Context, invoiceID uuid.UUID) ([]*domain.Payment, error)
}

type paymentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return &paymentRepo{db: db, log: baseLog.With("repo", "PaymentRepo")}
}

func (r *paymentRepo) Create(dbc dbctx.Context, payment *domain.Payment) error {
	return conn(r.db, dbc).Create(payment).Error
}

func (r *paymentRepo) ListByInvoice(dbc dbctx.Context, invoiceID uuid.UUID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	if err := conn(r.db, dbc).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
