package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/entity"
	"github.com/averros/invopipe/internal/mapper"
)

// DocumentRepository persists Document Records through their lifecycle.
type DocumentRepository interface {
	CreateInitial(ctx context.Context, doc *entity.Document) error
	FindByID(ctx context.Context, docType constants.DocumentType, id uuid.UUID) (*entity.Document, error)
	UpdateFields(ctx context.Context, id uuid.UUID, data mapper.DocumentData, analysisURL string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error
	SetCustomerID(ctx context.Context, id, customerID uuid.UUID) error
	SetVendorID(ctx context.Context, id, vendorID uuid.UUID) error
	ListAnalyzedByPartner(ctx context.Context, docType constants.DocumentType, partnerID string) ([]*entity.Document, error)
	SoftDelete(ctx context.Context, docType constants.DocumentType, id uuid.UUID) (bool, error)
}

type documentRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *gorm.DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

func (r *documentRepository) CreateInitial(ctx context.Context, doc *entity.Document) error {
	model := DocumentModel{
		ID:               doc.ID,
		DocumentType:     string(doc.Type),
		Status:           string(doc.Status),
		PartnerID:        doc.PartnerID,
		FileURL:          doc.FileURL,
		OriginalFilename: doc.OriginalFilename,
		FileSize:         doc.FileSize,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		r.logger.Error("failed to create document record", "document_id", doc.ID, "error", err)
		return err
	}
	return nil
}

func (r *documentRepository) FindByID(ctx context.Context, docType constants.DocumentType, id uuid.UUID) (*entity.Document, error) {
	var model DocumentModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND document_type = ?", id, string(docType)).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to load document", "document_id", id, "error", err)
		return nil, err
	}
	return toDocument(&model), nil
}

func (r *documentRepository) UpdateFields(ctx context.Context, id uuid.UUID, data mapper.DocumentData, analysisURL string) error {
	updates := map[string]any{
		"document_number":   data.DocumentNumber,
		"document_date":     data.DocumentDate,
		"due_date":          data.DueDate,
		"purchase_order_id": data.PurchaseOrderID,
		"total_amount":      data.TotalAmount,
		"subtotal_amount":   data.SubtotalAmount,
		"discount_amount":   data.DiscountAmount,
		"tax_amount":        data.TaxAmount,
		"currency_code":     data.CurrencyCode,
		"currency_symbol":   data.CurrencySymbol,
		"payment_terms":     data.PaymentTerms,
	}
	if analysisURL != "" {
		updates["analysis_url"] = analysisURL
	}
	err := r.db.WithContext(ctx).
		Model(&DocumentModel{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("failed to update document fields", "document_id", id, "error", err)
	}
	return err
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	err := r.db.WithContext(ctx).
		Model(&DocumentModel{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
	if err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "status", status, "error", err)
	}
	return err
}

func (r *documentRepository) SetCustomerID(ctx context.Context, id, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&DocumentModel{}).
		Where("id = ?", id).
		Update("customer_id", customerID).Error
}

func (r *documentRepository) SetVendorID(ctx context.Context, id, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&DocumentModel{}).
		Where("id = ?", id).
		Update("vendor_id", vendorID).Error
}

func (r *documentRepository) ListAnalyzedByPartner(ctx context.Context, docType constants.DocumentType, partnerID string) ([]*entity.Document, error) {
	var models []DocumentModel
	err := r.db.WithContext(ctx).
		Where("document_type = ? AND partner_id = ? AND status = ?",
			string(docType), partnerID, string(constants.StatusAnalyzed)).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		r.logger.Error("failed to list documents", "partner_id", partnerID, "error", err)
		return nil, err
	}
	docs := make([]*entity.Document, len(models))
	for i := range models {
		docs[i] = toDocument(&models[i])
	}
	return docs, nil
}

func (r *documentRepository) SoftDelete(ctx context.Context, docType constants.DocumentType, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND document_type = ?", id, string(docType)).
		Delete(&DocumentModel{})
	if res.Error != nil {
		r.logger.Error("failed to delete document", "document_id", id, "error", res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
