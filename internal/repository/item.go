package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/entity"
	"github.com/averros/invopipe/internal/mapper"
)

// ItemRepository persists line items keyed by their parent document. Rows are
// only ever created in bulk during mapping, never patched in place.
type ItemRepository interface {
	CreateForDocument(ctx context.Context, docType constants.DocumentType, docID uuid.UUID, items []mapper.ItemData) error
	ListByDocument(ctx context.Context, docType constants.DocumentType, docID uuid.UUID) ([]*entity.LineItem, error)
}

type itemRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewItemRepository(db *gorm.DB, logger *slog.Logger) ItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &itemRepository{db: db, logger: logger}
}

func (r *itemRepository) CreateForDocument(ctx context.Context, docType constants.DocumentType, docID uuid.UUID, items []mapper.ItemData) error {
	if len(items) == 0 {
		return nil
	}
	models := make([]LineItemModel, len(items))
	for i, item := range items {
		models[i] = LineItemModel{
			ID:           uuid.New(),
			DocumentType: string(docType),
			DocumentID:   docID,
			Description:  item.Description,
			Quantity:     item.Quantity,
			Unit:         item.Unit,
			UnitPrice:    item.UnitPrice,
			Amount:       item.Amount,
		}
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		r.logger.Error("failed to save line items", "document_id", docID, "count", len(items), "error", err)
		return err
	}
	return nil
}

func (r *itemRepository) ListByDocument(ctx context.Context, docType constants.DocumentType, docID uuid.UUID) ([]*entity.LineItem, error) {
	var models []LineItemModel
	err := r.db.WithContext(ctx).
		Where("document_type = ? AND document_id = ?", string(docType), docID).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		r.logger.Error("failed to list line items", "document_id", docID, "error", err)
		return nil, err
	}
	items := make([]*entity.LineItem, len(models))
	for i := range models {
		items[i] = toLineItem(&models[i])
	}
	return items, nil
}
