package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averros/invopipe/internal/entity"
	"github.com/averros/invopipe/internal/mapper"
)

// PartyRepository persists deduplicated customer or vendor records. Lookup
// before create is the caller's contract; this layer offers both halves.
type PartyRepository interface {
	// FindByAttributes matches on name plus tax id and address when supplied.
	// Returns nil without error when no party matches.
	FindByAttributes(ctx context.Context, name string, taxID, address *string) (*entity.Party, error)
	// FindByID returns nil without error when the party does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Party, error)
	Create(ctx context.Context, data mapper.PartyData) (*entity.Party, error)
}

type partyRepository struct {
	db     *gorm.DB
	table  string
	logger *slog.Logger
}

func NewCustomerRepository(db *gorm.DB, logger *slog.Logger) PartyRepository {
	return newPartyRepository(db, CustomerModel{}.TableName(), logger)
}

func NewVendorRepository(db *gorm.DB, logger *slog.Logger) PartyRepository {
	return newPartyRepository(db, VendorModel{}.TableName(), logger)
}

func newPartyRepository(db *gorm.DB, table string, logger *slog.Logger) PartyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &partyRepository{db: db, table: table, logger: logger}
}

func (r *partyRepository) FindByAttributes(ctx context.Context, name string, taxID, address *string) (*entity.Party, error) {
	q := r.db.WithContext(ctx).Table(r.table).Where("name = ?", name)
	if taxID != nil {
		q = q.Where("tax_id = ?", *taxID)
	}
	if address != nil {
		q = q.Where("address = ?", *address)
	}

	var model partyColumns
	err := q.Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("party lookup failed", "table", r.table, "name", name, "error", err)
		return nil, err
	}
	return toParty(&model), nil
}

func (r *partyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Party, error) {
	var model partyColumns
	err := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("party lookup failed", "table", r.table, "party_id", id, "error", err)
		return nil, err
	}
	return toParty(&model), nil
}

func (r *partyRepository) Create(ctx context.Context, data mapper.PartyData) (*entity.Party, error) {
	if data.Name == nil {
		return nil, errors.New("party name is required")
	}
	model := partyColumns{
		ID:            uuid.New(),
		Name:          *data.Name,
		Address:       data.Address,
		RecipientName: data.RecipientName,
		TaxID:         data.TaxID,
	}
	if err := r.db.WithContext(ctx).Table(r.table).Create(&model).Error; err != nil {
		r.logger.Error("party create failed", "table", r.table, "name", model.Name, "error", err)
		return nil, err
	}
	return toParty(&model), nil
}
