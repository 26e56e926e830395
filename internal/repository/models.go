package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/entity"
)

// DocumentModel is the persisted shape of a financial document.
type DocumentModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentType     string    `gorm:"size:32;index:idx_documents_type_partner"`
	Status           string    `gorm:"size:16"`
	PartnerID        string    `gorm:"size:64;index:idx_documents_type_partner"`
	FileURL          string
	AnalysisURL      *string
	OriginalFilename string
	FileSize         int64

	DocumentNumber  *string
	DocumentDate    *time.Time
	DueDate         *time.Time
	PurchaseOrderID *string
	TotalAmount     *float64
	SubtotalAmount  *float64
	DiscountAmount  *float64
	TaxAmount       *float64
	CurrencyCode    *string `gorm:"size:8"`
	CurrencySymbol  *string `gorm:"size:8"`
	PaymentTerms    *string

	CustomerID *uuid.UUID `gorm:"type:uuid"`
	VendorID   *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (DocumentModel) TableName() string { return "documents" }

// partyColumns is shared by customers and vendors.
type partyColumns struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"index"`
	Address       *string
	RecipientName *string
	TaxID         *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CustomerModel struct {
	partyColumns
}

func (CustomerModel) TableName() string { return "customers" }

type VendorModel struct {
	partyColumns
}

func (VendorModel) TableName() string { return "vendors" }

// LineItemModel is one persisted document row, keyed by parent.
type LineItemModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentType string    `gorm:"size:32;index:idx_line_items_document"`
	DocumentID   uuid.UUID `gorm:"type:uuid;index:idx_line_items_document"`
	Description  *string
	Quantity     float64
	Unit         *string
	UnitPrice    float64
	Amount       float64
	CreatedAt    time.Time
}

func (LineItemModel) TableName() string { return "line_items" }

func toDocument(m *DocumentModel) *entity.Document {
	return &entity.Document{
		ID:               m.ID,
		Type:             constants.DocumentType(m.DocumentType),
		Status:           constants.DocumentStatus(m.Status),
		PartnerID:        m.PartnerID,
		FileURL:          m.FileURL,
		AnalysisURL:      m.AnalysisURL,
		OriginalFilename: m.OriginalFilename,
		FileSize:         m.FileSize,
		DocumentNumber:   m.DocumentNumber,
		DocumentDate:     m.DocumentDate,
		DueDate:          m.DueDate,
		PurchaseOrderID:  m.PurchaseOrderID,
		TotalAmount:      m.TotalAmount,
		SubtotalAmount:   m.SubtotalAmount,
		DiscountAmount:   m.DiscountAmount,
		TaxAmount:        m.TaxAmount,
		CurrencyCode:     m.CurrencyCode,
		CurrencySymbol:   m.CurrencySymbol,
		PaymentTerms:     m.PaymentTerms,
		CustomerID:       m.CustomerID,
		VendorID:         m.VendorID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toParty(c *partyColumns) *entity.Party {
	return &entity.Party{
		ID:            c.ID,
		Name:          c.Name,
		Address:       c.Address,
		RecipientName: c.RecipientName,
		TaxID:         c.TaxID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toLineItem(m *LineItemModel) *entity.LineItem {
	return &entity.LineItem{
		ID:           m.ID,
		DocumentType: constants.DocumentType(m.DocumentType),
		DocumentID:   m.DocumentID,
		Description:  m.Description,
		Quantity:     m.Quantity,
		Unit:         m.Unit,
		UnitPrice:    m.UnitPrice,
		Amount:       m.Amount,
	}
}
