package entity

import (
	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
)

// LineItem is one row of a document, owned exclusively by its parent.
type LineItem struct {
	ID           uuid.UUID              `json:"id"`
	DocumentType constants.DocumentType `json:"document_type"`
	DocumentID   uuid.UUID              `json:"document_id"`
	Description  *string                `json:"description,omitempty"`
	Quantity     float64                `json:"quantity"`
	Unit         *string                `json:"unit,omitempty"`
	UnitPrice    float64                `json:"unit_price"`
	Amount       float64                `json:"amount"`
}
