package entity

import (
	"time"

	"github.com/google/uuid"
)

// Party represents a deduplicated customer or vendor record.
type Party struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Address       *string   `json:"address,omitempty"`
	RecipientName *string   `json:"recipient_name,omitempty"`
	TaxID         *string   `json:"tax_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
