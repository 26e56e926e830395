package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
)

// Document represents one invoice or purchase order for data transfer between layers.
// Domain fields (number, dates, amounts) stay nil until analysis completes.
type Document struct {
	ID               uuid.UUID                `json:"id"`
	Type             constants.DocumentType   `json:"document_type"`
	Status           constants.DocumentStatus `json:"status"`
	PartnerID        string                   `json:"partner_id"`
	FileURL          string                   `json:"file_url"`
	AnalysisURL      *string                  `json:"analysis_json_url,omitempty"`
	OriginalFilename string                   `json:"original_filename"`
	FileSize         int64                    `json:"file_size"`

	DocumentNumber  *string    `json:"document_number,omitempty"`
	DocumentDate    *time.Time `json:"document_date,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	PurchaseOrderID *string    `json:"purchase_order_id,omitempty"`
	TotalAmount     *float64   `json:"total_amount,omitempty"`
	SubtotalAmount  *float64   `json:"subtotal_amount,omitempty"`
	DiscountAmount  *float64   `json:"discount_amount,omitempty"`
	TaxAmount       *float64   `json:"tax_amount,omitempty"`
	CurrencyCode    *string    `json:"currency_code,omitempty"`
	CurrencySymbol  *string    `json:"currency_symbol,omitempty"`
	PaymentTerms    *string    `json:"payment_terms,omitempty"`

	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	VendorID   *uuid.UUID `json:"vendor_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
