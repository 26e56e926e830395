package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/entity"
)

// UploadResponse is the synchronous upload acknowledgement.
type UploadResponse struct {
	ID     uuid.UUID                `json:"id"`
	Status constants.DocumentStatus `json:"status"`
}

// StatusResponse reports a document's current pipeline state.
type StatusResponse struct {
	ID     uuid.UUID                `json:"id"`
	Status constants.DocumentStatus `json:"status"`
}

// DocumentResponse is the envelope for getDocument. Non-terminal and failed
// states carry a message and no documents; an analyzed document carries
// exactly one fully assembled entry.
type DocumentResponse struct {
	Message string       `json:"message,omitempty"`
	Data    DocumentData `json:"data"`
}

type DocumentData struct {
	Documents   []FormattedDocument `json:"documents"`
	DocumentURL *string             `json:"documentUrl"`
}

type FormattedDocument struct {
	Header DocumentHeader  `json:"header"`
	Items  []FormattedItem `json:"items"`
}

type DocumentHeader struct {
	DocumentDetails  DocumentDetails  `json:"document_details"`
	VendorDetails    PartyDetails     `json:"vendor_details"`
	CustomerDetails  PartyDetails     `json:"customer_details"`
	FinancialDetails FinancialDetails `json:"financial_details"`
}

type DocumentDetails struct {
	DocumentNumber  *string    `json:"document_number"`
	PurchaseOrderID *string    `json:"purchase_order_id,omitempty"`
	DocumentDate    *time.Time `json:"document_date,omitempty"`
	DueDate         *time.Time `json:"due_date"`
	PaymentTerms    *string    `json:"payment_terms"`
}

type PartyDetails struct {
	ID            *uuid.UUID `json:"id,omitempty"`
	Name          *string    `json:"name"`
	RecipientName *string    `json:"recipient_name"`
	Address       string     `json:"address"`
	TaxID         *string    `json:"tax_id"`
}

type FinancialDetails struct {
	Currency       Currency `json:"currency"`
	TotalAmount    *float64 `json:"total_amount"`
	SubtotalAmount *float64 `json:"subtotal_amount"`
	DiscountAmount *float64 `json:"discount_amount"`
	TotalTaxAmount *float64 `json:"total_tax_amount"`
}

type Currency struct {
	CurrencySymbol *string `json:"currency_symbol"`
	CurrencyCode   *string `json:"currency_code"`
}

type FormattedItem struct {
	Description *string `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        *string `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// statusMessages keeps the user-facing text per document kind and non-final
// state. Internal diagnostics never leak through these.
func statusMessage(docType constants.DocumentType, status constants.DocumentStatus) string {
	noun := "Invoice"
	if docType == constants.TypePurchaseOrder {
		noun = "Purchase Order"
	}
	switch status {
	case constants.StatusFailed:
		return noun + " processing failed. Please re-upload the document."
	default:
		return noun + " is still being processed. Please try again later."
	}
}

// formatStubResponse builds the reduced payload for documents that are not
// yet (or never will be) analyzed. Partial domain data is deliberately
// withheld here.
func formatStubResponse(doc *entity.Document) *DocumentResponse {
	var fileURL *string
	if doc.FileURL != "" {
		fileURL = &doc.FileURL
	}
	return &DocumentResponse{
		Message: statusMessage(doc.Type, doc.Status),
		Data: DocumentData{
			Documents:   []FormattedDocument{},
			DocumentURL: fileURL,
		},
	}
}

// formatFullResponse assembles the complete analyzed view.
func formatFullResponse(doc *entity.Document, items []*entity.LineItem, customer, vendor *entity.Party) *DocumentResponse {
	formatted := FormattedDocument{
		Header: DocumentHeader{
			DocumentDetails: DocumentDetails{
				DocumentNumber:  doc.DocumentNumber,
				PurchaseOrderID: doc.PurchaseOrderID,
				DocumentDate:    doc.DocumentDate,
				DueDate:         doc.DueDate,
				PaymentTerms:    doc.PaymentTerms,
			},
			VendorDetails:   formatParty(vendor, false),
			CustomerDetails: formatParty(customer, true),
			FinancialDetails: FinancialDetails{
				Currency: Currency{
					CurrencySymbol: doc.CurrencySymbol,
					CurrencyCode:   doc.CurrencyCode,
				},
				TotalAmount:    doc.TotalAmount,
				SubtotalAmount: doc.SubtotalAmount,
				DiscountAmount: doc.DiscountAmount,
				TotalTaxAmount: doc.TaxAmount,
			},
		},
		Items: formatItems(items),
	}

	var fileURL *string
	if doc.FileURL != "" {
		fileURL = &doc.FileURL
	}
	return &DocumentResponse{
		Data: DocumentData{
			Documents:   []FormattedDocument{formatted},
			DocumentURL: fileURL,
		},
	}
}

func formatParty(party *entity.Party, includeID bool) PartyDetails {
	if party == nil {
		return PartyDetails{Address: ""}
	}
	details := PartyDetails{
		Name:          &party.Name,
		RecipientName: party.RecipientName,
		TaxID:         party.TaxID,
	}
	if party.Address != nil {
		details.Address = *party.Address
	}
	if includeID {
		id := party.ID
		details.ID = &id
	}
	return details
}

func formatItems(items []*entity.LineItem) []FormattedItem {
	out := make([]FormattedItem, 0, len(items))
	for _, item := range items {
		out = append(out, FormattedItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	return out
}
