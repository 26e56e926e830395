package mapper

import (
	"errors"
	"time"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/ocr"
)

var (
	// ErrInvalidFormat marks a provider result without a primary document entry.
	ErrInvalidFormat = errors.New("invalid OCR result format")

	// ErrMissingPartner marks a map call without a partner identifier.
	ErrMissingPartner = errors.New("partner ID is required")
)

// DocumentData is the normalized set of domain fields for a document.
type DocumentData struct {
	DocumentNumber  *string
	DocumentDate    *time.Time
	DueDate         *time.Time
	PurchaseOrderID *string
	TotalAmount     *float64
	SubtotalAmount  *float64
	DiscountAmount  *float64
	TaxAmount       *float64
	CurrencyCode    *string
	CurrencySymbol  *string
	PaymentTerms    *string
	PartnerID       string
}

// PartyData is the extracted customer or vendor shape, pre-deduplication.
type PartyData struct {
	Name          *string
	Address       *string
	RecipientName *string
	TaxID         *string
}

// ItemData is one extracted line item.
type ItemData struct {
	Description *string
	Quantity    float64
	Unit        *string
	UnitPrice   float64
	Amount      float64
}

// Mapped bundles everything the pipeline persists after analysis.
type Mapped struct {
	Document DocumentData
	Customer PartyData
	Vendor   PartyData
	Items    []ItemData
}

// Mapper converts a provider field bag into normalized records for one
// document kind.
type Mapper struct {
	kind constants.DocumentType
}

func NewInvoiceMapper() *Mapper {
	return &Mapper{kind: constants.TypeInvoice}
}

func NewPurchaseOrderMapper() *Mapper {
	return &Mapper{kind: constants.TypePurchaseOrder}
}

// Map normalizes the provider result. It fails when the result has no
// primary document entry or when partnerID is empty.
func (m *Mapper) Map(result *ocr.AnalysisResult, partnerID string) (*Mapped, error) {
	if result == nil || len(result.Documents) == 0 {
		return nil, ErrInvalidFormat
	}
	if partnerID == "" {
		return nil, ErrMissingPartner
	}

	fields := result.Documents[0].Fields
	if fields == nil {
		fields = map[string]ocr.Field{}
	}

	doc := DocumentData{PartnerID: partnerID}

	switch m.kind {
	case constants.TypePurchaseOrder:
		doc.DocumentNumber = fieldContent(fields, "PurchaseOrder", "PONumber")
		doc.DocumentDate = parseDate(fields, "InvoiceDate", "PODate")
	default:
		doc.DocumentNumber = fieldContent(fields, "InvoiceId")
		doc.DocumentDate = parseDate(fields, "InvoiceDate")
		doc.PurchaseOrderID = fieldContent(fields, "PurchaseOrder")
	}

	doc.PaymentTerms = fieldContent(fields, "PaymentTerm")

	doc.DueDate = parseDate(fields, "DueDate")
	if doc.DueDate == nil && m.kind == constants.TypeInvoice {
		doc.DueDate = computeDueDate(doc.DocumentDate, doc.PaymentTerms)
	}

	total := parseCurrency(fields, "InvoiceTotal", "Total")
	subtotal := parseCurrency(fields, "SubTotal")
	discount := parseCurrency(fields, "TotalDiscount", "Discount")
	tax := parseCurrency(fields, "TotalTax", "Tax")

	doc.TotalAmount = total.value
	doc.SubtotalAmount = subtotal.value
	if doc.SubtotalAmount == nil {
		doc.SubtotalAmount = total.value
	}
	doc.DiscountAmount = discount.value
	doc.TaxAmount = tax.value

	// Resolved currency: first non-nil among total, subtotal, discount, tax.
	for _, a := range []amount{total, subtotal, discount, tax} {
		if a.code != nil || a.symbol != nil {
			doc.CurrencyCode = a.code
			doc.CurrencySymbol = a.symbol
			break
		}
	}

	return &Mapped{
		Document: doc,
		Customer: extractParty(fields, "Customer"),
		Vendor:   extractParty(fields, "Vendor"),
		Items:    extractItems(fields),
	}, nil
}

// extractParty reads the name/address/recipient/tax-id fields for the given
// provider prefix ("Customer" or "Vendor").
func extractParty(fields map[string]ocr.Field, prefix string) PartyData {
	return PartyData{
		Name:          fieldContent(fields, prefix+"Name"),
		Address:       fieldContent(fields, prefix+"Address"),
		RecipientName: fieldContent(fields, prefix+"AddressRecipient", prefix+"ContactName"),
		TaxID:         fieldContent(fields, prefix+"TaxId"),
	}
}

// extractItems decodes the variable-length Items field. Absent list means an
// empty slice, never nil.
func extractItems(fields map[string]ocr.Field) []ItemData {
	itemsField, ok := fields["Items"]
	if !ok {
		return []ItemData{}
	}

	entries := itemsField.List()
	items := make([]ItemData, 0, len(entries))
	for _, entry := range entries {
		sub := entry.Fields
		if sub == nil {
			continue
		}
		item := ItemData{
			Description: fieldContent(sub, "Description"),
			Unit:        fieldContent(sub, "Unit"),
		}
		if qty := parseCurrency(sub, "Quantity"); qty.value != nil {
			item.Quantity = *qty.value
		}
		if price := parseCurrency(sub, "UnitPrice"); price.value != nil {
			item.UnitPrice = *price.value
		}
		if amt := parseCurrency(sub, "Amount"); amt.value != nil {
			item.Amount = *amt.value
		}
		items = append(items, item)
	}
	return items
}
