package constants

// DocumentStatus is the canonical lifecycle status for a financial document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	StatusProcessing DocumentStatus = "Processing" // set at upload
	StatusAnalyzed   DocumentStatus = "Analyzed"   // terminal success
	StatusFailed     DocumentStatus = "Failed"     // terminal failure
)

// IsTerminal reports whether no further transition is defined for s.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusAnalyzed || s == StatusFailed
}

// DocumentType discriminates invoices from purchase orders in shared tables.
type DocumentType string

const (
	TypeInvoice       DocumentType = "Invoice"
	TypePurchaseOrder DocumentType = "PurchaseOrder"
)
