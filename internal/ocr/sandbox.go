package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// SandboxAnalyzer substitutes a fixture result for the provider call, for
// test and sandbox uploads.
type SandboxAnalyzer struct {
	now func() time.Time
}

func NewSandboxAnalyzer() *SandboxAnalyzer {
	return &SandboxAnalyzer{now: time.Now}
}

func (s *SandboxAnalyzer) Analyze(_ context.Context, data []byte) (*AnalysisResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document payload is required")
	}

	today := s.now().UTC()
	due := today.AddDate(0, 0, 30)
	total := float64(rand.Intn(9000)+100) / 100 * 10
	subtotal := roundCents(total * 0.85)
	tax := roundCents(total - subtotal)

	fields := map[string]Field{
		"InvoiceId":   {Content: fmt.Sprintf("INV-%05d", rand.Intn(90000)+10000)},
		"InvoiceDate": {Content: today.Format("2006-01-02")},
		"DueDate":     {Content: due.Format("2006-01-02")},
		"PaymentTerm": {Content: "Net 30"},

		"VendorName":               {Content: "Sandbox Supplies Ltd"},
		"VendorAddress":            {Content: "123 Fixture Street, Mocktown, MT 12345"},
		"CustomerName":             {Content: "Sample Customer Inc"},
		"CustomerAddress":          {Content: "456 Example Ave, Sampletown, SP 67890"},
		"CustomerAddressRecipient": {Content: "John Doe"},

		"InvoiceTotal": moneyField(total),
		"SubTotal":     moneyField(subtotal),
		"TotalTax":     moneyField(tax),

		"Items": itemsField([]map[string]Field{
			{
				"Description": {Content: "Sandbox Product A"},
				"Quantity":    {Content: "2"},
				"Unit":        {Content: "pcs"},
				"UnitPrice":   moneyField(roundCents(subtotal * 0.4)),
				"Amount":      moneyField(roundCents(subtotal * 0.8)),
			},
			{
				"Description": {Content: "Sandbox Service B"},
				"Quantity":    {Content: "1"},
				"UnitPrice":   moneyField(roundCents(subtotal * 0.2)),
				"Amount":      moneyField(roundCents(subtotal * 0.2)),
			},
		}),
	}

	return &AnalysisResult{
		Documents: []AnalyzedDocument{{
			DocType: "prebuilt:invoice",
			Fields:  fields,
		}},
	}, nil
}

func moneyField(amount float64) Field {
	raw, _ := json.Marshal(Money{Amount: amount, Currency: "USD", Symbol: "$"})
	return Field{
		Content:   fmt.Sprintf("%.2f", amount),
		ValueType: "currency",
		Value:     raw,
	}
}

func itemsField(entries []map[string]Field) Field {
	items := make([]Field, len(entries))
	for i, fields := range entries {
		items[i] = Field{ValueType: "object", Fields: fields}
	}
	raw, _ := json.Marshal(items)
	return Field{ValueType: "array", Value: raw}
}

func roundCents(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
