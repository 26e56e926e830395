package ocr

import (
	"context"
	"encoding/json"
	"errors"
)

// Analyzer is the document-understanding capability. Implementations return
// the provider's raw field bag; normalization happens in the mapper.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*AnalysisResult, error)
}

var (
	// ErrServiceUnavailable marks a transient provider outage. The pipeline
	// treats it as fatal for the single attempt; there is no retry here.
	ErrServiceUnavailable = errors.New("analysis service is temporarily unavailable")

	// ErrConflict marks a provider-side conflict for the submitted document.
	ErrConflict = errors.New("analysis conflict, check the document and try again")
)

// AnalysisResult is the provider's loosely-typed result structure.
type AnalysisResult struct {
	Documents []AnalyzedDocument `json:"documents"`
}

// AnalyzedDocument is one recognized document with its extracted fields.
type AnalyzedDocument struct {
	DocType string           `json:"docType,omitempty"`
	Fields  map[string]Field `json:"fields"`
}

// Field is a single extracted value. Value is left raw because the provider
// overloads it: a currency object for monetary fields, an array of object
// entries for list fields.
type Field struct {
	Content    string           `json:"content,omitempty"`
	ValueType  string           `json:"valueType,omitempty"`
	Value      json.RawMessage  `json:"value,omitempty"`
	Fields     map[string]Field `json:"fields,omitempty"`
	Confidence float64          `json:"confidence,omitempty"`
}

// Money is the structured value carried by monetary fields.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Symbol   string  `json:"currencySymbol,omitempty"`
}

// Money decodes the field's structured currency value, nil when absent or
// not a currency field.
func (f *Field) Money() *Money {
	if f == nil || len(f.Value) == 0 {
		return nil
	}
	var m Money
	if err := json.Unmarshal(f.Value, &m); err != nil {
		return nil
	}
	return &m
}

// List decodes the field's array value into its object entries. Absent or
// malformed lists decode to an empty slice, never nil.
func (f *Field) List() []Field {
	if f == nil || len(f.Value) == 0 {
		return []Field{}
	}
	var entries []Field
	if err := json.Unmarshal(f.Value, &entries); err != nil {
		return []Field{}
	}
	return entries
}
