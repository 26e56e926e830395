package mapper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/averros/invopipe/internal/ocr"
)

var (
	termDaysRe   = regexp.MustCompile(`(\d+)`)
	numericRe    = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	dateLayouts  = []string{"2006-01-02", "01/02/2006", "02/01/2006", "January 2, 2006", "Jan 2, 2006", time.RFC3339}
	currencyText = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "")
)

// amount is a monetary field resolved to its numeric value and currency.
type amount struct {
	value  *float64
	code   *string
	symbol *string
}

// fieldContent returns the content of the first present field among names,
// nil when none is set.
func fieldContent(fields map[string]ocr.Field, names ...string) *string {
	for _, name := range names {
		if f, ok := fields[name]; ok && f.Content != "" {
			content := f.Content
			return &content
		}
	}
	return nil
}

// parseDate parses the first present field's content as a date. Unknown
// formats and absent fields yield nil.
func parseDate(fields map[string]ocr.Field, names ...string) *time.Time {
	content := fieldContent(fields, names...)
	if content == nil {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *content); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// parseCurrency resolves the first present monetary field among names,
// preferring the structured value over the content string.
func parseCurrency(fields map[string]ocr.Field, names ...string) amount {
	for _, name := range names {
		f, ok := fields[name]
		if !ok {
			continue
		}
		if m := f.Money(); m != nil {
			a := amount{value: &m.Amount}
			if m.Currency != "" {
				a.code = &m.Currency
			}
			if m.Symbol != "" {
				a.symbol = &m.Symbol
			}
			return a
		}
		if f.Content != "" {
			if v := parseNumber(f.Content); v != nil {
				return amount{value: v}
			}
		}
	}
	return amount{}
}

// parseNumber extracts the first numeric token from a content string such as
// "$1,234.50".
func parseNumber(content string) *float64 {
	cleaned := currencyText.Replace(content)
	match := numericRe.FindString(cleaned)
	if match == "" {
		return nil
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &v
}

// paymentTermDays extracts the day count from a payment-terms phrase such as
// "Net 30". Zero when no number is present.
func paymentTermDays(terms string) int {
	match := termDaysRe.FindString(terms)
	if match == "" {
		return 0
	}
	days, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return days
}

// computeDueDate derives a due date from the document date plus the
// payment-term day count. Nil when either input is missing.
func computeDueDate(documentDate *time.Time, paymentTerms *string) *time.Time {
	if documentDate == nil || paymentTerms == nil {
		return nil
	}
	days := paymentTermDays(*paymentTerms)
	if days == 0 {
		return nil
	}
	due := documentDate.AddDate(0, 0, days)
	return &due
}
