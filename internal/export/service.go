package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/repository"
)

// Service is a tiny façade over the document repository that produces XLSX
// bytes for partner exports. Only Analyzed documents are included; anything
// still in flight or failed has no trustworthy fields to export.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportXLSX returns an XLSX workbook (as bytes) holding the analyzed
// documents of one kind for the given partner.
func (s *Service) ExportXLSX(ctx context.Context, docType constants.DocumentType, partnerID string) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.ListAnalyzedByPartner(ctx, docType, partnerID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	f := excelize.NewFile()
	sheet := string(docType) + "s"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Document Number",
		"Document Date",
		"Due Date",
		"Total",
		"Subtotal",
		"Discount",
		"Tax",
		"Currency",
		"Payment Terms",
		"File URL",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range docs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, strOrEmpty(d.DocumentNumber))
		write(2, dateOrEmpty(d.DocumentDate))
		write(3, dateOrEmpty(d.DueDate))
		write(4, numOrEmpty(d.TotalAmount))
		write(5, numOrEmpty(d.SubtotalAmount))
		write(6, numOrEmpty(d.DiscountAmount))
		write(7, numOrEmpty(d.TaxAmount))
		write(8, strOrEmpty(d.CurrencyCode))
		write(9, strOrEmpty(d.PaymentTerms))
		write(10, d.FileURL)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	_ = f.SetColWidth(sheet, "D", "G", 12)
	_ = f.SetColWidth(sheet, "H", "H", 10)
	_ = f.SetColWidth(sheet, "I", "I", 18)
	_ = f.SetColWidth(sheet, "J", "J", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"partner_id", partnerID,
		"document_type", docType,
		"rows", len(docs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateOrEmpty(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func numOrEmpty(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
