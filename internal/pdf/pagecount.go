package pdf

import (
	"bytes"
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageCounter counts pages in a PDF payload. Stubbed in tests.
type PageCounter interface {
	CountPages(ctx context.Context, data []byte) (int, error)
}

// PDFCPUCounter counts pages with pdfcpu.
type PDFCPUCounter struct{}

func (PDFCPUCounter) CountPages(_ context.Context, data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), nil)
}
