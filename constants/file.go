package constants

import "strings"

const (
	// PDFMimeType is the only media type accepted for uploads.
	PDFMimeType = "application/pdf"

	// PDFExtension is the only filename extension accepted for uploads.
	PDFExtension = ".pdf"

	// MaxFileSize caps uploads at 20 MiB.
	MaxFileSize = 20 * 1024 * 1024

	// MaxPageCount caps documents sent to the OCR provider.
	MaxPageCount = 100
)

// NormalizeExt lowercases a file extension, keeping the leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(ext)
}
