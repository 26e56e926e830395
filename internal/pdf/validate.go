package pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/common"
)

const (
	pdfSignature = "%PDF-"

	// encryptScanWindow bounds the trailer-region scan for the encryption
	// dictionary token. Anything further back is not our problem; the probe
	// tolerates false negatives on obfuscated trailers.
	encryptScanWindow = 8192
)

var (
	startXrefRe = regexp.MustCompile(`startxref\s*(\d+)`)
	objHeaderRe = regexp.MustCompile(`\d{1,10} \d{1,10} obj`)
)

// Result is the outcome of running the full validation chain.
type Result struct {
	IsValid     bool `json:"isValid"`
	IsEncrypted bool `json:"isEncrypted"`
}

// Validator runs format checks on raw document bytes. All checks except the
// page count are pure functions over the byte sequence.
type Validator struct {
	maxFileSize int
	counter     PageCounter
	logger      *slog.Logger
}

func NewValidator(counter PageCounter, logger *slog.Logger) *Validator {
	if counter == nil {
		counter = PDFCPUCounter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{
		maxFileSize: constants.MaxFileSize,
		counter:     counter,
		logger:      logger,
	}
}

// CheckType validates the declared MIME type, the filename extension, and the
// PDF magic string at the start of the payload.
func (v *Validator) CheckType(data []byte, mimeType, fileName string) error {
	if mimeType != constants.PDFMimeType {
		return fmt.Errorf("%w: invalid MIME type", common.ErrUnsupportedMediaType)
	}
	if constants.NormalizeExt(filepath.Ext(fileName)) != constants.PDFExtension {
		return fmt.Errorf("%w: invalid file extension", common.ErrUnsupportedMediaType)
	}
	if len(data) < len(pdfSignature) || string(data[:len(pdfSignature)]) != pdfSignature {
		return fmt.Errorf("%w: invalid PDF file", common.ErrUnsupportedMediaType)
	}
	return nil
}

// CheckSize enforces the configured maximum payload size.
func (v *Validator) CheckSize(data []byte) error {
	if len(data) > v.maxFileSize {
		return fmt.Errorf("%w: file exceeds maximum allowed size of 20MB", common.ErrPayloadTooLarge)
	}
	return nil
}

// IsEncrypted scans the trailer region (at most the last 8 KiB) for the
// encryption dictionary token.
func IsEncrypted(data []byte) bool {
	window := len(data)
	if window > encryptScanWindow {
		window = encryptScanWindow
	}
	return bytes.Contains(data[len(data)-window:], []byte("/Encrypt"))
}

// CheckIntegrity reports whether the byte sequence carries the four structural
// markers of a well-formed PDF, a numeric startxref offset before the final
// EOF marker, and at least one object header. This is a substring heuristic,
// not a parse.
func CheckIntegrity(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	content := string(data)

	if !strings.Contains(content, "trailer") ||
		!strings.Contains(content, "%%EOF") ||
		!strings.Contains(content, "xref") ||
		!strings.Contains(content, "startxref") {
		return false
	}

	startXrefPos := strings.LastIndex(content, "startxref")
	eofPos := strings.LastIndex(content, "%%EOF")
	if startXrefPos > eofPos {
		return false
	}

	if startXrefRe.FindStringSubmatch(content[startXrefPos:eofPos]) == nil {
		return false
	}
	return objHeaderRe.MatchString(content)
}

// CheckPageCount counts pages and enforces the 1..MaxPageCount bounds.
// Counter failures are normalized to a generic message.
func (v *Validator) CheckPageCount(ctx context.Context, data []byte) error {
	pages, err := v.counter.CountPages(ctx, data)
	if err != nil {
		v.logger.Error("page count failed", "error", err)
		return fmt.Errorf("%w: failed to read PDF page count", common.ErrValidation)
	}
	if pages == 0 {
		return fmt.Errorf("%w: PDF has no pages", common.ErrValidation)
	}
	if pages > constants.MaxPageCount {
		return fmt.Errorf("%w: PDF exceeds the maximum allowed pages (%d)", common.ErrValidation, constants.MaxPageCount)
	}
	return nil
}

// ValidateAll runs the full chain in order: type, size, encryption probe,
// structural integrity, page count. An encrypted payload short-circuits the
// structural and page-count checks so the caller can branch to decryption.
func (v *Validator) ValidateAll(ctx context.Context, data []byte, mimeType, fileName string) (Result, error) {
	if err := v.CheckType(data, mimeType, fileName); err != nil {
		return Result{}, err
	}
	if err := v.CheckSize(data); err != nil {
		return Result{}, err
	}
	if IsEncrypted(data) {
		return Result{IsValid: true, IsEncrypted: true}, nil
	}
	if !CheckIntegrity(data) {
		return Result{}, fmt.Errorf("%w: PDF structure is invalid", common.ErrValidation)
	}
	if err := v.CheckPageCount(ctx, data); err != nil {
		return Result{}, err
	}
	return Result{IsValid: true, IsEncrypted: false}, nil
}
