package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/async"
	"github.com/averros/invopipe/internal/common"
	"github.com/averros/invopipe/internal/decrypt"
	"github.com/averros/invopipe/internal/entity"
	"github.com/averros/invopipe/internal/pdf"
	"github.com/averros/invopipe/internal/repository"
	"github.com/averros/invopipe/internal/storage"
)

// ErrPasswordRequired signals an encrypted upload submitted without a
// password. The caller can resubmit with one.
var ErrPasswordRequired = fmt.Errorf("%w: PDF is encrypted, a password is required", common.ErrValidation)

// UploadRequest is one synchronous upload attempt.
type UploadRequest struct {
	PartnerID    string
	Filename     string
	MimeType     string
	Data         []byte
	Password     string
	SkipAnalysis bool
}

// DocumentService owns one document kind end to end: the synchronous upload
// contract and the read and delete operations over the resulting records.
type DocumentService struct {
	docType   constants.DocumentType
	validator *pdf.Validator
	decryptor decrypt.Strategy
	store     storage.ObjectStore
	queue     async.Queue

	docs      repository.DocumentRepository
	customers repository.PartyRepository
	vendors   repository.PartyRepository
	items     repository.ItemRepository

	logger *slog.Logger
}

type DocumentServiceParams struct {
	DocType   constants.DocumentType
	Validator *pdf.Validator
	Decryptor decrypt.Strategy
	Store     storage.ObjectStore
	Queue     async.Queue
	Documents repository.DocumentRepository
	Customers repository.PartyRepository
	Vendors   repository.PartyRepository
	Items     repository.ItemRepository
	Logger    *slog.Logger
}

func NewDocumentService(p DocumentServiceParams) *DocumentService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{
		docType:   p.DocType,
		validator: p.Validator,
		decryptor: p.Decryptor,
		store:     p.Store,
		queue:     p.Queue,
		docs:      p.Documents,
		customers: p.Customers,
		vendors:   p.Vendors,
		items:     p.Items,
		logger:    logger,
	}
}

// Upload validates the payload, decrypts it when needed, archives the raw
// file, creates the Processing record, and schedules background analysis.
// It returns as soon as the record exists; analysis happens off the request
// path.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	if req.PartnerID == "" {
		return nil, fmt.Errorf("%w: partner ID is required", common.ErrValidation)
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: file is required", common.ErrValidation)
	}

	data := req.Data
	result, err := s.validator.ValidateAll(ctx, data, req.MimeType, req.Filename)
	if err != nil {
		return nil, err
	}

	if result.IsEncrypted {
		if req.Password == "" {
			return nil, ErrPasswordRequired
		}
		decrypted, err := s.decryptor.Decrypt(ctx, data, req.Password)
		if err != nil {
			if errors.Is(err, decrypt.ErrWrongPassword) || errors.Is(err, decrypt.ErrCorruptedFile) {
				return nil, fmt.Errorf("%w: %s", common.ErrValidation, err.Error())
			}
			return nil, err
		}
		data = decrypted

		// The decrypted bytes go through the same checks the plaintext path
		// gets; the encryption probe must now come back clean.
		result, err = s.validator.ValidateAll(ctx, data, req.MimeType, req.Filename)
		if err != nil {
			return nil, err
		}
		if result.IsEncrypted {
			return nil, fmt.Errorf("%w: PDF is still encrypted after decryption", common.ErrValidation)
		}
	}

	fileURL, err := s.store.Upload(ctx, data, constants.PDFMimeType)
	if err != nil {
		s.logger.Error("file upload failed", "partner_id", req.PartnerID, "filename", req.Filename, "error", err)
		return nil, common.WrapError(err, "failed to store uploaded file")
	}

	doc := &entity.Document{
		ID:               uuid.New(),
		Type:             s.docType,
		Status:           constants.StatusProcessing,
		PartnerID:        req.PartnerID,
		FileURL:          fileURL,
		OriginalFilename: req.Filename,
		FileSize:         int64(len(data)),
	}
	if err := s.docs.CreateInitial(ctx, doc); err != nil {
		return nil, common.WrapError(err, "failed to create document record")
	}

	job := async.Job{
		DocumentID:  doc.ID,
		PartnerID:   req.PartnerID,
		Filename:    req.Filename,
		Payload:     data,
		Sandbox:     req.SkipAnalysis,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// The record exists but will never progress; settle it as Failed so
		// the caller sees a consistent terminal state.
		if uerr := s.docs.UpdateStatus(ctx, doc.ID, constants.StatusFailed); uerr != nil {
			s.logger.Error("failed to mark unscheduled document as failed",
				"document_id", doc.ID, "error", uerr)
		}
		return nil, common.WrapError(err, "failed to schedule analysis")
	}

	s.logger.Info("document accepted",
		"document_id", doc.ID,
		"document_type", s.docType,
		"partner_id", req.PartnerID,
		"file_size", doc.FileSize)

	return &UploadResponse{ID: doc.ID, Status: constants.StatusProcessing}, nil
}

// GetStatus reports the current pipeline state of a document.
func (s *DocumentService) GetStatus(ctx context.Context, id uuid.UUID) (*StatusResponse, error) {
	doc, err := s.docs.FindByID(ctx, s.docType, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, common.NotFoundErrorf("%s %s not found", s.docType, id)
	}
	return &StatusResponse{ID: doc.ID, Status: doc.Status}, nil
}

// GetDocument returns the stub view while the document is Processing or
// Failed and the fully assembled view once it is Analyzed. Partial data is
// never exposed as final.
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docs.FindByID(ctx, s.docType, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, common.NotFoundErrorf("%s %s not found", s.docType, id)
	}

	if doc.Status != constants.StatusAnalyzed {
		return formatStubResponse(doc), nil
	}

	items, err := s.items.ListByDocument(ctx, s.docType, doc.ID)
	if err != nil {
		return nil, err
	}

	var customer, vendor *entity.Party
	if doc.CustomerID != nil {
		if customer, err = s.customers.FindByID(ctx, *doc.CustomerID); err != nil {
			return nil, err
		}
	}
	if doc.VendorID != nil {
		if vendor, err = s.vendors.FindByID(ctx, *doc.VendorID); err != nil {
			return nil, err
		}
	}

	return formatFullResponse(doc, items, customer, vendor), nil
}

// Delete soft-deletes the record and then removes the stored blobs. Blob
// cleanup failures are logged, not surfaced; the record removal is the
// authoritative outcome.
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.docs.FindByID(ctx, s.docType, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return common.NotFoundErrorf("%s %s not found", s.docType, id)
	}

	deleted, err := s.docs.SoftDelete(ctx, s.docType, id)
	if err != nil {
		return common.WrapError(err, "failed to delete document")
	}
	if !deleted {
		return common.NotFoundErrorf("%s %s not found", s.docType, id)
	}

	if doc.FileURL != "" {
		if err := s.store.Delete(ctx, doc.FileURL); err != nil {
			s.logger.Warn("failed to delete stored file", "document_id", id, "location", doc.FileURL, "error", err)
		}
	}
	if doc.AnalysisURL != nil && *doc.AnalysisURL != "" {
		if err := s.store.Delete(ctx, *doc.AnalysisURL); err != nil {
			s.logger.Warn("failed to delete analysis blob", "document_id", id, "location", *doc.AnalysisURL, "error", err)
		}
	}

	s.logger.Info("document deleted", "document_id", id, "document_type", s.docType)
	return nil
}

// GetPartnerID resolves the owning partner for authorization checks.
func (s *DocumentService) GetPartnerID(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.docs.FindByID(ctx, s.docType, id)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", common.NotFoundErrorf("%s %s not found", s.docType, id)
	}
	return doc.PartnerID, nil
}
