package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/async"
	"github.com/averros/invopipe/internal/mapper"
	"github.com/averros/invopipe/internal/ocr"
	"github.com/averros/invopipe/internal/repository"
	"github.com/averros/invopipe/internal/storage"
)

// AnalysisProcessor runs the background half of the pipeline: analyze the
// payload, archive the raw result, map the fields, attach parties and line
// items, and settle the document in a terminal state. Every failure path ends
// with the document marked Failed; callers never see these errors directly.
type AnalysisProcessor struct {
	docType  constants.DocumentType
	analyzer ocr.Analyzer
	sandbox  ocr.Analyzer
	mapper   *mapper.Mapper
	store    storage.ObjectStore

	docs      repository.DocumentRepository
	customers repository.PartyRepository
	vendors   repository.PartyRepository
	items     repository.ItemRepository

	logger *slog.Logger
}

type AnalysisProcessorParams struct {
	DocType   constants.DocumentType
	Analyzer  ocr.Analyzer
	Sandbox   ocr.Analyzer
	Mapper    *mapper.Mapper
	Store     storage.ObjectStore
	Documents repository.DocumentRepository
	Customers repository.PartyRepository
	Vendors   repository.PartyRepository
	Items     repository.ItemRepository
	Logger    *slog.Logger
}

func NewAnalysisProcessor(p AnalysisProcessorParams) *AnalysisProcessor {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sandbox := p.Sandbox
	if sandbox == nil {
		sandbox = ocr.NewSandboxAnalyzer()
	}
	return &AnalysisProcessor{
		docType:   p.DocType,
		analyzer:  p.Analyzer,
		sandbox:   sandbox,
		mapper:    p.Mapper,
		store:     p.Store,
		docs:      p.Documents,
		customers: p.Customers,
		vendors:   p.Vendors,
		items:     p.Items,
		logger:    logger,
	}
}

func (p *AnalysisProcessor) Process(ctx context.Context, job async.Job) error {
	if err := p.run(ctx, job); err != nil {
		p.logger.Error("analysis pipeline failed",
			"document_id", job.DocumentID,
			"partner_id", job.PartnerID,
			"error", err)

		// Best effort: the status write itself can fail, but the worker has
		// nothing left to do with the job either way.
		if uerr := p.docs.UpdateStatus(ctx, job.DocumentID, constants.StatusFailed); uerr != nil {
			p.logger.Error("failed to mark document as failed",
				"document_id", job.DocumentID, "error", uerr)
		}
		return err
	}
	return nil
}

func (p *AnalysisProcessor) run(ctx context.Context, job async.Job) error {
	analyzer := p.analyzer
	if job.Sandbox || analyzer == nil {
		analyzer = p.sandbox
	}

	result, err := analyzer.Analyze(ctx, job.Payload)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode analysis result: %w", err)
	}
	if err := mapper.ValidateRaw(raw); err != nil {
		return fmt.Errorf("analysis result shape: %w", err)
	}

	analysisURL, err := p.store.UploadJSON(ctx, result, job.DocumentID.String())
	if err != nil {
		return fmt.Errorf("archive analysis result: %w", err)
	}

	mapped, err := p.mapper.Map(result, job.PartnerID)
	if err != nil {
		return fmt.Errorf("map fields: %w", err)
	}

	if err := p.docs.UpdateFields(ctx, job.DocumentID, mapped.Document, analysisURL); err != nil {
		return fmt.Errorf("persist fields: %w", err)
	}

	if mapped.Customer.Name != nil {
		id, err := p.resolveParty(ctx, p.customers, mapped.Customer)
		if err != nil {
			return fmt.Errorf("resolve customer: %w", err)
		}
		if err := p.docs.SetCustomerID(ctx, job.DocumentID, id); err != nil {
			return fmt.Errorf("attach customer: %w", err)
		}
	}
	if mapped.Vendor.Name != nil {
		id, err := p.resolveParty(ctx, p.vendors, mapped.Vendor)
		if err != nil {
			return fmt.Errorf("resolve vendor: %w", err)
		}
		if err := p.docs.SetVendorID(ctx, job.DocumentID, id); err != nil {
			return fmt.Errorf("attach vendor: %w", err)
		}
	}

	if err := p.items.CreateForDocument(ctx, p.docType, job.DocumentID, mapped.Items); err != nil {
		return fmt.Errorf("persist line items: %w", err)
	}

	if err := p.docs.UpdateStatus(ctx, job.DocumentID, constants.StatusAnalyzed); err != nil {
		return fmt.Errorf("mark analyzed: %w", err)
	}

	p.logger.Info("document analyzed",
		"document_id", job.DocumentID,
		"partner_id", job.PartnerID,
		"line_items", len(mapped.Items))
	return nil
}

// resolveParty looks up an existing party by attributes and creates one when
// nothing matches. Concurrent uploads of the same party can race this lookup
// and create duplicates; dedup is best effort.
func (p *AnalysisProcessor) resolveParty(ctx context.Context, repo repository.PartyRepository, data mapper.PartyData) (uuid.UUID, error) {
	existing, err := repo.FindByAttributes(ctx, *data.Name, data.TaxID, data.Address)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	created, err := repo.Create(ctx, data)
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}
