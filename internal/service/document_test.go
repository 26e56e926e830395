package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/async"
	"github.com/averros/invopipe/internal/common"
	"github.com/averros/invopipe/internal/decrypt"
	"github.com/averros/invopipe/internal/entity"
	"github.com/averros/invopipe/internal/mapper"
	"github.com/averros/invopipe/internal/ocr"
	"github.com/averros/invopipe/internal/pdf"
)

// ---- fakes ----

type fakeDocs struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*entity.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{docs: map[uuid.UUID]*entity.Document{}}
}

func (f *fakeDocs) CreateInitial(_ context.Context, doc *entity.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *doc
	f.docs[doc.ID] = &cp
	return nil
}

func (f *fakeDocs) FindByID(_ context.Context, docType constants.DocumentType, id uuid.UUID) (*entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Type != docType {
		return nil, nil
	}
	cp := *doc
	return &cp, nil
}

func (f *fakeDocs) UpdateFields(_ context.Context, id uuid.UUID, data mapper.DocumentData, analysisURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return errors.New("no such document")
	}
	doc.DocumentNumber = data.DocumentNumber
	doc.DocumentDate = data.DocumentDate
	doc.DueDate = data.DueDate
	doc.PurchaseOrderID = data.PurchaseOrderID
	doc.TotalAmount = data.TotalAmount
	doc.SubtotalAmount = data.SubtotalAmount
	doc.DiscountAmount = data.DiscountAmount
	doc.TaxAmount = data.TaxAmount
	doc.CurrencyCode = data.CurrencyCode
	doc.CurrencySymbol = data.CurrencySymbol
	doc.PaymentTerms = data.PaymentTerms
	if analysisURL != "" {
		doc.AnalysisURL = &analysisURL
	}
	return nil
}

func (f *fakeDocs) UpdateStatus(_ context.Context, id uuid.UUID, status constants.DocumentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return errors.New("no such document")
	}
	doc.Status = status
	return nil
}

func (f *fakeDocs) SetCustomerID(_ context.Context, id, customerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id].CustomerID = &customerID
	return nil
}

func (f *fakeDocs) SetVendorID(_ context.Context, id, vendorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[id].VendorID = &vendorID
	return nil
}

func (f *fakeDocs) ListAnalyzedByPartner(_ context.Context, docType constants.DocumentType, partnerID string) ([]*entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Document
	for _, doc := range f.docs {
		if doc.Type == docType && doc.PartnerID == partnerID && doc.Status == constants.StatusAnalyzed {
			cp := *doc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDocs) SoftDelete(_ context.Context, docType constants.DocumentType, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Type != docType {
		return false, nil
	}
	delete(f.docs, id)
	return true, nil
}

type fakeParties struct {
	mu      sync.Mutex
	parties []*entity.Party
	creates int
}

func (f *fakeParties) FindByAttributes(_ context.Context, name string, taxID, address *string) (*entity.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parties {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeParties) FindByID(_ context.Context, id uuid.UUID) (*entity.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.parties {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeParties) Create(_ context.Context, data mapper.PartyData) (*entity.Party, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	p := &entity.Party{
		ID:            uuid.New(),
		Name:          *data.Name,
		Address:       data.Address,
		RecipientName: data.RecipientName,
		TaxID:         data.TaxID,
	}
	f.parties = append(f.parties, p)
	cp := *p
	return &cp, nil
}

type fakeItems struct {
	mu    sync.Mutex
	items map[uuid.UUID][]*entity.LineItem
}

func newFakeItems() *fakeItems {
	return &fakeItems{items: map[uuid.UUID][]*entity.LineItem{}}
}

func (f *fakeItems) CreateForDocument(_ context.Context, docType constants.DocumentType, docID uuid.UUID, items []mapper.ItemData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		f.items[docID] = append(f.items[docID], &entity.LineItem{
			ID:           uuid.New(),
			DocumentType: docType,
			DocumentID:   docID,
			Description:  item.Description,
			Quantity:     item.Quantity,
			Unit:         item.Unit,
			UnitPrice:    item.UnitPrice,
			Amount:       item.Amount,
		})
	}
	return nil
}

func (f *fakeItems) ListByDocument(_ context.Context, _ constants.DocumentType, docID uuid.UUID) ([]*entity.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[docID], nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	seq     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Upload(_ context.Context, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	loc := fmt.Sprintf("mem://file-%d.pdf", f.seq)
	f.objects[loc] = data
	return loc, nil
}

func (f *fakeStore) UploadJSON(_ context.Context, _ any, correlationID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := "mem://analysis-" + correlationID + ".json"
	f.objects[loc] = []byte("{}")
	return loc, nil
}

func (f *fakeStore) Delete(_ context.Context, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[location]; !ok {
		return errors.New("no such object")
	}
	delete(f.objects, location)
	f.deleted = append(f.deleted, location)
	return nil
}

// syncQueue runs the processor inline so tests observe terminal states
// without sleeping.
type syncQueue struct {
	proc async.Processor
}

func (q *syncQueue) Enqueue(ctx context.Context, job async.Job) error {
	if q.proc != nil {
		_ = q.proc.Process(ctx, job)
	}
	return nil
}

func (q *syncQueue) Shutdown(context.Context) {}

type fakeDecryptor struct {
	output []byte
	err    error
	calls  int
}

func (f *fakeDecryptor) Decrypt(_ context.Context, _ []byte, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

type fixedCounter struct{ pages int }

func (f fixedCounter) CountPages(context.Context, []byte) (int, error) { return f.pages, nil }

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Analyze(context.Context, []byte) (*ocr.AnalysisResult, error) {
	return nil, f.err
}

// ---- fixtures ----

func plainPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nxref\ntrailer\nstartxref\n42\n%%EOF\n")
}

func lockedPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\nendobj\ntrailer\n<< /Encrypt 2 0 R >>\nstartxref\n42\n%%EOF\n")
}

type pipeline struct {
	svc       *DocumentService
	docs      *fakeDocs
	customers *fakeParties
	vendors   *fakeParties
	items     *fakeItems
	store     *fakeStore
	decryptor *fakeDecryptor
}

func newPipeline(t *testing.T, analyzer ocr.Analyzer) *pipeline {
	t.Helper()

	docs := newFakeDocs()
	customers := &fakeParties{}
	vendors := &fakeParties{}
	items := newFakeItems()
	store := newFakeStore()
	decryptor := &fakeDecryptor{output: plainPDF()}

	proc := NewAnalysisProcessor(AnalysisProcessorParams{
		DocType:   constants.TypeInvoice,
		Analyzer:  analyzer,
		Mapper:    mapper.NewInvoiceMapper(),
		Store:     store,
		Documents: docs,
		Customers: customers,
		Vendors:   vendors,
		Items:     items,
	})

	svc := NewDocumentService(DocumentServiceParams{
		DocType:   constants.TypeInvoice,
		Validator: pdf.NewValidator(fixedCounter{pages: 3}, nil),
		Decryptor: decryptor,
		Store:     store,
		Queue:     &syncQueue{proc: proc},
		Documents: docs,
		Customers: customers,
		Vendors:   vendors,
		Items:     items,
	})

	return &pipeline{
		svc:       svc,
		docs:      docs,
		customers: customers,
		vendors:   vendors,
		items:     items,
		store:     store,
		decryptor: decryptor,
	}
}

func upload(t *testing.T, p *pipeline, req UploadRequest) *UploadResponse {
	t.Helper()
	resp, err := p.svc.Upload(context.Background(), req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return resp
}

func validUpload() UploadRequest {
	return UploadRequest{
		PartnerID: "P1",
		Filename:  "invoice.pdf",
		MimeType:  "application/pdf",
		Data:      plainPDF(),
	}
}

// ---- tests ----

func TestUploadEndToEnd(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	ctx := context.Background()

	resp := upload(t, p, validUpload())
	if resp.Status != constants.StatusProcessing {
		t.Fatalf("upload status: %v", resp.Status)
	}

	// The synchronous queue finished analysis before Upload returned.
	status, err := p.svc.GetStatus(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != constants.StatusAnalyzed {
		t.Fatalf("status after processing: %v", status.Status)
	}

	doc, err := p.svc.GetDocument(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Message != "" {
		t.Fatalf("analyzed document should have no status message: %q", doc.Message)
	}
	if len(doc.Data.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(doc.Data.Documents))
	}

	full := doc.Data.Documents[0]
	if full.Header.DocumentDetails.DocumentNumber == nil {
		t.Fatal("document number missing")
	}
	if len(full.Items) == 0 {
		t.Fatal("line items missing")
	}
	if full.Header.VendorDetails.Name == nil || *full.Header.VendorDetails.Name != "Sandbox Supplies Ltd" {
		t.Fatalf("vendor details: %+v", full.Header.VendorDetails)
	}
	if full.Header.CustomerDetails.ID == nil {
		t.Fatal("customer id must be exposed")
	}
	if full.Header.FinancialDetails.TotalAmount == nil {
		t.Fatal("total amount missing")
	}
}

func TestUploadRejectsMissingInputs(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	ctx := context.Background()

	req := validUpload()
	req.PartnerID = ""
	if _, err := p.svc.Upload(ctx, req); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("missing partner: got %v", err)
	}

	req = validUpload()
	req.Data = nil
	if _, err := p.svc.Upload(ctx, req); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("missing file: got %v", err)
	}

	req = validUpload()
	req.MimeType = "image/png"
	if _, err := p.svc.Upload(ctx, req); !errors.Is(err, common.ErrUnsupportedMediaType) {
		t.Fatalf("wrong mime: got %v", err)
	}
}

func TestUploadEncryptedRequiresPassword(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())

	req := validUpload()
	req.Data = lockedPDF()
	_, err := p.svc.Upload(context.Background(), req)
	if !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("got %v, want ErrPasswordRequired", err)
	}
	if p.decryptor.calls != 0 {
		t.Fatal("decryptor must not run without a password")
	}
}

func TestUploadEncryptedWithPassword(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())

	req := validUpload()
	req.Data = lockedPDF()
	req.Password = "secret"
	resp := upload(t, p, req)

	if p.decryptor.calls != 1 {
		t.Fatalf("decryptor calls: %d", p.decryptor.calls)
	}

	status, err := p.svc.GetStatus(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != constants.StatusAnalyzed {
		t.Fatalf("status: %v", status.Status)
	}
}

func TestUploadWrongPassword(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	p.decryptor.err = decrypt.ErrWrongPassword

	req := validUpload()
	req.Data = lockedPDF()
	req.Password = "nope"
	_, err := p.svc.Upload(context.Background(), req)
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
	if !strings.Contains(err.Error(), "incorrect password") {
		t.Fatalf("password diagnostic missing: %v", err)
	}
}

func TestAnalysisFailureMarksFailed(t *testing.T) {
	p := newPipeline(t, failingAnalyzer{err: ocr.ErrServiceUnavailable})
	ctx := context.Background()

	resp := upload(t, p, validUpload())

	status, err := p.svc.GetStatus(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != constants.StatusFailed {
		t.Fatalf("status: %v, want Failed", status.Status)
	}

	// Failed documents answer with the stub, never partial data.
	doc, err := p.svc.GetDocument(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Message, "re-upload") {
		t.Fatalf("failed message: %q", doc.Message)
	}
	if len(doc.Data.Documents) != 0 {
		t.Fatal("failed document must not expose fields")
	}
	if doc.Data.DocumentURL == nil {
		t.Fatal("stub should still carry the file location")
	}
}

func TestGetStatusNotFound(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	_, err := p.svc.GetStatus(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestPartyDeduplication(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	ctx := context.Background()

	first := upload(t, p, validUpload())
	second := upload(t, p, validUpload())

	docA, _ := p.docs.FindByID(ctx, constants.TypeInvoice, first.ID)
	docB, _ := p.docs.FindByID(ctx, constants.TypeInvoice, second.ID)
	if docA.VendorID == nil || docB.VendorID == nil {
		t.Fatal("vendor not attached")
	}
	if *docA.VendorID != *docB.VendorID {
		t.Fatal("same vendor must resolve to the same record")
	}
	if p.vendors.creates != 1 {
		t.Fatalf("vendor created %d times, want 1", p.vendors.creates)
	}
}

func TestDeleteRemovesRecordAndBlobs(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	ctx := context.Background()

	resp := upload(t, p, validUpload())

	if err := p.svc.Delete(ctx, resp.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := p.svc.GetStatus(ctx, resp.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("deleted document still visible: %v", err)
	}
	// Raw file and analysis blob both removed.
	if len(p.store.deleted) != 2 {
		t.Fatalf("deleted %d blobs, want 2: %v", len(p.store.deleted), p.store.deleted)
	}

	if err := p.svc.Delete(ctx, resp.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("double delete: got %v, want ErrNotFound", err)
	}
}

func TestGetPartnerID(t *testing.T) {
	p := newPipeline(t, ocr.NewSandboxAnalyzer())
	resp := upload(t, p, validUpload())

	owner, err := p.svc.GetPartnerID(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if owner != "P1" {
		t.Fatalf("owner: %q", owner)
	}
}
