package pdf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/averros/invopipe/constants"
	"github.com/averros/invopipe/internal/common"
)

type stubCounter struct {
	pages int
	err   error
	calls int
}

func (s *stubCounter) CountPages(_ context.Context, _ []byte) (int, error) {
	s.calls++
	return s.pages, s.err
}

func wellFormedPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\nxref\n0 1\ntrailer\n<< /Size 1 >>\nstartxref\n42\n%%EOF\n")
}

func encryptedPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\nendobj\ntrailer\n<< /Encrypt 2 0 R >>\nstartxref\n42\n%%EOF\n")
}

func TestCheckType(t *testing.T) {
	v := NewValidator(&stubCounter{pages: 1}, nil)

	tests := []struct {
		name     string
		data     []byte
		mimeType string
		fileName string
		wantErr  error
	}{
		{"valid", wellFormedPDF(), "application/pdf", "invoice.pdf", nil},
		{"uppercase extension", wellFormedPDF(), "application/pdf", "INVOICE.PDF", nil},
		{"wrong mime", wellFormedPDF(), "image/png", "invoice.pdf", common.ErrUnsupportedMediaType},
		{"wrong extension", wellFormedPDF(), "application/pdf", "invoice.docx", common.ErrUnsupportedMediaType},
		{"no magic", []byte("not a pdf at all"), "application/pdf", "invoice.pdf", common.ErrUnsupportedMediaType},
		{"too short for magic", []byte("%PD"), "application/pdf", "invoice.pdf", common.ErrUnsupportedMediaType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := v.CheckType(tc.data, tc.mimeType, tc.fileName)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestCheckSize(t *testing.T) {
	v := NewValidator(&stubCounter{pages: 1}, nil)

	atLimit := make([]byte, constants.MaxFileSize)
	if err := v.CheckSize(atLimit); err != nil {
		t.Fatalf("exactly at limit should pass: %v", err)
	}

	over := make([]byte, constants.MaxFileSize+1)
	if err := v.CheckSize(over); !errors.Is(err, common.ErrPayloadTooLarge) {
		t.Fatalf("got %v, want ErrPayloadTooLarge", err)
	}
}

func TestIsEncrypted(t *testing.T) {
	if IsEncrypted(wellFormedPDF()) {
		t.Fatal("plain PDF reported as encrypted")
	}
	if !IsEncrypted(encryptedPDF()) {
		t.Fatal("encrypted PDF not detected")
	}

	// The token only counts inside the trailing window.
	head := append([]byte("%PDF-1.4 /Encrypt early"), bytes.Repeat([]byte("x"), 10*1024)...)
	if IsEncrypted(head) {
		t.Fatal("token outside the scan window should not count")
	}

	tail := append(bytes.Repeat([]byte("x"), 10*1024), []byte("/Encrypt")...)
	if !IsEncrypted(tail) {
		t.Fatal("token inside the scan window should count")
	}
}

func TestCheckIntegrity(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"well formed", string(wellFormedPDF()), true},
		{"empty", "", false},
		{"missing trailer", "%PDF-1.4\n1 0 obj\nxref\nstartxref\n42\n%%EOF", false},
		{"missing eof", "%PDF-1.4\n1 0 obj\nxref\ntrailer\nstartxref\n42", false},
		{"startxref after eof", "%PDF-1.4\n1 0 obj\nxref\ntrailer\n%%EOF\nstartxref", false},
		{"non-numeric offset", "%PDF-1.4\n1 0 obj\nxref\ntrailer\nstartxref\nabc\n%%EOF", false},
		{"no object header", "%PDF-1.4\nxref\ntrailer\nstartxref\n42\n%%EOF", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckIntegrity([]byte(tc.data)); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	// Idempotence: the check must not consume or mutate its input.
	data := wellFormedPDF()
	first := CheckIntegrity(data)
	second := CheckIntegrity(data)
	if first != second {
		t.Fatal("repeated checks disagree")
	}
}

func TestCheckPageCount(t *testing.T) {
	tests := []struct {
		name    string
		pages   int
		err     error
		wantErr string
	}{
		{"one page", 1, nil, ""},
		{"at limit", constants.MaxPageCount, nil, ""},
		{"zero pages", 0, nil, "no pages"},
		{"over limit", constants.MaxPageCount + 1, nil, "maximum allowed pages"},
		{"counter failure", 0, errors.New("parse failed"), "failed to read PDF page count"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator(&stubCounter{pages: tc.pages, err: tc.err}, nil)
			err := v.CheckPageCount(context.Background(), wellFormedPDF())
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got %v, want substring %q", err, tc.wantErr)
			}
			if !errors.Is(err, common.ErrValidation) {
				t.Fatalf("page count errors must wrap ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateAll(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		counter := &stubCounter{pages: 3}
		v := NewValidator(counter, nil)
		res, err := v.ValidateAll(context.Background(), wellFormedPDF(), "application/pdf", "invoice.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsValid || res.IsEncrypted {
			t.Fatalf("got %+v, want valid unencrypted", res)
		}
		if counter.calls != 1 {
			t.Fatalf("counter called %d times, want 1", counter.calls)
		}
	})

	t.Run("encrypted short-circuits", func(t *testing.T) {
		counter := &stubCounter{pages: 3}
		v := NewValidator(counter, nil)
		res, err := v.ValidateAll(context.Background(), encryptedPDF(), "application/pdf", "invoice.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsValid || !res.IsEncrypted {
			t.Fatalf("got %+v, want valid encrypted", res)
		}
		if counter.calls != 0 {
			t.Fatal("page count must not run on an encrypted payload")
		}
	})

	t.Run("broken structure", func(t *testing.T) {
		v := NewValidator(&stubCounter{pages: 3}, nil)
		_, err := v.ValidateAll(context.Background(), []byte("%PDF-1.4 junk"), "application/pdf", "invoice.pdf")
		if !errors.Is(err, common.ErrValidation) {
			t.Fatalf("got %v, want ErrValidation", err)
		}
	})

	t.Run("type checked before size", func(t *testing.T) {
		v := NewValidator(&stubCounter{pages: 1}, nil)
		big := append([]byte("junk"), make([]byte, constants.MaxFileSize)...)
		_, err := v.ValidateAll(context.Background(), big, "image/png", "invoice.pdf")
		if !errors.Is(err, common.ErrUnsupportedMediaType) {
			t.Fatalf("got %v, want type error first", err)
		}
	})
}
