package decrypt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// QPDF is a Strategy backed by the qpdf command-line tool. The availability
// probe runs at most once per instance; concurrent decrypt calls share its
// result.
type QPDF struct {
	path     string
	workDir  string
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger

	probeOnce sync.Once
	probeErr  error
}

type QPDFOption func(*QPDF)

// WithRunner replaces the exec runner, for tests.
func WithRunner(r Runner) QPDFOption {
	return func(q *QPDF) {
		if r != nil {
			q.runner = r
		}
	}
}

// WithLookPath replaces binary resolution, for tests.
func WithLookPath(fn func(string) (string, error)) QPDFOption {
	return func(q *QPDF) {
		if fn != nil {
			q.lookPath = fn
		}
	}
}

// WithWorkDir roots the per-call temporary directories somewhere other than
// the system temp dir.
func WithWorkDir(dir string) QPDFOption {
	return func(q *QPDF) {
		q.workDir = dir
	}
}

func NewQPDF(path string, logger *slog.Logger, opts ...QPDFOption) *QPDF {
	if path == "" {
		path = "qpdf"
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &QPDF{
		path:     path,
		runner:   execRunner{},
		lookPath: exec.LookPath,
		logger:   logger,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// checkAvailability resolves the binary and queries its version. The result
// is cached for the life of the instance.
func (q *QPDF) checkAvailability(ctx context.Context) error {
	q.probeOnce.Do(func() {
		resolved, err := q.lookPath(q.path)
		if err != nil {
			q.logger.Warn("qpdf not found in PATH, PDF decryption disabled", "path", q.path, "error", err)
			q.probeErr = fmt.Errorf("%w: %v", ErrToolUnavailable, err)
			return
		}
		if _, _, err := q.runner.Run(ctx, resolved, "--version"); err != nil {
			q.logger.Warn("qpdf is installed but may be broken, PDF decryption disabled", "path", resolved, "error", err)
			q.probeErr = fmt.Errorf("%w: version check failed: %v", ErrToolUnavailable, err)
			return
		}
		q.path = resolved
	})
	return q.probeErr
}

// Decrypt writes the encrypted payload to a uniquely-named temporary
// directory, invokes qpdf, and reads back the decrypted output. The directory
// is removed on every exit path.
func (q *QPDF) Decrypt(ctx context.Context, encrypted []byte, password string) ([]byte, error) {
	if len(encrypted) == 0 {
		return nil, ErrInvalidInput
	}
	if err := q.checkAvailability(ctx); err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp(q.workDir, "pdf-decrypt-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			q.logger.Warn("cleanup failed", "path", tempDir, "error", err)
		}
	}()

	inputPath := filepath.Join(tempDir, "encrypted.pdf")
	outputPath := filepath.Join(tempDir, "decrypted.pdf")

	if err := os.WriteFile(inputPath, encrypted, 0o600); err != nil {
		return nil, fmt.Errorf("write input file: %w", err)
	}

	_, stderr, err := q.runner.Run(ctx, q.path,
		"--password="+password,
		"--decrypt",
		inputPath,
		outputPath,
	)
	if err != nil {
		return nil, classify(string(stderr), err)
	}

	decrypted, err := os.ReadFile(outputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to decrypt PDF: output file not created")
		}
		return nil, fmt.Errorf("read output file: %w", err)
	}
	return decrypted, nil
}

// classify maps qpdf diagnostics onto typed decryption errors.
func classify(stderr string, err error) error {
	diag := strings.TrimSpace(stderr)
	switch {
	case strings.Contains(strings.ToLower(diag), "password"):
		return ErrWrongPassword
	case strings.Contains(diag, "PDF header") || strings.Contains(diag, "not a PDF"):
		return ErrCorruptedFile
	case diag != "":
		return fmt.Errorf("failed to decrypt PDF: %s", diag)
	default:
		return fmt.Errorf("failed to decrypt PDF: %w", err)
	}
}
