package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// AzureConfig configures the Document Intelligence REST client.
type AzureConfig struct {
	Endpoint     string
	APIKey       string
	ModelID      string // e.g. "prebuilt-invoice"
	APIVersion   string // defaults to "2023-07-31"
	PollInterval time.Duration
	Timeout      time.Duration
}

// AzureClient submits documents to Azure Document Intelligence and polls the
// returned operation until it completes.
type AzureClient struct {
	cfg    AzureConfig
	client *http.Client
	logger *slog.Logger
}

func NewAzureClient(cfg AzureConfig, logger *slog.Logger) *AzureClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-07-31"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AzureClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type analyzeOperation struct {
	Status        string `json:"status"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	AnalyzeResult *AnalysisResult `json:"analyzeResult,omitempty"`
}

// Analyze submits the document bytes and blocks until the provider reports a
// terminal operation status or ctx expires.
func (c *AzureClient) Analyze(ctx context.Context, data []byte) (*AnalysisResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("document payload is required")
	}

	reqID := uuid.New().String()
	start := time.Now()

	url := fmt.Sprintf("%s/formrecognizer/documentModels/%s:analyze?api-version=%s",
		c.cfg.Endpoint, c.cfg.ModelID, c.cfg.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	c.logger.Info("ocr.analyze.request",
		"req_id", reqID,
		"model_id", c.cfg.ModelID,
		"content_length", len(data),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("ocr.analyze.send_error", "req_id", reqID, "error", err)
		return nil, err
	}
	opURL := resp.Header.Get("Operation-Location")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		c.logger.Error("ocr.analyze.rejected", "req_id", reqID, "status", resp.StatusCode, "error", err)
		return nil, err
	}
	if opURL == "" {
		return nil, fmt.Errorf("provider returned no operation location")
	}

	result, err := c.poll(ctx, opURL, reqID)
	if err != nil {
		return nil, err
	}

	c.logger.Info("ocr.analyze.done",
		"req_id", reqID,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"documents", len(result.Documents),
	)
	return result, nil
}

func (c *AzureClient) poll(ctx context.Context, opURL, reqID string) (*AnalysisResult, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if err := classifyStatus(resp.StatusCode, body); err != nil {
			return nil, err
		}

		var op analyzeOperation
		if err := json.Unmarshal(body, &op); err != nil {
			return nil, fmt.Errorf("decode operation: %w", err)
		}

		switch op.Status {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("operation succeeded without a result")
			}
			return op.AnalyzeResult, nil
		case "failed":
			msg := "analysis failed"
			if op.Error != nil {
				msg = fmt.Sprintf("analysis failed: %s: %s", op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("%s", msg)
		default:
			c.logger.Debug("ocr.analyze.polling", "req_id", reqID, "status", op.Status)
		}
	}
}

func classifyStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusServiceUnavailable:
		return ErrServiceUnavailable
	case code == http.StatusConflict:
		return ErrConflict
	default:
		return fmt.Errorf("provider returned status %d: %s", code, truncate(string(body), 512))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
