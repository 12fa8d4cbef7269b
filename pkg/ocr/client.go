// Package ocr calls the external OCR service that turns scanned documents
// into per-page text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Recognizer turns a scanned file into per-page OCR text
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string) ([]models.PageText, error)
}

// Config holds OCR client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is an HTTP client for the OCR service
type Client struct {
	baseURL string
	http    *http.Client
	logger  ectologger.Logger
}

// NewClient creates a new OCR client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type recognizeResponse struct {
	Pages []struct {
		PageIndex  int     `json:"page_index"`
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"pages"`
}

// RecognizeFile uploads a file and returns the raw page texts. Cleaning is
// the caller's job.
func (c *Client) RecognizeFile(ctx context.Context, path string) ([]models.PageText, error) {
	ctx, span := tracing.StartSpan(ctx, "ocr.Client.RecognizeFile")
	defer span.End()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file for OCR: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read file for OCR: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		req.Header.Set("traceparent", traceparent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Error("OCR request failed")
		return nil, fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ocr service returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode ocr response: %w", err)
	}

	pages := make([]models.PageText, 0, len(parsed.Pages))
	for _, page := range parsed.Pages {
		pages = append(pages, models.PageText{
			PageIndex:   page.PageIndex,
			CleanedText: page.Text,
			Confidence:  page.Confidence,
		})
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"file":  filepath.Base(path),
		"pages": len(pages),
	}).Debug("OCR completed")

	return pages, nil
}
