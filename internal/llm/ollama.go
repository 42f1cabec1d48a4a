// Package llm adapts the Ollama backend for certificate field extraction and
// activity categorization. Replies from small local models are fragile, so
// parsing tolerates both JSON and key-value formats and degrades to nulls
// rather than failing the worker.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/complementa/backend/internal/config"
	"github.com/complementa/backend/internal/domain"
	"github.com/complementa/backend/internal/prompts"
)

// Categorization is the parsed reply of a category-selection request.
// CategoryID is nil when the model did not return a usable id; Reasoning then
// carries the raw reply for the failure record.
type Categorization struct {
	CategoryID *int64 `json:"category_id"`
	Reasoning  string `json:"reasoning"`
}

// Client talks to a single Ollama server. It holds configuration only and is
// safe to share across workers.
type Client struct {
	model       llms.Model
	baseURL     string
	modelName   string
	timeout     time.Duration
	connTimeout time.Duration
	logger      *slog.Logger
}

// New builds an Ollama client from configuration.
func New(cfg config.OllamaConfig) (*Client, error) {
	model, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &Client{
		model:       model,
		baseURL:     cfg.BaseURL,
		modelName:   cfg.Model,
		timeout:     cfg.RequestTimeout,
		connTimeout: cfg.ConnectionTimeout,
		logger:      slog.With("component", "llm"),
	}, nil
}

// ExtractFields runs the certificate-extraction prompt over raw OCR text.
// Unparseable replies produce all-null fields, never an error that would
// crash the stage.
func (c *Client) ExtractFields(ctx context.Context, text string) (domain.ExtractedFields, error) {
	reply, err := c.generate(ctx, prompts.CertificateExtraction(text))
	if err != nil {
		return domain.ExtractedFields{}, fmt.Errorf("extraction request: %w", err)
	}

	fields, parseErr := parseExtractionReply(reply)
	if parseErr != nil {
		c.logger.Warn("unparseable extraction reply, storing nulls",
			"error", parseErr, "reply_prefix", prefix(reply, 200))
		return domain.ExtractedFields{}, nil
	}
	return fields, nil
}

// Categorize runs the category-selection prompt. A reply without JSON yields
// a nil CategoryID with the raw reply as reasoning.
func (c *Client) Categorize(ctx context.Context, rawText string, fields domain.ExtractedFields, categoriesText string) (Categorization, error) {
	reply, err := c.generate(ctx, prompts.ActivityCategorization(rawText, fields, categoriesText))
	if err != nil {
		return Categorization{}, fmt.Errorf("categorization request: %w", err)
	}
	return parseCategorizationReply(reply), nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Info("sending request to Ollama", "model", c.modelName)

	reply, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(0.1),
		llms.WithTopP(0.9),
	)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// HealthCheck verifies the Ollama server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.connTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
