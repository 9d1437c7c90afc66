// Package generator wraps the external text generation API used to write
// report content from a natal chart.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/siderealabs/astroledger/internal/config"
	"github.com/siderealabs/astroledger/internal/report/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	minChars   int
	maxChars   int
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Report.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("report API base URL is required")
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.Report.APIKey,
		model:      cfg.Report.Model,
		minChars:   cfg.Report.MinChars,
		maxChars:   cfg.Report.MaxChars,
		httpClient: &http.Client{Timeout: cfg.Report.Timeout},
		log:        log.Named("report.generator"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	chart, err := json.Marshal(prompt.Chart)
	if err != nil {
		return "", err
	}

	system := fmt.Sprintf(
		"You are an astrologer writing a %s report in %s. Base every claim on the natal chart provided. Write between %d and %d characters.",
		prompt.Category, prompt.Language, c.minChars, c.maxChars,
	)
	user := fmt.Sprintf(
		"Name: %s\nBorn: %s %s in %s (%s)\nNatal chart:\n%s",
		prompt.Profile.Name,
		prompt.Profile.BirthDate,
		prompt.Profile.BirthTime,
		prompt.Profile.BirthPlace,
		prompt.Profile.Timezone,
		chart,
	)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", domain.ErrGenerationFailed, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrGenerationFailed)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if length := utf8.RuneCountInString(content); length < c.minChars || length > c.maxChars {
		c.log.Warn("generated content outside length band",
			zap.Int("length", length),
			zap.Int("min", c.minChars),
			zap.Int("max", c.maxChars),
		)
		return "", fmt.Errorf("%w: %d chars", domain.ErrContentOutOfRange, length)
	}
	return content, nil
}

var _ domain.Generator = (*Client)(nil)
