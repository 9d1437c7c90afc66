// Package ephemeris wraps the external chart calculation service.
package ephemeris

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/siderealabs/astroledger/internal/chart/domain"
	"github.com/siderealabs/astroledger/internal/config"
	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Ephemeris.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("ephemeris base URL is required")
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Ephemeris.Timeout},
		log:        log.Named("chart.ephemeris"),
	}, nil
}

func (c *Client) Compute(ctx context.Context, birth domain.BirthData) (domain.Document, error) {
	body, err := json.Marshal(birth)
	if err != nil {
		return domain.Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/natal-chart", bytes.NewReader(body))
	if err != nil {
		return domain.Document{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrEphemerisUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Document{}, fmt.Errorf("%w: status %d", domain.ErrEphemerisUnavailable, resp.StatusCode)
	}

	var doc domain.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return domain.Document{}, fmt.Errorf("%w: %v", domain.ErrEphemerisUnavailable, err)
	}
	return doc, nil
}

var _ domain.Ephemeris = (*Client)(nil)
