package storekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/siderealabs/astroledger/internal/config"
	"go.uber.org/zap"
)

// RemoteClient talks to the platform purchase service over HTTP and verifies
// every signed transaction payload before handing it to callers.
type RemoteClient struct {
	baseURL      string
	httpClient   *http.Client
	verifier     *Verifier
	pollInterval time.Duration
	log          *zap.Logger
}

func NewRemoteClient(cfg config.Config, log *zap.Logger) (*RemoteClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.Store.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("store base URL is required")
	}

	verifier, err := NewVerifier(cfg.Store.PublicKeyPEM, cfg.Store.Issuer, cfg.Store.Audience)
	if err != nil {
		return nil, err
	}

	pollInterval := cfg.Store.PollInterval
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}

	return &RemoteClient{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: cfg.Store.FinishTimeout},
		verifier:     verifier,
		pollInterval: pollInterval,
		log:          log.Named("storekit.remote"),
	}, nil
}

type purchaseRequest struct {
	ProductID string `json:"productId"`
}

type purchaseResponse struct {
	Status            string `json:"status"`
	SignedTransaction string `json:"signedTransaction"`
}

func (c *RemoteClient) Purchase(ctx context.Context, productID string) (PurchaseOutcome, error) {
	body, err := json.Marshal(purchaseRequest{ProductID: productID})
	if err != nil {
		return PurchaseOutcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/purchases", bytes.NewReader(body))
	if err != nil {
		return PurchaseOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PurchaseOutcome{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return PurchaseOutcome{}, ErrProductUnknown
	case http.StatusPaymentRequired:
		return PurchaseOutcome{}, ErrPaymentDeclined
	default:
		return PurchaseOutcome{}, fmt.Errorf("%w: purchase returned status %d", ErrNetwork, resp.StatusCode)
	}

	var payload purchaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PurchaseOutcome{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	switch strings.ToLower(strings.TrimSpace(payload.Status)) {
	case "cancelled":
		return PurchaseOutcome{State: StateCancelled}, nil
	case "pending":
		return PurchaseOutcome{State: StatePending}, nil
	case "success":
		tx, err := c.verifier.Decode(payload.SignedTransaction)
		if err != nil {
			c.log.Warn("purchase transaction failed verification", zap.Error(err))
			return PurchaseOutcome{State: StateUnverified}, nil
		}
		return PurchaseOutcome{State: StateVerified, Transaction: &tx}, nil
	default:
		return PurchaseOutcome{}, fmt.Errorf("%w: unknown purchase status %q", ErrNetwork, payload.Status)
	}
}

type updatesResponse struct {
	SignedTransactions []string `json:"signedTransactions"`
	Cursor             string   `json:"cursor"`
}

// Updates polls the platform transaction feed and pushes each event on the
// returned channel. The channel closes when ctx is cancelled.
func (c *RemoteClient) Updates(ctx context.Context) (<-chan Update, error) {
	out := make(chan Update)

	go func() {
		defer close(out)

		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		cursor := ""
		for {
			next, updates, err := c.fetchUpdates(ctx, cursor)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn("transaction update poll failed", zap.Error(err))
			} else {
				cursor = next
				for _, update := range updates {
					select {
					case out <- update:
					case <-ctx.Done():
						return
					}
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (c *RemoteClient) fetchUpdates(ctx context.Context, cursor string) (string, []Update, error) {
	url := c.baseURL + "/v1/transactions/updates"
	if cursor != "" {
		url += "?cursor=" + cursor
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return cursor, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cursor, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cursor, nil, fmt.Errorf("%w: updates returned status %d", ErrNetwork, resp.StatusCode)
	}

	var payload updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return cursor, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	updates := make([]Update, 0, len(payload.SignedTransactions))
	for _, signed := range payload.SignedTransactions {
		tx, err := c.verifier.Decode(signed)
		if err != nil {
			c.log.Warn("skipping unverifiable transaction update", zap.Error(err))
			updates = append(updates, Update{Verified: false})
			continue
		}
		updates = append(updates, Update{Transaction: tx, Verified: true})
	}
	return payload.Cursor, updates, nil
}

type entitlementsResponse struct {
	SignedTransactions []string `json:"signedTransactions"`
}

func (c *RemoteClient) CurrentEntitlements(ctx context.Context) ([]Transaction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/entitlements", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: entitlements returned status %d", ErrNetwork, resp.StatusCode)
	}

	var payload entitlementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	transactions := make([]Transaction, 0, len(payload.SignedTransactions))
	for _, signed := range payload.SignedTransactions {
		tx, err := c.verifier.Decode(signed)
		if err != nil {
			c.log.Warn("skipping unverifiable entitlement", zap.Error(err))
			continue
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (c *RemoteClient) Finish(ctx context.Context, transactionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transactions/"+transactionID+"/finish", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: finish returned status %d", ErrNetwork, resp.StatusCode)
	}
	return nil
}

var _ Client = (*RemoteClient)(nil)
