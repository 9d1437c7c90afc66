package domain

import (
	"context"
	"errors"

	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
)

// RestoreResult summarizes a restore-purchases walk. Only transactions whose
// delivery never completed can be recovered; consumed credits are gone from
// the platform's entitlement snapshot and cannot be resurrected.
type RestoreResult struct {
	Entitlements int      `json:"entitlements"`
	Recovered    int      `json:"recovered"`
	Transactions []string `json:"transactions,omitempty"`
}

// Gateway drives one platform purchase to completion and materializes it
// into the ledger exactly once.
type Gateway interface {
	// Purchase runs the full purchase flow for a SKU. A nil record with nil
	// error means the user cancelled or the purchase is pending; neither
	// writes the ledger nor surfaces an error.
	Purchase(ctx context.Context, productID string) (*creditdomain.PurchaseRecord, error)

	// Restore walks the platform's current entitlements through the same
	// idempotent delivery path, stamping restored_at on records it creates.
	Restore(ctx context.Context) (RestoreResult, error)
}

var (
	ErrPurchaseInFlight      = errors.New("purchase_in_flight")
	ErrCreditStillAvailable  = errors.New("credit_still_available")
	ErrProductUnavailable    = errors.New("product_unavailable")
	ErrNetwork               = errors.New("network_unavailable")
	ErrVerificationFailed    = errors.New("verification_failed")
	ErrVerificationExhausted = errors.New("verification_exhausted")
	ErrPaymentDeclined       = errors.New("payment_declined")
	ErrRestoreFailed         = errors.New("restore_failed")
)
