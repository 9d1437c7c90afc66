// Package storekit models the platform in-app purchase API as an external
// collaborator. Purchase results are an explicit sum type so every call site
// is forced to handle cancelled, pending and unverified outcomes.
package storekit

import (
	"context"
	"errors"
	"time"
)

// PurchaseState is the tag of a purchase outcome.
type PurchaseState int

const (
	// StateVerified means the platform returned a transaction that passed
	// signature verification. Only this state may deliver credits.
	StateVerified PurchaseState = iota
	// StateUnverified means the platform returned a transaction whose
	// signature check failed. It must never deliver.
	StateUnverified
	// StateCancelled means the user dismissed the payment sheet. Silent.
	StateCancelled
	// StatePending means the purchase awaits external approval and will
	// surface later on the transaction update stream.
	StatePending
)

func (s PurchaseState) String() string {
	switch s {
	case StateVerified:
		return "verified"
	case StateUnverified:
		return "unverified"
	case StateCancelled:
		return "cancelled"
	case StatePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Transaction is one platform purchase transaction. ID is globally unique
// and externally assigned; it is the idempotency key for credit delivery.
type Transaction struct {
	ID          string
	ProductID   string
	Quantity    int
	PurchasedAt time.Time
}

// PurchaseOutcome is the tagged result of a purchase call. Transaction is
// set only for StateVerified and StateUnverified.
type PurchaseOutcome struct {
	State       PurchaseState
	Transaction *Transaction
}

// Update is one event on the transaction update stream.
type Update struct {
	Transaction Transaction
	Verified    bool
}

// Client is the platform purchase API surface this service consumes.
type Client interface {
	// Purchase drives one platform purchase for the product to a result.
	Purchase(ctx context.Context, productID string) (PurchaseOutcome, error)

	// Updates returns the stream of transaction events the platform pushes:
	// pending purchases that clear, transactions delivered to other
	// sessions, and re-sent events after crashes. The channel closes when
	// ctx is cancelled.
	Updates(ctx context.Context) (<-chan Update, error)

	// CurrentEntitlements returns the platform's snapshot of verified
	// transactions still owed to this account. Consumables already finished
	// are not included; that is a platform property, not a defect.
	CurrentEntitlements(ctx context.Context) ([]Transaction, error)

	// Finish acknowledges a transaction. It must be called only after
	// credit delivery is durably persisted.
	Finish(ctx context.Context, transactionID string) error
}

var (
	ErrNetwork         = errors.New("store_network")
	ErrVerification    = errors.New("store_verification_failed")
	ErrProductUnknown  = errors.New("store_product_unknown")
	ErrPaymentDeclined = errors.New("store_payment_declined")
)
