package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Delivery describes a verified platform transaction to materialize into the
// ledger. Delivering the same TransactionID any number of times creates the
// record and its credits at most once.
type Delivery struct {
	TransactionID string
	ProductID     string
	Category      ReportCategory
	Quantity      int
	Price         string
	Currency      string
	PurchasedAt   time.Time
	Restored      bool
}

// Service is the sole authority for querying and mutating the credit ledger.
type Service interface {
	// AvailableCredits returns unconsumed credits for a category, oldest first.
	AvailableCredits(ctx context.Context, category ReportCategory) ([]PurchaseCredit, error)

	// HasAvailableCredit reports whether at least one unconsumed credit exists.
	HasAvailableCredit(ctx context.Context, category ReportCategory) (bool, error)

	// ConsumeCredit marks the oldest unconsumed credit for the category as
	// consumed by the given profile, atomically. Returns ErrInsufficientCredit
	// when the pool is empty; this is an expected condition, not a fault.
	ConsumeCredit(ctx context.Context, category ReportCategory, profileID snowflake.ID) (PurchaseCredit, error)

	// ConsumeCreditTx is ConsumeCredit composed into a caller-owned
	// transaction, so consumption can commit or roll back together with the
	// caller's own writes.
	ConsumeCreditTx(ctx context.Context, tx *gorm.DB, category ReportCategory, profileID snowflake.ID) (PurchaseCredit, error)

	// CreditHistory returns every credit consumed by the profile, most
	// recent consumption first.
	CreditHistory(ctx context.Context, profileID snowflake.ID) ([]PurchaseCredit, error)

	// Deliver materializes a verified transaction into the ledger exactly
	// once. The returned bool is true when this call created the record.
	Deliver(ctx context.Context, delivery Delivery) (PurchaseRecord, bool, error)
}

var (
	ErrInsufficientCredit = errors.New("insufficient_credit")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidProfile     = errors.New("invalid_profile")
	ErrInvalidTransaction = errors.New("invalid_transaction")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrRecordNotFound     = errors.New("record_not_found")
	ErrConsumeContention  = errors.New("consume_contention")
)
