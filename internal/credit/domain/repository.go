package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertRecord inserts the record unless one already exists for its
	// transaction identifier. Returns false when the row was left untouched.
	InsertRecord(ctx context.Context, db *gorm.DB, record *PurchaseRecord) (bool, error)
	FindRecordByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*PurchaseRecord, error)
	InsertCredits(ctx context.Context, db *gorm.DB, credits []PurchaseCredit) error

	ListAvailable(ctx context.Context, db *gorm.DB, category ReportCategory) ([]PurchaseCredit, error)
	CountAvailable(ctx context.Context, db *gorm.DB, category ReportCategory) (int64, error)
	OldestAvailable(ctx context.Context, db *gorm.DB, category ReportCategory) (*PurchaseCredit, error)

	// MarkConsumed flips the credit to consumed, guarded on consumed = false
	// so two racers can never burn the same row. Returns false when the
	// credit was already consumed by someone else.
	MarkConsumed(ctx context.Context, db *gorm.DB, creditID, profileID snowflake.ID, at time.Time) (bool, error)

	ListConsumedByProfile(ctx context.Context, db *gorm.DB, profileID snowflake.ID) ([]PurchaseCredit, error)
}
