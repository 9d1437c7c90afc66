package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ReportCategory identifies the kind of report a credit can pay for.
type ReportCategory string

const (
	CategoryCareer        ReportCategory = "career"
	CategoryRelationships ReportCategory = "relationships"
	CategoryWellness      ReportCategory = "wellness"
	CategoryPersonality   ReportCategory = "personality"
)

// Categories lists every known report category.
func Categories() []ReportCategory {
	return []ReportCategory{
		CategoryCareer,
		CategoryRelationships,
		CategoryWellness,
		CategoryPersonality,
	}
}

// Valid reports whether the category is a known one.
func (c ReportCategory) Valid() bool {
	switch c {
	case CategoryCareer, CategoryRelationships, CategoryWellness, CategoryPersonality:
		return true
	default:
		return false
	}
}

// PurchaseRecord is the durable receipt of a completed platform transaction.
// The unique transaction_id index is the sole deduplication mechanism for
// credit delivery; every idempotency guarantee in the purchase flow rests on it.
type PurchaseRecord struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	ProductID     string       `gorm:"not null" json:"product_id"`
	TransactionID string       `gorm:"not null;uniqueIndex:ux_purchase_records_transaction_id" json:"transaction_id"`
	PurchasedAt   time.Time    `gorm:"not null" json:"purchased_at"`
	Price         string       `gorm:"not null" json:"price"`
	Currency      string       `gorm:"not null" json:"currency"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	RestoredAt    *time.Time   `json:"restored_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	Credits []PurchaseCredit `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE" json:"credits,omitempty"`
}

func (PurchaseRecord) TableName() string { return "purchase_records" }

// PurchaseCredit is a single-use entitlement to generate one report.
// Credits form a global pool: ProfileID stays nil until the moment of
// consumption, and a consumed credit is permanently immutable.
type PurchaseCredit struct {
	ID         snowflake.ID   `gorm:"primaryKey" json:"id"`
	RecordID   snowflake.ID   `gorm:"not null;index" json:"record_id"`
	Category   ReportCategory `gorm:"not null;index:idx_purchase_credits_available,priority:1" json:"category"`
	Consumed   bool           `gorm:"not null;default:false;index:idx_purchase_credits_available,priority:2" json:"consumed"`
	AcquiredAt time.Time      `gorm:"not null;index:idx_purchase_credits_available,priority:3" json:"acquired_at"`
	ConsumedAt *time.Time     `json:"consumed_at,omitempty"`
	ProfileID  *snowflake.ID  `gorm:"index" json:"profile_id,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PurchaseCredit) TableName() string { return "purchase_credits" }
