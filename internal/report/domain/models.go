package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
)

// Report is a generated astrology report. CreditID links the report to the
// ledger entry its generation consumed; a report row and its consumed credit
// always commit together.
type Report struct {
	ID        snowflake.ID                `gorm:"primaryKey" json:"id"`
	ProfileID snowflake.ID                `gorm:"not null;index:idx_reports_profile" json:"profile_id"`
	Category  creditdomain.ReportCategory `gorm:"not null" json:"category"`
	Language  string                      `gorm:"not null" json:"language"`
	Content   string                      `gorm:"not null" json:"content"`
	Model     string                      `gorm:"not null" json:"model"`
	CreditID  snowflake.ID                `gorm:"not null;uniqueIndex:ux_reports_credit_id" json:"credit_id"`
	CreatedAt time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Report) TableName() string { return "reports" }
