package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/siderealabs/astroledger/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, record *domain.PurchaseRecord) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`INSERT INTO purchase_records (id, product_id, transaction_id, purchased_at, price, currency, quantity, restored_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (transaction_id) DO NOTHING`,
		record.ID,
		record.ProductID,
		record.TransactionID,
		record.PurchasedAt,
		record.Price,
		record.Currency,
		record.Quantity,
		record.RestoredAt,
		record.CreatedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindRecordByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.PurchaseRecord, error) {
	var record domain.PurchaseRecord
	err := db.WithContext(ctx).
		Preload("Credits").
		Where("transaction_id = ?", transactionID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repo) InsertCredits(ctx context.Context, db *gorm.DB, credits []domain.PurchaseCredit) error {
	if len(credits) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&credits).Error
}

func (r *repo) ListAvailable(ctx context.Context, db *gorm.DB, category domain.ReportCategory) ([]domain.PurchaseCredit, error) {
	var credits []domain.PurchaseCredit
	err := db.WithContext(ctx).
		Where("category = ? AND consumed = ?", category, false).
		Order("acquired_at asc, id asc").
		Find(&credits).Error
	if err != nil {
		return nil, err
	}
	return credits, nil
}

func (r *repo) CountAvailable(ctx context.Context, db *gorm.DB, category domain.ReportCategory) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.PurchaseCredit{}).
		Where("category = ? AND consumed = ?", category, false).
		Count(&count).Error
	return count, err
}

func (r *repo) OldestAvailable(ctx context.Context, db *gorm.DB, category domain.ReportCategory) (*domain.PurchaseCredit, error) {
	var credit domain.PurchaseCredit
	err := db.WithContext(ctx).
		Where("category = ? AND consumed = ?", category, false).
		Order("acquired_at asc, id asc").
		First(&credit).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &credit, nil
}

func (r *repo) MarkConsumed(ctx context.Context, db *gorm.DB, creditID, profileID snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE purchase_credits
		 SET consumed = ?, consumed_at = ?, profile_id = ?
		 WHERE id = ? AND consumed = ?`,
		true,
		at,
		profileID,
		creditID,
		false,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListConsumedByProfile(ctx context.Context, db *gorm.DB, profileID snowflake.ID) ([]domain.PurchaseCredit, error) {
	var credits []domain.PurchaseCredit
	err := db.WithContext(ctx).
		Where("profile_id = ? AND consumed = ?", profileID, true).
		Order("consumed_at desc, id desc").
		Find(&credits).Error
	if err != nil {
		return nil, err
	}
	return credits, nil
}
