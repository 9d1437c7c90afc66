package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/siderealabs/astroledger/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Create(report).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Report, error) {
	var report domain.Report
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

func (r *repo) ListByProfile(ctx context.Context, db *gorm.DB, profileID snowflake.ID) ([]domain.Report, error) {
	var reports []domain.Report
	err := db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at desc, id desc").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
