package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, profile *Profile) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Profile, error)
	List(ctx context.Context, db *gorm.DB) ([]*Profile, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
