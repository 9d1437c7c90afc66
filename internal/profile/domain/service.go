package domain

import (
	"context"
	"errors"
)

type CreateProfileRequest struct {
	Name       string
	BirthDate  string
	BirthTime  string
	BirthPlace string
	Latitude   float64
	Longitude  float64
	Timezone   string
}

type Service interface {
	Create(ctx context.Context, req CreateProfileRequest) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidBirthDate = errors.New("invalid_birth_date")
	ErrInvalidBirthTime = errors.New("invalid_birth_time")
	ErrInvalidLocation  = errors.New("invalid_location")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
)
