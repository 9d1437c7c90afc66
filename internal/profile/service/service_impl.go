package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/siderealabs/astroledger/internal/clock"
	"github.com/siderealabs/astroledger/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("profile.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProfileRequest) (domain.Profile, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Profile{}, domain.ErrInvalidName
	}

	birthDate := strings.TrimSpace(req.BirthDate)
	if _, err := time.Parse("2006-01-02", birthDate); err != nil {
		return domain.Profile{}, domain.ErrInvalidBirthDate
	}

	birthTime := strings.TrimSpace(req.BirthTime)
	if _, err := time.Parse("15:04", birthTime); err != nil {
		return domain.Profile{}, domain.ErrInvalidBirthTime
	}

	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		return domain.Profile{}, domain.ErrInvalidLocation
	}
	if _, err := time.LoadLocation(strings.TrimSpace(req.Timezone)); err != nil {
		return domain.Profile{}, domain.ErrInvalidLocation
	}

	now := s.clock.Now()
	profile := domain.Profile{
		ID:         s.genID.Generate(),
		Name:       name,
		BirthDate:  birthDate,
		BirthTime:  birthTime,
		BirthPlace: strings.TrimSpace(req.BirthPlace),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Timezone:   strings.TrimSpace(req.Timezone),
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, &profile); err != nil {
		return domain.Profile{}, err
	}

	s.log.Info("profile created", zap.String("profile_id", profile.ID.String()))
	return profile, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Profile{}, err
	}

	profile, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Profile{}, err
	}
	if profile == nil {
		return domain.Profile{}, domain.ErrNotFound
	}
	return *profile, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Profile, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	profiles := make([]domain.Profile, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		profiles = append(profiles, *item)
	}
	return profiles, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := s.parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.log.Info("profile deleted", zap.String("profile_id", parsed.String()))
	return nil
}

func (s *Service) parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
