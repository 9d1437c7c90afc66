package service

import (
	"context"

	"github.com/siderealabs/astroledger/internal/chart/domain"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Ephemeris domain.Ephemeris
}

type Service struct {
	log       *zap.Logger
	ephemeris domain.Ephemeris
}

func New(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("chart.service"),
		ephemeris: p.Ephemeris,
	}
}

func (s *Service) ChartForProfile(ctx context.Context, profile profiledomain.Profile) (domain.Document, error) {
	doc, err := s.ephemeris.Compute(ctx, domain.BirthData{
		Date:      profile.BirthDate,
		Time:      profile.BirthTime,
		Latitude:  profile.Latitude,
		Longitude: profile.Longitude,
		Timezone:  profile.Timezone,
	})
	if err != nil {
		return domain.Document{}, err
	}

	s.log.Debug("chart computed",
		zap.String("profile_id", profile.ID.String()),
		zap.Int("planets", len(doc.Planets)),
	)
	return doc, nil
}
