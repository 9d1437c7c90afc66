package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	chartdomain "github.com/siderealabs/astroledger/internal/chart/domain"
	"github.com/siderealabs/astroledger/internal/clock"
	"github.com/siderealabs/astroledger/internal/config"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	"github.com/siderealabs/astroledger/internal/observability/metrics"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
	"github.com/siderealabs/astroledger/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultLanguage = "en"

type Params struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Credits   creditdomain.Service
	Profiles  profiledomain.Service
	Charts    chartdomain.Service
	Generator domain.Generator
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	model     string
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	credits   creditdomain.Service
	profiles  profiledomain.Service
	charts    chartdomain.Service
	generator domain.Generator
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		model:     p.Config.Report.Model,
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		credits:   p.Credits,
		profiles:  p.Profiles,
		charts:    p.Charts,
		generator: p.Generator,
		metrics:   p.Metrics,
	}
}

// Generate runs the full pipeline: credit gate, chart computation, text
// generation, then a single transaction that persists the report and consumes
// the credit. Generation failures never consume a credit; a failed commit
// leaves both the report and the credit untouched.
func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.Report, error) {
	if !req.Category.Valid() {
		return domain.Report{}, creditdomain.ErrInvalidCategory
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = defaultLanguage
	}

	profile, err := s.profiles.GetByID(ctx, req.ProfileID)
	if err != nil {
		return domain.Report{}, err
	}

	available, err := s.credits.HasAvailableCredit(ctx, req.Category)
	if err != nil {
		return domain.Report{}, err
	}
	if !available {
		s.metrics.RecordReportGenerated(ctx, string(req.Category), "insufficient_credit")
		return domain.Report{}, creditdomain.ErrInsufficientCredit
	}

	chart, err := s.charts.ChartForProfile(ctx, profile)
	if err != nil {
		s.metrics.RecordReportGenerated(ctx, string(req.Category), "chart_failed")
		return domain.Report{}, err
	}

	content, err := s.generator.Generate(ctx, domain.Prompt{
		Profile:  profile,
		Chart:    chart,
		Category: req.Category,
		Language: language,
	})
	if err != nil {
		s.metrics.RecordReportGenerated(ctx, string(req.Category), "generation_failed")
		s.log.Warn("report generation failed, credit untouched",
			zap.String("profile_id", profile.ID.String()),
			zap.String("category", string(req.Category)),
			zap.Error(err),
		)
		return domain.Report{}, err
	}

	var report domain.Report
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit, err := s.credits.ConsumeCreditTx(ctx, tx, req.Category, profile.ID)
		if err != nil {
			return err
		}
		report = domain.Report{
			ID:        s.genID.Generate(),
			ProfileID: profile.ID,
			Category:  req.Category,
			Language:  language,
			Content:   content,
			Model:     s.model,
			CreditID:  credit.ID,
			CreatedAt: s.clock.Now(),
		}
		return s.repo.Insert(ctx, tx, &report)
	})
	if err != nil {
		s.metrics.RecordReportGenerated(ctx, string(req.Category), "storage_failed")
		return domain.Report{}, err
	}

	s.metrics.RecordReportGenerated(ctx, string(req.Category), "ok")
	s.log.Info("report generated",
		zap.String("report_id", report.ID.String()),
		zap.String("profile_id", profile.ID.String()),
		zap.String("category", string(req.Category)),
		zap.String("credit_id", report.CreditID.String()),
	)
	return report, nil
}

func (s *Service) ListByProfile(ctx context.Context, profileID string) ([]domain.Report, error) {
	id, err := parseID(profileID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByProfile(ctx, s.db, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Report, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Report{}, err
	}
	report, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Report{}, err
	}
	if report == nil {
		return domain.Report{}, domain.ErrNotFound
	}
	return *report, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
