package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	chartdomain "github.com/siderealabs/astroledger/internal/chart/domain"
	"github.com/siderealabs/astroledger/internal/clock"
	"github.com/siderealabs/astroledger/internal/config"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	creditrepository "github.com/siderealabs/astroledger/internal/credit/repository"
	creditservice "github.com/siderealabs/astroledger/internal/credit/service"
	profiledomain "github.com/siderealabs/astroledger/internal/profile/domain"
	"github.com/siderealabs/astroledger/internal/report/domain"
	"github.com/siderealabs/astroledger/internal/report/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type stubProfileService struct {
	profile profiledomain.Profile
}

func (s *stubProfileService) Create(context.Context, profiledomain.CreateProfileRequest) (profiledomain.Profile, error) {
	return profiledomain.Profile{}, errors.New("not implemented")
}

func (s *stubProfileService) GetByID(_ context.Context, id string) (profiledomain.Profile, error) {
	if strings.TrimSpace(id) != s.profile.ID.String() {
		return profiledomain.Profile{}, profiledomain.ErrNotFound
	}
	return s.profile, nil
}

func (s *stubProfileService) List(context.Context) ([]profiledomain.Profile, error) {
	return []profiledomain.Profile{s.profile}, nil
}

func (s *stubProfileService) Delete(context.Context, string) error { return nil }

type stubChartService struct {
	doc chartdomain.Document
	err error
}

func (s *stubChartService) ChartForProfile(context.Context, profiledomain.Profile) (chartdomain.Document, error) {
	if s.err != nil {
		return chartdomain.Document{}, s.err
	}
	return s.doc, nil
}

// failingConsumeCredits passes availability checks but fails at consumption,
// standing in for a credit that disappears between gate and commit.
type failingConsumeCredits struct {
	creditdomain.Service
}

func (f *failingConsumeCredits) ConsumeCreditTx(context.Context, *gorm.DB, creditdomain.ReportCategory, snowflake.ID) (creditdomain.PurchaseCredit, error) {
	return creditdomain.PurchaseCredit{}, creditdomain.ErrInsufficientCredit
}

type reportFixture struct {
	db        *gorm.DB
	svc       domain.Service
	credits   creditdomain.Service
	generator *mockGenerator
	charts    *stubChartService
	profile   profiledomain.Profile
	clock     *clock.FakeClock
}

func setupReportTest(t *testing.T, wrapCredits func(creditdomain.Service) creditdomain.Service) *reportFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&creditdomain.PurchaseRecord{},
		&creditdomain.PurchaseCredit{},
		&domain.Report{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	credits := creditservice.New(creditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  creditrepository.Provide(),
	})
	wrapped := credits
	if wrapCredits != nil {
		wrapped = wrapCredits(credits)
	}

	profile := profiledomain.Profile{
		ID:        node.Generate(),
		Name:      "Ada",
		BirthDate: "1990-03-14",
		BirthTime: "08:30",
		Latitude:  41.0082,
		Longitude: 28.9784,
		Timezone:  "Europe/Istanbul",
	}

	generator := &mockGenerator{}
	charts := &stubChartService{doc: chartdomain.Document{ComputedAt: fake.Now()}}

	cfg := config.Config{}
	cfg.Report.Model = "gpt-4o-mini"

	svc := New(Params{
		Config:    cfg,
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fake,
		Repo:      repository.Provide(),
		Credits:   wrapped,
		Profiles:  &stubProfileService{profile: profile},
		Charts:    charts,
		Generator: generator,
	})

	return &reportFixture{
		db:        db,
		svc:       svc,
		credits:   credits,
		generator: generator,
		charts:    charts,
		profile:   profile,
		clock:     fake,
	}
}

func seedCredit(t *testing.T, fx *reportFixture, category creditdomain.ReportCategory) {
	t.Helper()
	_, created, err := fx.credits.Deliver(context.Background(), creditdomain.Delivery{
		TransactionID: "tx-" + string(category),
		ProductID:     "report." + string(category) + ".single",
		Category:      category,
		Quantity:      1,
		PurchasedAt:   fx.clock.Now(),
	})
	require.NoError(t, err)
	require.True(t, created)
}

func reportCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&domain.Report{}).Count(&count).Error)
	return count
}

func TestGenerate_NoCreditNeverCallsGenerator(t *testing.T) {
	fx := setupReportTest(t, nil)

	_, err := fx.svc.Generate(context.Background(), domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  creditdomain.CategoryCareer,
	})
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredit)

	fx.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	assert.Equal(t, int64(0), reportCount(t, fx.db))
}

func TestGenerate_ConsumesCreditAndPersistsTogether(t *testing.T) {
	fx := setupReportTest(t, nil)
	ctx := context.Background()
	seedCredit(t, fx, creditdomain.CategoryCareer)

	content := strings.Repeat("The stars incline. ", 100)
	fx.generator.On("Generate", mock.Anything, mock.MatchedBy(func(p domain.Prompt) bool {
		return p.Category == creditdomain.CategoryCareer && p.Language == "en" && p.Profile.ID == fx.profile.ID
	})).Return(content, nil).Once()

	report, err := fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  creditdomain.CategoryCareer,
	})
	require.NoError(t, err)
	assert.Equal(t, content, report.Content)
	assert.Equal(t, "gpt-4o-mini", report.Model)
	assert.NotZero(t, report.CreditID)

	// The gate consumed exactly the credit the report points at.
	var credit creditdomain.PurchaseCredit
	require.NoError(t, fx.db.First(&credit, "id = ?", report.CreditID).Error)
	assert.True(t, credit.Consumed)
	require.NotNil(t, credit.ProfileID)
	assert.Equal(t, fx.profile.ID, *credit.ProfileID)

	has, err := fx.credits.HasAvailableCredit(ctx, creditdomain.CategoryCareer)
	require.NoError(t, err)
	assert.False(t, has)

	fx.generator.AssertExpectations(t)
}

func TestGenerate_GeneratorFailureLeavesCreditUntouched(t *testing.T) {
	fx := setupReportTest(t, nil)
	ctx := context.Background()
	seedCredit(t, fx, creditdomain.CategoryWellness)

	fx.generator.On("Generate", mock.Anything, mock.Anything).
		Return("", domain.ErrGenerationFailed).Once()

	_, err := fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  creditdomain.CategoryWellness,
	})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)

	// The credit survives for a retry; no report row was written.
	has, err := fx.credits.HasAvailableCredit(ctx, creditdomain.CategoryWellness)
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, int64(0), reportCount(t, fx.db))
}

func TestGenerate_ConsumeFailureRollsBackReport(t *testing.T) {
	fx := setupReportTest(t, func(real creditdomain.Service) creditdomain.Service {
		return &failingConsumeCredits{Service: real}
	})
	ctx := context.Background()
	seedCredit(t, fx, creditdomain.CategoryCareer)

	fx.generator.On("Generate", mock.Anything, mock.Anything).
		Return(strings.Repeat("content ", 50), nil).Once()

	_, err := fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  creditdomain.CategoryCareer,
	})
	assert.ErrorIs(t, err, creditdomain.ErrInsufficientCredit)

	// Consumption and persistence share one transaction; neither happened.
	assert.Equal(t, int64(0), reportCount(t, fx.db))
	has, err := fx.credits.HasAvailableCredit(ctx, creditdomain.CategoryCareer)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGenerate_ChartFailurePreservesCredit(t *testing.T) {
	fx := setupReportTest(t, nil)
	ctx := context.Background()
	seedCredit(t, fx, creditdomain.CategoryCareer)
	fx.charts.err = chartdomain.ErrEphemerisUnavailable

	_, err := fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  creditdomain.CategoryCareer,
	})
	assert.ErrorIs(t, err, chartdomain.ErrEphemerisUnavailable)

	fx.generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	has, err := fx.credits.HasAvailableCredit(ctx, creditdomain.CategoryCareer)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGenerate_RejectsUnknownCategoryAndProfile(t *testing.T) {
	fx := setupReportTest(t, nil)
	ctx := context.Background()

	_, err := fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  "horoscope",
	})
	assert.ErrorIs(t, err, creditdomain.ErrInvalidCategory)

	_, err = fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: "999999",
		Category:  creditdomain.CategoryCareer,
	})
	assert.ErrorIs(t, err, profiledomain.ErrNotFound)
}

func TestListAndGet(t *testing.T) {
	fx := setupReportTest(t, nil)
	ctx := context.Background()
	seedCredit(t, fx, creditdomain.CategoryCareer)

	fx.generator.On("Generate", mock.Anything, mock.Anything).
		Return("written in the stars", nil).Once()

	report, err := fx.svc.Generate(ctx, domain.GenerateRequest{
		ProfileID: fx.profile.ID.String(),
		Category:  creditdomain.CategoryCareer,
		Language:  "tr",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr", report.Language)

	listed, err := fx.svc.ListByProfile(ctx, fx.profile.ID.String())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, report.ID, listed[0].ID)

	fetched, err := fx.svc.GetByID(ctx, report.ID.String())
	require.NoError(t, err)
	assert.Equal(t, report.Content, fetched.Content)

	_, err = fx.svc.GetByID(ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = fx.svc.GetByID(ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
