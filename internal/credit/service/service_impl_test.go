package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/siderealabs/astroledger/internal/clock"
	"github.com/siderealabs/astroledger/internal/credit/domain"
	"github.com/siderealabs/astroledger/internal/credit/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCreditTest(t *testing.T) (*gorm.DB, domain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.PurchaseRecord{},
		&domain.PurchaseCredit{},
	))

	node := mustNode(t)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  repository.Provide(),
	})
	return db, svc, fake
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func deliver(t *testing.T, svc domain.Service, txID string, category domain.ReportCategory, quantity int, purchasedAt time.Time) domain.PurchaseRecord {
	t.Helper()
	record, created, err := svc.Deliver(context.Background(), domain.Delivery{
		TransactionID: txID,
		ProductID:     "report." + string(category) + ".single",
		Category:      category,
		Quantity:      quantity,
		Price:         "4.99",
		Currency:      "USD",
		PurchasedAt:   purchasedAt,
	})
	require.NoError(t, err)
	require.True(t, created)
	return record
}

func TestDeliver_SameTransactionDeliversOnce(t *testing.T) {
	db, svc, fake := setupCreditTest(t)
	ctx := context.Background()

	first := deliver(t, svc, "tx-1000", domain.CategoryCareer, 1, fake.Now())

	// Same transaction replayed: must not create a second record or credit.
	again, created, err := svc.Deliver(ctx, domain.Delivery{
		TransactionID: "tx-1000",
		ProductID:     "report.career.single",
		Category:      domain.CategoryCareer,
		Quantity:      1,
		PurchasedAt:   fake.Now(),
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	var creditCount int64
	require.NoError(t, db.Model(&domain.PurchaseCredit{}).Count(&creditCount).Error)
	assert.Equal(t, int64(1), creditCount)

	var recordCount int64
	require.NoError(t, db.Model(&domain.PurchaseRecord{}).Count(&recordCount).Error)
	assert.Equal(t, int64(1), recordCount)
}

func TestDeliver_QuantityCreatesThatManyCredits(t *testing.T) {
	db, svc, fake := setupCreditTest(t)

	record := deliver(t, svc, "tx-2000", domain.CategoryWellness, 3, fake.Now())
	assert.Len(t, record.Credits, 3)

	var count int64
	require.NoError(t, db.Model(&domain.PurchaseCredit{}).
		Where("record_id = ?", record.ID).
		Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestDeliver_RestoredStampsRestoredAt(t *testing.T) {
	_, svc, fake := setupCreditTest(t)

	record, created, err := svc.Deliver(context.Background(), domain.Delivery{
		TransactionID: "tx-3000",
		ProductID:     "report.career.single",
		Category:      domain.CategoryCareer,
		Quantity:      1,
		PurchasedAt:   fake.Now().Add(-48 * time.Hour),
		Restored:      true,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, record.RestoredAt)
	assert.Equal(t, fake.Now(), record.RestoredAt.UTC())
}

func TestDeliver_RejectsInvalidInput(t *testing.T) {
	_, svc, fake := setupCreditTest(t)
	ctx := context.Background()

	_, _, err := svc.Deliver(ctx, domain.Delivery{TransactionID: "  ", Category: domain.CategoryCareer, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidTransaction)

	_, _, err = svc.Deliver(ctx, domain.Delivery{TransactionID: "tx-x", Category: "horoscope", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, _, err = svc.Deliver(ctx, domain.Delivery{TransactionID: "tx-x", Category: domain.CategoryCareer, Quantity: 0, PurchasedAt: fake.Now()})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestConsumeCredit_OldestAcquiredFirst(t *testing.T) {
	_, svc, fake := setupCreditTest(t)
	ctx := context.Background()

	older := fake.Now().Add(-72 * time.Hour)
	newer := fake.Now().Add(-1 * time.Hour)
	oldRecord := deliver(t, svc, "tx-old", domain.CategoryCareer, 1, older)
	deliver(t, svc, "tx-new", domain.CategoryCareer, 1, newer)

	profileID := mustNode(t).Generate()
	consumed, err := svc.ConsumeCredit(ctx, domain.CategoryCareer, profileID)
	require.NoError(t, err)

	assert.Equal(t, oldRecord.Credits[0].ID, consumed.ID)
	assert.True(t, consumed.Consumed)
	require.NotNil(t, consumed.ProfileID)
	assert.Equal(t, profileID, *consumed.ProfileID)
	require.NotNil(t, consumed.ConsumedAt)
	assert.Equal(t, fake.Now(), consumed.ConsumedAt.UTC())

	// The newer credit is untouched and next in line.
	remaining, err := svc.AvailableCredits(ctx, domain.CategoryCareer)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.WithinDuration(t, newer, remaining[0].AcquiredAt, time.Second)
}

func TestConsumeCredit_EmptyPoolIsInsufficient(t *testing.T) {
	_, svc, _ := setupCreditTest(t)

	_, err := svc.ConsumeCredit(context.Background(), domain.CategoryWellness, mustNode(t).Generate())
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)
}

func TestConsumeCredit_CategoriesAreIsolated(t *testing.T) {
	_, svc, fake := setupCreditTest(t)
	ctx := context.Background()

	deliver(t, svc, "tx-career", domain.CategoryCareer, 1, fake.Now())

	// A career credit cannot pay for a relationships report.
	_, err := svc.ConsumeCredit(ctx, domain.CategoryRelationships, mustNode(t).Generate())
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)

	has, err := svc.HasAvailableCredit(ctx, domain.CategoryCareer)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestConsumeCredit_ConsumedCreditIsImmutable(t *testing.T) {
	db, svc, fake := setupCreditTest(t)
	ctx := context.Background()

	record := deliver(t, svc, "tx-4000", domain.CategoryPersonality, 1, fake.Now())
	firstProfile := mustNode(t).Generate()

	consumed, err := svc.ConsumeCredit(ctx, domain.CategoryPersonality, firstProfile)
	require.NoError(t, err)
	firstConsumedAt := *consumed.ConsumedAt

	fake.Advance(time.Hour)
	_, err = svc.ConsumeCredit(ctx, domain.CategoryPersonality, mustNode(t).Generate())
	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)

	// The consumed row keeps its original consumer and timestamp.
	var row domain.PurchaseCredit
	require.NoError(t, db.First(&row, "id = ?", record.Credits[0].ID).Error)
	assert.True(t, row.Consumed)
	require.NotNil(t, row.ProfileID)
	assert.Equal(t, firstProfile, *row.ProfileID)
	assert.WithinDuration(t, firstConsumedAt, *row.ConsumedAt, time.Second)
}

func TestConsumeCredit_RejectsInvalidInput(t *testing.T) {
	_, svc, _ := setupCreditTest(t)
	ctx := context.Background()

	_, err := svc.ConsumeCredit(ctx, "horoscope", mustNode(t).Generate())
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	_, err = svc.ConsumeCredit(ctx, domain.CategoryCareer, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
}

func TestCreditHistory_MostRecentFirst(t *testing.T) {
	_, svc, fake := setupCreditTest(t)
	ctx := context.Background()

	deliver(t, svc, "tx-h1", domain.CategoryCareer, 1, fake.Now().Add(-time.Hour))
	deliver(t, svc, "tx-h2", domain.CategoryWellness, 1, fake.Now().Add(-time.Hour))

	profileID := mustNode(t).Generate()

	first, err := svc.ConsumeCredit(ctx, domain.CategoryCareer, profileID)
	require.NoError(t, err)
	fake.Advance(time.Minute)
	second, err := svc.ConsumeCredit(ctx, domain.CategoryWellness, profileID)
	require.NoError(t, err)

	history, err := svc.CreditHistory(ctx, profileID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}
