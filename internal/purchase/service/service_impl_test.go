package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/siderealabs/astroledger/internal/clock"
	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	creditrepository "github.com/siderealabs/astroledger/internal/credit/repository"
	creditservice "github.com/siderealabs/astroledger/internal/credit/service"
	"github.com/siderealabs/astroledger/internal/purchase/domain"
	"github.com/siderealabs/astroledger/internal/storekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeStoreClient scripts platform behavior and records every call.
type fakeStoreClient struct {
	mu sync.Mutex

	purchaseOutcome storekit.PurchaseOutcome
	purchaseErr     error
	entitlements    []storekit.Transaction
	entitlementsErr error
	updates         chan storekit.Update

	purchaseCalls []string
	finished      []string
}

func newFakeStoreClient() *fakeStoreClient {
	return &fakeStoreClient{updates: make(chan storekit.Update, 8)}
}

func (f *fakeStoreClient) Purchase(_ context.Context, productID string) (storekit.PurchaseOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purchaseCalls = append(f.purchaseCalls, productID)
	if f.purchaseErr != nil {
		return storekit.PurchaseOutcome{}, f.purchaseErr
	}
	return f.purchaseOutcome, nil
}

func (f *fakeStoreClient) Updates(ctx context.Context) (<-chan storekit.Update, error) {
	out := make(chan storekit.Update)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-f.updates:
				if !ok {
					return
				}
				select {
				case out <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeStoreClient) CurrentEntitlements(_ context.Context) ([]storekit.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entitlementsErr != nil {
		return nil, f.entitlementsErr
	}
	out := make([]storekit.Transaction, len(f.entitlements))
	copy(out, f.entitlements)
	return out, nil
}

func (f *fakeStoreClient) Finish(_ context.Context, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, transactionID)
	return nil
}

func (f *fakeStoreClient) purchaseCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.purchaseCalls)
}

func (f *fakeStoreClient) finishedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.finished))
	copy(out, f.finished)
	return out
}

type purchaseFixture struct {
	db      *gorm.DB
	client  *fakeStoreClient
	credits creditdomain.Service
	svc     *Service
	clock   *clock.FakeClock
}

func setupPurchaseTest(t *testing.T) *purchaseFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&creditdomain.PurchaseRecord{},
		&creditdomain.PurchaseCredit{},
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

	client := newFakeStoreClient()
	svc := New(Params{
		Log:     zap.NewNop(),
		Client:  client,
		Catalog: storekit.NewCatalog(),
		Credits: credits,
	})

	return &purchaseFixture{db: db, client: client, credits: credits, svc: svc, clock: fake}
}

func verifiedOutcome(txID, productID string, at time.Time) storekit.PurchaseOutcome {
	return storekit.PurchaseOutcome{
		State: storekit.StateVerified,
		Transaction: &storekit.Transaction{
			ID:          txID,
			ProductID:   productID,
			Quantity:    1,
			PurchasedAt: at,
		},
	}
}

func TestPurchase_UnknownProduct(t *testing.T) {
	fx := setupPurchaseTest(t)

	_, err := fx.svc.Purchase(context.Background(), "report.unknown.single")
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.Equal(t, 0, fx.client.purchaseCallCount())
}

func TestPurchase_BlockedWhileCreditAvailable(t *testing.T) {
	fx := setupPurchaseTest(t)
	ctx := context.Background()

	_, _, err := fx.credits.Deliver(ctx, creditdomain.Delivery{
		TransactionID: "tx-prior",
		ProductID:     "report.career.single",
		Category:      creditdomain.CategoryCareer,
		Quantity:      1,
		PurchasedAt:   fx.clock.Now(),
	})
	require.NoError(t, err)

	_, err = fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrCreditStillAvailable)

	// The block fires before any platform call, so no charge can happen.
	assert.Equal(t, 0, fx.client.purchaseCallCount())
}

func TestPurchase_CancelledIsSilent(t *testing.T) {
	fx := setupPurchaseTest(t)
	fx.client.purchaseOutcome = storekit.PurchaseOutcome{State: storekit.StateCancelled}

	record, err := fx.svc.Purchase(context.Background(), "report.career.single")
	assert.NoError(t, err)
	assert.Nil(t, record)

	var count int64
	require.NoError(t, fx.db.Model(&creditdomain.PurchaseRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPurchase_PendingWritesNothing(t *testing.T) {
	fx := setupPurchaseTest(t)
	fx.client.purchaseOutcome = storekit.PurchaseOutcome{State: storekit.StatePending}

	record, err := fx.svc.Purchase(context.Background(), "report.career.single")
	assert.NoError(t, err)
	assert.Nil(t, record)
	assert.Empty(t, fx.client.finishedIDs())
}

func TestPurchase_VerifiedDeliversThenFinishes(t *testing.T) {
	fx := setupPurchaseTest(t)
	ctx := context.Background()
	fx.client.purchaseOutcome = verifiedOutcome("tx-100", "report.career.single", fx.clock.Now())

	record, err := fx.svc.Purchase(ctx, "report.career.single")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "tx-100", record.TransactionID)
	assert.Nil(t, record.RestoredAt)

	has, err := fx.credits.HasAvailableCredit(ctx, creditdomain.CategoryCareer)
	require.NoError(t, err)
	assert.True(t, has)

	// Finish is acknowledged only after the ledger write.
	assert.Equal(t, []string{"tx-100"}, fx.client.finishedIDs())
}

func TestPurchase_UnverifiedEscalatesToSupport(t *testing.T) {
	fx := setupPurchaseTest(t)
	ctx := context.Background()
	fx.client.purchaseOutcome = storekit.PurchaseOutcome{
		State:       storekit.StateUnverified,
		Transaction: &storekit.Transaction{ID: "tx-bad", ProductID: "report.career.single"},
	}

	_, err := fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)

	_, err = fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)

	// Third consecutive failure escalates.
	_, err = fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrVerificationExhausted)

	// Nothing was ever written to the ledger.
	var count int64
	require.NoError(t, fx.db.Model(&creditdomain.PurchaseCredit{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPurchase_VerifiedResetsFailureStreak(t *testing.T) {
	fx := setupPurchaseTest(t)
	ctx := context.Background()

	fx.client.purchaseOutcome = storekit.PurchaseOutcome{State: storekit.StateUnverified}
	_, err := fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	_, err = fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)

	fx.client.purchaseOutcome = verifiedOutcome("tx-200", "report.career.single", fx.clock.Now())
	record, err := fx.svc.Purchase(ctx, "report.career.single")
	require.NoError(t, err)
	require.NotNil(t, record)

	// Consume so the repurchase block does not interfere, then fail again:
	// the streak starts over at one.
	_, err = fx.credits.ConsumeCredit(ctx, creditdomain.CategoryCareer, mustProfileID(t))
	require.NoError(t, err)

	fx.client.purchaseOutcome = storekit.PurchaseOutcome{State: storekit.StateUnverified}
	_, err = fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	assert.NotErrorIs(t, err, domain.ErrVerificationExhausted)
}

func TestPurchase_InFlightGuard(t *testing.T) {
	fx := setupPurchaseTest(t)

	fx.svc.inFlight.Store(true)
	_, err := fx.svc.Purchase(context.Background(), "report.career.single")
	assert.ErrorIs(t, err, domain.ErrPurchaseInFlight)
	assert.Equal(t, 0, fx.client.purchaseCallCount())
}

func TestPurchase_StoreErrorsAreMapped(t *testing.T) {
	fx := setupPurchaseTest(t)
	ctx := context.Background()

	fx.client.purchaseErr = storekit.ErrNetwork
	_, err := fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrNetwork)

	fx.client.purchaseErr = storekit.ErrPaymentDeclined
	_, err = fx.svc.Purchase(ctx, "report.career.single")
	assert.ErrorIs(t, err, domain.ErrPaymentDeclined)
}

func TestRestore_RecoversOnlyUndeliveredTransactions(t *testing.T) {
	fx := setupPurchaseTest(t)
	ctx := context.Background()

	// One entitlement is already in the ledger, one was never delivered.
	_, _, err := fx.credits.Deliver(ctx, creditdomain.Delivery{
		TransactionID: "tx-delivered",
		ProductID:     "report.career.single",
		Category:      creditdomain.CategoryCareer,
		Quantity:      1,
		PurchasedAt:   fx.clock.Now(),
	})
	require.NoError(t, err)

	fx.client.entitlements = []storekit.Transaction{
		{ID: "tx-delivered", ProductID: "report.career.single", Quantity: 1, PurchasedAt: fx.clock.Now()},
		{ID: "tx-lost", ProductID: "report.wellness.single", Quantity: 1, PurchasedAt: fx.clock.Now()},
	}

	result, err := fx.svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Entitlements)
	assert.Equal(t, 1, result.Recovered)
	assert.Equal(t, []string{"tx-lost"}, result.Transactions)

	// Recovered records carry the restored stamp.
	var record creditdomain.PurchaseRecord
	require.NoError(t, fx.db.First(&record, "transaction_id = ?", "tx-lost").Error)
	assert.NotNil(t, record.RestoredAt)

	// Every walked entitlement is finished, recovered or not.
	assert.ElementsMatch(t, []string{"tx-delivered", "tx-lost"}, fx.client.finishedIDs())
}

func TestRestore_PlatformFailure(t *testing.T) {
	fx := setupPurchaseTest(t)
	fx.client.entitlementsErr = storekit.ErrNetwork

	_, err := fx.svc.Restore(context.Background())
	assert.ErrorIs(t, err, domain.ErrRestoreFailed)
}

func mustProfileID(t *testing.T) snowflake.ID {
	t.Helper()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	return node.Generate()
}
