package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	creditdomain "github.com/siderealabs/astroledger/internal/credit/domain"
	"github.com/siderealabs/astroledger/internal/observability/metrics"
	"github.com/siderealabs/astroledger/internal/purchase/domain"
	"github.com/siderealabs/astroledger/internal/ratelimit"
	"github.com/siderealabs/astroledger/internal/storekit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// verifyFailureLimit is how many consecutive verification failures are
// surfaced as retryable before escalating to contact-support.
const verifyFailureLimit = 3

const (
	purchaseLockKey = "astroledger:purchase"
	purchaseLockTTL = 30 * time.Second
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Client  storekit.Client
	Catalog *storekit.Catalog
	Credits creditdomain.Service
	Locker  *ratelimit.Locker `optional:"true"`
	Metrics *metrics.Metrics  `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	client  storekit.Client
	catalog *storekit.Catalog
	credits creditdomain.Service
	locker  *ratelimit.Locker
	metrics *metrics.Metrics

	inFlight       atomic.Bool
	verifyFailures atomic.Int32
}

func New(p Params) *Service {
	return &Service{
		log:     p.Log.Named("purchase.service"),
		client:  p.Client,
		catalog: p.Catalog,
		credits: p.Credits,
		locker:  p.Locker,
		metrics: p.Metrics,
	}
}

func NewGateway(s *Service) domain.Gateway {
	return s
}

func (s *Service) Purchase(ctx context.Context, productID string) (*creditdomain.PurchaseRecord, error) {
	product, ok := s.catalog.Find(productID)
	if !ok {
		return nil, domain.ErrProductUnavailable
	}

	// Only one purchase attempt may be in flight at a time.
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrPurchaseInFlight
	}
	defer s.inFlight.Store(false)

	if s.locker != nil {
		token, acquired, err := s.locker.TryLock(ctx, purchaseLockKey, purchaseLockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, domain.ErrPurchaseInFlight
		}
		defer func() {
			if err := s.locker.Release(ctx, purchaseLockKey, token); err != nil {
				s.log.Warn("failed to release purchase lock", zap.Error(err))
			}
		}()
	}

	// Block repurchase while an unused credit exists, before any platform call.
	hasCredit, err := s.credits.HasAvailableCredit(ctx, product.Category)
	if err != nil {
		return nil, err
	}
	if hasCredit {
		return nil, domain.ErrCreditStillAvailable
	}

	outcome, err := s.client.Purchase(ctx, productID)
	if err != nil {
		return nil, mapStoreError(err)
	}

	switch outcome.State {
	case storekit.StateCancelled:
		s.metrics.RecordPurchaseEvent(ctx, productID, "cancelled")
		s.log.Info("purchase cancelled by user", zap.String("product_id", productID))
		return nil, nil

	case storekit.StatePending:
		s.metrics.RecordPurchaseEvent(ctx, productID, "pending")
		s.log.Info("purchase pending approval", zap.String("product_id", productID))
		return nil, nil

	case storekit.StateUnverified:
		s.metrics.RecordPurchaseEvent(ctx, productID, "unverified")
		failures := s.verifyFailures.Add(1)
		s.log.Warn("purchase failed verification",
			zap.String("product_id", productID),
			zap.Int32("consecutive_failures", failures),
		)
		if failures >= verifyFailureLimit {
			return nil, domain.ErrVerificationExhausted
		}
		return nil, domain.ErrVerificationFailed

	case storekit.StateVerified:
		s.verifyFailures.Store(0)
		if outcome.Transaction == nil {
			return nil, domain.ErrVerificationFailed
		}

		record, _, err := s.DeliverTransaction(ctx, *outcome.Transaction, false)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordPurchaseEvent(ctx, productID, "delivered")

		// Acknowledge only after delivery is durably persisted. If finish
		// fails here, the recovery listener re-drives it later.
		if err := s.client.Finish(ctx, record.TransactionID); err != nil {
			s.log.Warn("failed to finish transaction after delivery",
				zap.String("transaction_id", record.TransactionID),
				zap.Error(err),
			)
		}
		return &record, nil

	default:
		return nil, fmt.Errorf("unhandled purchase state %v", outcome.State)
	}
}

// DeliverTransaction materializes one verified platform transaction into the
// ledger through the idempotent delivery path. Shared by the live purchase
// flow, the recovery listener and restore.
func (s *Service) DeliverTransaction(ctx context.Context, tx storekit.Transaction, restored bool) (creditdomain.PurchaseRecord, bool, error) {
	product, ok := s.catalog.Find(tx.ProductID)
	if !ok {
		return creditdomain.PurchaseRecord{}, false, domain.ErrProductUnavailable
	}

	quantity := product.Credits
	if tx.Quantity > 1 {
		quantity = product.Credits * tx.Quantity
	}

	return s.credits.Deliver(ctx, creditdomain.Delivery{
		TransactionID: tx.ID,
		ProductID:     tx.ProductID,
		Category:      product.Category,
		Quantity:      quantity,
		Price:         product.Price,
		Currency:      product.Currency,
		PurchasedAt:   tx.PurchasedAt,
		Restored:      restored,
	})
}

func (s *Service) Restore(ctx context.Context) (domain.RestoreResult, error) {
	entitlements, err := s.client.CurrentEntitlements(ctx)
	if err != nil {
		return domain.RestoreResult{}, fmt.Errorf("%w: %v", domain.ErrRestoreFailed, err)
	}

	result := domain.RestoreResult{Entitlements: len(entitlements)}
	var failed bool
	for _, tx := range entitlements {
		record, created, err := s.DeliverTransaction(ctx, tx, true)
		if err != nil {
			failed = true
			s.log.Warn("restore delivery failed",
				zap.String("transaction_id", tx.ID),
				zap.Error(err),
			)
			continue
		}
		if created {
			result.Recovered++
			result.Transactions = append(result.Transactions, record.TransactionID)
		}
		if err := s.client.Finish(ctx, record.TransactionID); err != nil {
			s.log.Warn("failed to finish restored transaction",
				zap.String("transaction_id", record.TransactionID),
				zap.Error(err),
			)
		}
	}

	if failed {
		return result, domain.ErrRestoreFailed
	}
	s.log.Info("restore completed",
		zap.Int("entitlements", result.Entitlements),
		zap.Int("recovered", result.Recovered),
	)
	return result, nil
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, storekit.ErrNetwork):
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	case errors.Is(err, storekit.ErrVerification):
		return domain.ErrVerificationFailed
	case errors.Is(err, storekit.ErrProductUnknown):
		return domain.ErrProductUnavailable
	case errors.Is(err, storekit.ErrPaymentDeclined):
		return domain.ErrPaymentDeclined
	default:
		return err
	}
}

var _ domain.Gateway = (*Service)(nil)
