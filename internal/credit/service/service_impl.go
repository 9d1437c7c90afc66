package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/siderealabs/astroledger/internal/clock"
	"github.com/siderealabs/astroledger/internal/credit/domain"
	"github.com/siderealabs/astroledger/internal/observability/metrics"
	"github.com/siderealabs/astroledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// consumeRetries bounds the re-select loop when a concurrent caller wins the
// guarded update on the same oldest credit.
const consumeRetries = 5

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("credit.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) AvailableCredits(ctx context.Context, category domain.ReportCategory) ([]domain.PurchaseCredit, error) {
	if !category.Valid() {
		return nil, domain.ErrInvalidCategory
	}
	return s.repo.ListAvailable(ctx, s.db, category)
}

func (s *Service) HasAvailableCredit(ctx context.Context, category domain.ReportCategory) (bool, error) {
	if !category.Valid() {
		return false, domain.ErrInvalidCategory
	}
	count, err := s.repo.CountAvailable(ctx, s.db, category)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) ConsumeCredit(ctx context.Context, category domain.ReportCategory, profileID snowflake.ID) (domain.PurchaseCredit, error) {
	var consumed domain.PurchaseCredit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit, err := s.consume(ctx, tx, category, profileID)
		if err != nil {
			return err
		}
		consumed = credit
		return nil
	})
	if err != nil {
		return domain.PurchaseCredit{}, err
	}
	return consumed, nil
}

func (s *Service) ConsumeCreditTx(ctx context.Context, tx *gorm.DB, category domain.ReportCategory, profileID snowflake.ID) (domain.PurchaseCredit, error) {
	return s.consume(ctx, tx, category, profileID)
}

func (s *Service) consume(ctx context.Context, tx *gorm.DB, category domain.ReportCategory, profileID snowflake.ID) (domain.PurchaseCredit, error) {
	if !category.Valid() {
		return domain.PurchaseCredit{}, domain.ErrInvalidCategory
	}
	if profileID == 0 {
		return domain.PurchaseCredit{}, domain.ErrInvalidProfile
	}

	now := s.clock.Now()
	for attempt := 0; attempt < consumeRetries; attempt++ {
		oldest, err := s.repo.OldestAvailable(ctx, tx, category)
		if err != nil {
			return domain.PurchaseCredit{}, err
		}
		if oldest == nil {
			return domain.PurchaseCredit{}, domain.ErrInsufficientCredit
		}

		ok, err := s.repo.MarkConsumed(ctx, tx, oldest.ID, profileID, now)
		if err != nil {
			return domain.PurchaseCredit{}, err
		}
		if !ok {
			// Lost the race on this row; re-select the next oldest.
			continue
		}

		oldest.Consumed = true
		oldest.ConsumedAt = &now
		oldest.ProfileID = &profileID

		s.metrics.RecordCreditConsumed(ctx, string(category))
		s.log.Info("credit consumed",
			zap.String("credit_id", oldest.ID.String()),
			zap.String("category", string(category)),
			zap.String("profile_id", profileID.String()),
		)
		return *oldest, nil
	}

	return domain.PurchaseCredit{}, domain.ErrConsumeContention
}

func (s *Service) CreditHistory(ctx context.Context, profileID snowflake.ID) ([]domain.PurchaseCredit, error) {
	if profileID == 0 {
		return nil, domain.ErrInvalidProfile
	}
	return s.repo.ListConsumedByProfile(ctx, s.db, profileID)
}

func (s *Service) Deliver(ctx context.Context, delivery domain.Delivery) (domain.PurchaseRecord, bool, error) {
	if strings.TrimSpace(delivery.TransactionID) == "" {
		return domain.PurchaseRecord{}, false, domain.ErrInvalidTransaction
	}
	if !delivery.Category.Valid() {
		return domain.PurchaseRecord{}, false, domain.ErrInvalidCategory
	}
	if delivery.Quantity <= 0 {
		return domain.PurchaseRecord{}, false, domain.ErrInvalidQuantity
	}

	now := s.clock.Now()
	purchasedAt := delivery.PurchasedAt
	if purchasedAt.IsZero() {
		purchasedAt = now
	}

	var record domain.PurchaseRecord
	var created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidate := domain.PurchaseRecord{
			ID:            s.genID.Generate(),
			ProductID:     delivery.ProductID,
			TransactionID: strings.TrimSpace(delivery.TransactionID),
			PurchasedAt:   purchasedAt,
			Price:         delivery.Price,
			Currency:      delivery.Currency,
			Quantity:      delivery.Quantity,
			CreatedAt:     now,
		}
		if delivery.Restored {
			candidate.RestoredAt = &now
		}

		inserted, err := s.repo.InsertRecord(ctx, tx, &candidate)
		if err != nil {
			if !db.IsDuplicateKeyErr(err) {
				return err
			}
			inserted = false
		}

		if !inserted {
			existing, err := s.repo.FindRecordByTransactionID(ctx, tx, candidate.TransactionID)
			if err != nil {
				return err
			}
			if existing == nil {
				return domain.ErrRecordNotFound
			}
			record = *existing
			created = false
			return nil
		}

		credits := make([]domain.PurchaseCredit, 0, delivery.Quantity)
		for i := 0; i < delivery.Quantity; i++ {
			credits = append(credits, domain.PurchaseCredit{
				ID:         s.genID.Generate(),
				RecordID:   candidate.ID,
				Category:   delivery.Category,
				AcquiredAt: purchasedAt,
				CreatedAt:  now,
			})
		}
		if err := s.repo.InsertCredits(ctx, tx, credits); err != nil {
			return err
		}

		candidate.Credits = credits
		record = candidate
		created = true
		return nil
	})
	if err != nil {
		return domain.PurchaseRecord{}, false, err
	}

	if created {
		s.metrics.RecordCreditsDelivered(ctx, string(delivery.Category), delivery.Quantity, delivery.Restored)
		s.log.Info("credits delivered",
			zap.String("transaction_id", record.TransactionID),
			zap.String("product_id", record.ProductID),
			zap.String("category", string(delivery.Category)),
			zap.Int("quantity", delivery.Quantity),
			zap.Bool("restored", delivery.Restored),
		)
	} else {
		s.log.Info("delivery already recorded for transaction",
			zap.String("transaction_id", record.TransactionID),
		)
	}

	return record, created, nil
}
