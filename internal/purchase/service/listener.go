package service

import (
	"context"

	"github.com/siderealabs/astroledger/internal/observability/metrics"
	"github.com/siderealabs/astroledger/internal/storekit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Listener reconciles platform transactions not yet reflected in the ledger:
// purchases interrupted by a crash, pending approvals that later clear, and
// transactions delivered to other sessions. It keeps no local progress; the
// platform is the source of truth for what exists, and delivery idempotency
// makes replays safe.
type Listener struct {
	log     *zap.Logger
	client  storekit.Client
	svc     *Service
	metrics *metrics.Metrics

	cancel context.CancelFunc
	done   chan struct{}
}

type ListenerParams struct {
	fx.In

	Log     *zap.Logger
	Client  storekit.Client
	Service *Service
	Metrics *metrics.Metrics `optional:"true"`
}

func NewListener(p ListenerParams) *Listener {
	return &Listener{
		log:     p.Log.Named("purchase.listener"),
		client:  p.Client,
		svc:     p.Service,
		metrics: p.Metrics,
	}
}

// Start launches the background subscription. The listener owns a detached
// context so it outlives the fx start hook and stops only at teardown.
func (l *Listener) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})

	go l.run(ctx)
	return nil
}

// Stop cancels the subscription and waits for the worker to drain.
func (l *Listener) Stop(ctx context.Context) error {
	if l.cancel == nil {
		return nil
	}
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	l.replayEntitlements(ctx)

	updates, err := l.client.Updates(ctx)
	if err != nil {
		l.log.Error("failed to subscribe to transaction updates", zap.Error(err))
		return
	}

	for update := range updates {
		if !update.Verified {
			l.log.Warn("ignoring unverified transaction update")
			continue
		}
		l.process(ctx, update.Transaction, "updates")
	}
	l.log.Info("transaction update stream closed")
}

// replayEntitlements re-drives delivery for anything the platform still owes
// this account. Runs once per process start.
func (l *Listener) replayEntitlements(ctx context.Context) {
	entitlements, err := l.client.CurrentEntitlements(ctx)
	if err != nil {
		l.log.Warn("entitlement replay failed, relying on update stream", zap.Error(err))
		return
	}
	for _, tx := range entitlements {
		l.process(ctx, tx, "entitlements")
	}
}

func (l *Listener) process(ctx context.Context, tx storekit.Transaction, source string) {
	record, created, err := l.svc.DeliverTransaction(ctx, tx, true)
	if err != nil {
		l.log.Error("recovery delivery failed",
			zap.String("transaction_id", tx.ID),
			zap.String("source", source),
			zap.Error(err),
		)
		return
	}

	l.metrics.RecordRecoveryReplay(ctx, source, created)
	if created {
		l.log.Info("recovered transaction into ledger",
			zap.String("transaction_id", record.TransactionID),
			zap.String("source", source),
		)
	}

	if err := l.client.Finish(ctx, record.TransactionID); err != nil {
		l.log.Warn("failed to finish recovered transaction",
			zap.String("transaction_id", record.TransactionID),
			zap.Error(err),
		)
	}
}

// Register wires the listener into the application lifecycle.
func Register(lc fx.Lifecycle, l *Listener) {
	lc.Append(fx.Hook{
		OnStart: l.Start,
		OnStop:  l.Stop,
	})
}
