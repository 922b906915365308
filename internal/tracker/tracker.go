package tracker

import (
	"context"
	"time"

	"savane-boutik/internal/domain"
	"savane-boutik/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultThreshold  = 5 * time.Minute
	DefaultSafetyTick = 30 * time.Second
)

// Config controls inactivity detection
type Config struct {
	// Threshold is the inactivity window after which a non-empty cart
	// counts as abandoned.
	Threshold time.Duration
	// SafetyTick is a coarse periodic re-check backstopping the deadline
	// timer.
	SafetyTick time.Duration
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.SafetyTick <= 0 {
		c.SafetyTick = DefaultSafetyTick
	}
	return c
}

// MerchantLookup resolves the merchant a snapshot is recorded under. It is
// consulted at snapshot time, not at construction, so an account registered
// while the tracker runs scopes subsequent records correctly. Returns
// uuid.Nil while no account exists.
type MerchantLookup func(ctx context.Context) uuid.UUID

// Tracker watches the store's cart for inactivity and materializes at most
// one AbandonedCart snapshot per inactivity episode. Detection is best
// effort: a missed episode is not retried retroactively.
type Tracker struct {
	store    *store.Store
	merchant MerchantLookup
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a tracker recording snapshots under the looked-up merchant
func New(st *store.Store, merchant MerchantLookup, cfg Config, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:    st,
		merchant: merchant,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// Run watches cart mutations until ctx is cancelled. The activity marker is
// persisted by the store, so elapsed wall-clock time from a previous process
// still counts toward the threshold when Run starts.
func (t *Tracker) Run(ctx context.Context) {
	changes := t.store.Subscribe()

	timer := time.NewTimer(t.untilDeadline())
	defer timer.Stop()

	tick := time.NewTicker(t.cfg.SafetyTick)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Abandoned cart tracker stopped")
			return
		case <-changes:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(t.untilDeadline())
		case <-timer.C:
			if err := t.Check(ctx); err != nil {
				t.logger.Warn("Abandoned cart check failed", zap.Error(err))
				// The episode is still in breach, so the raw deadline
				// would refire immediately. Wait out a safety tick
				// before retrying the write.
				timer.Reset(t.cfg.SafetyTick)
				continue
			}
			timer.Reset(t.untilDeadline())
		case <-tick.C:
			if err := t.Check(ctx); err != nil {
				t.logger.Warn("Abandoned cart check failed", zap.Error(err))
			}
		}
	}
}

// untilDeadline returns the wait until the current episode would breach the
// threshold. With no active episode the timer parks on the safety tick
// horizon.
func (t *Tracker) untilDeadline() time.Duration {
	last := t.store.LastActivity()
	if last.IsZero() {
		return t.cfg.SafetyTick
	}

	remaining := last.Add(t.cfg.Threshold).Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Check compares elapsed inactivity against the threshold and materializes
// a snapshot on breach. Safe to call at any time; a non-breached or idle
// cart is a no-op.
func (t *Tracker) Check(ctx context.Context) error {
	last := t.store.LastActivity()
	if last.IsZero() {
		return nil
	}
	if t.now().Sub(last) < t.cfg.Threshold {
		return nil
	}

	record, ok := t.snapshot(last)
	if !ok {
		// Every line was orphaned; nothing to recover, end the episode.
		t.store.ClearActivity(ctx)
		return nil
	}

	if err := t.store.AppendAbandonedCart(ctx, t.merchant(ctx), record); err != nil {
		return err
	}
	t.store.ClearActivity(ctx)

	t.logger.Info("Abandoned cart recorded",
		zap.String("cart_id", record.ID.String()),
		zap.Time("inactive_since", record.Timestamp),
		zap.Float64("total", record.Total),
		zap.Int("items", len(record.Items)),
	)
	return nil
}

// snapshot resolves each cart line against the live catalog, dropping
// orphans, and builds the immutable denormalized record keyed by the
// inactivity-start timestamp.
func (t *Tracker) snapshot(inactiveSince time.Time) (domain.AbandonedCart, bool) {
	items := t.store.CartItems()
	if len(items) == 0 {
		return domain.AbandonedCart{}, false
	}

	var total float64
	details := make([]domain.ProductDetail, 0, len(items))
	for _, item := range items {
		product, err := t.store.Product(item.ProductID)
		if err != nil {
			continue
		}
		total += product.Price * float64(item.Quantity)
		details = append(details, domain.ProductDetail{
			ID:    product.ID,
			Name:  product.Name,
			Price: product.Price,
			Image: product.PrimaryImage(),
		})
	}
	if len(details) == 0 {
		return domain.AbandonedCart{}, false
	}

	return domain.AbandonedCart{
		ID:             uuid.New(),
		Items:          items,
		Timestamp:      inactiveSince,
		Total:          total,
		ProductDetails: details,
		IsRecovered:    false,
	}, true
}
