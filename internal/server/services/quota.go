package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/dbx"
	"github.com/dmitrijs2005/gophdrive/internal/logging"
	"github.com/dmitrijs2005/gophdrive/internal/server/config"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/repomanager"
)

// QuotaLedger derives entitled and consumed capacity per owner. Consumption is
// always summed from the file catalogue and never cached.
type QuotaLedger struct {
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
	logger      logging.Logger
}

func NewQuotaLedger(m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *QuotaLedger {
	return &QuotaLedger{
		repomanager: m,
		timeout:     cfg.OpTimeout,
		logger:      logger.With("module", "quota"),
	}
}

// GBToBytes converts a GB amount (2^30 bytes per GB) to bytes.
func GBToBytes(gb float64) int64 {
	return int64(gb * float64(common.GiB))
}

func (q *QuotaLedger) EntitledBytes(ctx context.Context, owner string) (int64, error) {
	u, err := q.Usage(ctx, owner)
	if err != nil {
		return 0, err
	}
	return u.Entitled, nil
}

func (q *QuotaLedger) ConsumedBytes(ctx context.Context, owner string) (int64, error) {
	if owner == "" {
		return 0, common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, q.timeout)
	defer cancel()

	n, err := q.repomanager.Files(q.repomanager.Conn()).SumSizeByOwner(ctx, owner)
	return n, timeoutErr(err)
}

// RemainingBytes returns max(0, entitled - consumed).
func (q *QuotaLedger) RemainingBytes(ctx context.Context, owner string) (int64, error) {
	u, err := q.Usage(ctx, owner)
	if err != nil {
		return 0, err
	}
	return u.Remaining, nil
}

// Usage returns the capacity summary shown on the dashboard.
func (q *QuotaLedger) Usage(ctx context.Context, owner string) (*models.Usage, error) {
	if owner == "" {
		return nil, common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, q.timeout)
	defer cancel()

	u, err := q.usage(ctx, q.repomanager.Conn(), owner)
	return u, timeoutErr(err)
}

// usage computes the summary through db, which may be a transaction handle.
func (q *QuotaLedger) usage(ctx context.Context, db dbx.DBTX, owner string) (*models.Usage, error) {
	tier, err := q.repomanager.Subscriptions(db).GetByOwner(ctx, owner)
	if errors.Is(err, common.ErrorNotFound) {
		t := models.DefaultTier
		tier = &t
	} else if err != nil {
		return nil, fmt.Errorf("error loading tier: %w", err)
	}

	bonus, err := q.repomanager.Bonuses(db).Get(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("error loading bonus: %w", err)
	}

	consumed, err := q.repomanager.Files(db).SumSizeByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("error summing files: %w", err)
	}

	entitled := GBToBytes(tier.StorageLimitGB) + GBToBytes(bonus)
	return &models.Usage{
		Tier:      tier.Name,
		BonusGB:   bonus,
		Entitled:  entitled,
		Consumed:  consumed,
		Remaining: max(0, entitled-consumed),
	}, nil
}

// GrantBonus permanently adds gb to the owner's entitlement and returns the
// new bonus total.
func (q *QuotaLedger) GrantBonus(ctx context.Context, owner string, gb float64) (float64, error) {
	if owner == "" || gb <= 0 {
		return 0, common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, q.timeout)
	defer cancel()

	total, err := q.repomanager.Bonuses(q.repomanager.Conn()).Add(ctx, owner, gb)
	if err != nil {
		return 0, timeoutErr(fmt.Errorf("error granting bonus: %w", err))
	}
	q.logger.Info(ctx, "bonus granted", "owner", owner, "gb", gb, "total_gb", total)
	return total, nil
}

// AssignTier moves the owner to another subscription tier. Files already
// stored stay even if the new tier is smaller.
func (q *QuotaLedger) AssignTier(ctx context.Context, owner string, tierID int64) error {
	if owner == "" || tierID <= 0 {
		return common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.repomanager.Subscriptions(q.repomanager.Conn()).Assign(ctx, owner, tierID); err != nil {
		return timeoutErr(err)
	}
	q.logger.Info(ctx, "tier assigned", "owner", owner, "tier", tierID)
	return nil
}
