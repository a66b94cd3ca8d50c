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

// issueAttempts bounds retries on generated-code collisions.
const issueAttempts = 5

// RedemptionEngine converts codes into permanent bonus capacity exactly once
// per (code, owner).
type RedemptionEngine struct {
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
	logger      logging.Logger
	now         func() time.Time
}

func NewRedemptionEngine(m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *RedemptionEngine {
	return &RedemptionEngine{
		repomanager: m,
		timeout:     cfg.OpTimeout,
		logger:      logger.With("module", "redemption"),
		now:         time.Now,
	}
}

func (e *RedemptionEngine) sources(db dbx.DBTX) []CodeSource {
	return []CodeSource{
		specialSource{repo: e.repomanager.SpecialCodes(db)},
		foundSource{repo: e.repomanager.FoundCodes(db)},
	}
}

// Redeem grants the code's capacity to owner. Lookup, checks, bonus grant,
// audit record and use counter all commit together or not at all.
func (e *RedemptionEngine) Redeem(ctx context.Context, owner, code string) (*models.Redemption, error) {
	code = normalizeCode(code)
	if owner == "" || code == "" {
		return nil, common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	var red *models.Redemption
	err := e.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var (
			src CodeSource
			rc  *models.RedeemableCode
		)
		for _, s := range e.sources(tx) {
			c, err := s.Lookup(ctx, code)
			if errors.Is(err, common.ErrorNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("error looking up code: %w", err)
			}
			src, rc = s, c
			break
		}
		if rc == nil {
			return common.ErrCodeNotFound
		}

		// a repeat by the same owner is reported as such even when that
		// redemption used up the code
		redemptions := e.repomanager.Redemptions(tx)
		seen, err := redemptions.Exists(ctx, code, owner)
		if err != nil {
			return fmt.Errorf("error checking redemption: %w", err)
		}
		if seen {
			return common.ErrAlreadyRedeemed
		}

		if rc.Exhausted() {
			return common.ErrCodeExhausted
		}

		if _, err := e.repomanager.Bonuses(tx).Add(ctx, owner, rc.GBAmount); err != nil {
			return fmt.Errorf("error granting bonus: %w", err)
		}

		red = &models.Redemption{
			Code:       code,
			Owner:      owner,
			Family:     src.Family(),
			GBAmount:   rc.GBAmount,
			RedeemedAt: e.now().UTC(),
		}
		if err := redemptions.Create(ctx, red); err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.ErrAlreadyRedeemed
			}
			return fmt.Errorf("error recording redemption: %w", err)
		}

		return src.Consume(ctx, code, owner, red.RedeemedAt)
	})
	if err != nil {
		return nil, timeoutErr(err)
	}

	e.logger.Info(ctx, "code redeemed", "owner", owner, "family", red.Family, "gb", red.GBAmount)
	return red, nil
}

// IssueSpecialCode creates an administrator code worth gb with maxUses uses
// (zero for unlimited).
func (e *RedemptionEngine) IssueSpecialCode(ctx context.Context, createdBy string, gb float64, maxUses int64) (*models.SpecialCode, error) {
	if gb <= 0 || maxUses < 0 {
		return nil, common.ErrorInvalidArgument
	}
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	repo := e.repomanager.SpecialCodes(e.repomanager.Conn())
	for i := 0; i < issueAttempts; i++ {
		code, err := NewCode()
		if err != nil {
			return nil, common.ErrorInternal
		}
		c := &models.SpecialCode{
			Code:      code,
			GBAmount:  gb,
			MaxUses:   maxUses,
			CreatedBy: createdBy,
			CreatedAt: e.now().UTC(),
		}
		err = repo.Create(ctx, c)
		if errors.Is(err, common.ErrorAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, timeoutErr(err)
		}
		e.logger.Info(ctx, "special code issued", "by", createdBy, "gb", gb, "max_uses", maxUses)
		return c, nil
	}
	return nil, fmt.Errorf("%w: code space exhausted", common.ErrorInternal)
}

// IssueFoundCode creates a single-use code of the named class, or of a
// weighted random class when className is empty.
func (e *RedemptionEngine) IssueFoundCode(ctx context.Context, createdBy, className string) (*models.FoundCode, error) {
	var (
		class FoundCodeClass
		err   error
	)
	if className == "" {
		if class, err = PickCodeClass(); err != nil {
			return nil, common.ErrorInternal
		}
	} else {
		var ok bool
		if class, ok = FindCodeClass(className); !ok {
			return nil, common.ErrorInvalidArgument
		}
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	repo := e.repomanager.FoundCodes(e.repomanager.Conn())
	for i := 0; i < issueAttempts; i++ {
		code, err := NewCode()
		if err != nil {
			return nil, common.ErrorInternal
		}
		c := &models.FoundCode{
			Code:      code,
			GB:        class.GB,
			Class:     class.Name,
			CreatedBy: createdBy,
			CreatedAt: e.now().UTC(),
		}
		err = repo.Create(ctx, c)
		if errors.Is(err, common.ErrorAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, timeoutErr(err)
		}
		e.logger.Info(ctx, "found code issued", "for", createdBy, "class", class.Name)
		return c, nil
	}
	return nil, fmt.Errorf("%w: code space exhausted", common.ErrorInternal)
}

// ListRedemptions returns the owner's redemption history.
func (e *RedemptionEngine) ListRedemptions(ctx context.Context, owner string) ([]*models.Redemption, error) {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	list, err := e.repomanager.Redemptions(e.repomanager.Conn()).ListByOwner(ctx, owner)
	return list, timeoutErr(err)
}
