package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/foundcodes"
	"github.com/dmitrijs2005/gophdrive/internal/server/repositories/specialcodes"
)

// CodeSource is one family of redeemable codes. The redemption protocol is
// written once against this interface.
type CodeSource interface {
	Family() models.CodeFamily
	// Lookup loads and row-locks the code; common.ErrorNotFound when absent.
	Lookup(ctx context.Context, code string) (*models.RedeemableCode, error)
	// Consume takes one use; common.ErrCodeExhausted when none is left.
	Consume(ctx context.Context, code, owner string, at time.Time) error
}

type specialSource struct {
	repo specialcodes.Repository
}

func (specialSource) Family() models.CodeFamily { return models.FamilySpecial }

func (s specialSource) Lookup(ctx context.Context, code string) (*models.RedeemableCode, error) {
	c, err := s.repo.GetForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	return &models.RedeemableCode{
		Family:   models.FamilySpecial,
		Code:     c.Code,
		GBAmount: c.GBAmount,
		MaxUses:  c.MaxUses,
		UseCount: c.UseCount,
	}, nil
}

func (s specialSource) Consume(ctx context.Context, code, _ string, _ time.Time) error {
	return s.repo.IncrementUse(ctx, code)
}

type foundSource struct {
	repo foundcodes.Repository
}

func (foundSource) Family() models.CodeFamily { return models.FamilyFound }

func (s foundSource) Lookup(ctx context.Context, code string) (*models.RedeemableCode, error) {
	c, err := s.repo.GetForUpdate(ctx, code)
	if err != nil {
		return nil, err
	}
	rc := &models.RedeemableCode{
		Family:   models.FamilyFound,
		Code:     c.Code,
		GBAmount: c.GB,
		MaxUses:  1,
	}
	if c.Used {
		rc.UseCount = 1
	}
	return rc, nil
}

func (s foundSource) Consume(ctx context.Context, code, owner string, at time.Time) error {
	return s.repo.MarkUsed(ctx, code, owner, at)
}
