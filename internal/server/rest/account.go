package rest

import (
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) quota(c *fiber.Ctx) error {
	u, err := s.svc.Quota.Usage(c.UserContext(), owner(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"tier":           u.Tier,
		"bonusGb":        u.BonusGB,
		"entitledBytes":  u.Entitled,
		"consumedBytes":  u.Consumed,
		"remainingBytes": u.Remaining,
	})
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *Server) redeem(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return s.fail(c, common.ErrorInvalidArgument)
	}

	red, err := s.svc.Redeem.Redeem(c.UserContext(), owner(c), req.Code)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "gbGranted": red.GBAmount})
}

func (s *Server) redemptions(c *fiber.Ctx) error {
	list, err := s.svc.Redeem.ListRedemptions(c.UserContext(), owner(c))
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]fiber.Map, 0, len(list))
	for _, r := range list {
		out = append(out, fiber.Map{
			"code":       r.Code,
			"family":     r.Family,
			"gbAmount":   r.GBAmount,
			"redeemedAt": r.RedeemedAt,
		})
	}
	return c.JSON(fiber.Map{"redemptions": out})
}
