package rest

import (
	"errors"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/gofiber/fiber/v2"
)

var statusMap = []struct {
	err    error
	status int
}{
	// timeout first: it may be joined with another cause
	{common.ErrTimeout, fiber.StatusGatewayTimeout},

	{common.ErrQuotaExceeded, fiber.StatusRequestEntityTooLarge},
	{common.ErrPartTooLarge, fiber.StatusRequestEntityTooLarge},

	{common.ErrorInvalidArgument, fiber.StatusBadRequest},
	{common.ErrUploadIncomplete, fiber.StatusBadRequest},

	{common.ErrorNotFound, fiber.StatusNotFound},
	{common.ErrSessionNotFound, fiber.StatusNotFound},
	{common.ErrCodeNotFound, fiber.StatusNotFound},
	{common.ErrLinkNotFound, fiber.StatusNotFound},

	{common.ErrSessionExpired, fiber.StatusGone},
	{common.ErrLinkExpired, fiber.StatusGone},

	{common.ErrPasswordRequired, fiber.StatusForbidden},
	{common.ErrPasswordIncorrect, fiber.StatusForbidden},
	{common.ErrScanInfected, fiber.StatusForbidden},

	{common.ErrSessionBusy, fiber.StatusConflict},
	{common.ErrAlreadyRedeemed, fiber.StatusConflict},
	{common.ErrCodeExhausted, fiber.StatusConflict},
	{common.ErrorAlreadyExists, fiber.StatusConflict},

	{common.ErrScanUnavailable, fiber.StatusServiceUnavailable},
	{common.ErrStorageIO, fiber.StatusServiceUnavailable},

	{common.ErrorUnauthorized, fiber.StatusUnauthorized},
	{common.ErrInvalidToken, fiber.StatusUnauthorized},
	{common.ErrTokenExpired, fiber.StatusUnauthorized},
}

// statusFor maps a service error to its HTTP status and client message.
// Unknown errors become 500 without leaking their text.
func statusFor(err error) (int, string) {
	for _, m := range statusMap {
		if errors.Is(err, m.err) {
			switch m.status {
			case fiber.StatusGatewayTimeout:
				return m.status, common.ErrTimeout.Error()
			case fiber.StatusServiceUnavailable:
				return m.status, m.err.Error()
			}
			return m.status, err.Error()
		}
	}
	return fiber.StatusInternalServerError, common.ErrorInternal.Error()
}

// fail writes err as a JSON error body. Typed errors add their detail fields.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)
	body := fiber.Map{"error": msg}

	var qe *common.QuotaExceededError
	if errors.As(err, &qe) {
		body["remainingBytes"] = qe.Remaining
	}
	var ie *common.UploadIncompleteError
	if errors.As(err, &ie) {
		body["missingIndex"] = ie.MissingIndex
	}

	if status == fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(body)
}

// errorHandler renders errors returned by fiber itself, such as an
// oversized body or an unknown route.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return s.fail(c, err)
}
