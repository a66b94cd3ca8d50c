package rest

import (
	"github.com/gofiber/fiber/v2"
)

// shareInfo lets the public page decide whether to prompt for a password.
func (s *Server) shareInfo(c *fiber.Ctx) error {
	f, err := s.svc.Share.Inspect(c.UserContext(), c.Params("token"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"name":      f.OriginalName,
		"size":      f.Size,
		"protected": f.Share.Protected(),
		"expiresAt": f.Share.ExpiresAt,
	})
}

// shareDownload delivers a shared file. GET takes the password from the
// query string, POST from the form or JSON body.
func (s *Server) shareDownload(c *fiber.Ctx) error {
	password := c.Query("password")
	if c.Method() == fiber.MethodPost {
		var req struct {
			Password string `json:"password" form:"password"`
		}
		if err := c.BodyParser(&req); err == nil && req.Password != "" {
			password = req.Password
		}
	}

	f, rc, err := s.svc.Share.Open(c.UserContext(), c.Params("token"), password)
	if err != nil {
		return s.fail(c, err)
	}
	c.Attachment(f.OriginalName)
	return c.SendStream(rc, int(f.Size))
}
