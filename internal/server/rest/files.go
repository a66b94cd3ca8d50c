package rest

import (
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

type fileView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Size       int64      `json:"size"`
	UploadedAt time.Time  `json:"uploadedAt"`
	Shared     bool       `json:"shared"`
	ShareURL   string     `json:"shareUrl,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Protected  bool       `json:"protected,omitempty"`
}

func (s *Server) view(f *models.File) fileView {
	v := fileView{ID: f.ID, Name: f.OriginalName, Size: f.Size, UploadedAt: f.UploadedAt}
	if f.Share != nil {
		v.Shared = true
		v.ShareURL = s.shareURL(f.Share.Token)
		v.ExpiresAt = f.Share.ExpiresAt
		v.Protected = f.Share.Protected()
	}
	return v
}

func (s *Server) shareURL(token string) string {
	return s.publicBaseURL + "/share/" + token
}

func (s *Server) listFiles(c *fiber.Ctx) error {
	list, err := s.svc.Files.ListByOwner(c.UserContext(), owner(c))
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]fileView, 0, len(list))
	for _, f := range list {
		out = append(out, s.view(f))
	}
	return c.JSON(fiber.Map{"files": out})
}

func (s *Server) getFile(c *fiber.Ctx) error {
	f, err := s.svc.Files.Get(c.UserContext(), owner(c), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(s.view(f))
}

func (s *Server) downloadFile(c *fiber.Ctx) error {
	f, rc, err := s.svc.Files.Download(c.UserContext(), owner(c), c.Params("id"))
	if err != nil {
		return s.fail(c, err)
	}
	c.Attachment(f.OriginalName)
	return c.SendStream(rc, int(f.Size))
}

func (s *Server) deleteFile(c *fiber.Ctx) error {
	if err := s.svc.Files.Delete(c.UserContext(), owner(c), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) deleteFiles(c *fiber.Ctx) error {
	var req deleteRequest
	if err := c.BodyParser(&req); err != nil || len(req.IDs) == 0 {
		return s.fail(c, common.ErrorInvalidArgument)
	}

	n, err := s.svc.Files.DeleteBatch(c.UserContext(), owner(c), req.IDs)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": n})
}

type shareRequest struct {
	ExpiresInHours float64 `json:"expiresInHours"`
	Password       string  `json:"password"`
}

func (s *Server) shareFile(c *fiber.Ctx) error {
	var req shareRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return s.fail(c, common.ErrorInvalidArgument)
		}
	}

	expiresIn := time.Duration(req.ExpiresInHours * float64(time.Hour))
	sh, err := s.svc.Files.SetSharing(c.UserContext(), owner(c), c.Params("id"), expiresIn, req.Password)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"token":     sh.Token,
		"url":       s.shareURL(sh.Token),
		"expiresAt": sh.ExpiresAt,
	})
}

func (s *Server) unshareFile(c *fiber.Ctx) error {
	if err := s.svc.Files.ClearSharing(c.UserContext(), owner(c), c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
