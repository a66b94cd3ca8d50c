package rest

import (
	"bytes"
	"io"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/gofiber/fiber/v2"
)

type initRequest struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type completeRequest struct {
	SessionID  string `json:"sessionId"`
	TotalParts int    `json:"totalParts"`
}

// bodyReader returns the streamed request body, falling back to the
// buffered body when the server did not stream it.
func bodyReader(c *fiber.Ctx) io.Reader {
	if r := c.Context().RequestBodyStream(); r != nil {
		return r
	}
	return bytes.NewReader(c.Body())
}

func (s *Server) uploadInit(c *fiber.Ctx) error {
	var req initRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, common.ErrorInvalidArgument)
	}

	sess, err := s.svc.Uploads.Initiate(c.UserContext(), owner(c), req.Name, req.Size)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sessionId": sess.ID})
}

func (s *Server) uploadChunk(c *fiber.Ctx) error {
	id := c.Query("sessionId")
	index := c.QueryInt("index", -1)
	if id == "" || index < 0 {
		return s.fail(c, common.ErrorInvalidArgument)
	}

	n, err := s.svc.Uploads.ReceivePart(c.UserContext(), owner(c), id, index, bodyReader(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "size": n})
}

func (s *Server) uploadComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return s.fail(c, common.ErrorInvalidArgument)
	}

	f, err := s.svc.Uploads.Finalize(c.UserContext(), owner(c), req.SessionID, req.TotalParts)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"fileId": f.ID, "size": f.Size})
}

func (s *Server) uploadCancel(c *fiber.Ctx) error {
	if err := s.svc.Uploads.Cancel(c.UserContext(), owner(c), c.Params("sessionId")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) uploadSingle(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return s.fail(c, common.ErrorInvalidArgument)
	}
	src, err := fh.Open()
	if err != nil {
		return s.fail(c, err)
	}
	defer src.Close()

	f, err := s.svc.Uploads.UploadSingle(c.UserContext(), owner(c), fh.Filename, fh.Size, src)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"fileId": f.ID, "size": f.Size})
}
