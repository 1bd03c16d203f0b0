package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

// multipartOverhead leaves room for the other form fields next to the file.
const multipartOverhead = 1 << 20

// UploadHandler reads the "file" form field and turns it into a document.
// It is shared by every endpoint that takes an upload.
type UploadHandler struct {
	docs     *service.DocumentService
	maxBytes int64
	log      logging.Logger
}

func NewUploadHandler(docs *service.DocumentService, maxBytes int64, log logging.Logger) *UploadHandler {
	return &UploadHandler{docs: docs, maxBytes: maxBytes, log: log}
}

// LimitBody caps the request body before anything parses the form.
func (h *UploadHandler) LimitBody(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}
	c.Next()
}

// writeBindError answers a failed form parse.
func (h *UploadHandler) writeBindError(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, types.DataResponse{Status: false, Message: "File too large"})
		return
	}
	c.JSON(http.StatusBadRequest, types.DataResponse{Status: false, Message: msg})
}

// loadDocument writes the error response itself and reports false on failure.
func (h *UploadHandler) loadDocument(c *gin.Context) (*types.Document, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.writeBindError(c, err, "Invalid file")
		return nil, false
	}
	defer file.Close()

	if h.maxBytes > 0 && header.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, types.DataResponse{Status: false, Message: "File too large"})
		return nil, false
	}

	doc, err := h.docs.LoadReader(c.Request.Context(), header.Filename, file)
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return doc, true
}

// writeError maps service errors to responses. Unknown errors are logged and
// hidden from the client.
func (h *UploadHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat), errors.Is(err, service.ErrInvalidMode):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrEmptyDocument):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrGeneration):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.JSON(status, types.DataResponse{Status: false, Message: service.UserMessage(err)})
}
