package handler

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

type DocumentHandler struct {
	upload *UploadHandler
	docs   *service.DocumentService
}

func NewDocumentHandler(upload *UploadHandler, docs *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{upload: upload, docs: docs}
}

// HandlePreview returns the start of the uploaded document's text.
func (h *DocumentHandler) HandlePreview(c *gin.Context) {
	doc, ok := h.upload.loadDocument(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.PreviewResponse{
			Name:    doc.Name,
			Format:  doc.Format.String(),
			Length:  utf8.RuneCountInString(doc.Text),
			Preview: h.docs.Preview(doc.Text),
		},
	})
}
