package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

type ResearchHandler struct {
	upload   *UploadHandler
	research *service.ResearchService
}

func NewResearchHandler(upload *UploadHandler, research *service.ResearchService) *ResearchHandler {
	return &ResearchHandler{upload: upload, research: research}
}

// HandleRun runs Query, Just Summarize or Challenge Me on the uploaded file.
// A structured-output parse failure still answers 200 with the raw text.
func (h *ResearchHandler) HandleRun(c *gin.Context) {
	var req types.RunRequest
	if err := c.ShouldBind(&req); err != nil {
		h.upload.writeBindError(c, err, "Invalid request body")
		return
	}
	mode := types.ModeQuery
	if req.Mode != "" {
		var err error
		if mode, err = types.ParseMode(req.Mode); err != nil {
			h.upload.writeError(c, service.ErrInvalidMode)
			return
		}
	}

	doc, ok := h.upload.loadDocument(c)
	if !ok {
		return
	}
	res, err := h.research.Run(c.Request.Context(), doc.Text, mode, req.Question)
	if err != nil {
		h.upload.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: res})
}

// HandleEvaluate grades Challenge Me answers against the re-uploaded file.
func (h *ResearchHandler) HandleEvaluate(c *gin.Context) {
	var req types.EvaluateRequest
	if err := c.ShouldBind(&req); err != nil {
		h.upload.writeBindError(c, err, "Invalid request body")
		return
	}

	doc, ok := h.upload.loadDocument(c)
	if !ok {
		return
	}
	res, err := h.research.Evaluate(c.Request.Context(), doc.Text, req.Answers())
	if err != nil {
		h.upload.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: res})
}
