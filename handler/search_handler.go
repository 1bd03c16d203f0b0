package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
)

// SearchHandler exposes the web search and encyclopedia tools directly.
// Either service may be nil when it is not configured.
type SearchHandler struct {
	search *service.SearchService
	wiki   *service.WikipediaService
	log    logging.Logger
}

func NewSearchHandler(search *service.SearchService, wiki *service.WikipediaService, log logging.Logger) *SearchHandler {
	return &SearchHandler{search: search, wiki: wiki, log: log}
}

func (h *SearchHandler) HandleLookup(c *gin.Context) {
	var req types.LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: false, Message: "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	switch req.Source {
	case "web":
		if h.search == nil {
			c.JSON(http.StatusNotImplemented, types.DataResponse{Status: false, Message: "Web search is not configured"})
			return
		}
		results, err := h.search.Search(ctx, req.Query)
		if err != nil {
			h.log.Error(ctx, "web search failed", "error", err)
			c.JSON(http.StatusBadGateway, types.DataResponse{Status: false, Message: "Search failed"})
			return
		}
		c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: results})
	case "wikipedia":
		if h.wiki == nil {
			c.JSON(http.StatusNotImplemented, types.DataResponse{Status: false, Message: "Encyclopedia lookup is not configured"})
			return
		}
		summary, err := h.wiki.Summary(ctx, req.Query)
		if errors.Is(err, service.ErrArticleNotFound) {
			c.JSON(http.StatusNotFound, types.DataResponse{Status: false, Message: "No article found"})
			return
		}
		if err != nil {
			h.log.Error(ctx, "wikipedia lookup failed", "error", err)
			c.JSON(http.StatusBadGateway, types.DataResponse{Status: false, Message: "Lookup failed"})
			return
		}
		c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: summary})
	}
}
