package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
)

type SearchHandler struct {
	service service.SearchService
}

func NewSearchHandler(service service.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search handles GET /api/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "query parameter q is required")
		return
	}
	limit, offset := pageParams(c)

	results, err := h.service.Search(query, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, results)
}
