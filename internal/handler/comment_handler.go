package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
	"linkfeed.io/backend/pkg/validator"
)

type CommentHandler struct {
	service service.CommentService
}

func NewCommentHandler(service service.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

// List handles GET /api/posts/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	postID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, offset := pageParams(c)

	list, err := h.service.ListByPost(c.Request.Context(), postID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, list)
}

// Create handles POST /api/posts/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	postID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var input service.CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	comment, err := h.service.Create(c.Request.Context(), userID, postID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"comment": comment}, "comment created successfully")
}

// Delete handles DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	commentID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, commentID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "comment deleted successfully")
}
