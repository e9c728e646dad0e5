package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
	"linkfeed.io/backend/pkg/validator"
)

type PostHandler struct {
	service service.PostService
}

func NewPostHandler(service service.PostService) *PostHandler {
	return &PostHandler{service: service}
}

// Create handles POST /api/posts. Multipart requests may carry an image file
// next to the content field.
func (h *PostHandler) Create(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input service.CreatePostInput
	var image *service.ImageFile

	if c.ContentType() == "multipart/form-data" {
		if err := c.ShouldBind(&input); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
			return
		}
		if fileHeader, err := c.FormFile("image"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				response.ErrorWithStatus(c, http.StatusBadRequest, "could not read image upload")
				return
			}
			defer file.Close()
			image = &service.ImageFile{Reader: file, FileName: fileHeader.Filename}
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	post, err := h.service.Create(c.Request.Context(), userID, input, image)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"post": post}, "post created successfully")
}

// List handles GET /api/posts with optional ?author=<username>
func (h *PostHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	viewerID := response.OptionalUserID(c)

	list, err := h.service.List(c.Request.Context(), c.Query("author"), viewerID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, list)
}

// Get handles GET /api/posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	postID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	viewerID := response.OptionalUserID(c)

	post, err := h.service.Get(c.Request.Context(), postID, viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"post": post})
}

// Update handles PUT /api/posts/:id
func (h *PostHandler) Update(c *gin.Context) {
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

	var input service.UpdatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	post, err := h.service.Update(c.Request.Context(), userID, postID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"post": post}, "post updated successfully")
}

// Delete handles DELETE /api/posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
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

	if err := h.service.Delete(c.Request.Context(), userID, postID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "post deleted successfully")
}

// Like handles POST /api/posts/:id/like
func (h *PostHandler) Like(c *gin.Context) {
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

	if err := h.service.Like(c.Request.Context(), userID, postID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "post liked successfully")
}

// Unlike handles DELETE /api/posts/:id/like
func (h *PostHandler) Unlike(c *gin.Context) {
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

	if err := h.service.Unlike(c.Request.Context(), userID, postID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "post unliked successfully")
}

// Feed handles GET /api/feed
func (h *PostHandler) Feed(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, offset := pageParams(c)

	list, err := h.service.Feed(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, list)
}
