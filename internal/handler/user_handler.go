package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
	"linkfeed.io/backend/pkg/validator"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// GetProfile handles GET /api/profiles/:username
func (h *UserHandler) GetProfile(c *gin.Context) {
	viewerID := response.OptionalUserID(c)

	profile, err := h.service.GetProfile(c.Request.Context(), c.Param("username"), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"profile": profile})
}

// CurrentUser handles GET /api/user
func (h *UserHandler) CurrentUser(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"user": user})
}

// UpdateProfile handles PUT /api/user. The request is multipart when an
// avatar accompanies the profile fields, plain JSON otherwise.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var input service.UpdateProfileInput
	var avatar *service.ImageFile

	if c.ContentType() == "multipart/form-data" {
		if err := c.ShouldBind(&input); err != nil {
			response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
			return
		}
		if fileHeader, err := c.FormFile("avatar"); err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				response.ErrorWithStatus(c, http.StatusBadRequest, "could not read avatar upload")
				return
			}
			defer file.Close()
			avatar = &service.ImageFile{Reader: file, FileName: fileHeader.Filename}
		}
	} else if err := c.ShouldBindJSON(&input); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, input, avatar)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user}, "profile updated successfully")
}

// Follow handles POST /api/users/:id/follow
func (h *UserHandler) Follow(c *gin.Context) {
	followerID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Follow(c.Request.Context(), followerID, targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "user followed successfully")
}

// Unfollow handles DELETE /api/users/:id/follow
func (h *UserHandler) Unfollow(c *gin.Context) {
	followerID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	targetID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Unfollow(c.Request.Context(), followerID, targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "user unfollowed successfully")
}

// Followers handles GET /api/users/:id/followers
func (h *UserHandler) Followers(c *gin.Context) {
	userID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, offset := pageParams(c)

	list, err := h.service.Followers(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, list)
}

// DeleteUser handles DELETE /api/admin/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.DeleteUser(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, nil, "user deleted successfully")
}

// Following handles GET /api/users/:id/following
func (h *UserHandler) Following(c *gin.Context) {
	userID, err := uuidParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, offset := pageParams(c)

	list, err := h.service.Following(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, list)
}
