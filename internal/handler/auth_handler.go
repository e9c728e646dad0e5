package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkfeed.io/backend/internal/service"
	"linkfeed.io/backend/pkg/response"
	"linkfeed.io/backend/pkg/validator"
)

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register handles POST /api/users
func (h *AuthHandler) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	result, err := h.service.Register(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result, "user registered successfully")
}

// Login handles POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, validator.FormatValidationError(err))
		return
	}

	result, err := h.service.Login(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
