package response

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkfeed.io/backend/pkg/apperror"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// OptionalUserID is like GetUserID but returns uuid.Nil without error when the
// request is unauthenticated.
func OptionalUserID(c *gin.Context) uuid.UUID {
	id, err := GetUserID(c)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// Success writes the standard success envelope
func Success(c *gin.Context, code int, data any, message string) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

func OK(c *gin.Context, data any) {
	Success(c, http.StatusOK, data, "")
}

func Created(c *gin.Context, data any, message string) {
	Success(c, http.StatusCreated, data, message)
}

// Error standardized error response
func Error(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	// Log internal errors
	if code == http.StatusInternalServerError {
		log.Printf("[Internal Error]: %v", err)
	}

	c.JSON(code, gin.H{"success": false, "error": err.Error()})
}

// ErrorWithStatus replies with an explicit status, bypassing the error mapping
func ErrorWithStatus(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"success": false, "error": message})
}
