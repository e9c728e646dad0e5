package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkfeed.io/backend/pkg/apperror"
	"linkfeed.io/backend/pkg/pagination"
)

func pageParams(c *gin.Context) (limit, offset int) {
	limit = pagination.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			offset = v
		}
	}
	return pagination.Clamp(limit, offset)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.New(400, "invalid "+name, apperror.ErrBadRequest)
	}
	return id, nil
}
