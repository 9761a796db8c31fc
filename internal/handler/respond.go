package handler

import (
	"errors"
	"net/http"
	"strconv"

	"feedesk/internal/domain"
	"feedesk/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errInvalidID = domain.NewError(domain.KindValidation, "invalid id")

// respondError writes err as {"error": message} with the status of its kind.
// Unclassified errors are logged and reported as a generic server error.
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.FromGin(c).Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	c.JSON(statusFor(de.Kind), gin.H{"error": de.Message})
}

func statusFor(k domain.Kind) int {
	switch k {
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func paramID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
