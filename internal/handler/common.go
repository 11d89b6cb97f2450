package handler

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "event-ticket-ledger/pkg/app_errors"
	"event-ticket-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"code":  apperrors.Code(apperrors.ErrInvalidInput),
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
			"code":  apperrors.Code(apperrors.ErrInvalidInput),
		})
		return err
	}
	return nil
}

// ParamID 讀取路徑上的數字 ID，格式錯誤時直接回 400
func ParamID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
			"code":  apperrors.Code(apperrors.ErrInvalidInput),
		})
		return 0, false
	}
	return id, true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrPaymentMismatch):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrSoldOut),
		errors.Is(err, apperrors.ErrInsufficientBalance),
		errors.Is(err, apperrors.ErrBidTooLow),
		errors.Is(err, apperrors.ErrExpired),
		errors.Is(err, apperrors.ErrNotYetEnded),
		errors.Is(err, apperrors.ErrClosed),
		errors.Is(err, apperrors.ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("Unexpected error")
		c.JSON(status, gin.H{
			"error": "Internal server error",
			"code":  apperrors.Code(err),
		})
		return
	}

	log.Warn("Request rejected", zap.Int("status", status))
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  apperrors.Code(err),
	})
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
