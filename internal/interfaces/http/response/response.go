package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	domainerrors "nexart.backend/internal/domain/errors"
)

// Success sends a success response
func Success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// Error maps a domain error to its HTTP shape. Structured errors carry
// their numbers into the body; everything unrecognized collapses to 500
// without leaking internals.
func Error(c *gin.Context, err error) {
	var keyLimit *domainerrors.KeyLimitReachedError
	if errors.As(err, &keyLimit) {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "key_limit_reached",
			"message": keyLimit.Error(),
			"used":    keyLimit.Used,
			"max":     keyLimit.Max,
		})
		return
	}

	var quota *domainerrors.QuotaExceededError
	if errors.As(err, &quota) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"code":      "quota_exceeded",
			"message":   quota.Error(),
			"limit":     quota.Limit,
			"used":      quota.Used,
			"remaining": quota.Remaining,
		})
		return
	}

	var appErr *domainerrors.AppError
	if !errors.As(err, &appErr) {
		switch {
		case errors.Is(err, domainerrors.ErrNotFound):
			appErr = domainerrors.NotFound("resource not found")
		case errors.Is(err, domainerrors.ErrInvalidInput):
			appErr = domainerrors.BadRequest(err.Error())
		case errors.Is(err, domainerrors.ErrUnauthorized):
			appErr = domainerrors.Unauthorized("unauthorized")
		case errors.Is(err, domainerrors.ErrForbidden):
			appErr = domainerrors.Forbidden("forbidden")
		case errors.Is(err, domainerrors.ErrTransientStore):
			appErr = domainerrors.TransientStore(err)
		default:
			appErr = domainerrors.InternalError(err)
		}
	}
	message := appErr.Message
	if appErr.Code == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(appErr.Code, gin.H{
		"code":    codeLabel(appErr.Code),
		"message": message,
	})
}

func codeLabel(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "store_unavailable"
	default:
		return "internal_error"
	}
}
