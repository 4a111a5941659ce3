// Package recovery contains the forgotten password endpoints. Every response
// tells the client which step of the flow to show next.
package recovery

import (
	"net/http"

	"spendlog/expense-api/internal/reset"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const markerCookie = "reset_token"

func statusOf(err error) int {
	switch reset.KindOf(err) {
	case reset.KindValidation, reset.KindMismatch:
		return http.StatusBadRequest
	case reset.KindNotFound:
		return http.StatusNotFound
	case reset.KindExpired:
		return http.StatusGone
	case reset.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON. Infrastructure errors are logged and hidden,
// the client stays on current and can retry.
func fail(c *gin.Context, err error, current reset.Step) {
	requestID := c.MustGet("requestID").(string)
	status := statusOf(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
		zap.L().Error("Password reset failed", zap.Error(err), zap.String("step", string(current)), zap.String("requestID", requestID))
	} else {
		zap.L().Debug("Password reset rejected", zap.Error(err), zap.String("step", string(current)), zap.String("requestID", requestID))
	}

	c.JSON(status, gin.H{
		"error":     msg,
		"next":      reset.NextStep(err, current),
		"requestID": requestID,
	})
}

func badBody(c *gin.Context, err error, current reset.Step) {
	requestID := c.MustGet("requestID").(string)

	c.JSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request body",
		"next":      current,
		"requestID": requestID,
	})

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
}
