package recovery

import (
	"net/http"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/reset"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type passwordBody struct {
	Password string `json:"password"`
}

func clearMarker(c *gin.Context, d *internal.Deps) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(markerCookie, "", -1, "/api/reset", "", d.SecureCookies, true)
}

// ResetPassword sets a new password for the account named by the
// reset_token cookie.
func ResetPassword(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	// The marker decides the outcome before the body does, so an unreadable
	// body counts as an empty password
	var data passwordBody
	if err := c.ShouldBind(&data); err != nil {
		zap.L().Debug("Unreadable password body", zap.Error(err), zap.String("requestID", requestID))
		data.Password = ""
	}

	// A missing cookie is the same as an invalid marker
	marker, _ := c.Cookie(markerCookie)

	res, err := d.Reset.ResetPassword(c.Request.Context(), marker, data.Password)
	if err != nil {
		if reset.KindOf(err) == reset.KindUnauthorized {
			clearMarker(c, d)
		}

		fail(c, err, reset.StepChange)
		return
	}

	clearMarker(c, d)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Password updated. You can log in now",
		"email":     res.Email,
		"next":      reset.StepLogin,
		"requestID": requestID,
	})
}
