package recovery

import (
	"net/http"
	"strings"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/reset"

	"github.com/gin-gonic/gin"
)

type verifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResetVerify checks a code and hands out the reset_token cookie that
// unlocks ResetPassword.
func ResetVerify(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBind(&data); err != nil {
		badBody(c, err, reset.StepVerify)
		return
	}

	res, err := d.Reset.Verify(c.Request.Context(), data.Email, strings.TrimSpace(data.Code))
	if err != nil {
		fail(c, err, reset.StepVerify)
		return
	}

	maxAge := max(int(res.ExpiresAt.Sub(d.Now()).Seconds()), 1)

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(markerCookie, res.Marker, maxAge, "/api/reset", "", d.SecureCookies, true)

	c.JSON(http.StatusOK, gin.H{
		"message":   "Code verified. Choose a new password",
		"email":     res.Email,
		"expiresAt": res.ExpiresAt,
		"next":      reset.StepChange,
		"requestID": requestID,
	})
}
