package recovery

import (
	"net/http"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/reset"

	"github.com/gin-gonic/gin"
)

type requestBody struct {
	Email string `json:"email"`
}

// ResetRequest emails a fresh code. It answers the same way whether or not
// the address belongs to an account.
func ResetRequest(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data requestBody
	if err := c.ShouldBind(&data); err != nil {
		badBody(c, err, reset.StepRequest)
		return
	}

	res, err := d.Reset.RequestReset(c.Request.Context(), data.Email)
	if err != nil {
		fail(c, err, reset.StepRequest)
		return
	}

	msg := "A reset code has been sent to your email"
	if !res.Delivered {
		msg = "The reset code couldn't be emailed. Contact support to receive it"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   msg,
		"email":     res.Email,
		"delivered": res.Delivered,
		"expiresAt": res.ExpiresAt,
		"next":      reset.StepVerify,
		"requestID": requestID,
	})
}
