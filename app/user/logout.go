package user

import (
	"net/http"

	"spendlog/expense-api/internal"

	"github.com/gin-gonic/gin"
)

func UserLogout(c *gin.Context, d *internal.Deps) {
	c.SetCookie("auth_token", "", -1, "/", "", d.SecureCookies, true)
	c.SetCookie("logged_in", "", -1, "/", "", d.SecureCookies, false)
	c.SetCookie("user_id", "", -1, "/", "", d.SecureCookies, false)

	c.Status(http.StatusNoContent)
}
