package expense

import (
	"net/http"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ExpenseList(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	rows, err := service.ListExpenses(c.Request.Context(), d.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list expenses", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"expenses": rows,
	})
}
