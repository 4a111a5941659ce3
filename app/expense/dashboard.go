package expense

import (
	"net/http"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dashboard returns the expenses with this year's and this month's totals.
// A database failure still renders, just empty.
func Dashboard(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	ctx := c.Request.Context()

	rows, err := service.ListExpenses(ctx, d.DB, userID)
	if err != nil {
		zap.L().Error("Failed to load dashboard expenses", zap.Error(err), zap.String("requestID", requestID))
		rows = []model.Expense{}
	}

	totals, err := service.PeriodTotals(ctx, d.DB, userID, d.Now())
	if err != nil {
		zap.L().Error("Failed to load dashboard totals", zap.Error(err), zap.String("requestID", requestID))
		totals = &service.Totals{Year: decimal.Zero, Month: decimal.Zero}
	}

	c.JSON(http.StatusOK, gin.H{
		"expenses": rows,
		"totals": gin.H{
			"year":  totals.Year.StringFixed(2),
			"month": totals.Month.StringFixed(2),
		},
	})
}
