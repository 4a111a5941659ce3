package expense

import (
	"bytes"
	"context"
	"net/http"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExpenseExport downloads every expense as a CSV or PDF statement and
// archives a copy when storage is configured.
func ExpenseExport(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)
	ctx := c.Request.Context()

	format := c.DefaultQuery("format", "pdf")
	if format != "pdf" && format != "csv" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Format must be csv or pdf",
			"requestID": requestID,
		})
		return
	}

	var user model.User
	if err := d.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	rows, err := service.ListExpenses(ctx, d.DB, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list expenses", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	now := d.Now()

	var (
		buf         bytes.Buffer
		contentType string
		filename    string
	)

	if format == "csv" {
		err = service.WriteCSV(&buf, rows)
		contentType = "text/csv; charset=utf-8"
		filename = "expenses.csv"
	} else {
		err = service.WritePDF(&buf, rows, user.Email, now)
		contentType = "application/pdf"
		filename = "expense_statement.pdf"
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to render statement", zap.Error(err), zap.String("format", format), zap.String("requestID", requestID))
		return
	}

	service.ArchiveStatement(context.WithoutCancel(ctx), d.Archive, userID, format, buf.Bytes(), now)

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
