package expense

import (
	"net/http"
	"strconv"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ExpenseDelete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid expense ID",
			"requestID": requestID,
		})
		return
	}

	r := d.DB.
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Expense{})
	if r.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete expense", zap.Error(r.Error), zap.String("requestID", requestID))
		return
	}

	if r.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Expense not found. It either doesn't exist or you don't own it",
			"requestID": requestID,
		})
		return
	}

	c.Status(http.StatusNoContent)
}
