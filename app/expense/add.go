package expense

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/catalog"
	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type addBody struct {
	Amount      json.Number `json:"amount" binding:"required"`
	Category    string      `json:"category" binding:"required,max=100"`
	Country     string      `json:"country" binding:"required,max=100"`
	Currency    string      `json:"currency" binding:"omitempty,max=10"`
	Date        string      `json:"date"`
	Description string      `json:"description" binding:"max=1000"`
}

func ExpenseAdd(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data addBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	amount, err := validators.AmountValidator(data.Amount.String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if !catalog.IsCategory(data.Category) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Unknown category",
			"requestID": requestID,
		})
		return
	}

	country, ok := catalog.LookupCountry(data.Country)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Unknown country",
			"requestID": requestID,
		})
		return
	}

	currency := strings.ToUpper(strings.TrimSpace(data.Currency))
	if currency == "" {
		currency = country.Currency
	}

	date := d.Now().UTC().Truncate(24 * time.Hour)
	if data.Date != "" {
		date, err = validators.DateValidator(data.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}
	}

	exp := model.Expense{
		UserID:      userID,
		Amount:      amount,
		Category:    data.Category,
		Currency:    currency,
		Country:     country.Name,
		Description: strings.TrimSpace(data.Description),
		Date:        date,
	}

	if err := d.DB.Create(&exp).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to add expense", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, exp)
}
