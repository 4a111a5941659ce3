// Package expense contains the endpoints for logging and reporting expenses
package expense

import (
	"net/http"

	"spendlog/expense-api/internal/catalog"

	"github.com/gin-gonic/gin"
)

// ExpenseOptions lists the countries and categories an expense can use.
func ExpenseOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"countries":       catalog.Countries(),
		"categories":      catalog.Categories(),
		"defaultCountry":  catalog.DefaultCountry,
		"defaultCurrency": catalog.DefaultCurrency,
	})
}
