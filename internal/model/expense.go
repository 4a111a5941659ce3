package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      string          `gorm:"index;not null" json:"-"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Category    string          `gorm:"size:100" json:"category"`
	Currency    string          `gorm:"size:10" json:"currency"`
	Country     string          `gorm:"size:100" json:"country"`
	Description string          `json:"description"`
	Date        time.Time       `gorm:"type:date;index" json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}
