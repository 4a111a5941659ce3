package service

import (
	"context"
	"fmt"
	"time"

	"spendlog/expense-api/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListExpenses returns every expense of userID, newest first.
func ListExpenses(ctx context.Context, db *gorm.DB, userID string) ([]model.Expense, error) {
	var rows []model.Expense

	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date desc").
		Order("id desc").
		Find(&rows).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses, %w", err)
	}

	return rows, nil
}

// SumBetween adds up the amounts of userID's expenses dated in [from, to).
func SumBetween(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal

	err := db.WithContext(ctx).
		Model(&model.Expense{}).
		Select("SUM(amount)").
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses, %w", err)
	}

	if !sum.Valid {
		return decimal.Zero, nil
	}

	return sum.Decimal.Round(2), nil
}

type Totals struct {
	Year  decimal.Decimal `json:"year"`
	Month decimal.Decimal `json:"month"`
}

// PeriodTotals returns the sums for the calendar year and month containing now.
func PeriodTotals(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*Totals, error) {
	now = now.UTC()
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	year, err := SumBetween(ctx, db, userID, yearStart, yearStart.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}

	month, err := SumBetween(ctx, db, userID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}

	return &Totals{Year: year, Month: month}, nil
}
