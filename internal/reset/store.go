package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendlog/expense-api/internal/model"

	"gorm.io/gorm"
)

// Store persists reset codes and the password hashes they unlock.
type Store interface {
	// ReplaceCode deletes every code for rec.Email and inserts rec, atomically.
	ReplaceCode(ctx context.Context, rec *model.ResetCode) error

	// LatestCode returns the newest code for email or ErrNoCode.
	LatestCode(ctx context.Context, email string) (*model.ResetCode, error)

	// FindUser returns the user registered with email or ErrNoUser.
	FindUser(ctx context.Context, email string) (*model.User, error)

	// SetPassword stores hash for email and deletes all of its codes,
	// atomically.
	SetPassword(ctx context.Context, email, hash string) error
}

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) ReplaceCode(ctx context.Context, rec *model.ResetCode) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", rec.Email).Delete(&model.ResetCode{}).Error; err != nil {
			return fmt.Errorf("failed to delete old reset codes, %w", err)
		}

		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to insert reset code, %w", err)
		}

		return nil
	})
}

func (s *GormStore) LatestCode(ctx context.Context, email string) (*model.ResetCode, error) {
	var rec model.ResetCode

	err := s.DB.WithContext(ctx).
		Where("email = ?", email).
		Order("id desc").
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoCode
		}

		return nil, fmt.Errorf("failed to fetch reset code, %w", err)
	}

	return &rec, nil
}

func (s *GormStore) FindUser(ctx context.Context, email string) (*model.User, error) {
	var user model.User

	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoUser
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return &user, nil
}

func (s *GormStore) SetPassword(ctx context.Context, email, hash string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := tx.Model(&model.User{}).
			Where("email = ?", email).
			Update("password_hash", hash)
		if r.Error != nil {
			return fmt.Errorf("failed to update password hash, %w", r.Error)
		}

		if r.RowsAffected == 0 {
			return ErrNoUser
		}

		if err := tx.Where("email = ?", email).Delete(&model.ResetCode{}).Error; err != nil {
			return fmt.Errorf("failed to delete reset codes, %w", err)
		}

		return nil
	})
}

// PurgeExpired deletes codes that expired before cutoff and returns how
// many were removed.
func (s *GormStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r := s.DB.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.ResetCode{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to purge expired reset codes, %w", r.Error)
	}

	return r.RowsAffected, nil
}
