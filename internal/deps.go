package internal

import (
	"time"

	"spendlog/expense-api/internal/reset"
	"spendlog/expense-api/internal/service"
	"spendlog/expense-api/pkg/security"

	"gorm.io/gorm"
)

// Deps is handed to every handler.
type Deps struct {
	DB     *gorm.DB
	Argon  *security.ArgonHash
	Reset  *reset.Manager
	Secret []byte

	// Archive is nil when no storage bucket is configured
	Archive service.Archiver

	// SecureCookies marks cookies Secure, set when serving over TLS
	SecureCookies bool
	AuthTTL       time.Duration
	Now           func() time.Time
}
