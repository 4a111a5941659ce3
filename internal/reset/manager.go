// Package reset implements the forgotten-password flow: a six digit code is
// emailed to the user, verifying it yields a single-use marker and the marker
// unlocks exactly one password change.
//
//	NO_REQUEST --RequestReset--> CODE_ISSUED --Verify--> VERIFIED --ResetPassword--> NO_REQUEST
package reset

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/pkg/validators"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	codeDigits = "0123456789"
	codeLength = 6

	DefaultCodeTTL = 10 * time.Minute
)

// Notifier delivers a reset code to its owner. It reports failure as false
// and never aborts the reset flow.
type Notifier interface {
	Send(ctx context.Context, email, code string) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, email, code string) bool

func (f NotifierFunc) Send(ctx context.Context, email, code string) bool {
	return f(ctx, email, code)
}

type Hasher interface {
	GenerateFromPassword(p string) (string, error)
}

type Options struct {
	// CodeTTL is how long an issued code can be verified. Defaults to 10 minutes.
	CodeTTL time.Duration

	// LogUndeliveredCodes writes codes that couldn't be delivered to the log so
	// an operator can pass them on.
	LogUndeliveredCodes bool

	// Now and Generate replace the clock and the code source, mostly in tests.
	Now      func() time.Time
	Generate func() (string, error)
}

type Manager struct {
	store    Store
	notifier Notifier
	hasher   Hasher
	markers  *Markers

	codeTTL        time.Duration
	logUndelivered bool
	now            func() time.Time
	generate       func() (string, error)
}

type IssueResult struct {
	Email     string
	ExpiresAt time.Time
	Delivered bool
}

type VerifyResult struct {
	Email     string
	Marker    string
	ExpiresAt time.Time
}

type ChangeResult struct {
	Email string
}

func New(store Store, notifier Notifier, hasher Hasher, markers *Markers, o Options) *Manager {
	m := &Manager{
		store:          store,
		notifier:       notifier,
		hasher:         hasher,
		markers:        markers,
		codeTTL:        o.CodeTTL,
		logUndelivered: o.LogUndeliveredCodes,
		now:            o.Now,
		generate:       o.Generate,
	}

	if m.codeTTL <= 0 {
		m.codeTTL = DefaultCodeTTL
	}

	if m.now == nil {
		m.now = time.Now
	}

	if m.generate == nil {
		m.generate = GenerateCode
	}

	// Markers judge expiry on the same clock as codes
	markers.now = m.now

	return m
}

// GenerateCode returns six digits drawn uniformly from crypto/rand.
func GenerateCode() (string, error) {
	return gonanoid.Generate(codeDigits, codeLength)
}

// NormalizeEmail lowercases and trims an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestReset issues a new code for email, superseding any earlier one, and
// hands it to the notifier. A failed delivery is reported in the result, not
// as an error.
func (m *Manager) RequestReset(ctx context.Context, email string) (*IssueResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	code, err := m.generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reset code, %w", err)
	}

	now := m.now().UTC()
	rec := &model.ResetCode{
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(m.codeTTL),
		CreatedAt: now,
	}

	if err := m.store.ReplaceCode(ctx, rec); err != nil {
		return nil, err
	}

	delivered := m.notifier.Send(ctx, email, code)
	if !delivered {
		fields := []zap.Field{zap.String("email", email)}
		if m.logUndelivered {
			fields = append(fields, zap.String("code", code))
		}

		zap.L().Warn("Reset code could not be delivered", fields...)
	}

	return &IssueResult{
		Email:     email,
		ExpiresAt: rec.ExpiresAt,
		Delivered: delivered,
	}, nil
}

// Verify checks code against the newest code issued for email. On success it
// returns a marker that authorises one call to ResetPassword.
func (m *Manager) Verify(ctx context.Context, email, code string) (*VerifyResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}

	if code == "" {
		return nil, ErrCodeRequired
	}

	rec, err := m.store.LatestCode(ctx, email)
	if err != nil {
		return nil, err
	}

	// Expired rows stay put, the next request replaces them
	if !rec.IsActive(m.now()) {
		return nil, ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(rec.Code)) != 1 {
		return nil, ErrCodeMismatch
	}

	marker, expiresAt, err := m.markers.Issue(ctx, email)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		Email:     email,
		Marker:    marker,
		ExpiresAt: expiresAt,
	}, nil
}

// ResetPassword replaces the password of the account the marker was issued
// for and deletes its codes. The marker is checked before anything else and
// consumed right before the change, so it unlocks exactly one change even
// under concurrent use. A rejected password leaves it usable for another
// attempt.
func (m *Manager) ResetPassword(ctx context.Context, marker, newPassword string) (*ChangeResult, error) {
	email, err := m.markers.Check(ctx, marker)
	if err != nil {
		return nil, err
	}

	if utf8.RuneCountInString(newPassword) < validators.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := m.store.FindUser(ctx, email); err != nil {
		return nil, err
	}

	hash, err := m.hasher.GenerateFromPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	claim, err := m.markers.Consume(ctx, marker)
	if err != nil {
		return nil, err
	}

	if err := m.store.SetPassword(ctx, claim.Email, hash); err != nil {
		if rerr := m.markers.Restore(ctx, claim); rerr != nil {
			zap.L().Error("Failed to restore reset marker", zap.Error(rerr), zap.String("email", claim.Email))
		}

		return nil, err
	}

	return &ChangeResult{Email: claim.Email}, nil
}
