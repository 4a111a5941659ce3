package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const markerPurpose = "password_reset"

type markerClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Markers issues and checks verified-for-reset markers: short-lived signed
// tokens proving the bearer verified a reset code for one email. Only the
// newest marker per email is honoured and it can be consumed once.
type Markers struct {
	secret []byte
	ttl    time.Duration
	store  MarkerStore
	now    func() time.Time
}

func NewMarkers(secret []byte, ttl time.Duration, store MarkerStore) *Markers {
	return &Markers{
		secret: secret,
		ttl:    ttl,
		store:  store,
		now:    time.Now,
	}
}

// Issue creates a marker for email, replacing any earlier one.
func (m *Markers) Issue(ctx context.Context, email string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	id := uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &markerClaims{
		Email:   email,
		Purpose: markerPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := t.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign reset marker, %w", err)
	}

	if err := m.store.Put(ctx, email, id, m.ttl); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to store reset marker, %w", err)
	}

	return signed, expiresAt, nil
}

// Claim is a marker that passed signature and expiry checks.
type Claim struct {
	Email     string
	ID        string
	ExpiresAt time.Time
}

func (m *Markers) parse(marker string) (*Claim, error) {
	if marker == "" {
		return nil, ErrNotVerified
	}

	var claims markerClaims

	_, err := jwt.ParseWithClaims(marker, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrNotVerified
	}

	if claims.Purpose != markerPurpose || claims.Email == "" || claims.ID == "" {
		return nil, ErrNotVerified
	}

	return &Claim{
		Email:     claims.Email,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Check returns the email a marker was issued for without using it up. Any
// marker that is malformed, expired, replaced or revoked yields ErrNotVerified.
func (m *Markers) Check(ctx context.Context, marker string) (string, error) {
	c, err := m.parse(marker)
	if err != nil {
		return "", err
	}

	id, err := m.store.Get(ctx, c.Email)
	if err != nil {
		if errors.Is(err, ErrMarkerNotFound) {
			return "", ErrNotVerified
		}

		return "", fmt.Errorf("failed to look up reset marker, %w", err)
	}

	if id != c.ID {
		return "", ErrNotVerified
	}

	return c.Email, nil
}

// Consume uses the marker up. Only one caller can consume a marker, the rest
// get ErrNotVerified.
func (m *Markers) Consume(ctx context.Context, marker string) (*Claim, error) {
	c, err := m.parse(marker)
	if err != nil {
		return nil, err
	}

	ok, err := m.store.Take(ctx, c.Email, c.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reset marker, %w", err)
	}

	if !ok {
		return nil, ErrNotVerified
	}

	return c, nil
}

// Restore makes a consumed marker usable again for the rest of its lifetime.
func (m *Markers) Restore(ctx context.Context, c *Claim) error {
	ttl := c.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}

	if err := m.store.Put(ctx, c.Email, c.ID, ttl); err != nil {
		return fmt.Errorf("failed to restore reset marker, %w", err)
	}

	return nil
}

// Revoke invalidates the active marker for email.
func (m *Markers) Revoke(ctx context.Context, email string) error {
	if err := m.store.Delete(ctx, email); err != nil {
		return fmt.Errorf("failed to revoke reset marker, %w", err)
	}

	return nil
}
