package auth

import (
	"context"
	"errors"
	"strings"

	"somosrentable-backend/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserFinder interface {
	FindByEmailAndPassword(ctx context.Context, email, password string) (*domain.User, error)
}

// decoyHash is compared against when the email is unknown, so both failure
// paths spend one bcrypt round.
var decoyHash, _ = bcrypt.GenerateFromPassword([]byte("somosrentable-decoy"), bcrypt.DefaultCost)

// GormUserFinder checks credentials against the users table.
type GormUserFinder struct{ DB *gorm.DB }

// FindByEmailAndPassword looks the email up case-insensitively. The password
// is checked before the active flag so a disabled account only reveals itself
// to someone who knows its password.
func (g *GormUserFinder) FindByEmailAndPassword(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrEmailPasswordRequired
	}

	var u domain.User
	err := g.DB.WithContext(ctx).Where("LOWER(email) = ?", email).Take(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(password))
		return nil, ErrInvalidEmail
	case err != nil:
		return nil, err
	case u.PasswordHash == "":
		return nil, ErrInvalidEmail
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrIncorrectPassword
	}
	if !u.IsActive {
		return nil, ErrInactiveAccount
	}
	return &u, nil
}
