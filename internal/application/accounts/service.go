package accounts

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/ledger"
	"somosrentable-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail     = apperr.Validation("Invalid email format")
	ErrInvalidPassword  = apperr.Validation("Password must have at least 8 characters, a letter, a number and a symbol")
	ErrPasswordMismatch = apperr.Validation("Passwords do not match")
	ErrFullnameRequired = apperr.Validation("Full name is required")
	ErrInvalidFullname  = apperr.Validation("Full name contains invalid characters")
	ErrEmailRegistered  = apperr.Validation("Email already registered")
	ErrInvalidRole      = apperr.Validation("Invalid role")
	ErrInvalidPhone     = apperr.Validation("Invalid phone number")
	ErrUserNotFound     = apperr.NotFound("User not found")
	ErrNotAnExecutive   = apperr.Validation("User is not an executive")

	ErrCannotDeactivateSelf = apperr.Authorization("You cannot deactivate your own account")
	ErrLastActiveAdmin      = apperr.Validation("At least one active admin is required")
)

// Service is the account store: creation, lookup and the verified flag reads.
type Service struct {
	DB *gorm.DB
}

// CreateInput is a new account request.
type CreateInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Fullname        string `json:"fullname"`
	Phone           string `json:"phone"`
}

// CreateTx validates and inserts an account with role inside tx.
func (s *Service) CreateTx(tx *gorm.DB, in CreateInput, role string) (*domain.User, error) {
	if role != domain.RoleInvestor && role != domain.RoleExecutive && role != domain.RoleAdmin {
		return nil, ErrInvalidRole
	}
	email := ledger.NormalizeAccountEmail(in.Email)
	if email == "" || !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidPassword
	}
	if in.Password != in.PasswordConfirm {
		return nil, ErrPasswordMismatch
	}
	trimmed := strings.TrimSpace(in.Fullname)
	if trimmed == "" {
		return nil, ErrFullnameRequired
	}
	if !validation.IsValidFullname(trimmed) {
		return nil, ErrInvalidFullname
	}
	phone, ok := validation.CleanPhone(in.Phone)
	if !ok {
		return nil, ErrInvalidPhone
	}

	var count int64
	if err := tx.Model(&domain.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailRegistered
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:        email,
		Fullname:     titleCaseAndNormalize(trimmed),
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	if err := tx.Create(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}

// CreateStaff creates an executive or admin account.
func (s *Service) CreateStaff(ctx context.Context, in CreateInput, role string) (*domain.User, error) {
	if role != domain.RoleExecutive && role != domain.RoleAdmin {
		return nil, ErrInvalidRole
	}
	var u *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		u, err = s.CreateTx(tx, in, role)
		return err
	})
	return u, err
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetExecutive returns an executive account by id.
func (s *Service) GetExecutive(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleExecutive {
		return nil, ErrNotAnExecutive
	}
	return u, nil
}

// ListExecutives returns the active executives ordered by name.
func (s *Service) ListExecutives(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	err := s.DB.WithContext(ctx).
		Where("role = ? AND is_active = ?", domain.RoleExecutive, true).
		Order("fullname ASC").Find(&out).Error
	return out, err
}

// SetActive enables or disables an account. Actors cannot disable themselves,
// and the last active admin cannot be disabled.
func (s *Service) SetActive(ctx context.Context, actorID, id uuid.UUID, active bool) (*domain.User, error) {
	if !active && actorID == id {
		return nil, ErrCannotDeactivateSelf
	}
	var out domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if !active && out.Role == domain.RoleAdmin && out.IsActive {
			var admins int64
			if err := tx.Model(&domain.User{}).Where("role = ? AND is_active = ?", domain.RoleAdmin, true).
				Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastActiveAdmin
			}
		}
		out.IsActive = active
		return tx.Model(&domain.User{}).Where("id = ?", id).Update("is_active", active).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
