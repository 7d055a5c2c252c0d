// Package testdb opens migrated in-memory databases and seeds fixtures for
// service and handler tests.
package testdb

import (
	"testing"
	"time"

	"somosrentable-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain password of every seeded account.
const Password = "Secreta123!"

// Open returns a fresh in-memory database with every model migrated.
// One connection only: each sqlite :memory: connection is its own database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(domain.All()...))
	return db
}

// User inserts an active account with the given role.
func User(t *testing.T, db *gorm.DB, email, role string, mutate ...func(*domain.User)) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &domain.User{
		Email:        email,
		Fullname:     "Test " + role,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Executive inserts an active executive created at the given time, which
// decides round-robin tie breaks.
func Executive(t *testing.T, db *gorm.DB, email string, createdAt time.Time) *domain.User {
	t.Helper()
	return User(t, db, email, domain.RoleExecutive, func(u *domain.User) { u.CreatedAt = createdAt })
}

// Investor inserts an investor, verified or not.
func Investor(t *testing.T, db *gorm.DB, email string, verified bool) *domain.User {
	t.Helper()
	return User(t, db, email, domain.RoleInvestor, func(u *domain.User) { u.IsKYCVerified = verified })
}

// Project inserts a project with a 1,000,000 minimum, 12% over 12 months.
func Project(t *testing.T, db *gorm.DB, slug, status string) *domain.Project {
	t.Helper()
	p := &domain.Project{
		Title:             "Proyecto " + slug,
		Slug:              slug,
		TargetAmount:      decimal.NewFromInt(100_000_000),
		MinimumInvestment: decimal.NewFromInt(1_000_000),
		CurrentAmount:     decimal.Zero,
		AnnualReturnRate:  decimal.NewFromInt(12),
		DurationMonths:    12,
		Status:            status,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
