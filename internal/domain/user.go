package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleInvestor  = "investor"
	RoleExecutive = "executive"
	RoleAdmin     = "admin"
)

// User is an account on the platform. Investors register themselves; executives
// and admins are created by an admin.
type User struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email               string     `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Fullname            string     `gorm:"column:fullname;not null" json:"fullname"`
	Phone               string     `gorm:"column:phone" json:"phone"`
	PasswordHash        string     `gorm:"column:password_hash;not null" json:"-"`
	Role                string     `gorm:"column:role;not null;default:investor" json:"role"`
	IsKYCVerified       bool       `gorm:"column:is_kyc_verified;not null;default:false" json:"is_kyc_verified"`
	IsActive            bool       `gorm:"column:is_active;not null" json:"is_active"`
	AssignedExecutiveID *uuid.UUID `gorm:"column:assigned_executive_id;type:uuid" json:"assigned_executive_id"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsStaff is true for executives and admins.
func (u *User) IsStaff() bool {
	return u.Role == RoleExecutive || u.Role == RoleAdmin
}
