package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reservation statuses. Only pending is non-terminal.
const (
	ReservationPending   = "pending"
	ReservationConverted = "converted"
	ReservationExpired   = "expired"
	ReservationCancelled = "cancelled"
)

// Reservation is an anonymous, time-boxed funding hold. AccessToken is the only
// key an unauthenticated caller can use and never changes after creation.
type Reservation struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email                 string          `gorm:"column:email;not null;index" json:"email"`
	Name                  string          `gorm:"column:name" json:"name"`
	Phone                 string          `gorm:"column:phone" json:"phone"`
	ProjectID             uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Project               *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Amount                decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Status                string          `gorm:"column:status;not null;default:pending;index" json:"status"`
	AccessToken           string          `gorm:"<-:create;column:access_token;not null;uniqueIndex" json:"access_token"`
	ExpiresAt             time.Time       `gorm:"column:expires_at;not null;index" json:"expires_at"`
	ConvertedUserID       *uuid.UUID      `gorm:"column:converted_user_id;type:uuid" json:"converted_user_id"`
	ConvertedInvestmentID *uuid.UUID      `gorm:"column:converted_investment_id;type:uuid" json:"converted_investment_id"`
	LeadID                *uuid.UUID      `gorm:"column:lead_id;type:uuid" json:"lead_id"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsExpiredAt reports whether the hold has lapsed at now.
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
