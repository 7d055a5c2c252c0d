package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KYC submission statuses.
const (
	KYCPending  = "pending"
	KYCApproved = "approved"
	KYCRejected = "rejected"
)

// KYCSubmission is one identity-check attempt. A user has at most one pending
// submission; approval flips the user's verified flag.
type KYCSubmission struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	FullName        string     `gorm:"column:full_name;not null" json:"full_name"`
	DocumentNumber  string     `gorm:"column:document_number;not null" json:"document_number"`
	DocumentImage   string     `gorm:"column:document_image;not null" json:"document_image"`
	Status          string     `gorm:"column:status;not null;default:pending;index" json:"status"`
	RejectionReason string     `gorm:"column:rejection_reason" json:"rejection_reason"`
	ReviewedByID    *uuid.UUID `gorm:"column:reviewed_by_id;type:uuid" json:"reviewed_by_id"`
	ReviewedAt      *time.Time `gorm:"column:reviewed_at" json:"reviewed_at"`
	AutoProcessed   bool       `gorm:"column:auto_processed;not null;default:false" json:"auto_processed"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (KYCSubmission) TableName() string {
	return "kyc_submissions"
}

func (k *KYCSubmission) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
