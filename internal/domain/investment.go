package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Investment statuses.
const (
	InvestmentPendingPayment = "pending_payment"
	InvestmentPaymentReview  = "payment_review"
	InvestmentActive         = "active"
	InvestmentCompleted      = "completed"
	InvestmentCancelled      = "cancelled"
)

// Investment is a capital commitment. The rate and duration snapshots and the
// expected return are written once at creation and never updated.
type Investment struct {
	ID                       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID                   uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	ProjectID                uuid.UUID       `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	Project                  *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Amount                   decimal.Decimal `gorm:"<-:create;column:amount;type:numeric(14,2);not null" json:"amount"`
	Status                   string          `gorm:"column:status;not null;default:pending_payment;index" json:"status"`
	AnnualReturnRateSnapshot decimal.Decimal `gorm:"<-:create;column:annual_return_rate_snapshot;type:numeric(5,2);not null" json:"annual_return_rate_snapshot"`
	DurationMonthsSnapshot   int             `gorm:"<-:create;column:duration_months_snapshot;not null" json:"duration_months_snapshot"`
	ActivatedAt              *time.Time      `gorm:"column:activated_at" json:"activated_at"`
	ExpectedEndDate          *time.Time      `gorm:"column:expected_end_date" json:"expected_end_date"`
	ActualEndDate            *time.Time      `gorm:"column:actual_end_date" json:"actual_end_date"`
	ExpectedReturn           decimal.Decimal `gorm:"<-:create;column:expected_return;type:numeric(14,2);not null" json:"expected_return"`
	ActualReturn             decimal.Decimal `gorm:"column:actual_return;type:numeric(14,2);not null;default:0" json:"actual_return"`
	Notes                    string          `gorm:"column:notes" json:"notes"`
	PaymentProofs            []PaymentProof  `gorm:"foreignKey:InvestmentID;constraint:OnDelete:CASCADE" json:"payment_proofs,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

func (Investment) TableName() string {
	return "investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AcceptsProof reports whether a payment proof may be uploaded.
func (i *Investment) AcceptsProof() bool {
	return i.Status == InvestmentPendingPayment || i.Status == InvestmentPaymentReview
}

// Payment proof statuses.
const (
	ProofPending  = "pending"
	ProofApproved = "approved"
	ProofRejected = "rejected"
)

// PaymentProof is a manually reviewed receipt attached to one investment.
type PaymentProof struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	InvestmentID         uuid.UUID       `gorm:"column:investment_id;type:uuid;not null;index" json:"investment_id"`
	Investment           *Investment     `gorm:"foreignKey:InvestmentID" json:"investment,omitempty"`
	ProofImage           string          `gorm:"column:proof_image;not null" json:"proof_image"`
	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	BankName             string          `gorm:"column:bank_name" json:"bank_name"`
	TransactionReference string          `gorm:"column:transaction_reference" json:"transaction_reference"`
	TransactionDate      *time.Time      `gorm:"column:transaction_date" json:"transaction_date"`
	Status               string          `gorm:"column:status;not null;default:pending;index" json:"status"`
	ReviewedByID         *uuid.UUID      `gorm:"column:reviewed_by_id;type:uuid" json:"reviewed_by_id"`
	ReviewedAt           *time.Time      `gorm:"column:reviewed_at" json:"reviewed_at"`
	RejectionReason      string          `gorm:"column:rejection_reason" json:"rejection_reason"`
	Notes                string          `gorm:"column:notes" json:"notes"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (PaymentProof) TableName() string {
	return "payment_proofs"
}

func (p *PaymentProof) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
