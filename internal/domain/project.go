package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Project statuses. Only funding accepts reservations and investments.
const (
	ProjectDraft      = "draft"
	ProjectFunding    = "funding"
	ProjectFunded     = "funded"
	ProjectInProgress = "in_progress"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

// DefaultMinimumInvestment applies when a project is created without one.
var DefaultMinimumInvestment = decimal.NewFromInt(1_000_000)

// Project is a fundable real-estate project. CurrentAmount is the raised total
// and is only incremented by payment approval.
type Project struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title             string          `gorm:"column:title;not null" json:"title"`
	Slug              string          `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description       string          `gorm:"column:description" json:"description"`
	ShortDescription  string          `gorm:"column:short_description" json:"short_description"`
	Location          string          `gorm:"column:location" json:"location"`
	Address           string          `gorm:"column:address" json:"address"`
	TargetAmount      decimal.Decimal `gorm:"column:target_amount;type:numeric(14,2);not null" json:"target_amount"`
	MinimumInvestment decimal.Decimal `gorm:"column:minimum_investment;type:numeric(14,2);not null" json:"minimum_investment"`
	CurrentAmount     decimal.Decimal `gorm:"column:current_amount;type:numeric(14,2);not null;default:0" json:"current_amount"`
	AnnualReturnRate  decimal.Decimal `gorm:"column:annual_return_rate;type:numeric(5,2);not null" json:"annual_return_rate"`
	DurationMonths    int             `gorm:"column:duration_months;not null" json:"duration_months"`
	FundingStartDate  *time.Time      `gorm:"column:funding_start_date" json:"funding_start_date"`
	FundingEndDate    *time.Time      `gorm:"column:funding_end_date" json:"funding_end_date"`
	ProjectStartDate  *time.Time      `gorm:"column:project_start_date" json:"project_start_date"`
	ProjectEndDate    *time.Time      `gorm:"column:project_end_date" json:"project_end_date"`
	Status            string          `gorm:"column:status;not null;default:draft;index" json:"status"`
	MainImageURL      string          `gorm:"column:main_image_url" json:"main_image_url"`
	IsFeatured        bool            `gorm:"column:is_featured;not null;default:false" json:"is_featured"`
	CreatedByID       *uuid.UUID      `gorm:"column:created_by_id;type:uuid" json:"created_by_id"`
	Images            []ProjectImage  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsFundable reports whether new money may be committed to the project.
func (p *Project) IsFundable() bool {
	return p.Status == ProjectFunding
}

// FundingProgress is the raised share of the target, in percent.
func (p *Project) FundingProgress() decimal.Decimal {
	if p.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return p.CurrentAmount.Div(p.TargetAmount).Mul(decimal.NewFromInt(100)).RoundBank(2)
}

// ProjectImage is an extra gallery image owned by a project.
type ProjectImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"column:project_id;type:uuid;not null;index" json:"project_id"`
	ImageURL  string    `gorm:"column:image_url;not null" json:"image_url"`
	Caption   string    `gorm:"column:caption" json:"caption"`
	Order     int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProjectImage) TableName() string {
	return "project_images"
}

func (i *ProjectImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
