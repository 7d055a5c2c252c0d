package projects

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound = apperr.NotFound("Project not found")
	ErrTitleRequired   = apperr.Validation("Title is required")
	ErrInvalidTerms    = apperr.Validation("Target amount, rate and duration must be positive")
	ErrInvalidStatus   = apperr.Validation("Invalid project status")
	ErrSlugTaken       = apperr.Validation("Slug already in use")
	ErrInvalidAmount   = apperr.Validation("Amount must be greater than zero")
)

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

var statuses = []string{
	domain.ProjectDraft, domain.ProjectFunding, domain.ProjectFunded,
	domain.ProjectInProgress, domain.ProjectCompleted, domain.ProjectCancelled,
}

// Service is the project catalog. Terms edited here never touch existing
// investments, which carry their own snapshot.
type Service struct {
	DB *gorm.DB
}

// Input holds catalog fields. Nil pointers are left unchanged on update.
type Input struct {
	Title             *string          `json:"title"`
	Slug              *string          `json:"slug"`
	Description       *string          `json:"description"`
	ShortDescription  *string          `json:"short_description"`
	Location          *string          `json:"location"`
	Address           *string          `json:"address"`
	TargetAmount      *decimal.Decimal `json:"target_amount"`
	MinimumInvestment *decimal.Decimal `json:"minimum_investment"`
	AnnualReturnRate  *decimal.Decimal `json:"annual_return_rate"`
	DurationMonths    *int             `json:"duration_months"`
	FundingStartDate  *time.Time       `json:"funding_start_date"`
	FundingEndDate    *time.Time       `json:"funding_end_date"`
	Status            *string          `json:"status"`
	MainImageURL      *string          `json:"main_image_url"`
	IsFeatured        *bool            `json:"is_featured"`
}

// Create adds a project. Missing minimum investment defaults to 1,000,000.
func (s *Service) Create(ctx context.Context, createdBy uuid.UUID, in Input) (*domain.Project, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, ErrTitleRequired
	}
	if in.TargetAmount == nil || in.AnnualReturnRate == nil || in.DurationMonths == nil ||
		!in.TargetAmount.IsPositive() || !in.AnnualReturnRate.IsPositive() || *in.DurationMonths <= 0 {
		return nil, ErrInvalidTerms
	}
	p := &domain.Project{
		Title:             strings.TrimSpace(*in.Title),
		TargetAmount:      *in.TargetAmount,
		MinimumInvestment: domain.DefaultMinimumInvestment,
		CurrentAmount:     decimal.Zero,
		AnnualReturnRate:  *in.AnnualReturnRate,
		DurationMonths:    *in.DurationMonths,
		Status:            domain.ProjectDraft,
		CreatedByID:       &createdBy,
	}
	if in.Slug != nil && strings.TrimSpace(*in.Slug) != "" {
		p.Slug = Slugify(*in.Slug)
	} else {
		p.Slug = Slugify(p.Title)
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Project{}).Where("slug = ?", p.Slug).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrSlugTaken
		}
		return tx.Create(p).Error
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits catalog fields. The raised amount is not editable here.
func (s *Service) Update(ctx context.Context, slug string, in Input) (*domain.Project, error) {
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, ErrTitleRequired
		}
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.TargetAmount != nil {
		if !in.TargetAmount.IsPositive() {
			return nil, ErrInvalidTerms
		}
		p.TargetAmount = *in.TargetAmount
	}
	if in.AnnualReturnRate != nil {
		if !in.AnnualReturnRate.IsPositive() {
			return nil, ErrInvalidTerms
		}
		p.AnnualReturnRate = *in.AnnualReturnRate
	}
	if in.DurationMonths != nil {
		if *in.DurationMonths <= 0 {
			return nil, ErrInvalidTerms
		}
		p.DurationMonths = *in.DurationMonths
	}
	if err := apply(p, in); err != nil {
		return nil, err
	}
	// current_amount is only moved by payment approval.
	if err := s.DB.WithContext(ctx).Omit("current_amount", "created_by_id", "Images").Save(p).Error; err != nil {
		return nil, err
	}
	return s.GetBySlug(ctx, slug)
}

func apply(p *domain.Project, in Input) error {
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.ShortDescription != nil {
		p.ShortDescription = *in.ShortDescription
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if in.Address != nil {
		p.Address = *in.Address
	}
	if in.MinimumInvestment != nil {
		if !in.MinimumInvestment.IsPositive() {
			return ErrInvalidTerms
		}
		p.MinimumInvestment = *in.MinimumInvestment
	}
	if in.FundingStartDate != nil {
		p.FundingStartDate = in.FundingStartDate
	}
	if in.FundingEndDate != nil {
		p.FundingEndDate = in.FundingEndDate
	}
	if in.Status != nil {
		ok := false
		for _, st := range statuses {
			if st == *in.Status {
				ok = true
			}
		}
		if !ok {
			return ErrInvalidStatus
		}
		p.Status = *in.Status
	}
	if in.MainImageURL != nil {
		p.MainImageURL = *in.MainImageURL
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	return nil
}

// GetBySlug returns a project with its gallery.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	var p domain.Project
	err := s.DB.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Where("slug = ?", slug).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns projects, newest first. Public callers only see non-draft ones.
func (s *Service) List(ctx context.Context, status string, includeDrafts bool) ([]domain.Project, error) {
	q := s.DB.WithContext(ctx).Order("is_featured DESC, created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if !includeDrafts {
		q = q.Where("status <> ?", domain.ProjectDraft)
	}
	var out []domain.Project
	err := q.Find(&out).Error
	return out, err
}

// AddImage appends a gallery image.
func (s *Service) AddImage(ctx context.Context, slug, imageURL, caption string) (*domain.ProjectImage, error) {
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	img := &domain.ProjectImage{ProjectID: p.ID, ImageURL: imageURL, Caption: caption, Order: len(p.Images)}
	if err := s.DB.WithContext(ctx).Create(img).Error; err != nil {
		return nil, err
	}
	return img, nil
}

// CalculateReturn quotes a prospective amount against the live terms.
func (s *Service) CalculateReturn(ctx context.Context, slug string, amount decimal.Decimal) (*ledger.Quote, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	p, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	q := ledger.QuoteReturn(amount, p.AnnualReturnRate, p.DurationMonths)
	return &q, nil
}

// Slugify lowercases s and joins its alphanumeric runs with hyphens.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u").Replace(s)
	return strings.Trim(slugStrip.ReplaceAllString(s, "-"), "-")
}
