package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	platformCacheKey = "statistics:platform"
	platformCacheTTL = 60 * time.Second
	recentWindow     = 30 * 24 * time.Hour
)

var ErrExecutiveNotFound = apperr.NotFound("Executive not found")

// Service computes read-only aggregates over the funnel. Rdb is optional and
// only caches the platform summary.
type Service struct {
	DB  *gorm.DB
	Rdb *redis.Client
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type UserStats struct {
	TotalInvestors    int64   `json:"total_investors"`
	VerifiedInvestors int64   `json:"verified_investors"`
	NewInvestors30d   int64   `json:"new_investors_30d"`
	VerificationRate  float64 `json:"verification_rate"`
}

type ProjectCounts struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
}

type InvestmentStats struct {
	TotalAmount          decimal.Decimal `json:"total_amount"`
	TotalCount           int64           `json:"total_count"`
	AverageAmount        decimal.Decimal `json:"average_amount"`
	NewAmount30d         decimal.Decimal `json:"new_amount_30d"`
	NewCount30d          int64           `json:"new_count_30d"`
	TotalExpectedReturns decimal.Decimal `json:"total_expected_returns"`
	TotalActualReturns   decimal.Decimal `json:"total_actual_returns"`
}

type LeadStats struct {
	Total          int64   `json:"total"`
	Converted      int64   `json:"converted"`
	New30d         int64   `json:"new_30d"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Platform is the admin dashboard summary.
type Platform struct {
	Users       UserStats       `json:"users"`
	Projects    ProjectCounts   `json:"projects"`
	Investments InvestmentStats `json:"investments"`
	Leads       LeadStats       `json:"leads"`
}

type sumCount struct {
	Amount decimal.Decimal
	Count  int64
}

type returnsRow struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

// Platform returns the platform summary, served from Redis when fresh.
func (s *Service) Platform(ctx context.Context) (*Platform, error) {
	if s.Rdb != nil {
		if raw, err := s.Rdb.Get(ctx, platformCacheKey).Bytes(); err == nil {
			var cached Platform
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("statistics cache read failed")
		}
	}
	p, err := s.computePlatform(ctx)
	if err != nil {
		return nil, err
	}
	if s.Rdb != nil {
		if raw, err := json.Marshal(p); err == nil {
			if err := s.Rdb.Set(ctx, platformCacheKey, raw, platformCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("statistics cache write failed")
			}
		}
	}
	return p, nil
}

func (s *Service) computePlatform(ctx context.Context) (*Platform, error) {
	db := s.DB.WithContext(ctx)
	since := s.now().Add(-recentWindow)
	var out Platform

	investors := func() *gorm.DB { return db.Model(&domain.User{}).Where("role = ?", domain.RoleInvestor) }
	if err := investors().Count(&out.Users.TotalInvestors).Error; err != nil {
		return nil, err
	}
	if err := investors().Where("is_kyc_verified = ?", true).Count(&out.Users.VerifiedInvestors).Error; err != nil {
		return nil, err
	}
	if err := investors().Where("created_at >= ?", since).Count(&out.Users.NewInvestors30d).Error; err != nil {
		return nil, err
	}
	out.Users.VerificationRate = rate(out.Users.VerifiedInvestors, out.Users.TotalInvestors)

	if err := db.Model(&domain.Project{}).Count(&out.Projects.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Project{}).Where("status IN ?", []string{domain.ProjectFunding, domain.ProjectInProgress}).
		Count(&out.Projects.Active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Project{}).Where("status = ?", domain.ProjectCompleted).Count(&out.Projects.Completed).Error; err != nil {
		return nil, err
	}

	var active, recent sumCount
	if err := db.Model(&domain.Investment{}).Select("COALESCE(SUM(amount), 0) AS amount, COUNT(id) AS count").
		Where("status = ?", domain.InvestmentActive).Scan(&active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Investment{}).Select("COALESCE(SUM(amount), 0) AS amount, COUNT(id) AS count").
		Where("status = ? AND activated_at >= ?", domain.InvestmentActive, since).Scan(&recent).Error; err != nil {
		return nil, err
	}
	var returns returnsRow
	if err := db.Model(&domain.Investment{}).
		Select("COALESCE(SUM(expected_return), 0) AS expected, COALESCE(SUM(actual_return), 0) AS actual").
		Where("status IN ?", []string{domain.InvestmentActive, domain.InvestmentCompleted}).Scan(&returns).Error; err != nil {
		return nil, err
	}
	out.Investments = InvestmentStats{
		TotalAmount:          active.Amount,
		TotalCount:           active.Count,
		AverageAmount:        average(active),
		NewAmount30d:         recent.Amount,
		NewCount30d:          recent.Count,
		TotalExpectedReturns: returns.Expected,
		TotalActualReturns:   returns.Actual,
	}

	if err := db.Model(&domain.Lead{}).Count(&out.Leads.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Lead{}).Where("status = ?", domain.LeadConverted).Count(&out.Leads.Converted).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Lead{}).Where("created_at >= ?", since).Count(&out.Leads.New30d).Error; err != nil {
		return nil, err
	}
	out.Leads.ConversionRate = rate(out.Leads.Converted, out.Leads.Total)
	return &out, nil
}

type ExecutiveLeads struct {
	Total          int64   `json:"total"`
	New            int64   `json:"new"`
	Contacted      int64   `json:"contacted"`
	Interested     int64   `json:"interested"`
	Converted      int64   `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

type ExecutiveInvestments struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	Count       int64           `json:"count"`
}

// Executive is one executive's pipeline and book.
type Executive struct {
	ExecutiveID    uuid.UUID            `json:"executive_id"`
	ExecutiveName  string               `json:"executive_name"`
	ExecutiveEmail string               `json:"executive_email"`
	Leads          ExecutiveLeads       `json:"leads"`
	Investments    ExecutiveInvestments `json:"investments"`
}

type leadBreakdown struct {
	Total      int64
	New        int64
	Contacted  int64
	Interested int64
	Converted  int64
}

// Executives returns statistics for every active executive.
func (s *Service) Executives(ctx context.Context) ([]Executive, error) {
	var execs []domain.User
	err := s.DB.WithContext(ctx).Where("role = ? AND is_active = ?", domain.RoleExecutive, true).
		Order("created_at ASC").Find(&execs).Error
	if err != nil {
		return nil, err
	}
	out := make([]Executive, 0, len(execs))
	for i := range execs {
		st, err := s.executiveStats(ctx, &execs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// ExecutiveByID returns statistics for one active executive.
func (s *Service) ExecutiveByID(ctx context.Context, id uuid.UUID) (*Executive, error) {
	var u domain.User
	err := s.DB.WithContext(ctx).Where("id = ? AND role = ? AND is_active = ?", id, domain.RoleExecutive, true).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExecutiveNotFound
		}
		return nil, err
	}
	return s.executiveStats(ctx, &u)
}

func (s *Service) executiveStats(ctx context.Context, u *domain.User) (*Executive, error) {
	db := s.DB.WithContext(ctx)
	var lb leadBreakdown
	err := db.Model(&domain.Lead{}).Select(
		"COUNT(id) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS new, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS contacted, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS interested, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS converted",
		domain.LeadNew, domain.LeadContacted, domain.LeadInterested, domain.LeadConverted,
	).Where("assigned_executive_id = ?", u.ID).Scan(&lb).Error
	if err != nil {
		return nil, err
	}
	var book sumCount
	err = db.Table("investments").
		Select("COALESCE(SUM(investments.amount), 0) AS amount, COUNT(investments.id) AS count").
		Joins("JOIN users ON users.id = investments.user_id").
		Where("users.assigned_executive_id = ? AND investments.status = ?", u.ID, domain.InvestmentActive).
		Scan(&book).Error
	if err != nil {
		return nil, err
	}
	return &Executive{
		ExecutiveID:    u.ID,
		ExecutiveName:  u.Fullname,
		ExecutiveEmail: u.Email,
		Leads: ExecutiveLeads{
			Total:          lb.Total,
			New:            lb.New,
			Contacted:      lb.Contacted,
			Interested:     lb.Interested,
			Converted:      lb.Converted,
			ConversionRate: rate(lb.Converted, lb.Total),
		},
		Investments: ExecutiveInvestments{TotalAmount: book.Amount, Count: book.Count},
	}, nil
}

type ProjectMoney struct {
	ActiveAmount  decimal.Decimal `json:"active_amount"`
	ActiveCount   int64           `json:"active_count"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
	PendingCount  int64           `json:"pending_count"`
}

type ProjectReservations struct {
	PendingAmount decimal.Decimal `json:"pending_amount"`
	PendingCount  int64           `json:"pending_count"`
}

// ProjectStat is one project's committed and reserved money.
type ProjectStat struct {
	ProjectID       uuid.UUID           `json:"project_id"`
	ProjectTitle    string              `json:"project_title"`
	Status          string              `json:"status"`
	TargetAmount    decimal.Decimal     `json:"target_amount"`
	CurrentAmount   decimal.Decimal     `json:"current_amount"`
	FundingProgress decimal.Decimal     `json:"funding_progress"`
	Investments     ProjectMoney        `json:"investments"`
	Reservations    ProjectReservations `json:"reservations"`
}

// Projects returns per-project statistics.
func (s *Service) Projects(ctx context.Context) ([]ProjectStat, error) {
	db := s.DB.WithContext(ctx)
	var projects []domain.Project
	if err := db.Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	sumWhere := func(model interface{}, q string, args ...interface{}) (sumCount, error) {
		var sc sumCount
		err := db.Model(model).Select("COALESCE(SUM(amount), 0) AS amount, COUNT(id) AS count").Where(q, args...).Scan(&sc).Error
		return sc, err
	}
	out := make([]ProjectStat, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		active, err := sumWhere(&domain.Investment{}, "project_id = ? AND status = ?", p.ID, domain.InvestmentActive)
		if err != nil {
			return nil, err
		}
		pending, err := sumWhere(&domain.Investment{}, "project_id = ? AND status = ?", p.ID, domain.InvestmentPendingPayment)
		if err != nil {
			return nil, err
		}
		held, err := sumWhere(&domain.Reservation{}, "project_id = ? AND status = ?", p.ID, domain.ReservationPending)
		if err != nil {
			return nil, err
		}
		out = append(out, ProjectStat{
			ProjectID:       p.ID,
			ProjectTitle:    p.Title,
			Status:          p.Status,
			TargetAmount:    p.TargetAmount,
			CurrentAmount:   p.CurrentAmount,
			FundingProgress: p.FundingProgress(),
			Investments: ProjectMoney{
				ActiveAmount:  active.Amount,
				ActiveCount:   active.Count,
				PendingAmount: pending.Amount,
				PendingCount:  pending.Count,
			},
			Reservations: ProjectReservations{PendingAmount: held.Amount, PendingCount: held.Count},
		})
	}
	return out, nil
}

// LeadSource is conversion by acquisition channel.
type LeadSource struct {
	Source         string  `json:"source"`
	Total          int64   `json:"total"`
	Converted      int64   `json:"converted"`
	ConversionRate float64 `json:"conversion_rate"`
}

// LeadSources groups leads by source, largest first.
func (s *Service) LeadSources(ctx context.Context) ([]LeadSource, error) {
	var rows []LeadSource
	err := s.DB.WithContext(ctx).Model(&domain.Lead{}).
		Select("source, COUNT(id) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS converted", domain.LeadConverted).
		Group("source").Order("total DESC, source ASC").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].ConversionRate = rate(rows[i].Converted, rows[i].Total)
	}
	return rows, nil
}

func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func average(sc sumCount) decimal.Decimal {
	if sc.Count == 0 {
		return decimal.Zero
	}
	return sc.Amount.Div(decimal.NewFromInt(sc.Count)).RoundBank(2)
}
