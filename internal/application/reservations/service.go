package reservations

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/ledger"
	"somosrentable-backend/internal/pkg/validation"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultValidity is how long a hold stays pending.
const DefaultValidity = 7 * 24 * time.Hour

// tokenBytes gives a 43 character URL-safe token.
const tokenBytes = 32

// LeadLinker creates or enriches the lead behind a new reservation.
type LeadLinker interface {
	CreateFromReservationTx(tx *gorm.DB, r *domain.Reservation) (*domain.Lead, error)
}

// InvestmentOpener records the investment a conversion produces.
type InvestmentOpener interface {
	OpenTx(tx *gorm.DB, investorID uuid.UUID, project *domain.Project, amount decimal.Decimal) (*domain.Investment, error)
}

// LeadConverter marks the reservation's lead converted by the investor.
type LeadConverter interface {
	MarkLeadConvertedTx(tx *gorm.DB, leadID uuid.UUID, user *domain.User) error
}

// Notifier is told about new holds so the prospect gets their link.
type Notifier interface {
	ReservationCreated(ctx context.Context, r *domain.Reservation, project *domain.Project)
}

// Service owns reservations: token-addressed funding holds against a project.
type Service struct {
	DB          *gorm.DB
	Leads       LeadLinker
	Investments InvestmentOpener
	Converter   LeadConverter
	Notifier    Notifier
	Metrics     *metrics.Metrics
	Validity    time.Duration
	Now         func() time.Time
}

// Clock is the service's notion of now.
func (s *Service) Clock() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) validity() time.Duration {
	if s.Validity > 0 {
		return s.Validity
	}
	return DefaultValidity
}

// CreateInput is a public reservation request.
type CreateInput struct {
	ProjectID uuid.UUID
	Email     string
	Amount    decimal.Decimal
	Name      string
	Phone     string
}

// Create places a hold. The project must be funding and the amount at least
// its minimum. The reservation's lead is created or enriched in the same transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Reservation, error) {
	email := ledger.NormalizeContactEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	phone, ok := validation.CleanPhone(in.Phone)
	if !ok {
		return nil, ErrInvalidPhone
	}

	var (
		r       *domain.Reservation
		project domain.Project
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", in.ProjectID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		if in.Amount.LessThan(project.MinimumInvestment) {
			return apperr.Validation("Minimum investment is $%s", project.MinimumInvestment.StringFixed(0))
		}
		if !project.IsFundable() {
			return ErrProjectNotFundable
		}

		token, err := newToken()
		if err != nil {
			return err
		}
		r = &domain.Reservation{
			Email:       email,
			Name:        strings.TrimSpace(in.Name),
			Phone:       phone,
			ProjectID:   project.ID,
			Amount:      ledger.RoundMoney(in.Amount),
			Status:      domain.ReservationPending,
			AccessToken: token,
			ExpiresAt:   s.Clock().Add(s.validity()),
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		if s.Leads == nil {
			return nil
		}
		lead, err := s.Leads.CreateFromReservationTx(tx, r)
		if err != nil {
			return err
		}
		r.LeadID = &lead.ID
		return tx.Model(&domain.Reservation{}).Where("id = ?", r.ID).Update("lead_id", lead.ID).Error
	})
	if err != nil {
		return nil, err
	}
	r.Project = &project
	s.Metrics.ReservationCreated()
	log.Ctx(ctx).Info().Str("reservation_id", r.ID.String()).Str("project_id", project.ID.String()).
		Str("amount", r.Amount.String()).Msg("reservations: created")
	if s.Notifier != nil {
		s.Notifier.ReservationCreated(ctx, r, &project)
	}
	return r, nil
}

// Lookup returns the reservation for an access token with its project.
func (s *Service) Lookup(ctx context.Context, token string) (*domain.Reservation, error) {
	if token == "" {
		return nil, ErrReservationNotFound
	}
	var r domain.Reservation
	if err := s.DB.WithContext(ctx).Preload("Project").Where("access_token = ?", token).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &r, nil
}

// PendingForEmail lists the pending holds of an account, matched case-insensitively.
func (s *Service) PendingForEmail(ctx context.Context, email string) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := s.DB.WithContext(ctx).Preload("Project").
		Where("LOWER(email) = LOWER(?) AND status = ?", strings.TrimSpace(email), domain.ReservationPending).
		Order("created_at DESC").Find(&out).Error
	return out, err
}

// Cancel ends a pending hold. Any other status is a precondition failure.
func (s *Service) Cancel(ctx context.Context, token string) (*domain.Reservation, error) {
	r, err := s.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", r.ID, domain.ReservationPending).
		Update("status", domain.ReservationCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrCannotCancel
	}
	r.Status = domain.ReservationCancelled
	log.Ctx(ctx).Info().Str("reservation_id", r.ID.String()).Msg("reservations: cancelled")
	return r, nil
}

// SweepExpired moves every pending hold past its expiry to expired and
// returns how many changed. Running it again changes nothing.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("status = ? AND expires_at < ?", domain.ReservationPending, s.Clock()).
		Update("status", domain.ReservationExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	s.Metrics.ReservationsExpiredAdd(res.RowsAffected)
	return res.RowsAffected, nil
}

// Convert turns a pending hold into an investment for user. Checks run in
// order: verified user, pending status, not expired, matching email. An
// expired hold is marked expired before the error is returned.
func (s *Service) Convert(ctx context.Context, token string, userID uuid.UUID) (*domain.Investment, error) {
	var (
		inv     *domain.Investment
		expired bool
		resID   uuid.UUID
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		var r domain.Reservation
		if err := tx.Preload("Project").Where("access_token = ?", token).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		resID = r.ID

		if !user.IsKYCVerified {
			return ErrKYCRequired
		}
		if r.Status != domain.ReservationPending {
			return ErrNotPending
		}
		if r.IsExpiredAt(s.Clock()) {
			expired = true
			return ErrExpired
		}
		if !ledger.SameHolder(r.Email, user.Email) {
			return ErrEmailMismatch
		}

		var err error
		inv, err = s.Investments.OpenTx(tx, user.ID, r.Project, r.Amount)
		if err != nil {
			return err
		}

		res := tx.Model(&domain.Reservation{}).
			Where("id = ? AND status = ?", r.ID, domain.ReservationPending).
			Updates(map[string]interface{}{
				"status":                  domain.ReservationConverted,
				"converted_user_id":       user.ID,
				"converted_investment_id": inv.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}

		if r.LeadID != nil && s.Converter != nil {
			return s.Converter.MarkLeadConvertedTx(tx, *r.LeadID, &user)
		}
		return nil
	})
	if expired {
		if markErr := s.markExpired(ctx, resID); markErr != nil {
			return nil, markErr
		}
	}
	if err != nil {
		return nil, err
	}
	s.Metrics.ReservationConverted()
	log.Ctx(ctx).Info().Str("reservation_id", resID.String()).Str("investment_id", inv.ID.String()).
		Str("user_id", userID.String()).Msg("reservations: converted")
	return inv, nil
}

// markExpired commits the expired status on its own so it survives the
// rollback of the failed conversion.
func (s *Service) markExpired(ctx context.Context, id uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Reservation{}).
		Where("id = ? AND status = ?", id, domain.ReservationPending).
		Update("status", domain.ReservationExpired)
	if res.Error != nil {
		return res.Error
	}
	s.Metrics.ReservationsExpiredAdd(res.RowsAffected)
	return nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
