// Package funnel binds the lead router, the account store and the
// reservation engine where a step needs knowledge of more than one of them:
// email unification at registration and lead conversion when a reservation
// becomes an investment. It keeps no state of its own.
package funnel

import (
	"context"

	"somosrentable-backend/internal/application/accounts"
	"somosrentable-backend/internal/application/leads"
	"somosrentable-backend/internal/application/reservations"
	"somosrentable-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notifier hears about new investor accounts.
type Notifier interface {
	Welcome(ctx context.Context, u *domain.User)
}

// Service is the funnel orchestrator.
type Service struct {
	DB           *gorm.DB
	Accounts     *accounts.Service
	Leads        *leads.Service
	Reservations *reservations.Service
	Notifier     Notifier
}

// Registration is the result of RegisterAccount.
type Registration struct {
	User        *domain.User  `json:"user"`
	LinkedLeads []domain.Lead `json:"linked_leads"`
}

// RegisterAccount creates an investor account and, in the same transaction,
// converts every open lead whose email equals the account email exactly. The
// account inherits the executive of the first such lead that has one.
func (s *Service) RegisterAccount(ctx context.Context, in accounts.CreateInput) (*Registration, error) {
	out := &Registration{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.Accounts.CreateTx(tx, in, domain.RoleInvestor)
		if err != nil {
			return err
		}
		out.User = user
		open, err := s.Leads.FindOpenByEmailTx(tx, user.Email)
		if err != nil {
			return err
		}
		for i := range open {
			if err := s.linkTx(tx, &open[i], user); err != nil {
				return err
			}
		}
		out.LinkedLeads = open
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("user_id", out.User.ID.String()).Int("linked_leads", len(out.LinkedLeads)).Msg("funnel: account registered")
	if s.Notifier != nil {
		s.Notifier.Welcome(ctx, out.User)
	}
	return out, nil
}

// MarkLeadConvertedTx is called by the reservation engine inside the
// conversion transaction.
func (s *Service) MarkLeadConvertedTx(tx *gorm.DB, leadID uuid.UUID, user *domain.User) error {
	lead, err := s.Leads.FindTx(tx, leadID)
	if err != nil {
		return err
	}
	return s.linkTx(tx, lead, user)
}

// ConvertReservation turns the hold behind token into an investment for userID.
func (s *Service) ConvertReservation(ctx context.Context, token string, userID uuid.UUID) (*domain.Investment, error) {
	return s.Reservations.Convert(ctx, token, userID)
}

func (s *Service) linkTx(tx *gorm.DB, lead *domain.Lead, user *domain.User) error {
	changed, err := s.Leads.ConvertTx(tx, lead, user.ID)
	if err != nil {
		return err
	}
	if !changed && (lead.ConvertedUserID == nil || *lead.ConvertedUserID != user.ID) {
		log.Ctx(tx.Statement.Context).Warn().Str("lead_id", lead.ID.String()).Str("user_id", user.ID.String()).
			Msg("funnel: lead already converted by another account, left unchanged")
		return nil
	}
	return inheritExecutiveTx(tx, user, lead)
}

// inheritExecutiveTx gives user the lead's executive when user has none.
func inheritExecutiveTx(tx *gorm.DB, user *domain.User, lead *domain.Lead) error {
	if user.AssignedExecutiveID != nil || lead.AssignedExecutiveID == nil {
		return nil
	}
	res := tx.Model(&domain.User{}).
		Where("id = ? AND assigned_executive_id IS NULL", user.ID).
		Update("assigned_executive_id", *lead.AssignedExecutiveID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		exec := *lead.AssignedExecutiveID
		user.AssignedExecutiveID = &exec
	}
	return nil
}
