package investments

import (
	"context"
	"errors"
	"strings"
	"time"

	"somosrentable-backend/internal/application/documents"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/ledger"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DocumentVerifier confirms a receipt reference points at a stored upload.
type DocumentVerifier interface {
	Verify(ctx context.Context, bucket, reference string) error
}

// Notifier hears about reviewed payments.
type Notifier interface {
	PaymentReviewed(ctx context.Context, inv *domain.Investment, proof *domain.PaymentProof)
}

// Service is the investment ledger: commitments, payment proofs and the
// approval step that activates an investment and credits its project.
type Service struct {
	DB        *gorm.DB
	Documents DocumentVerifier
	Notifier  Notifier
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Open commits amount to a project for an investor. The caller has already
// checked that the investor is identity-verified.
func (s *Service) Open(ctx context.Context, investorID, projectID uuid.UUID, amount decimal.Decimal) (*domain.Investment, error) {
	var inv *domain.Investment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project domain.Project
		if err := tx.Where("id = ?", projectID).First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		var err error
		inv, err = s.OpenTx(tx, investorID, &project, amount)
		return err
	})
	return inv, err
}

// OpenTx creates the investment inside an existing transaction. The project's
// current rate and duration are copied onto it and the expected return is
// fixed from those copies.
func (s *Service) OpenTx(tx *gorm.DB, investorID uuid.UUID, project *domain.Project, amount decimal.Decimal) (*domain.Investment, error) {
	if project == nil {
		return nil, ErrProjectNotFound
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !project.IsFundable() {
		return nil, ErrProjectNotFundable
	}
	if amount.LessThan(project.MinimumInvestment) {
		return nil, apperr.Validation("Minimum investment is $%s", project.MinimumInvestment.StringFixed(0))
	}
	amount = ledger.RoundMoney(amount)
	inv := &domain.Investment{
		UserID:                   investorID,
		ProjectID:                project.ID,
		Amount:                   amount,
		Status:                   domain.InvestmentPendingPayment,
		AnnualReturnRateSnapshot: project.AnnualReturnRate,
		DurationMonthsSnapshot:   project.DurationMonths,
		ExpectedReturn:           ledger.ExpectedReturn(amount, project.AnnualReturnRate, project.DurationMonths),
		ActualReturn:             decimal.Zero,
	}
	if err := tx.Create(inv).Error; err != nil {
		return nil, err
	}
	log.Ctx(tx.Statement.Context).Info().Str("investment_id", inv.ID.String()).Str("project_id", project.ID.String()).
		Str("amount", amount.String()).Str("expected_return", inv.ExpectedReturn.String()).Msg("investments: opened")
	return inv, nil
}

// ProofInput describes an uploaded payment receipt.
type ProofInput struct {
	ProofImage           string
	Amount               decimal.Decimal
	BankName             string
	TransactionReference string
	TransactionDate      *time.Time
	Notes                string
}

// UploadProof attaches a receipt and puts the investment in payment review.
// A new upload always restarts the review cycle.
func (s *Service) UploadProof(ctx context.Context, investorID, investmentID uuid.UUID, in ProofInput) (*domain.PaymentProof, error) {
	if strings.TrimSpace(in.ProofImage) == "" {
		return nil, ErrProofImageRequired
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := s.verifyReceipt(ctx, in.ProofImage); err != nil {
		return nil, err
	}
	var proof *domain.PaymentProof
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv domain.Investment
		if err := tx.Where("id = ? AND user_id = ?", investmentID, investorID).First(&inv).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvestmentNotFound
			}
			return err
		}
		if !inv.AcceptsProof() {
			return ErrNotAcceptingProof
		}
		proof = &domain.PaymentProof{
			InvestmentID:         inv.ID,
			ProofImage:           strings.TrimSpace(in.ProofImage),
			Amount:               ledger.RoundMoney(in.Amount),
			BankName:             strings.TrimSpace(in.BankName),
			TransactionReference: strings.TrimSpace(in.TransactionReference),
			TransactionDate:      in.TransactionDate,
			Status:               domain.ProofPending,
			Notes:                in.Notes,
		}
		if err := tx.Create(proof).Error; err != nil {
			return err
		}
		res := tx.Model(&domain.Investment{}).
			Where("id = ? AND status IN ?", inv.ID, []string{domain.InvestmentPendingPayment, domain.InvestmentPaymentReview}).
			Update("status", domain.InvestmentPaymentReview)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotAcceptingProof
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("proof_id", proof.ID.String()).Str("investment_id", investmentID.String()).Msg("investments: proof uploaded")
	return proof, nil
}

func (s *Service) verifyReceipt(ctx context.Context, ref string) error {
	if s.Documents != nil {
		return s.Documents.Verify(ctx, documents.BucketPaymentProof, ref)
	}
	_, err := documents.CheckReference(documents.BucketPaymentProof, ref)
	return err
}

// Approve accepts a pending proof, activates its investment and credits the
// project's raised amount. It is the only place that amount grows.
func (s *Service) Approve(ctx context.Context, proofID, reviewerID uuid.UUID) (*domain.Investment, error) {
	var (
		inv   domain.Investment
		proof *domain.PaymentProof
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		var err error
		proof, err = s.claimProof(tx, proofID, domain.ProofApproved, map[string]interface{}{
			"reviewed_by_id": reviewerID,
			"reviewed_at":    now,
		})
		if err != nil {
			return err
		}
		if err := tx.Where("id = ?", proof.InvestmentID).First(&inv).Error; err != nil {
			return err
		}
		end := ledger.TermEnd(now, inv.DurationMonthsSnapshot)
		res := tx.Model(&domain.Investment{}).
			Where("id = ? AND status IN ?", inv.ID, []string{domain.InvestmentPendingPayment, domain.InvestmentPaymentReview}).
			Updates(map[string]interface{}{
				"status":            domain.InvestmentActive,
				"activated_at":      now,
				"expected_end_date": end,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvestmentNotInFlow
		}
		inv.Status = domain.InvestmentActive
		inv.ActivatedAt = &now
		inv.ExpectedEndDate = &end

		return tx.Model(&domain.Project{}).Where("id = ?", inv.ProjectID).
			Update("current_amount", gorm.Expr("current_amount + ?", inv.Amount)).Error
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.PaymentReviewed(domain.ProofApproved)
	log.Ctx(ctx).Info().Str("proof_id", proofID.String()).Str("investment_id", inv.ID.String()).
		Str("credited", inv.Amount.String()).Msg("investments: payment approved")
	if s.Notifier != nil {
		s.Notifier.PaymentReviewed(ctx, &inv, proof)
	}
	return &inv, nil
}

// Reject refuses a pending proof. The investment goes back to pending_payment
// unless another proof is still waiting for review. No project total changes.
func (s *Service) Reject(ctx context.Context, proofID, reviewerID uuid.UUID, reason string) (*domain.PaymentProof, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	var (
		proof *domain.PaymentProof
		inv   domain.Investment
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		proof, err = s.claimProof(tx, proofID, domain.ProofRejected, map[string]interface{}{
			"reviewed_by_id":   reviewerID,
			"reviewed_at":      s.now(),
			"rejection_reason": reason,
		})
		if err != nil {
			return err
		}
		var stillPending int64
		if err := tx.Model(&domain.PaymentProof{}).
			Where("investment_id = ? AND status = ?", proof.InvestmentID, domain.ProofPending).
			Count(&stillPending).Error; err != nil {
			return err
		}
		if stillPending == 0 {
			if err := tx.Model(&domain.Investment{}).
				Where("id = ? AND status = ?", proof.InvestmentID, domain.InvestmentPaymentReview).
				Update("status", domain.InvestmentPendingPayment).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", proof.InvestmentID).First(&inv).Error
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.PaymentReviewed(domain.ProofRejected)
	log.Ctx(ctx).Info().Str("proof_id", proofID.String()).Str("investment_id", proof.InvestmentID.String()).
		Msg("investments: payment rejected")
	if s.Notifier != nil {
		s.Notifier.PaymentReviewed(ctx, &inv, proof)
	}
	return proof, nil
}

// claimProof moves a pending proof to status, failing if someone else got there first.
func (s *Service) claimProof(tx *gorm.DB, proofID uuid.UUID, status string, fields map[string]interface{}) (*domain.PaymentProof, error) {
	fields["status"] = status
	res := tx.Model(&domain.PaymentProof{}).
		Where("id = ? AND status = ?", proofID, domain.ProofPending).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	var proof domain.PaymentProof
	if err := tx.Where("id = ?", proofID).First(&proof).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProofNotFound
		}
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, ErrProofProcessed
	}
	return &proof, nil
}

// Get returns an investment with its project and proofs.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	var inv domain.Investment
	err := s.DB.WithContext(ctx).Preload("Project").
		Preload("PaymentProofs", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ?", id).First(&inv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvestmentNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ListForInvestor returns an investor's investments, newest first.
func (s *Service) ListForInvestor(ctx context.Context, investorID uuid.UUID) ([]domain.Investment, error) {
	var out []domain.Investment
	err := s.DB.WithContext(ctx).Preload("Project").
		Where("user_id = ?", investorID).Order("created_at DESC").Find(&out).Error
	return out, err
}

// GetProof returns a proof with its investment.
func (s *Service) GetProof(ctx context.Context, id uuid.UUID) (*domain.PaymentProof, error) {
	var p domain.PaymentProof
	if err := s.DB.WithContext(ctx).Preload("Investment").Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProofNotFound
		}
		return nil, err
	}
	return &p, nil
}

// PendingProofs lists proofs awaiting review, oldest first.
func (s *Service) PendingProofs(ctx context.Context) ([]domain.PaymentProof, error) {
	var out []domain.PaymentProof
	err := s.DB.WithContext(ctx).Preload("Investment").
		Where("status = ?", domain.ProofPending).Order("created_at ASC").Find(&out).Error
	return out, err
}

// Projection is the contractual outlook of an investment.
type Projection struct {
	InvestmentAmount decimal.Decimal `json:"investment_amount"`
	AnnualReturnRate decimal.Decimal `json:"annual_return_rate"`
	DurationMonths   int             `json:"duration_months"`
	MonthlyReturn    decimal.Decimal `json:"monthly_return"`
	TotalReturn      decimal.Decimal `json:"total_return"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	Status           string          `json:"status"`
	ActivatedAt      *time.Time      `json:"activated_at"`
	ExpectedEndDate  *time.Time      `json:"expected_end_date"`
}

// ProjectionOf is computed from the snapshot, never from the live project.
func ProjectionOf(inv *domain.Investment) Projection {
	return Projection{
		InvestmentAmount: inv.Amount,
		AnnualReturnRate: inv.AnnualReturnRateSnapshot,
		DurationMonths:   inv.DurationMonthsSnapshot,
		MonthlyReturn:    ledger.MonthlyReturn(inv.ExpectedReturn, inv.DurationMonthsSnapshot),
		TotalReturn:      inv.ExpectedReturn,
		FinalAmount:      inv.Amount.Add(inv.ExpectedReturn),
		Status:           inv.Status,
		ActivatedAt:      inv.ActivatedAt,
		ExpectedEndDate:  inv.ExpectedEndDate,
	}
}
