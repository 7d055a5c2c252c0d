package kyc

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"somosrentable-backend/internal/application/documents"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultApprovalProbability is the share of automatic checks that pass.
const DefaultApprovalProbability = 0.8

// AutoRejectionReason is recorded when the automatic check does not pass.
const AutoRejectionReason = "Automatic verification could not confirm your identity. Please try again with a clearer photo of your document."

// RandomSource is the draw behind automatic decisions. Float64 returns a value in [0, 1).
type RandomSource interface {
	Float64() float64
}

// lockedRand makes a *rand.Rand safe for concurrent requests.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewRandomSource returns a seeded, goroutine-safe source.
func NewRandomSource(seed int64) RandomSource {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// DocumentVerifier confirms a document reference points at a stored upload
// in the given bucket.
type DocumentVerifier interface {
	Verify(ctx context.Context, bucket, reference string) error
}

// Notifier hears about decided submissions.
type Notifier interface {
	KYCDecided(ctx context.Context, sub *domain.KYCSubmission)
}

// Service is the identity gate. Verification itself is an opaque stochastic
// check; approval flips the user's verified flag in the same transaction.
type Service struct {
	DB                  *gorm.DB
	Random              RandomSource
	ApprovalProbability *float64
	Documents           DocumentVerifier
	Notifier            Notifier
	Metrics             *metrics.Metrics
	Now                 func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// threshold is the configured probability, or the default when unset. Zero
// rejects every automatic check and one approves every check.
func (s *Service) threshold() float64 {
	if s.ApprovalProbability == nil {
		return DefaultApprovalProbability
	}
	return *s.ApprovalProbability
}

// CanSubmit reports whether user may open a new submission. When false the
// error says why (already verified, or a submission is pending).
func (s *Service) CanSubmit(ctx context.Context, userID uuid.UUID) (bool, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return canSubmitTx(tx, userID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// canSubmitTx locks the user row, so two submissions for one user serialize
// on it and only the first sees no pending submission.
func canSubmitTx(tx *gorm.DB, userID uuid.UUID) error {
	var user domain.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsKYCVerified {
		return ErrAlreadyVerified
	}
	var pending int64
	if err := tx.Model(&domain.KYCSubmission{}).
		Where("user_id = ? AND status = ?", userID, domain.KYCPending).
		Count(&pending).Error; err != nil {
		return err
	}
	if pending > 0 {
		return ErrPendingExists
	}
	return nil
}

// SubmitInput is a new identity check request. DocumentImage is the
// reference returned by the KYC upload endpoint.
type SubmitInput struct {
	FullName       string
	DocumentNumber string
	DocumentImage  string
}

// Submit records a pending submission and runs the automatic decision on it.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, in SubmitInput) (*domain.KYCSubmission, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	in.DocumentImage = strings.TrimSpace(in.DocumentImage)
	switch {
	case in.FullName == "":
		return nil, ErrFullNameRequired
	case in.DocumentNumber == "":
		return nil, ErrDocumentRequired
	case in.DocumentImage == "":
		return nil, ErrImageRequired
	}
	if err := s.verifyDocument(ctx, in.DocumentImage); err != nil {
		return nil, err
	}

	sub := &domain.KYCSubmission{
		UserID:         userID,
		FullName:       in.FullName,
		DocumentNumber: in.DocumentNumber,
		DocumentImage:  in.DocumentImage,
		Status:         domain.KYCPending,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := canSubmitTx(tx, userID); err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("submission_id", sub.ID.String()).Str("user_id", userID.String()).Msg("kyc: submitted")
	return s.Decide(ctx, sub.ID)
}

// verifyDocument checks the reference against storage when a verifier is
// wired, and its bucket and shape otherwise.
func (s *Service) verifyDocument(ctx context.Context, ref string) error {
	if s.Documents != nil {
		return s.Documents.Verify(ctx, documents.BucketKYC, ref)
	}
	_, err := documents.CheckReference(documents.BucketKYC, ref)
	return err
}

// Decide applies the automatic check to a pending submission. A draw below
// the approval probability approves it.
func (s *Service) Decide(ctx context.Context, submissionID uuid.UUID) (*domain.KYCSubmission, error) {
	src := s.Random
	if src == nil {
		src = NewRandomSource(time.Now().UnixNano())
	}
	approved := src.Float64() < s.threshold()
	if approved {
		return s.transition(ctx, submissionID, domain.KYCApproved, nil, "", true)
	}
	return s.transition(ctx, submissionID, domain.KYCRejected, nil, AutoRejectionReason, true)
}

// ManualApprove approves a pending submission on behalf of reviewer.
func (s *Service) ManualApprove(ctx context.Context, submissionID, reviewerID uuid.UUID) (*domain.KYCSubmission, error) {
	return s.transition(ctx, submissionID, domain.KYCApproved, &reviewerID, "", false)
}

// ManualReject rejects a pending submission. reason must not be blank.
func (s *Service) ManualReject(ctx context.Context, submissionID, reviewerID uuid.UUID, reason string) (*domain.KYCSubmission, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.transition(ctx, submissionID, domain.KYCRejected, &reviewerID, reason, false)
}

// Review dispatches a reviewer action (approve or reject).
func (s *Service) Review(ctx context.Context, submissionID, reviewerID uuid.UUID, action, reason string) (*domain.KYCSubmission, error) {
	switch action {
	case "approve":
		return s.ManualApprove(ctx, submissionID, reviewerID)
	case "reject":
		return s.ManualReject(ctx, submissionID, reviewerID, reason)
	default:
		return nil, ErrInvalidAction
	}
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, status string, reviewer *uuid.UUID, reason string, auto bool) (*domain.KYCSubmission, error) {
	var sub domain.KYCSubmission
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{
			"status":         status,
			"reviewed_at":    s.now(),
			"auto_processed": auto,
		}
		if reviewer != nil {
			fields["reviewed_by_id"] = *reviewer
		}
		if reason != "" {
			fields["rejection_reason"] = reason
		}
		res := tx.Model(&domain.KYCSubmission{}).
			Where("id = ? AND status = ?", id, domain.KYCPending).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where("id = ?", id).First(&sub).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyProcessed
		}
		if status != domain.KYCApproved {
			return nil
		}
		return tx.Model(&domain.User{}).
			Where("id = ? AND is_kyc_verified = ?", sub.UserID, false).
			Update("is_kyc_verified", true).Error
	})
	if err != nil {
		return nil, err
	}
	mode := "manual"
	if auto {
		mode = "auto"
	}
	s.Metrics.KYCDecided(status, mode)
	log.Ctx(ctx).Info().Str("submission_id", id.String()).Str("status", status).Str("mode", mode).Msg("kyc: decided")
	if s.Notifier != nil {
		s.Notifier.KYCDecided(ctx, &sub)
	}
	return &sub, nil
}

// StatusView is what an investor sees about their verification.
type StatusView struct {
	IsVerified       bool                  `json:"is_kyc_verified"`
	CanSubmit        bool                  `json:"can_submit"`
	CanSubmitMessage string                `json:"can_submit_message,omitempty"`
	LatestSubmission *domain.KYCSubmission `json:"latest_submission"`
}

// Status reports the user's verification state and latest submission.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*StatusView, error) {
	var user domain.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	view := &StatusView{IsVerified: user.IsKYCVerified}
	var latest domain.KYCSubmission
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").First(&latest).Error
	if err == nil {
		view.LatestSubmission = &latest
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ok, why := s.CanSubmit(ctx, userID)
	view.CanSubmit = ok
	if why != nil {
		view.CanSubmitMessage = why.Error()
	}
	return view, nil
}

// Get returns one submission.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.KYCSubmission, error) {
	var sub domain.KYCSubmission
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// List returns submissions, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, status string) ([]domain.KYCSubmission, error) {
	q := s.DB.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.KYCSubmission
	err := q.Find(&out).Error
	return out, err
}
