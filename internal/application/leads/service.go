package leads

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/ledger"
	"somosrentable-backend/internal/pkg/validation"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PageSize is the number of leads returned per page.
const PageSize = 20

// assignLockKey serializes round-robin picks on Postgres (pg_advisory_xact_lock).
const assignLockKey = 727001

// Service routes prospects to executives and keeps their contact log.
type Service struct {
	DB      *gorm.DB
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Assign runs round-robin assignment for an existing lead in its own transaction.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID) (*domain.User, error) {
	var exec *domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := findLead(tx, leadID)
		if err != nil {
			return err
		}
		if lead.IsConverted() {
			return ErrLeadConverted
		}
		exec, err = s.AssignTx(tx, lead)
		return err
	})
	return exec, err
}

// AssignTx gives lead to the active executive with the fewest open leads.
// Ties go to the executive created first, then the lowest id. Returns nil
// without error when there are no executives; the lead stays unassigned.
func (s *Service) AssignTx(tx *gorm.DB, lead *domain.Lead) (*domain.User, error) {
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", assignLockKey).Error; err != nil {
			return nil, err
		}
	}

	var picks []struct {
		ID        uuid.UUID
		OpenLeads int64
	}
	err := tx.Table("users").
		Select("users.id AS id, COUNT(leads.id) AS open_leads").
		Joins("LEFT JOIN leads ON leads.assigned_executive_id = users.id AND leads.status NOT IN ?", domain.ClosedLeadStatuses).
		Where("users.role = ? AND users.is_active = ?", domain.RoleExecutive, true).
		Group("users.id, users.created_at").
		Order("open_leads ASC, users.created_at ASC, users.id ASC").
		Limit(1).
		Scan(&picks).Error
	if err != nil {
		return nil, err
	}
	if len(picks) == 0 {
		s.Metrics.LeadAssigned("none")
		log.Ctx(tx.Statement.Context).Info().Str("lead_id", lead.ID.String()).Msg("leads: no active executive, lead left unassigned")
		return nil, nil
	}

	var exec domain.User
	if err := tx.Where("id = ?", picks[0].ID).First(&exec).Error; err != nil {
		return nil, err
	}
	if err := s.setAssignee(tx, lead, exec.ID); err != nil {
		return nil, err
	}
	s.Metrics.LeadAssigned("auto")
	log.Ctx(tx.Statement.Context).Info().Str("lead_id", lead.ID.String()).Str("executive_id", exec.ID.String()).
		Int64("open_leads", picks[0].OpenLeads).Msg("leads: assigned")
	return &exec, nil
}

func (s *Service) setAssignee(tx *gorm.DB, lead *domain.Lead, execID uuid.UUID) error {
	now := s.now()
	res := tx.Model(&domain.Lead{}).
		Where("id = ? AND status <> ?", lead.ID, domain.LeadConverted).
		Updates(map[string]interface{}{"assigned_executive_id": execID, "assigned_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeadConverted
	}
	lead.AssignedExecutiveID = &execID
	lead.AssignedAt = &now
	return nil
}

// AssignTo overrides the automatic choice with a specific executive.
func (s *Service) AssignTo(ctx context.Context, leadID, executiveID uuid.UUID) (*domain.Lead, error) {
	var lead *domain.Lead
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lead, err = findLead(tx, leadID)
		if err != nil {
			return err
		}
		if lead.IsConverted() {
			return ErrLeadConverted
		}
		var exec domain.User
		if err := tx.Where("id = ? AND role = ? AND is_active = ?", executiveID, domain.RoleExecutive, true).
			First(&exec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotExecutive
			}
			return err
		}
		return s.setAssignee(tx, lead, exec.ID)
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.LeadAssigned("manual")
	return lead, nil
}

// ExternalLead is a lead pushed by the external referral feed.
type ExternalLead struct {
	Email        string
	Name         string
	Phone        string
	Source       string
	SourceDetail string
	Notes        string
	Raw          map[string]interface{}
}

// CreateFromExternal dedups on exact email. When a lead already exists it is
// returned untouched with created=false.
func (s *Service) CreateFromExternal(ctx context.Context, in ExternalLead) (*domain.Lead, bool, error) {
	email := ledger.NormalizeContactEmail(in.Email)
	if err := checkEmail(email); err != nil {
		return nil, false, err
	}
	var payload datatypes.JSON
	if in.Raw != nil {
		b, err := json.Marshal(in.Raw)
		if err != nil {
			return nil, false, err
		}
		payload = datatypes.JSON(b)
	}

	var lead *domain.Lead
	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByEmail(tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			lead = existing
			return nil
		}
		lead = &domain.Lead{
			Email:           email,
			Name:            strings.TrimSpace(in.Name),
			Phone:           strings.TrimSpace(in.Phone),
			Source:          domain.LeadSourceWebhook,
			SourceDetail:    externalDetail(in),
			Status:          domain.LeadNew,
			Notes:           in.Notes,
			ExternalPayload: payload,
		}
		if err := tx.Create(lead).Error; err != nil {
			return err
		}
		created = true
		_, err = s.AssignTx(tx, lead)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.Metrics.LeadCreated(domain.LeadSourceWebhook)
	}
	return lead, created, nil
}

// externalDetail keeps the feed's own source label, which is not one of ours.
func externalDetail(in ExternalLead) string {
	src, detail := strings.TrimSpace(in.Source), strings.TrimSpace(in.SourceDetail)
	switch {
	case src == "":
		return detail
	case detail == "":
		return src
	}
	return src + ": " + detail
}

// CreateFromReservationTx links a reservation to a lead. An open lead with the
// same exact email is enriched instead of duplicated: blank name and phone are
// filled and the interested project is updated. A converted lead is returned as is.
func (s *Service) CreateFromReservationTx(tx *gorm.DB, r *domain.Reservation) (*domain.Lead, error) {
	existing, err := findByEmail(tx, r.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsConverted() {
			return existing, nil
		}
		upd := map[string]interface{}{"interested_project_id": r.ProjectID}
		existing.InterestedProjectID = &r.ProjectID
		if existing.Name == "" && r.Name != "" {
			upd["name"] = r.Name
			existing.Name = r.Name
		}
		if existing.Phone == "" && r.Phone != "" {
			upd["phone"] = r.Phone
			existing.Phone = r.Phone
		}
		if err := tx.Model(&domain.Lead{}).Where("id = ?", existing.ID).Updates(upd).Error; err != nil {
			return nil, err
		}
		return existing, nil
	}

	projectID := r.ProjectID
	lead := &domain.Lead{
		Email:               r.Email,
		Name:                r.Name,
		Phone:               r.Phone,
		Source:              domain.LeadSourceReservation,
		Status:              domain.LeadNew,
		InterestedProjectID: &projectID,
	}
	if err := tx.Create(lead).Error; err != nil {
		return nil, err
	}
	if _, err := s.AssignTx(tx, lead); err != nil {
		return nil, err
	}
	s.Metrics.LeadCreated(domain.LeadSourceReservation)
	return lead, nil
}

// ContactInput is a lead captured by the public site or entered by staff.
type ContactInput struct {
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Phone               string     `json:"phone"`
	Source              string     `json:"source"`
	SourceDetail        string     `json:"source_detail"`
	Notes               string     `json:"notes"`
	InterestedProjectID *uuid.UUID `json:"interested_project_id"`
	AssignedExecutiveID *uuid.UUID `json:"assigned_executive_id"`
}

// GetOrCreateForEmail returns the lead for email, creating and assigning one
// from the website contact form when none exists.
func (s *Service) GetOrCreateForEmail(ctx context.Context, in ContactInput) (*domain.Lead, bool, error) {
	email := ledger.NormalizeContactEmail(in.Email)
	if err := checkEmail(email); err != nil {
		return nil, false, err
	}
	source := in.Source
	if source == "" {
		source = domain.LeadSourceWebsite
	}
	if !contains(domain.LeadSources, source) {
		return nil, false, ErrInvalidSource
	}

	var lead *domain.Lead
	created := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByEmail(tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			lead = existing
			return nil
		}
		lead = &domain.Lead{
			Email:               email,
			Name:                strings.TrimSpace(in.Name),
			Phone:               strings.TrimSpace(in.Phone),
			Source:              source,
			SourceDetail:        in.SourceDetail,
			Status:              domain.LeadNew,
			Notes:               in.Notes,
			InterestedProjectID: in.InterestedProjectID,
		}
		if err := tx.Create(lead).Error; err != nil {
			return err
		}
		created = true
		_, err = s.AssignTx(tx, lead)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		s.Metrics.LeadCreated(source)
	}
	return lead, created, nil
}

// CreateManual records a lead entered by staff (manual or referral). A lead
// with the same email already existing is a conflict. When the caller names
// an executive the lead goes to them, otherwise round-robin applies.
func (s *Service) CreateManual(ctx context.Context, in ContactInput) (*domain.Lead, error) {
	if in.Source == "" {
		in.Source = domain.LeadSourceManual
	}
	if in.Source != domain.LeadSourceManual && in.Source != domain.LeadSourceReferral {
		return nil, ErrInvalidSource
	}
	email := ledger.NormalizeContactEmail(in.Email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}

	var lead *domain.Lead
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findByEmail(tx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrLeadExists.WithDetails(map[string]interface{}{"lead_id": existing.ID.String()})
		}
		lead = &domain.Lead{
			Email:               email,
			Name:                strings.TrimSpace(in.Name),
			Phone:               strings.TrimSpace(in.Phone),
			Source:              in.Source,
			SourceDetail:        in.SourceDetail,
			Status:              domain.LeadNew,
			Notes:               in.Notes,
			InterestedProjectID: in.InterestedProjectID,
		}
		if err := tx.Create(lead).Error; err != nil {
			return err
		}
		if in.AssignedExecutiveID == nil {
			_, err = s.AssignTx(tx, lead)
			return err
		}
		var exec domain.User
		if err := tx.Where("id = ? AND role = ? AND is_active = ?", *in.AssignedExecutiveID, domain.RoleExecutive, true).
			First(&exec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotExecutive
			}
			return err
		}
		return s.setAssignee(tx, lead, exec.ID)
	})
	if err != nil {
		return nil, err
	}
	s.Metrics.LeadCreated(in.Source)
	return lead, nil
}

// UpdateInput holds the reviewer-editable fields. Nil means unchanged.
type UpdateInput struct {
	Status              *string    `json:"status"`
	Notes               *string    `json:"notes"`
	Name                *string    `json:"name"`
	Phone               *string    `json:"phone"`
	InterestedProjectID *uuid.UUID `json:"interested_project_id"`
}

// Update applies reviewer changes. Converted leads keep their status.
func (s *Service) Update(ctx context.Context, leadID uuid.UUID, in UpdateInput) (*domain.Lead, error) {
	var lead *domain.Lead
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lead, err = findLead(tx, leadID)
		if err != nil {
			return err
		}
		upd := map[string]interface{}{}
		if in.Status != nil && *in.Status != lead.Status {
			if !contains(domain.LeadStatuses, *in.Status) {
				return ErrInvalidStatus
			}
			if *in.Status == domain.LeadConverted {
				return ErrConvertViaFunnel
			}
			if lead.IsConverted() {
				return ErrLeadConverted
			}
			upd["status"] = *in.Status
		}
		if in.Notes != nil {
			upd["notes"] = *in.Notes
		}
		if in.Name != nil {
			upd["name"] = strings.TrimSpace(*in.Name)
		}
		if in.Phone != nil {
			upd["phone"] = strings.TrimSpace(*in.Phone)
		}
		if in.InterestedProjectID != nil {
			upd["interested_project_id"] = *in.InterestedProjectID
		}
		if len(upd) == 0 {
			return nil
		}
		q := tx.Model(&domain.Lead{}).Where("id = ?", lead.ID)
		if _, ok := upd["status"]; ok {
			q = q.Where("status <> ?", domain.LeadConverted)
		}
		res := q.Updates(upd)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLeadConverted
		}
		lead, err = findLead(tx, leadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// ConvertTx marks lead converted by userID. Returns false when the lead was
// already converted; its executive and converted user are never overwritten.
func (s *Service) ConvertTx(tx *gorm.DB, lead *domain.Lead, userID uuid.UUID) (bool, error) {
	now := s.now()
	res := tx.Model(&domain.Lead{}).
		Where("id = ? AND status <> ?", lead.ID, domain.LeadConverted).
		Updates(map[string]interface{}{
			"status":            domain.LeadConverted,
			"converted_user_id": userID,
			"converted_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	lead.Status = domain.LeadConverted
	lead.ConvertedUserID = &userID
	lead.ConvertedAt = &now
	log.Ctx(tx.Statement.Context).Info().Str("lead_id", lead.ID.String()).Str("user_id", userID.String()).Msg("leads: converted")
	return true, nil
}

// FindOpenByEmailTx returns leads with exactly email that are not yet converted.
func (s *Service) FindOpenByEmailTx(tx *gorm.DB, email string) ([]domain.Lead, error) {
	var out []domain.Lead
	err := tx.Where("email = ? AND status <> ?", email, domain.LeadConverted).
		Order("created_at ASC").Find(&out).Error
	return out, err
}

// FindTx loads a lead inside an existing transaction.
func (s *Service) FindTx(tx *gorm.DB, leadID uuid.UUID) (*domain.Lead, error) {
	return findLead(tx, leadID)
}

// Get returns one lead with its interactions.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	err := s.DB.WithContext(ctx).
		Preload("Interactions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("id = ?", leadID).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// ListFilter narrows List. AssignedTo restricts to one executive's leads.
type ListFilter struct {
	Status     string
	Source     string
	AssignedTo *uuid.UUID
	Page       int
}

// List returns one page of leads, newest first, and the total match count.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Lead, int64, error) {
	q := s.filtered(ctx, f)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	var out []domain.Lead
	err := q.Order("created_at DESC").Limit(PageSize).Offset((page - 1) * PageSize).Find(&out).Error
	return out, total, err
}

func (s *Service) filtered(ctx context.Context, f ListFilter) *gorm.DB {
	q := s.DB.WithContext(ctx).Model(&domain.Lead{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_executive_id = ?", *f.AssignedTo)
	}
	return q
}

// InteractionInput is a new contact log entry.
type InteractionInput struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Outcome     string `json:"outcome"`
}

// AddInteraction appends to the lead's contact log. A first interaction on a
// new lead moves it to contacted.
func (s *Service) AddInteraction(ctx context.Context, leadID uuid.UUID, executiveID *uuid.UUID, in InteractionInput) (*domain.Interaction, error) {
	if !contains(domain.InteractionTypes, in.Type) {
		return nil, ErrInvalidType
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, ErrDescriptionNeeded
	}
	var it *domain.Interaction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := findLead(tx, leadID)
		if err != nil {
			return err
		}
		it = &domain.Interaction{
			LeadID:      lead.ID,
			Type:        in.Type,
			Description: strings.TrimSpace(in.Description),
			Outcome:     in.Outcome,
			ExecutiveID: executiveID,
		}
		if err := tx.Create(it).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Lead{}).Where("id = ? AND status = ?", lead.ID, domain.LeadNew).
			Update("status", domain.LeadContacted).Error
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// ListInteractions returns the lead's log, newest first.
func (s *Service) ListInteractions(ctx context.Context, leadID uuid.UUID) ([]domain.Interaction, error) {
	if _, err := findLead(s.DB.WithContext(ctx), leadID); err != nil {
		return nil, err
	}
	var out []domain.Interaction
	err := s.DB.WithContext(ctx).Where("lead_id = ?", leadID).Order("created_at DESC").Find(&out).Error
	return out, err
}

func findLead(tx *gorm.DB, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	if err := tx.Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// findByEmail is the dedup lookup: exact, case-sensitive, oldest first.
func findByEmail(tx *gorm.DB, email string) (*domain.Lead, error) {
	var lead domain.Lead
	err := tx.Where("email = ?", email).Order("created_at ASC").First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

func checkEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if !validation.IsValidEmail(email) {
		return ErrInvalidEmail
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
