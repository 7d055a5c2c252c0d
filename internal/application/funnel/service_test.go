package funnel

import (
	"context"
	"testing"
	"time"

	"somosrentable-backend/internal/application/accounts"
	"somosrentable-backend/internal/application/investments"
	"somosrentable-backend/internal/application/kyc"
	"somosrentable-backend/internal/application/leads"
	"somosrentable-backend/internal/application/reservations"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/testdb"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type approveAll struct{}

func (approveAll) Float64() float64 { return 0 }

type welcomes struct{ sent []string }

func (w *welcomes) Welcome(ctx context.Context, u *domain.User) { w.sent = append(w.sent, u.Email) }

type harness struct {
	db          *gorm.DB
	funnel      *Service
	leads       *leads.Service
	reserve     *reservations.Service
	kyc         *kyc.Service
	investments *investments.Service
	welcomes    *welcomes
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testdb.Open(t)
	m := metrics.New(prometheus.NewRegistry())
	now := func() time.Time { return t0 }
	h := &harness{db: db, welcomes: &welcomes{}}
	h.leads = &leads.Service{DB: db, Metrics: m, Now: now}
	h.investments = &investments.Service{DB: db, Metrics: m, Now: now}
	h.reserve = &reservations.Service{DB: db, Leads: h.leads, Investments: h.investments, Metrics: m, Now: now}
	h.funnel = &Service{DB: db, Accounts: &accounts.Service{DB: db}, Leads: h.leads, Reservations: h.reserve, Notifier: h.welcomes}
	h.reserve.Converter = h.funnel
	h.kyc = &kyc.Service{DB: db, Random: approveAll{}, Metrics: m, Now: now}
	return h
}

func register(email string) accounts.CreateInput {
	return accounts.CreateInput{Email: email, Password: "Secreta123!", PasswordConfirm: "Secreta123!", Fullname: "Ana Rojas"}
}

func (h *harness) lead(t *testing.T, id interface{}) domain.Lead {
	t.Helper()
	var l domain.Lead
	require.NoError(t, h.db.Where("id = ?", id).First(&l).Error)
	return l
}

func TestRegisterAccount_LinksExactEmailLeads(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exec := testdb.Executive(t, h.db, "exec@somosrentable.cl", t0)

	exact, _, err := h.leads.CreateFromExternal(ctx, leads.ExternalLead{Email: "ana@mail.cl", Source: "instagram"})
	require.NoError(t, err)
	other, _, err := h.leads.CreateFromExternal(ctx, leads.ExternalLead{Email: "Ana@mail.cl", Source: "instagram"})
	require.NoError(t, err)

	reg, err := h.funnel.RegisterAccount(ctx, register("ana@MAIL.cl"))
	require.NoError(t, err)
	assert.Equal(t, "ana@mail.cl", reg.User.Email)
	require.Len(t, reg.LinkedLeads, 1)
	assert.Equal(t, exact.ID, reg.LinkedLeads[0].ID)
	assert.Equal(t, []string{"ana@mail.cl"}, h.welcomes.sent)

	converted := h.lead(t, exact.ID)
	assert.Equal(t, domain.LeadConverted, converted.Status)
	assert.Equal(t, reg.User.ID, *converted.ConvertedUserID)
	assert.Equal(t, domain.LeadNew, h.lead(t, other.ID).Status, "lead emails match case-sensitively")

	var u domain.User
	require.NoError(t, h.db.Where("id = ?", reg.User.ID).First(&u).Error)
	require.NotNil(t, u.AssignedExecutiveID)
	assert.Equal(t, exec.ID, *u.AssignedExecutiveID)
}

func TestRegisterAccount_FailureLeavesLeadsOpen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	l, _, err := h.leads.CreateFromExternal(ctx, leads.ExternalLead{Email: "ana@mail.cl"})
	require.NoError(t, err)

	in := register("ana@mail.cl")
	in.PasswordConfirm = "nope"
	_, err = h.funnel.RegisterAccount(ctx, in)
	assert.ErrorIs(t, err, accounts.ErrPasswordMismatch)
	assert.Equal(t, domain.LeadNew, h.lead(t, l.ID).Status)
	assert.Empty(t, h.welcomes.sent)
}

// A prospect reserves anonymously, registers, verifies, converts the hold and
// pays. Only the payment approval moves the project's raised amount.
func TestFunnel_EndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	exec := testdb.Executive(t, h.db, "exec@somosrentable.cl", t0)
	admin := testdb.User(t, h.db, "admin@somosrentable.cl", domain.RoleAdmin)
	project := testdb.Project(t, h.db, "parque-sur", domain.ProjectFunding)

	r, err := h.reserve.Create(ctx, reservations.CreateInput{
		ProjectID: project.ID,
		Email:     "ana@mail.cl",
		Amount:    decimal.NewFromInt(5_000_000),
	})
	require.NoError(t, err)
	require.NotNil(t, r.LeadID)
	assert.Equal(t, exec.ID, *h.lead(t, *r.LeadID).AssignedExecutiveID)

	reg, err := h.funnel.RegisterAccount(ctx, register("ANA@mail.cl"))
	require.NoError(t, err)
	assert.Len(t, reg.LinkedLeads, 0, "account email differs in case from the lead")

	_, err = h.funnel.ConvertReservation(ctx, r.AccessToken, reg.User.ID)
	assert.ErrorIs(t, err, reservations.ErrKYCRequired)

	sub, err := h.kyc.Submit(ctx, reg.User.ID, kyc.SubmitInput{FullName: "Ana Rojas", DocumentNumber: "1-9", DocumentImage: "kyc-documents/2026/03/x.jpg"})
	require.NoError(t, err)
	require.Equal(t, domain.KYCApproved, sub.Status)

	inv, err := h.funnel.ConvertReservation(ctx, r.AccessToken, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, inv.UserID)

	lead := h.lead(t, *r.LeadID)
	assert.Equal(t, domain.LeadConverted, lead.Status)
	assert.Equal(t, reg.User.ID, *lead.ConvertedUserID)
	assert.Equal(t, exec.ID, *lead.AssignedExecutiveID)

	var p domain.Project
	require.NoError(t, h.db.Where("id = ?", project.ID).First(&p).Error)
	assert.True(t, p.CurrentAmount.IsZero())

	proof, err := h.investments.UploadProof(ctx, reg.User.ID, inv.ID, investments.ProofInput{ProofImage: "payment-proofs/2026/04/x.pdf", Amount: inv.Amount})
	require.NoError(t, err)
	_, err = h.investments.Approve(ctx, proof.ID, admin.ID)
	require.NoError(t, err)

	require.NoError(t, h.db.Where("id = ?", project.ID).First(&p).Error)
	assert.True(t, decimal.NewFromInt(5_000_000).Equal(p.CurrentAmount))

	var u domain.User
	require.NoError(t, h.db.Where("id = ?", reg.User.ID).First(&u).Error)
	require.NotNil(t, u.AssignedExecutiveID)
	assert.Equal(t, exec.ID, *u.AssignedExecutiveID)
}
