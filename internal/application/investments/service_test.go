package investments

import (
	"context"
	"errors"
	"testing"
	"time"

	"somosrentable-backend/internal/application/documents"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/testdb"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

const receiptRef = "payment-proofs/2026/04/x-comprobante.pdf"

type recordingNotifier struct {
	reviews []string
}

func (n *recordingNotifier) PaymentReviewed(ctx context.Context, inv *domain.Investment, proof *domain.PaymentProof) {
	n.reviews = append(n.reviews, proof.Status+"/"+inv.Status)
}

type fixture struct {
	svc      *Service
	notifier *recordingNotifier
	project  *domain.Project
	investor *domain.User
	admin    *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	n := &recordingNotifier{}
	return &fixture{
		svc: &Service{
			DB:       db,
			Notifier: n,
			Metrics:  metrics.New(prometheus.NewRegistry()),
			Now:      func() time.Time { return now },
		},
		notifier: n,
		project:  testdb.Project(t, db, "torre-norte", domain.ProjectFunding),
		investor: testdb.Investor(t, db, "ana@x.cl", true),
		admin:    testdb.User(t, db, "admin@somosrentable.cl", domain.RoleAdmin),
	}
}

func (f *fixture) open(t *testing.T) *domain.Investment {
	t.Helper()
	inv, err := f.svc.Open(context.Background(), f.investor.ID, f.project.ID, decimal.NewFromInt(3_000_000))
	require.NoError(t, err)
	return inv
}

func (f *fixture) upload(t *testing.T, inv *domain.Investment) *domain.PaymentProof {
	t.Helper()
	p, err := f.svc.UploadProof(context.Background(), f.investor.ID, inv.ID, ProofInput{
		ProofImage: receiptRef,
		Amount:     inv.Amount,
		BankName:   "Banco Estado",
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) raised(t *testing.T) decimal.Decimal {
	t.Helper()
	var p domain.Project
	require.NoError(t, f.svc.DB.Where("id = ?", f.project.ID).First(&p).Error)
	return p.CurrentAmount
}

func TestOpen_SnapshotsTerms(t *testing.T) {
	f := newFixture(t)
	inv := f.open(t)

	assert.Equal(t, domain.InvestmentPendingPayment, inv.Status)
	assert.True(t, decimal.NewFromInt(12).Equal(inv.AnnualReturnRateSnapshot))
	assert.Equal(t, 12, inv.DurationMonthsSnapshot)
	assert.True(t, decimal.NewFromInt(360_000).Equal(inv.ExpectedReturn))

	// changing the project later does not touch the snapshot
	require.NoError(t, f.svc.DB.Model(&domain.Project{}).Where("id = ?", f.project.ID).
		Updates(map[string]interface{}{"annual_return_rate": 20, "duration_months": 6}).Error)
	got, err := f.svc.Get(context.Background(), inv.ID)
	require.NoError(t, err)
	p := ProjectionOf(got)
	assert.True(t, decimal.NewFromInt(12).Equal(p.AnnualReturnRate))
	assert.Equal(t, 12, p.DurationMonths)
	assert.True(t, decimal.NewFromInt(30_000).Equal(p.MonthlyReturn))
	assert.True(t, decimal.NewFromInt(3_360_000).Equal(p.FinalAmount))
}

func TestOpen_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, f.investor.ID, uuid.New(), decimal.NewFromInt(3_000_000))
	assert.ErrorIs(t, err, ErrProjectNotFound)

	_, err = f.svc.Open(ctx, f.investor.ID, f.project.ID, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.Open(ctx, f.investor.ID, f.project.ID, decimal.NewFromInt(500_000))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	funded := testdb.Project(t, f.svc.DB, "cerrado", domain.ProjectFunded)
	_, err = f.svc.Open(ctx, f.investor.ID, funded.ID, decimal.NewFromInt(3_000_000))
	assert.ErrorIs(t, err, ErrProjectNotFundable)
}

func TestApprove_CreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.open(t)
	proof := f.upload(t, inv)

	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentPaymentReview, got.Status)
	assert.True(t, f.raised(t).IsZero(), "upload does not credit the project")

	active, err := f.svc.Approve(ctx, proof.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentActive, active.Status)
	assert.Equal(t, now, *active.ActivatedAt)
	assert.Equal(t, now.AddDate(0, 0, 360), *active.ExpectedEndDate)
	assert.True(t, decimal.NewFromInt(3_000_000).Equal(f.raised(t)))

	_, err = f.svc.Approve(ctx, proof.ID, f.admin.ID)
	assert.ErrorIs(t, err, ErrProofProcessed)
	_, err = f.svc.Reject(ctx, proof.ID, f.admin.ID, "late")
	assert.ErrorIs(t, err, ErrProofProcessed)
	assert.True(t, decimal.NewFromInt(3_000_000).Equal(f.raised(t)))

	_, err = f.svc.UploadProof(ctx, f.investor.ID, inv.ID, ProofInput{ProofImage: receiptRef, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrNotAcceptingProof)

	assert.Equal(t, []string{"approved/active"}, f.notifier.reviews)
}

func TestApprove_SecondProofOfActiveInvestment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.open(t)
	first := f.upload(t, inv)
	second := f.upload(t, inv)

	_, err := f.svc.Approve(ctx, first.ID, f.admin.ID)
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, second.ID, f.admin.ID)
	assert.ErrorIs(t, err, ErrInvestmentNotInFlow)
	assert.True(t, decimal.NewFromInt(3_000_000).Equal(f.raised(t)))

	p, err := f.svc.GetProof(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProofPending, p.Status, "rolled back with the failed approval")
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.open(t)
	first := f.upload(t, inv)
	second := f.upload(t, inv)

	_, err := f.svc.Reject(ctx, first.ID, f.admin.ID, " ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	p, err := f.svc.Reject(ctx, first.ID, f.admin.ID, "Monto no coincide")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofRejected, p.Status)
	assert.Equal(t, "Monto no coincide", p.RejectionReason)
	assert.Equal(t, f.admin.ID, *p.ReviewedByID)

	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentPaymentReview, got.Status, "second proof still pending")

	_, err = f.svc.Reject(ctx, second.ID, f.admin.ID, "Ilegible")
	require.NoError(t, err)
	got, err = f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentPendingPayment, got.Status)
	assert.Len(t, got.PaymentProofs, 2)
	assert.True(t, f.raised(t).IsZero())
}

func TestUploadProof_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.open(t)
	other := testdb.Investor(t, f.svc.DB, "otro@x.cl", true)

	_, err := f.svc.UploadProof(ctx, other.ID, inv.ID, ProofInput{ProofImage: receiptRef, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
	_, err = f.svc.UploadProof(ctx, f.investor.ID, inv.ID, ProofInput{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrProofImageRequired)
	_, err = f.svc.UploadProof(ctx, f.investor.ID, inv.ID, ProofInput{ProofImage: receiptRef})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestListsAndPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.open(t)
	f.open(t)
	proof := f.upload(t, inv)

	mine, err := f.svc.ListForInvestor(ctx, f.investor.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.svc.PendingProofs(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, proof.ID, pending[0].ID)
	require.NotNil(t, pending[0].Investment)
	assert.Equal(t, f.investor.ID, pending[0].Investment.UserID)

	_, err = f.svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrInvestmentNotFound)
	_, err = f.svc.GetProof(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrProofNotFound)
}

type receiptStore map[string]bool

func (r receiptStore) CreateSignedUploadURL(context.Context, string, string) (string, error) {
	return "", errors.New("not used")
}

func (r receiptStore) Exists(_ context.Context, bucket, path string) (bool, error) {
	return r[bucket+"/"+path], nil
}

func TestUploadProof_RequiresUploadedReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.open(t)
	f.svc.Documents = &documents.Service{Store: receiptStore{
		receiptRef:                         true,
		"kyc-documents/2026/04/cedula.jpg": true,
	}}

	for ref, want := range map[string]error{
		"kyc-documents/2026/04/cedula.jpg":        documents.ErrForeignReference,
		"comprobante.pdf":                         documents.ErrForeignReference,
		"payment-proofs/2026/04/nunca-subido.pdf": documents.ErrNotUploaded,
	} {
		_, err := f.svc.UploadProof(ctx, f.investor.ID, inv.ID, ProofInput{ProofImage: ref, Amount: inv.Amount})
		assert.ErrorIs(t, err, want, ref)
	}
	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentPendingPayment, got.Status)
	assert.Empty(t, got.PaymentProofs)

	proof, err := f.svc.UploadProof(ctx, f.investor.ID, inv.ID, ProofInput{ProofImage: receiptRef, Amount: inv.Amount})
	require.NoError(t, err)
	assert.Equal(t, receiptRef, proof.ProofImage)
}
