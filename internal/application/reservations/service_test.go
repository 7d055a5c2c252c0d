package reservations

import (
	"context"
	"testing"
	"time"

	"somosrentable-backend/internal/application/investments"
	"somosrentable-backend/internal/application/leads"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/testdb"
	"somosrentable-backend/internal/platform/metrics"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type recordingConverter struct {
	leads []uuid.UUID
}

func (r *recordingConverter) MarkLeadConvertedTx(tx *gorm.DB, leadID uuid.UUID, user *domain.User) error {
	r.leads = append(r.leads, leadID)
	return nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) ReservationCreated(ctx context.Context, r *domain.Reservation, project *domain.Project) {
	n.sent = append(n.sent, r.AccessToken)
}

type fixture struct {
	svc       *Service
	clock     *clock
	project   *domain.Project
	converter *recordingConverter
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	m := metrics.New(prometheus.NewRegistry())
	c := &clock{now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{
		clock:     c,
		project:   testdb.Project(t, db, "edificio-centro", domain.ProjectFunding),
		converter: &recordingConverter{},
		notifier:  &recordingNotifier{},
	}
	f.svc = &Service{
		DB:          db,
		Leads:       &leads.Service{DB: db, Metrics: m, Now: c.Now},
		Investments: &investments.Service{DB: db, Metrics: m, Now: c.Now},
		Converter:   f.converter,
		Notifier:    f.notifier,
		Metrics:     m,
		Validity:    48 * time.Hour,
		Now:         c.Now,
	}
	return f
}

func (f *fixture) reserve(t *testing.T, email string) *domain.Reservation {
	t.Helper()
	r, err := f.svc.Create(context.Background(), CreateInput{
		ProjectID: f.project.ID,
		Email:     email,
		Amount:    decimal.NewFromInt(2_000_000),
		Name:      "Ana Rojas",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) status(t *testing.T, id uuid.UUID) string {
	t.Helper()
	var r domain.Reservation
	require.NoError(t, f.svc.DB.Where("id = ?", id).First(&r).Error)
	return r.Status
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t, " Ana@Mail.cl ")

	assert.Equal(t, "Ana@Mail.cl", r.Email)
	assert.Equal(t, domain.ReservationPending, r.Status)
	assert.Len(t, r.AccessToken, 43)
	assert.Equal(t, f.clock.now.Add(48*time.Hour), r.ExpiresAt)
	require.NotNil(t, r.LeadID)
	assert.Equal(t, []string{r.AccessToken}, f.notifier.sent)

	var lead domain.Lead
	require.NoError(t, f.svc.DB.Where("id = ?", *r.LeadID).First(&lead).Error)
	assert.Equal(t, domain.LeadSourceReservation, lead.Source)
	assert.Equal(t, f.project.ID, *lead.InterestedProjectID)

	other := f.reserve(t, "Ana@Mail.cl")
	assert.NotEqual(t, r.AccessToken, other.AccessToken)
	assert.Equal(t, *r.LeadID, *other.LeadID, "same email reuses the lead")
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft := testdb.Project(t, f.svc.DB, "borrador", domain.ProjectDraft)

	tests := []struct {
		name string
		in   CreateInput
		want error
	}{
		{"missing email", CreateInput{ProjectID: f.project.ID, Amount: decimal.NewFromInt(2_000_000)}, ErrEmailRequired},
		{"bad email", CreateInput{ProjectID: f.project.ID, Email: "nope", Amount: decimal.NewFromInt(2_000_000)}, ErrInvalidEmail},
		{"zero amount", CreateInput{ProjectID: f.project.ID, Email: "a@x.cl"}, ErrInvalidAmount},
		{"unknown project", CreateInput{ProjectID: uuid.New(), Email: "a@x.cl", Amount: decimal.NewFromInt(2_000_000)}, ErrProjectNotFound},
		{"not funding", CreateInput{ProjectID: draft.ID, Email: "a@x.cl", Amount: decimal.NewFromInt(2_000_000)}, ErrProjectNotFundable},
		{"bad phone", CreateInput{ProjectID: f.project.ID, Email: "a@x.cl", Phone: "123", Amount: decimal.NewFromInt(2_000_000)}, ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := f.svc.Create(ctx, CreateInput{ProjectID: f.project.ID, Email: "a@x.cl", Amount: decimal.NewFromInt(999_999)})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "1000000")
}

func TestConvert_Once(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reserve(t, "ANA@mail.cl")
	user := testdb.Investor(t, f.svc.DB, "ana@mail.cl", true)

	inv, err := f.svc.Convert(ctx, r.AccessToken, user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvestmentPendingPayment, inv.Status)
	assert.True(t, decimal.NewFromInt(2_000_000).Equal(inv.Amount))
	assert.True(t, decimal.NewFromInt(240_000).Equal(inv.ExpectedReturn))
	assert.Equal(t, []uuid.UUID{*r.LeadID}, f.converter.leads)

	got, err := f.svc.Lookup(ctx, r.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConverted, got.Status)
	assert.Equal(t, inv.ID, *got.ConvertedInvestmentID)
	assert.Equal(t, user.ID, *got.ConvertedUserID)

	_, err = f.svc.Convert(ctx, r.AccessToken, user.ID)
	assert.ErrorIs(t, err, ErrNotPending)

	var n int64
	require.NoError(t, f.svc.DB.Model(&domain.Investment{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.Metrics.ReservationsConverted))
}

func TestConvert_Checks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reserve(t, "ana@mail.cl")

	unverified := testdb.Investor(t, f.svc.DB, "ana@mail.cl", false)
	_, err := f.svc.Convert(ctx, r.AccessToken, unverified.ID)
	assert.ErrorIs(t, err, ErrKYCRequired)

	stranger := testdb.Investor(t, f.svc.DB, "otro@mail.cl", true)
	_, err = f.svc.Convert(ctx, r.AccessToken, stranger.ID)
	assert.ErrorIs(t, err, ErrEmailMismatch)
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))

	_, err = f.svc.Convert(ctx, "missing", stranger.ID)
	assert.ErrorIs(t, err, ErrReservationNotFound)

	assert.Equal(t, domain.ReservationPending, f.status(t, r.ID))
	assert.Empty(t, f.converter.leads)
}

func TestConvert_ExpiredIsMarked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reserve(t, "ana@mail.cl")
	user := testdb.Investor(t, f.svc.DB, "ana@mail.cl", true)

	f.clock.now = f.clock.now.Add(49 * time.Hour)
	_, err := f.svc.Convert(ctx, r.AccessToken, user.ID)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, domain.ReservationExpired, f.status(t, r.ID))

	_, err = f.svc.Convert(ctx, r.AccessToken, user.ID)
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.reserve(t, "ana@mail.cl")

	got, err := f.svc.Cancel(ctx, r.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, got.Status)

	_, err = f.svc.Cancel(ctx, r.AccessToken)
	assert.ErrorIs(t, err, ErrCannotCancel)

	_, err = f.svc.Cancel(ctx, "")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestSweepExpired_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.reserve(t, "a@mail.cl")
	f.clock.now = f.clock.now.Add(24 * time.Hour)
	fresh := f.reserve(t, "b@mail.cl")
	f.clock.now = f.clock.now.Add(25 * time.Hour)

	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, domain.ReservationExpired, f.status(t, old.ID))
	assert.Equal(t, domain.ReservationPending, f.status(t, fresh.ID))

	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestPendingForEmail_CaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.reserve(t, "Ana@Mail.cl")
	cancelled := f.reserve(t, "ana@mail.cl")
	_, err := f.svc.Cancel(ctx, cancelled.AccessToken)
	require.NoError(t, err)
	f.reserve(t, "otro@mail.cl")

	out, err := f.svc.PendingForEmail(ctx, "ANA@MAIL.CL")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ana@Mail.cl", out[0].Email)
	assert.NotNil(t, out[0].Project)
}

func TestSweeper_LockSkipsSecondInstance(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r := f.reserve(t, "a@mail.cl")
	f.clock.now = f.clock.now.Add(72 * time.Hour)

	first := &Sweeper{Service: f.svc, Rdb: rdb, Interval: time.Minute}
	second := &Sweeper{Service: f.svc, Rdb: rdb, Interval: time.Minute}
	first.tick(context.Background())
	assert.Equal(t, 30*time.Second, mr.TTL(sweepLockKey), "held for half an interval after the sweep")
	second.tick(context.Background())

	assert.Equal(t, domain.ReservationExpired, f.status(t, r.ID))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.Metrics.SweepRuns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.Metrics.SweepRuns.WithLabelValues("skipped")))

	mr.FastForward(time.Minute)
	second.tick(context.Background())
	assert.Equal(t, 2.0, testutil.ToFloat64(f.svc.Metrics.SweepRuns.WithLabelValues("ok")))
}

func TestSweeper_DisabledReturns(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, (&Sweeper{Service: f.svc}).Run(context.Background()))
}
