package projects

import (
	"context"
	"testing"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/testdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func validInput(title string) Input {
	return Input{
		Title:            ptr(title),
		TargetAmount:     ptr(decimal.NewFromInt(50_000_000)),
		AnnualReturnRate: ptr(decimal.NewFromInt(10)),
		DurationMonths:   ptr(24),
	}
}

func TestCreateDefaults(t *testing.T) {
	s := &Service{DB: testdb.Open(t)}
	admin := uuid.New()

	p, err := s.Create(context.Background(), admin, validInput("  Edificio Ñuñoa Centro "))
	require.NoError(t, err)
	assert.Equal(t, "Edificio Ñuñoa Centro", p.Title)
	assert.Equal(t, "edificio-nunoa-centro", p.Slug)
	assert.Equal(t, domain.ProjectDraft, p.Status)
	assert.True(t, p.MinimumInvestment.Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, p.CurrentAmount.IsZero())
	require.NotNil(t, p.CreatedByID)
	assert.Equal(t, admin, *p.CreatedByID)
}

func TestCreateValidation(t *testing.T) {
	s := &Service{DB: testdb.Open(t)}
	ctx := context.Background()

	in := validInput(" ")
	_, err := s.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, ErrTitleRequired)

	in = validInput("Torre")
	in.DurationMonths = ptr(0)
	_, err = s.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, ErrInvalidTerms)

	in = validInput("Torre")
	in.MinimumInvestment = ptr(decimal.NewFromInt(-1))
	_, err = s.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, ErrInvalidTerms)

	in = validInput("Torre")
	in.Status = ptr("sold")
	_, err = s.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateSlugTaken(t *testing.T) {
	s := &Service{DB: testdb.Open(t)}
	ctx := context.Background()

	_, err := s.Create(ctx, uuid.New(), validInput("Torre Norte"))
	require.NoError(t, err)

	in := validInput("Otra")
	in.Slug = ptr("Torre Norte")
	_, err = s.Create(ctx, uuid.New(), in)
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestUpdateKeepsRaisedAmount(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}
	ctx := context.Background()
	p := testdb.Project(t, db, "torre", domain.ProjectFunding)
	require.NoError(t, db.Model(p).Update("current_amount", decimal.NewFromInt(3_000_000)).Error)

	out, err := s.Update(ctx, "torre", Input{
		Title:            ptr("Torre Renovada"),
		AnnualReturnRate: ptr(decimal.NewFromInt(14)),
		IsFeatured:       ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Torre Renovada", out.Title)
	assert.True(t, out.AnnualReturnRate.Equal(decimal.NewFromInt(14)))
	assert.True(t, out.IsFeatured)
	assert.True(t, out.CurrentAmount.Equal(decimal.NewFromInt(3_000_000)))
	assert.Equal(t, "torre", out.Slug)

	_, err = s.Update(ctx, "torre", Input{TargetAmount: ptr(decimal.Zero)})
	assert.ErrorIs(t, err, ErrInvalidTerms)
	_, err = s.Update(ctx, "missing", Input{})
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestListHidesDrafts(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}
	ctx := context.Background()
	testdb.Project(t, db, "borrador", domain.ProjectDraft)
	testdb.Project(t, db, "abierto", domain.ProjectFunding)
	testdb.Project(t, db, "cerrado", domain.ProjectFunded)

	public, err := s.List(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, public, 2)
	for _, p := range public {
		assert.NotEqual(t, domain.ProjectDraft, p.Status)
	}

	all, err := s.List(ctx, "", true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	funding, err := s.List(ctx, domain.ProjectFunding, false)
	require.NoError(t, err)
	require.Len(t, funding, 1)
	assert.Equal(t, "abierto", funding[0].Slug)

	drafts, err := s.List(ctx, domain.ProjectDraft, false)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestAddImageOrder(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}
	ctx := context.Background()
	testdb.Project(t, db, "torre", domain.ProjectFunding)

	first, err := s.AddImage(ctx, "torre", "https://img.test/1.jpg", "Fachada")
	require.NoError(t, err)
	second, err := s.AddImage(ctx, "torre", "https://img.test/2.jpg", "Living")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Order)
	assert.Equal(t, 1, second.Order)

	p, err := s.GetBySlug(ctx, "torre")
	require.NoError(t, err)
	require.Len(t, p.Images, 2)
	assert.Equal(t, "Fachada", p.Images[0].Caption)
	assert.Equal(t, "Living", p.Images[1].Caption)
}

func TestCalculateReturn(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}
	ctx := context.Background()
	testdb.Project(t, db, "torre", domain.ProjectFunding)

	q, err := s.CalculateReturn(ctx, "torre", decimal.NewFromInt(10_000_000))
	require.NoError(t, err)
	assert.True(t, q.TotalReturn.Equal(decimal.NewFromInt(1_200_000)), q.TotalReturn.String())
	assert.True(t, q.MonthlyReturn.Equal(decimal.NewFromInt(100_000)), q.MonthlyReturn.String())
	assert.True(t, q.FinalAmount.Equal(decimal.NewFromInt(11_200_000)), q.FinalAmount.String())
	assert.Equal(t, 12, q.DurationMonths)

	_, err = s.CalculateReturn(ctx, "torre", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.CalculateReturn(ctx, "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Edificio Ñuñoa":         "edificio-nunoa",
		"  --Torre  Las Condes!": "torre-las-condes",
		"Depto. 2 (Vitacura)":    "depto-2-vitacura",
		"":                       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
