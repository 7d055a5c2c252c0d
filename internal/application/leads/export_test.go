package leads

import (
	"bytes"
	"context"
	"testing"
	"time"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/pkg/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportWorkbook(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}
	ctx := context.Background()
	exec := testdb.Executive(t, db, "exec@somosrentable.cl", time.Now().Add(-time.Hour))

	_, _, err := s.CreateFromExternal(ctx, ExternalLead{Email: "feed@example.com", Name: "Feed", Source: "facebook"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&domain.Lead{Email: "web@example.com", Source: domain.LeadSourceWebsite, Status: domain.LeadInvalid}).Error)

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, ListFilter{}, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Email", rows[0][2])

	byEmail := map[string][]string{}
	for _, r := range rows[1:] {
		byEmail[r[2]] = r
	}
	require.Contains(t, byEmail, "feed@example.com")
	assert.Equal(t, domain.LeadSourceWebhook, byEmail["feed@example.com"][4])
	assert.Equal(t, exec.Email, byEmail["feed@example.com"][7])
	assert.Equal(t, domain.LeadInvalid, byEmail["web@example.com"][6])
}

func TestExportHonoursFilter(t *testing.T) {
	db := testdb.Open(t)
	s := &Service{DB: db}
	ctx := context.Background()
	require.NoError(t, db.Create(&domain.Lead{Email: "a@example.com", Source: domain.LeadSourceWebsite}).Error)
	require.NoError(t, db.Create(&domain.Lead{Email: "b@example.com", Source: domain.LeadSourceReferral}).Error)

	var buf bytes.Buffer
	require.NoError(t, s.Export(ctx, ListFilter{Source: domain.LeadSourceReferral}, &buf))
	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b@example.com", rows[1][2])
}
