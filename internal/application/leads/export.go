package leads

import (
	"context"
	"io"

	"somosrentable-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Leads"

var exportHeader = []interface{}{
	"Fecha", "Nombre", "Email", "Teléfono", "Origen", "Detalle origen", "Estado", "Ejecutivo", "Convertido",
}

// Export writes every lead matching f (page is ignored) as an XLSX workbook.
func (s *Service) Export(ctx context.Context, f ListFilter, w io.Writer) error {
	var leads []domain.Lead
	if err := s.filtered(ctx, f).Order("created_at DESC").Find(&leads).Error; err != nil {
		return err
	}
	executives, err := s.executiveEmails(ctx, leads)
	if err != nil {
		return err
	}

	book := excelize.NewFile()
	defer book.Close()
	if err := book.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := book.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	for i := range leads {
		l := &leads[i]
		var exec, converted string
		if l.AssignedExecutiveID != nil {
			exec = executives[*l.AssignedExecutiveID]
		}
		if l.ConvertedAt != nil {
			converted = l.ConvertedAt.Format("2006-01-02")
		}
		row := []interface{}{
			l.CreatedAt.Format("2006-01-02 15:04"), l.Name, l.Email, l.Phone,
			l.Source, l.SourceDetail, l.Status, exec, converted,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	return book.Write(w)
}

func (s *Service) executiveEmails(ctx context.Context, leads []domain.Lead) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0)
	seen := map[uuid.UUID]bool{}
	for _, l := range leads {
		if l.AssignedExecutiveID != nil && !seen[*l.AssignedExecutiveID] {
			seen[*l.AssignedExecutiveID] = true
			ids = append(ids, *l.AssignedExecutiveID)
		}
	}
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []domain.User
	if err := s.DB.WithContext(ctx).Select("id", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.Email
	}
	return out, nil
}
