package leads

import (
	"bytes"
	"encoding/json"

	leadsvc "somosrentable-backend/internal/application/leads"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *leadsvc.Service
}

type webhookRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Source       string `json:"source"`
	SourceDetail string `json:"source_detail"`
	Notes        string `json:"notes"`
}

type assignRequest struct {
	ExecutiveID uuid.UUID `json:"executive_id"`
}

func listMeta(total int64, page int) fiber.Map {
	return fiber.Map{"total": total, "page": page, "page_size": leadsvc.PageSize}
}

// List GET /api/v1/leads?status=&source=&assigned_to=&page= . Executives only
// ever see their own leads.
func (h *Handlers) List(c *fiber.Ctx) error {
	f := leadsvc.ListFilter{Status: c.Query("status"), Source: c.Query("source"), Page: request.Page(c)}
	if middleware.CurrentRole(c) == domain.RoleExecutive {
		me, _ := middleware.CurrentUserID(c)
		f.AssignedTo = &me
	} else if s := c.Query("assigned_to"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.FromError(c, apperr.Validation("assigned_to must be a uuid"))
		}
		f.AssignedTo = &id
	}
	out, total, err := h.Service.List(c.UserContext(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Leads retrieved", out, listMeta(total, f.Page))
}

// Export GET /api/v1/leads/export: the same filters and scoping as List, as XLSX.
func (h *Handlers) Export(c *fiber.Ctx) error {
	f := leadsvc.ListFilter{Status: c.Query("status"), Source: c.Query("source")}
	if middleware.CurrentRole(c) == domain.RoleExecutive {
		me, _ := middleware.CurrentUserID(c)
		f.AssignedTo = &me
	}
	var buf bytes.Buffer
	if err := h.Service.Export(c.UserContext(), f, &buf); err != nil {
		return response.FromError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment("leads.xlsx")
	return c.Send(buf.Bytes())
}

// Mine GET /api/v1/leads/my
func (h *Handlers) Mine(c *fiber.Ctx) error {
	me, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	f := leadsvc.ListFilter{Status: c.Query("status"), AssignedTo: &me, Page: request.Page(c)}
	out, total, err := h.Service.List(c.UserContext(), f)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Leads retrieved", out, listMeta(total, f.Page))
}

// Create POST /api/v1/leads: staff-entered lead. An executive's own entries
// stay with them unless another executive is named.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in leadsvc.ContactInput
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	if in.AssignedExecutiveID == nil && middleware.CurrentRole(c) == domain.RoleExecutive {
		if me, ok := middleware.CurrentUserID(c); ok {
			in.AssignedExecutiveID = &me
		}
	}
	lead, err := h.Service.CreateManual(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Lead created", lead, nil)
}

// Contact POST /api/v1/leads/contact: public website form.
func (h *Handlers) Contact(c *fiber.Ctx) error {
	var in leadsvc.ContactInput
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	in.Source = domain.LeadSourceWebsite
	in.AssignedExecutiveID = nil
	lead, created, err := h.Service.GetOrCreateForEmail(c.UserContext(), in)
	if err != nil {
		return response.FromError(c, err)
	}
	data := fiber.Map{"lead_id": lead.ID}
	if created {
		return response.SuccessCreated(c, "Thanks, an executive will contact you soon", data, nil)
	}
	return response.Success(c, "Thanks, an executive will contact you soon", data, nil)
}

// Get GET /api/v1/leads/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "Lead not found")
	if err != nil {
		return response.FromError(c, err)
	}
	lead, err := h.Service.Get(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Lead retrieved", lead, nil)
}

// Update PATCH /api/v1/leads/:id
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "Lead not found")
	if err != nil {
		return response.FromError(c, err)
	}
	var in leadsvc.UpdateInput
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	lead, err := h.Service.Update(c.UserContext(), id, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Lead updated", lead, nil)
}

// Assign POST /api/v1/leads/:id/assign
func (h *Handlers) Assign(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "Lead not found")
	if err != nil {
		return response.FromError(c, err)
	}
	var req assignRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.ExecutiveID == uuid.Nil {
		return response.FromError(c, apperr.Validation("executive_id is required"))
	}
	lead, err := h.Service.AssignTo(c.UserContext(), id, req.ExecutiveID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Lead assigned", lead, nil)
}

// Interactions GET /api/v1/leads/:id/interactions
func (h *Handlers) Interactions(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "Lead not found")
	if err != nil {
		return response.FromError(c, err)
	}
	out, err := h.Service.ListInteractions(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Interactions retrieved", out, fiber.Map{"count": len(out)})
}

// AddInteraction POST /api/v1/leads/:id/interactions
func (h *Handlers) AddInteraction(c *fiber.Ctx) error {
	id, err := request.UUIDParam(c, "id", "Lead not found")
	if err != nil {
		return response.FromError(c, err)
	}
	var in leadsvc.InteractionInput
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	var actor *uuid.UUID
	if me, ok := middleware.CurrentUserID(c); ok {
		actor = &me
	}
	it, err := h.Service.AddInteraction(c.UserContext(), id, actor, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Interaction recorded", it, nil)
}

// Webhook POST /api/v1/leads/webhook (X-API-Key). 201 for a new lead, 409
// when the email is already known.
func (h *Handlers) Webhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	var raw map[string]interface{}
	_ = json.Unmarshal(c.Body(), &raw)
	lead, created, err := h.Service.CreateFromExternal(c.UserContext(), leadsvc.ExternalLead{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		Source:       req.Source,
		SourceDetail: req.SourceDetail,
		Notes:        req.Notes,
		Raw:          raw,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	data := fiber.Map{"lead_id": lead.ID, "created": created}
	if !created {
		return response.SuccessStatus(c, fiber.StatusConflict, "Lead already exists", data, nil)
	}
	return response.SuccessCreated(c, "Lead created", data, nil)
}
