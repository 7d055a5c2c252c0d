package projects

import (
	projsvc "somosrentable-backend/internal/application/projects"
	"somosrentable-backend/internal/constants"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Service *projsvc.Service
}

// List GET /api/v1/projects?status= . Drafts are only listed for project managers.
func (h *Handlers) List(c *fiber.Ctx) error {
	includeDrafts := constants.AllowedRole(constants.ProjectManage, middleware.CurrentRole(c))
	out, err := h.Service.List(c.UserContext(), c.Query("status"), includeDrafts)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Projects retrieved", out, fiber.Map{"count": len(out)})
}

// Get GET /api/v1/projects/:slug
func (h *Handlers) Get(c *fiber.Ctx) error {
	p, err := h.Service.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project retrieved", fiber.Map{
		"project":          p,
		"funding_progress": p.FundingProgress(),
	}, nil)
}

// CalculateReturn GET /api/v1/projects/:slug/calculate-return?amount=
func (h *Handlers) CalculateReturn(c *fiber.Ctx) error {
	amount, err := request.DecimalQuery(c, "amount")
	if err != nil {
		return response.FromError(c, err)
	}
	q, err := h.Service.CalculateReturn(c.UserContext(), c.Params("slug"), amount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Return calculated", q, nil)
}

// Create POST /api/v1/projects
func (h *Handlers) Create(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var in projsvc.Input
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Service.Create(c.UserContext(), actor, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Project created", p, nil)
}

// Update PATCH /api/v1/projects/:slug
func (h *Handlers) Update(c *fiber.Ctx) error {
	var in projsvc.Input
	if err := request.Body(c, &in); err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Service.Update(c.UserContext(), c.Params("slug"), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Project updated", p, nil)
}

type imageRequest struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption"`
}

// AddImage POST /api/v1/projects/:slug/images
func (h *Handlers) AddImage(c *fiber.Ctx) error {
	var req imageRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	if req.ImageURL == "" {
		return response.Error(c, "image_url is required", fiber.StatusBadRequest, nil)
	}
	img, err := h.Service.AddImage(c.UserContext(), c.Params("slug"), req.ImageURL, req.Caption)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Image added", img, nil)
}
