package auth

import (
	"somosrentable-backend/internal/application/accounts"
	authsvc "somosrentable-backend/internal/application/auth"
	"somosrentable-backend/internal/application/funnel"
	"somosrentable-backend/internal/application/sessions"
	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/middleware"
	"somosrentable-backend/internal/pkg/apperr"
	"somosrentable-backend/internal/pkg/request"
	"somosrentable-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers serves /api/v1/auth.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Funnel     *funnel.Service
	Accounts   *accounts.Service
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Fullname        string `json:"fullname"`
	Phone           string `json:"phone"`
}

// Register POST /auth/register: investor sign-up. Leads under the same email
// are linked to the new account before the session starts.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := request.Body(c, &req); err != nil {
		return response.FromError(c, err)
	}
	reg, err := h.Funnel.RegisterAccount(c.UserContext(), accounts.CreateInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Fullname:        req.Fullname,
		Phone:           req.Phone,
	})
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.startSession(c, reg.User); err != nil {
		return err
	}
	return response.SuccessCreated(c, "Account created successfully", fiber.Map{
		"user":         sessionUser(reg.User),
		"linked_leads": len(reg.LinkedLeads),
	}, nil)
}

// Login POST /auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return fiber.ErrInternalServerError
	}
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.FromError(c, authsvc.ErrEmailPasswordRequired)
	}
	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.startSession(c, user); err != nil {
		return err
	}
	return response.Success(c, "Login successful", fiber.Map{"user": sessionUser(user)}, nil)
}

// startSession rotates the session id, stores the user and indexes the id
// under the account so deactivation can revoke it.
func (h *Handlers) startSession(c *fiber.Ctx, user *domain.User) error {
	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, sessionUser(user))
	if err := sessions.Track(c.UserContext(), h.Rdb, user.ID.String(), sid); err != nil {
		return err
	}
	ck := middleware.SessionCookieConfig(h.Config)
	ck.Value = "s:" + sid
	c.Cookie(&ck)
	return nil
}

func sessionUser(u *domain.User) middleware.SessionUser {
	return middleware.SessionUser{
		UserID:        u.ID.String(),
		Fullname:      u.Fullname,
		Email:         u.Email,
		Role:          u.Role,
		IsKYCVerified: u.IsKYCVerified,
	}
}

// Me GET /auth/me. The stored snapshot is refreshed from the database so a
// KYC approval shows up without logging in again.
func (h *Handlers) Me(c *fiber.Ctx) error {
	cur := middleware.CurrentUser(c)
	if cur == nil || cur.UserID == "" {
		return response.FromError(c, apperr.Unauthenticated("Not authenticated"))
	}
	out := *cur
	if id, ok := middleware.CurrentUserID(c); ok && h.Accounts != nil {
		if u, err := h.Accounts.Get(c.UserContext(), id); err == nil {
			out = sessionUser(u)
		}
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": out}, nil)
}

// Logout DELETE /auth/logout
func (h *Handlers) Logout(c *fiber.Ctx) error {
	if cur := middleware.CurrentUser(c); cur != nil {
		sessions.Forget(c.UserContext(), h.Rdb, cur.UserID, middleware.GetSessionID(c))
	}
	middleware.DestroySession(c)

	ck := middleware.SessionCookieConfig(h.Config)
	ck.MaxAge = -1
	c.Cookie(&ck)
	return response.Success(c, "Logged out successfully", nil, nil)
}
