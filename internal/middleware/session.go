package middleware

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	SessionCookieName  = "sr.sid"
	SessionRedisPrefix = "session:"
	sessionTTL         = 24 * time.Hour
	sessionLocal       = "session"
)

// SessionConfig drives the cookie attributes.
type SessionConfig struct {
	AllowCrossSiteDev bool
	IsProduction      bool
}

// SessionUser is what a session remembers about who is logged in.
// IsKYCVerified is a login-time snapshot; gates that depend on it re-read
// the database.
type SessionUser struct {
	UserID        string `json:"user_id"`
	Fullname      string `json:"fullname"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	IsKYCVerified bool   `json:"is_kyc_verified"`
}

type sessionPayload struct {
	User *SessionUser `json:"user,omitempty"`
}

type sessionState struct {
	id      string
	payload sessionPayload
	dirty   bool
}

// NewRedisClient parses a redis:// URL into a client shared by sessions,
// health counters, caches and the sweeper lock.
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// Session loads the payload keyed by the sr.sid cookie. A payload changed
// during the request is written back; an untouched one only has its TTL
// slid forward.
func Session(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := &sessionState{id: cookieSessionID(c.Cookies(SessionCookieName))}
		if st.id != "" {
			raw, err := rdb.Get(c.UserContext(), SessionRedisPrefix+st.id).Bytes()
			switch {
			case err == nil:
				if jerr := json.Unmarshal(raw, &st.payload); jerr != nil {
					log.Warn().Err(jerr).Msg("discarding unreadable session")
				}
			case err != redis.Nil:
				log.Error().Err(err).Msg("session load failed")
			}
		}
		c.Locals(sessionLocal, st)

		if err := c.Next(); err != nil {
			return err
		}
		if st.id == "" {
			return nil
		}
		key := SessionRedisPrefix + st.id
		if st.dirty {
			b, _ := json.Marshal(st.payload)
			return rdb.Set(c.UserContext(), key, b, sessionTTL).Err()
		}
		if st.payload.User != nil {
			rdb.Expire(c.UserContext(), key, sessionTTL)
		}
		return nil
	}
}

// cookieSessionID accepts both "s:<id>" and the signed "s:<id>.<sig>" form.
func cookieSessionID(v string) string {
	if !strings.HasPrefix(v, "s:") {
		return v
	}
	id, _, _ := strings.Cut(v[2:], ".")
	return id
}

func state(c *fiber.Ctx) *sessionState {
	if st, ok := c.Locals(sessionLocal).(*sessionState); ok {
		return st
	}
	st := &sessionState{}
	c.Locals(sessionLocal, st)
	return st
}

// CurrentUser returns the logged-in user, or nil.
func CurrentUser(c *fiber.Ctx) *SessionUser {
	return state(c).payload.User
}

// GetSessionID returns the id the request is bound to ("" when anonymous).
func GetSessionID(c *fiber.Ctx) string {
	return state(c).id
}

// SetSessionUser stores user in the session. Call RegenerateSessionID first
// on login so a pre-auth id is never promoted.
func SetSessionUser(c *fiber.Ctx, user SessionUser) {
	st := state(c)
	st.payload.User = &user
	st.dirty = true
}

// RegenerateSessionID binds the request to a fresh id and returns it.
func RegenerateSessionID(c *fiber.Ctx) string {
	st := state(c)
	st.id = uuid.New().String()
	st.dirty = true
	return st.id
}

// DestroySession unbinds the request. The caller removes the Redis key and
// clears the cookie.
func DestroySession(c *fiber.Ctx) {
	st := state(c)
	st.id = ""
	st.payload = sessionPayload{}
	st.dirty = false
}

// SessionCookieConfig returns the cookie template for set and clear.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	ck := fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if cfg.AllowCrossSiteDev {
		ck.SameSite = fiber.CookieSameSiteNoneMode
		ck.Secure = cfg.IsProduction
	}
	return ck
}
