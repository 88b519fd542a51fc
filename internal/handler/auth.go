package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/service"
)

// refreshCookieName is the transport contract for the opaque refresh
// secret: an HTTP-only, secure, SameSite=None cookie whose Max-Age
// matches the refresh TTL. The secret never appears in a JSON body.
const refreshCookieName = "refresh_token"

// AuthHandler is the thin transport layer over the auth orchestrator:
// bind, delegate, translate errors, set the refresh cookie.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type introspectReq struct {
	Token string `json:"token"`
}

type authResp struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// Register: create the user in PENDING_VERIFICATION and queue the
// verification mail.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	res, err := h.Auth.Register(ctx, req, c.RealIP())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Login: verify credentials, return the access token in the body and
// the rotated refresh secret in the cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password, c.RealIP())
	if err != nil {
		return h.mapError(c, err)
	}
	h.setRefreshCookie(c, res.RefreshToken)
	return c.JSON(http.StatusOK, authResp{Email: res.Email, Username: res.Username, AccessToken: res.AccessToken})
}

// Refresh: rotate the refresh token from the cookie and return a fresh
// pair. Replaying an already-rotated secret fails with 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, cookie.Value)
	if err != nil {
		return h.mapError(c, err)
	}
	h.setRefreshCookie(c, res.RefreshToken)
	return c.JSON(http.StatusOK, authResp{Email: res.Email, Username: res.Username, AccessToken: res.AccessToken})
}

// VerifyEmail: consume the token from the mail link.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	msg, err := h.Auth.VerifyEmail(ctx, token, c.RealIP())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// Introspect: stateless access-token check. An invalid token is not an
// HTTP error, just active=false.
func (h *AuthHandler) Introspect(c echo.Context) error {
	var req introspectReq
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token required"})
	}
	return c.JSON(http.StatusOK, h.Auth.Introspect(req.Token))
}

// Logout: revoke the refresh token presented in the cookie or body.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw := ""
	if cookie, err := c.Cookie(refreshCookieName); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.Bind(&req)
		raw = req.RefreshToken
	}
	if raw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Auth.Logout(ctx, raw); err != nil {
		return h.mapError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll: revoke every token for the authenticated user (protected
// route; JWTAuth supplies the subject).
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.Auth.LogoutAll(ctx, userID); err != nil {
		return h.mapError(c, err)
	}
	h.clearRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me: simple protected endpoint exposing the token's identity claims.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     c.Get(middleware.CtxUserID),
		"roles":       c.Get(middleware.CtxRoles),
		"permissions": c.Get(middleware.CtxPermissions),
	})
}

// ----- helpers -----

func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, raw string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    raw,
		Path:     "/",
		MaxAge:   h.Cfg.RefreshTTLDays * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// mapError translates the service taxonomy into HTTP statuses. Internal
// failures log their detail and return a generic message; nothing from
// the database reaches the response body.
func (h *AuthHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		log.Printf("auth handler: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
