package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/openmat-booking/internal/config"
	"github.com/iliyamo/openmat-booking/internal/middleware"
	"github.com/iliyamo/openmat-booking/internal/model"
	"github.com/iliyamo/openmat-booking/internal/queue"
	"github.com/iliyamo/openmat-booking/internal/repository"
	"github.com/iliyamo/openmat-booking/internal/service"
	"github.com/iliyamo/openmat-booking/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg       config.Config
	Users     repository.UserRepository
	Tokens    repository.TokenRepository
	Publisher service.EventPublisher
}

func NewAuthHandler(cfg config.Config, u repository.UserRepository, t repository.TokenRepository, p service.EventPublisher) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Publisher: p}
}

// ----- DTOs -----

type registerReq struct {
	Email      string  `json:"email" validate:"required,email,max=255"`
	Password   string  `json:"password" validate:"required,min=8,max=72"`
	Name       string  `json:"name" validate:"required,max=255"`
	HomeClubID *uint64 `json:"homeClubId" validate:"omitempty,gt=0"`
}

func (r *registerReq) trim() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	trimmed(&r.Name)
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type verifyReq struct {
	Token string `json:"token" validate:"required"`
}

type authResp struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Register creates a member account, or an admin one for addresses listed
// in ADMIN_EMAILS, and signs the caller in.  Unless accounts are verified
// automatically a verification token is issued and handed to the broker.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if msg, ok := bindValid(c, &req, req.trim); !ok {
		return badRequest(c, msg)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, utils.ErrPasswordTooShort) || errors.Is(err, utils.ErrPasswordTooLong) {
		return badRequest(c, err.Error())
	}
	if err != nil {
		return internalError(c, err, "failed to register")
	}
	role := model.RoleMember
	if h.Cfg.IsAdminEmail(req.Email) {
		role = model.RoleAdmin
	}
	u := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
		IsVerified:   h.Cfg.AutoVerifyUsers,
		HomeClubID:   req.HomeClubID,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	switch err := h.Users.Create(ctx, u); {
	case errors.Is(err, repository.ErrEmailExists):
		return badRequest(c, "email already registered")
	case errors.Is(err, repository.ErrClubNotFound):
		return badRequest(c, "home club not found")
	case err != nil:
		return internalError(c, err, "failed to register")
	}

	if !u.IsVerified {
		h.issueVerification(ctx, u)
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.JWTTTL)
	if err != nil {
		return internalError(c, err, "failed to issue token")
	}
	return c.JSON(http.StatusCreated, authResp{User: u, Token: tok.Token, ExpiresAt: tok.Exp})
}

// issueVerification stores a fresh token hash and publishes the plain token.
// The account already exists at this point so failures are only logged.
func (h *AuthHandler) issueVerification(ctx context.Context, u *model.User) {
	log := logrus.WithField("user_id", u.ID)
	vt, err := utils.NewVerificationToken(h.Cfg.VerificationTTL)
	if err != nil {
		log.WithError(err).Error("verification token not generated")
		return
	}
	if err := h.Tokens.StoreVerification(ctx, u.ID, utils.HashToken(vt.Raw), vt.Exp); err != nil {
		log.WithError(err).Error("verification token not stored")
		return
	}
	if h.Publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	ev := queue.VerificationRequestedEvent{
		EventID:   uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		Token:     vt.Raw,
		ExpiresAt: vt.Exp,
	}
	if err := h.Publisher.PublishVerificationRequested(pctx, ev); err != nil {
		log.WithError(err).Warn("user.verification not published")
	}
}

// Login checks the credentials and returns a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	prepare := func() { req.Email = strings.ToLower(strings.TrimSpace(req.Email)) }
	if msg, ok := bindValid(c, &req, prepare); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return internalError(c, err, "failed to log in")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if !u.IsVerified {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email not verified"})
	}

	tok, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.JWTTTL)
	if err != nil {
		return internalError(c, err, "failed to issue token")
	}
	return c.JSON(http.StatusOK, authResp{User: u, Token: tok.Token, ExpiresAt: tok.Exp})
}

// Verify consumes an email verification token and marks its user verified.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if msg, ok := bindValid(c, &req, func() { trimmed(&req.Token) }); !ok {
		return badRequest(c, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	uid, err := h.Tokens.ConsumeVerification(ctx, utils.HashToken(req.Token))
	if errors.Is(err, repository.ErrTokenInvalid) {
		return badRequest(c, "invalid or expired token")
	}
	if err != nil {
		return internalError(c, err, "failed to verify")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return internalError(c, err, "failed to verify")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return internalError(c, err, "failed to load user")
	}
	return c.JSON(http.StatusOK, u)
}
