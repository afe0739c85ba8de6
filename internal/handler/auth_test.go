package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/iliyamo/openmat-booking/internal/config"
	"github.com/iliyamo/openmat-booking/internal/middleware"
	"github.com/iliyamo/openmat-booking/internal/model"
	"github.com/iliyamo/openmat-booking/internal/queue"
	"github.com/iliyamo/openmat-booking/internal/repository"
	"github.com/iliyamo/openmat-booking/internal/repository/mocks"
	svcmocks "github.com/iliyamo/openmat-booking/internal/service/mocks"
	"github.com/iliyamo/openmat-booking/internal/utils"
)

type authBody struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type AuthHandlerTestSuite struct {
	suite.Suite
	mockCtrl      *gomock.Controller
	mockUsers     *mocks.MockUserRepository
	mockTokens    *mocks.MockTokenRepository
	mockPublisher *svcmocks.MockEventPublisher
	cfg           config.Config
}

func (s *AuthHandlerTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUsers = mocks.NewMockUserRepository(s.mockCtrl)
	s.mockTokens = mocks.NewMockTokenRepository(s.mockCtrl)
	s.mockPublisher = svcmocks.NewMockEventPublisher(s.mockCtrl)
	s.cfg = config.Config{
		JWTSecret:       "auth-secret",
		JWTTTL:          time.Hour,
		BcryptCost:      4,
		AutoVerifyUsers: true,
		VerificationTTL: 24 * time.Hour,
		AdminEmails:     []string{"owner@openmat.example"},
	}
}

func TestAuthHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

func (s *AuthHandlerTestSuite) server() *echo.Echo {
	h := NewAuthHandler(s.cfg, s.mockUsers, s.mockTokens, s.mockPublisher)
	e := newTestEcho()
	e.POST("/api/auth/register", h.Register)
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/verify", h.Verify)
	e.GET("/api/auth/me", h.Me, middleware.JWTAuth(s.cfg.JWTSecret))
	return e
}

func (s *AuthHandlerTestSuite) hashed(plain string) string {
	h, err := utils.HashPassword(plain, 4)
	s.Require().NoError(err)
	return h
}

func (s *AuthHandlerTestSuite) TestRegister_AutoVerified() {
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *model.User) error {
		s.Equal("new.member@example.com", u.Email)
		s.Equal(model.RoleMember, u.Role)
		s.True(u.IsVerified)
		s.True(utils.VerifyPassword(u.PasswordHash, "s3cret-pass"))
		u.ID = 17
		return nil
	})

	rec := do(s.server(), http.MethodPost, "/api/auth/register",
		`{"email":"  New.Member@Example.com ","password":"s3cret-pass","name":"New Member"}`, "")
	s.Equal(http.StatusCreated, rec.Code)

	body := decode[authBody](s.T(), rec)
	s.Require().NotNil(body.User)
	s.Equal(uint64(17), body.User.ID)
	s.NotContains(rec.Body.String(), "passwordHash")
	s.NotContains(rec.Body.String(), "$2a$")

	claims, err := utils.ParseAccessToken(s.cfg.JWTSecret, body.Token)
	s.Require().NoError(err)
	uid, err := claims.UserID()
	s.Require().NoError(err)
	s.Equal(uint64(17), uid)
	s.Equal(model.RoleMember, claims.Role)
}

func (s *AuthHandlerTestSuite) TestRegister_AdminEmail() {
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *model.User) error {
		s.Equal(model.RoleAdmin, u.Role)
		u.ID = 1
		return nil
	})

	rec := do(s.server(), http.MethodPost, "/api/auth/register",
		`{"email":"Owner@OpenMat.example","password":"long-enough","name":"Owner"}`, "")
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal(model.RoleAdmin, decode[authBody](s.T(), rec).User.Role)
}

func (s *AuthHandlerTestSuite) TestRegister_DuplicateEmail() {
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).Return(repository.ErrEmailExists).Times(1)

	rec := do(s.server(), http.MethodPost, "/api/auth/register",
		`{"email":"taken@example.com","password":"long-enough","name":"Taken"}`, "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"email already registered"}`, rec.Body.String())
}

func (s *AuthHandlerTestSuite) TestRegister_UnknownHomeClub() {
	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *model.User) error {
		s.Require().NotNil(u.HomeClubID)
		s.Equal(uint64(555), *u.HomeClubID)
		return repository.ErrClubNotFound
	})

	rec := do(s.server(), http.MethodPost, "/api/auth/register",
		`{"email":"a@example.com","password":"long-enough","name":"A","homeClubId":555}`, "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"home club not found"}`, rec.Body.String())
}

func (s *AuthHandlerTestSuite) TestRegister_Validation() {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"short password", `{"email":"a@example.com","password":"short","name":"A"}`, "password must be at least 8 characters"},
		{"bad email", `{"email":"nope","password":"long-enough","name":"A"}`, "email must be a valid email"},
		{"missing name", `{"email":"a@example.com","password":"long-enough","name":"  "}`, "name is required"},
		{"multibyte password over 72 bytes", `{"email":"a@example.com","password":"` + strings.Repeat("é", 40) + `","name":"A"}`, "password must be at most 72 bytes"},
	}
	e := s.server()
	for _, tc := range cases {
		rec := do(e, http.MethodPost, "/api/auth/register", tc.body, "")
		s.Equal(http.StatusBadRequest, rec.Code, tc.name)
		s.JSONEq(`{"error":"`+tc.want+`"}`, rec.Body.String(), tc.name)
	}
}

func (s *AuthHandlerTestSuite) TestRegister_IssuesVerificationToken() {
	s.cfg.AutoVerifyUsers = false
	var storedHash string

	s.mockUsers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *model.User) error {
		s.False(u.IsVerified)
		u.ID = 23
		return nil
	})
	s.mockTokens.EXPECT().StoreVerification(gomock.Any(), uint64(23), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uint64, hash string, exp time.Time) error {
			storedHash = hash
			s.WithinDuration(time.Now().Add(24*time.Hour), exp, time.Minute)
			return nil
		})
	s.mockPublisher.EXPECT().PublishVerificationRequested(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev queue.VerificationRequestedEvent) error {
			s.Equal(uint64(23), ev.UserID)
			s.Equal("pending@example.com", ev.Email)
			s.Len(ev.Token, 64)
			s.Equal(utils.HashToken(ev.Token), storedHash)
			return nil
		})

	rec := do(s.server(), http.MethodPost, "/api/auth/register",
		`{"email":"pending@example.com","password":"long-enough","name":"Pending"}`, "")
	s.Equal(http.StatusCreated, rec.Code)
	s.False(decode[authBody](s.T(), rec).User.IsVerified)
}

func (s *AuthHandlerTestSuite) TestLogin() {
	s.mockUsers.EXPECT().GetByEmail(gomock.Any(), "member@example.com").Return(&model.User{
		ID: 8, Email: "member@example.com", PasswordHash: s.hashed("correct-horse"), Role: model.RoleMember, IsVerified: true,
	}, nil)

	rec := do(s.server(), http.MethodPost, "/api/auth/login", `{"email":"Member@example.com","password":"correct-horse"}`, "")
	s.Equal(http.StatusOK, rec.Code)
	body := decode[authBody](s.T(), rec)
	s.NotEmpty(body.Token)
	s.Equal(uint64(8), body.User.ID)
}

func (s *AuthHandlerTestSuite) TestLogin_WrongPassword() {
	s.mockUsers.EXPECT().GetByEmail(gomock.Any(), "member@example.com").Return(&model.User{
		ID: 8, Email: "member@example.com", PasswordHash: s.hashed("correct-horse"), IsVerified: true,
	}, nil)

	rec := do(s.server(), http.MethodPost, "/api/auth/login", `{"email":"member@example.com","password":"battery-staple"}`, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.JSONEq(`{"error":"invalid credentials"}`, rec.Body.String())
	s.NotContains(rec.Body.String(), "token")
}

func (s *AuthHandlerTestSuite) TestLogin_UnknownEmail() {
	s.mockUsers.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, repository.ErrUserNotFound)

	rec := do(s.server(), http.MethodPost, "/api/auth/login", `{"email":"`+gofakeit.Email()+`","password":"whatever1"}`, "")
	s.Equal(http.StatusUnauthorized, rec.Code)
	s.JSONEq(`{"error":"invalid credentials"}`, rec.Body.String())
}

func (s *AuthHandlerTestSuite) TestLogin_Unverified() {
	s.mockUsers.EXPECT().GetByEmail(gomock.Any(), "new@example.com").Return(&model.User{
		ID: 9, PasswordHash: s.hashed("correct-horse"), IsVerified: false,
	}, nil)

	rec := do(s.server(), http.MethodPost, "/api/auth/login", `{"email":"new@example.com","password":"correct-horse"}`, "")
	s.Equal(http.StatusForbidden, rec.Code)
	s.JSONEq(`{"error":"email not verified"}`, rec.Body.String())
}

func (s *AuthHandlerTestSuite) TestVerify() {
	s.mockTokens.EXPECT().ConsumeVerification(gomock.Any(), utils.HashToken("abc123")).Return(uint64(23), nil)
	s.mockUsers.EXPECT().GetByID(gomock.Any(), uint64(23)).Return(&model.User{ID: 23, IsVerified: true}, nil)

	rec := do(s.server(), http.MethodPost, "/api/auth/verify", `{"token":" abc123 "}`, "")
	s.Equal(http.StatusOK, rec.Code)
	s.True(decode[authBody](s.T(), rec).User.IsVerified)
}

func (s *AuthHandlerTestSuite) TestVerify_InvalidToken() {
	s.mockTokens.EXPECT().ConsumeVerification(gomock.Any(), gomock.Any()).Return(uint64(0), repository.ErrTokenInvalid)

	rec := do(s.server(), http.MethodPost, "/api/auth/verify", `{"token":"used"}`, "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.JSONEq(`{"error":"invalid or expired token"}`, rec.Body.String())
}

func (s *AuthHandlerTestSuite) TestMe() {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, 8, model.RoleMember, time.Hour)
	s.Require().NoError(err)
	s.mockUsers.EXPECT().GetByID(gomock.Any(), uint64(8)).Return(&model.User{ID: 8, Name: "Member"}, nil)

	rec := do(s.server(), http.MethodGet, "/api/auth/me", "", tok.Token)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Member", decode[model.User](s.T(), rec).Name)
}

func (s *AuthHandlerTestSuite) TestMe_DeletedUser() {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, 8, model.RoleMember, time.Hour)
	s.Require().NoError(err)
	s.mockUsers.EXPECT().GetByID(gomock.Any(), uint64(8)).Return(nil, repository.ErrUserNotFound)

	rec := do(s.server(), http.MethodGet, "/api/auth/me", "", tok.Token)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *AuthHandlerTestSuite) TestMe_StoreFailure() {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, 8, model.RoleMember, time.Hour)
	s.Require().NoError(err)
	s.mockUsers.EXPECT().GetByID(gomock.Any(), uint64(8)).Return(nil, errors.New("bad connection"))

	rec := do(s.server(), http.MethodGet, "/api/auth/me", "", tok.Token)
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.NotContains(rec.Body.String(), "bad connection")
}
