package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/FreeRikato/classroom-api/internal/core/ports"
)

// LoginRecorder observes login outcomes. The metrics package implements it.
type LoginRecorder interface {
	Login(success bool)
}

type nopLoginRecorder struct{}

func (nopLoginRecorder) Login(bool) {}

type AuthHandler struct {
	authService ports.AuthService
	recorder    LoginRecorder
}

func NewAuthHandler(authService ports.AuthService, recorder LoginRecorder) *AuthHandler {
	if recorder == nil {
		recorder = nopLoginRecorder{}
	}
	return &AuthHandler{authService: authService, recorder: recorder}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// Login authenticates with a username or email and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}
	return h.issue(c, login, req.Password)
}

// Token is the OAuth2 password-grant endpoint used by the Swagger UI.
//
// @Summary      OAuth2 token
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username or email"
// @Param        password  formData  string  true  "Password"
// @Success      200       {object}  tokenResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Router       /token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.issue(c, req.Username, req.Password)
}

func (h *AuthHandler) issue(c echo.Context, login, password string) error {
	token, err := h.authService.Authenticate(c.Request().Context(), login, password)
	h.recorder.Login(err == nil)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}
