package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/research-assistant/logging"
	"github.com/tieubaoca/research-assistant/middleware"
	"github.com/tieubaoca/research-assistant/service"
	"github.com/tieubaoca/research-assistant/types"
	"github.com/tieubaoca/research-assistant/utils"
)

type AuthHandler struct {
	userService service.UserService
	secret      string
	secure      bool
	log         logging.Logger
}

// NewAuthHandler signs session tokens with secret. secure marks the session
// cookie HTTPS-only.
func NewAuthHandler(userService service.UserService, secret string, secure bool, log logging.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, secret: secret, secure: secure, log: log}
}

func (h *AuthHandler) HandleRegister(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	ok, err := h.userService.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err != nil:
		h.log.Error(c.Request.Context(), "register failed", "error", err)
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: false, Message: "Internal server error"})
		return
	case !ok:
		c.JSON(http.StatusConflict, types.DataResponse{Status: false, Message: "Username or email already exists."})
		return
	}
	c.JSON(http.StatusCreated, types.DataResponse{
		Status:  true,
		Message: "Registration successful! Please log in.",
	})
}

func (h *AuthHandler) HandleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	session, err := h.userService.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, types.DataResponse{Status: false, Message: "Invalid credentials."})
		return
	}
	if err != nil {
		h.log.Error(c.Request.Context(), "login failed", "error", err)
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: false, Message: "Internal server error"})
		return
	}

	token, err := utils.GenerateSessionToken(session, h.secret)
	if err != nil {
		h.log.Error(c.Request.Context(), "failed to sign session", "error", err)
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: false, Message: "Internal server error"})
		return
	}
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.secure, true)
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.LoginResponse{
			AccessToken: token,
			Username:    session.Username,
			ExpiresAt:   session.ExpiresAt.Unix(),
		},
	})
}

// HandleLogout clears the cookie. Bearer tokens stay valid until they expire.
func (h *AuthHandler) HandleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Message: "Logged out."})
}

func (h *AuthHandler) HandleMe(c *gin.Context) {
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: middleware.SessionFrom(c)})
}
