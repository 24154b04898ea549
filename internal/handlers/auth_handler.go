package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/services"
	"remesas/internal/session"
)

type AuthHandler struct {
	users    services.UserService
	sessions services.SessionService
	secure   bool
}

func NewAuthHandler(users services.UserService, sessions services.SessionService, secureCookies bool) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, secure: secureCookies}
}

// startSession creates the session row and sets the cookie.
func (h *AuthHandler) startSession(c *gin.Context, user *models.User) error {
	value, expiresAt, err := h.sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		return err
	}
	http.SetCookie(c.Writer, session.Cookie(value, expiresAt, h.secure))
	return nil
}

// @Summary      Registro de cliente
// @Description  Crea la cuenta, un borrador de verificación KYC e inicia sesión
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "Datos de registro"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, "[auth][register]", err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		respondError(c, "[auth][register] session", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// @Summary      Inicio de sesión
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequest  true  "Credenciales"
// @Success      200   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()

	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, "[auth][login]", err)
		return
	}
	if err := h.startSession(c, user); err != nil {
		respondError(c, "[auth][login] session", err)
		return
	}
	logger.Info("[auth][login] success",
		logger.String("user_id", user.ID.String()),
		logger.Duration("took", time.Since(start).Truncate(time.Millisecond)))
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// @Summary      Cerrar sesión
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if value, err := c.Cookie(session.CookieName); err == nil && value != "" {
		if err := h.sessions.Destroy(c.Request.Context(), value); err != nil {
			logger.Warn("[auth][logout] delete session failed", logger.Err(err))
		}
	}
	// cookie удаляем в любом случае
	http.SetCookie(c.Writer, session.ClearCookie(h.secure))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Usuario actual
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		respondError(c, "[auth][me]", services.ErrNotAuthenticated)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// @Summary      Cambiar contraseña
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      updatePasswordRequest  true  "Contraseñas"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/auth/password [post]
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	user := currentUser(c)
	if err := h.users.UpdatePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, "[auth][password]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
