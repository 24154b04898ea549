package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"remesas/internal/services"
)

type PasswordHandler struct {
	resets services.PasswordResetService
}

func NewPasswordHandler(resets services.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// @Summary      Solicitar recuperación de contraseña
// @Description  Siempre responde éxito para no revelar qué emails existen
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Email"
// @Success      200   {object}  map[string]interface{}
// @Router       /api/auth/forgot-password [post]
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	if err := h.resets.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, "[password-reset][request]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Si el email está registrado, recibirás un enlace para restablecer tu contraseña",
	})
}

// @Summary      Restablecer contraseña
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Token y nueva contraseña"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/auth/reset-password [post]
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	if err := h.resets.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, "[password-reset][reset]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
