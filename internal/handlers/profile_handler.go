package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"remesas/internal/services"
)

type ProfileHandler struct {
	profiles services.ProfileService
}

func NewProfileHandler(profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type profileUpdateRequest struct {
	Changes map[string]string `json:"changes"`
}

// @Summary      Solicitar cambio de perfil
// @Description  Los cambios quedan pendientes hasta que gerencia los apruebe
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Param        body  body      profileUpdateRequest  true  "Campos a cambiar"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Router       /api/profile/update-request [post]
func (h *ProfileHandler) RequestUpdate(c *gin.Context) {
	var req profileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	r, err := h.profiles.RequestUpdate(c.Request.Context(), currentUser(c).ID, req.Changes)
	if err != nil {
		respondError(c, "[profile][request]", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "request": r})
}

// @Summary      Solicitudes de perfil pendientes
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Router       /api/admin/profile-requests [get]
func (h *ProfileHandler) ListPending(c *gin.Context) {
	list, err := h.profiles.ListPending(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, "[admin][profile-requests]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "requests": list})
}

// @Summary      Aprobar solicitud de perfil
// @Tags         Admin
// @Produce      json
// @Param        id   path      string  true  "Solicitud"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/admin/profile-requests/{id}/approve [post]
func (h *ProfileHandler) Approve(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.profiles.Approve(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, "[admin][profile-approve]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Rechazar solicitud de perfil
// @Tags         Admin
// @Produce      json
// @Param        id   path      string  true  "Solicitud"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/admin/profile-requests/{id}/reject [post]
func (h *ProfileHandler) Reject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.profiles.Reject(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, "[admin][profile-reject]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
