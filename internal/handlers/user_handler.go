package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"remesas/internal/models"
	"remesas/internal/services"
)

type UserHandler struct {
	users services.UserService
}

func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// @Summary      Crear usuario (gerencia)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateUserRequest  true  "Nuevo usuario"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/admin/users/create [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	user, err := h.users.CreateByAdmin(c.Request.Context(), currentUser(c), req)
	if err != nil {
		respondError(c, "[admin][users-create]", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// @Summary      Listar usuarios
// @Tags         Admin
// @Produce      json
// @Param        page   query     int  false  "Página (desde 1)"
// @Param        limit  query     int  false  "Tamaño de página (máx. 100)"
// @Success      200    {object}  map[string]interface{}
// @Router       /api/admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	users, err := h.users.List(c.Request.Context(), currentUser(c), page, limit)
	if err != nil {
		respondError(c, "[admin][users-list]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "users": users, "page": page})
}
