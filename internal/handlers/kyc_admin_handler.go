package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"remesas/internal/services"
)

type KYCAdminHandler struct {
	kyc     services.KYCService
	reports services.ReportService
}

func NewKYCAdminHandler(kyc services.KYCService, reports services.ReportService) *KYCAdminHandler {
	return &KYCAdminHandler{kyc: kyc, reports: reports}
}

// @Summary      Verificaciones pendientes
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]interface{}
// @Router       /api/admin/kyc/pending [get]
func (h *KYCAdminHandler) Pending(c *gin.Context) {
	list, err := h.kyc.ListPending(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, "[admin][kyc-pending]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verifications": list})
}

// @Summary      Detalle de verificación
// @Tags         Admin
// @Produce      json
// @Param        id   path      string  true  "Verificación"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Router       /api/admin/kyc/{id} [get]
func (h *KYCAdminHandler) Detail(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	d, err := h.kyc.Detail(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, "[admin][kyc-detail]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "detail": d})
}

// @Summary      Expediente PDF de la verificación
// @Tags         Admin
// @Produce      application/pdf
// @Param        id   path  string  true  "Verificación"
// @Success      200  {file}  file
// @Router       /api/admin/kyc/{id}/report [get]
func (h *KYCAdminHandler) Report(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reports.WriteKYCDossier(c.Request.Context(), currentUser(c), id, &buf); err != nil {
		respondError(c, "[admin][kyc-report]", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="kyc-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

type reviewRequest struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// @Summary      Aprobar verificación (gerencia)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path      string         true   "Verificación"
// @Param        body  body      reviewRequest  false  "Notas"
// @Success      200   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/admin/kyc/{id}/approve [post]
func (h *KYCAdminHandler) Approve(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	k, err := h.kyc.Approve(c.Request.Context(), currentUser(c), id, req.Notes)
	if err != nil {
		respondError(c, "[admin][kyc-approve]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": k})
}

// @Summary      Rechazar verificación
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Verificación"
// @Param        body  body      reviewRequest  true  "Motivo"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/admin/kyc/{id}/reject [post]
func (h *KYCAdminHandler) Reject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	k, err := h.kyc.Reject(c.Request.Context(), currentUser(c), id, req.Reason)
	if err != nil {
		respondError(c, "[admin][kyc-reject]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": k})
}
