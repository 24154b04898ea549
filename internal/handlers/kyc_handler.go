package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"remesas/internal/models"
	"remesas/internal/services"
)

type KYCHandler struct {
	kyc     services.KYCService
	uploads services.UploadService
	maxBody int64
}

func NewKYCHandler(kyc services.KYCService, uploads services.UploadService, maxUpload int64) *KYCHandler {
	if maxUpload <= 0 {
		maxUpload = services.DefaultMaxUploadSize
	}
	// multipart overhead on top of the file itself
	return &KYCHandler{kyc: kyc, uploads: uploads, maxBody: maxUpload + 1<<20}
}

// kycID returns the id the client sent, or the id of its latest verification.
func (h *KYCHandler) kycID(c *gin.Context, raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "Identificador de verificación inválido")
			return uuid.Nil, false
		}
		return id, true
	}
	k, err := h.kyc.GetOrCreate(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, "[kyc][resolve]", err)
		return uuid.Nil, false
	}
	return k.ID, true
}

// @Summary      Verificación KYC actual
// @Description  Devuelve la última verificación del usuario o crea un borrador
// @Tags         KYC
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/kyc [get]
func (h *KYCHandler) Get(c *gin.Context) {
	user := currentUser(c)
	k, err := h.kyc.GetOrCreate(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, "[kyc][get]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"verification":       k,
		"missing_documents":  k.MissingDocuments(),
		"can_edit_documents": user.CanEditDocuments(),
	})
}

// @Summary      Enviar datos personales
// @Tags         KYC
// @Accept       json
// @Produce      json
// @Param        body  body      models.PersonalInfo  true  "Datos personales"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/kyc [post]
func (h *KYCHandler) SubmitPersonalInfo(c *gin.Context) {
	var req models.PersonalInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	k, err := h.kyc.SubmitPersonalInfo(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, "[kyc][personal]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": k})
}

type sendCodeRequest struct {
	KYCID  string                    `json:"kyc_id"`
	Method models.VerificationMethod `json:"method"`
}

// @Summary      Enviar código de verificación de teléfono
// @Tags         KYC
// @Accept       json
// @Produce      json
// @Param        body  body      sendCodeRequest  true  "Método sms|whatsapp"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      429   {object}  map[string]interface{}
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/kyc/phone/send [post]
func (h *KYCHandler) SendPhoneCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	id, ok := h.kycID(c, req.KYCID)
	if !ok {
		return
	}
	expires, err := h.kyc.SendPhoneCode(c.Request.Context(), currentUser(c).ID, id, req.Method)
	if err != nil {
		respondError(c, "[kyc][phone-send]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "expires_at": expires})
}

type verifyCodeRequest struct {
	KYCID string `json:"kyc_id"`
	Code  string `json:"code"`
}

// @Summary      Verificar teléfono
// @Tags         KYC
// @Accept       json
// @Produce      json
// @Param        body  body      verifyCodeRequest  true  "Código recibido"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      429   {object}  map[string]interface{}
// @Router       /api/kyc/phone/verify [post]
func (h *KYCHandler) VerifyPhone(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	id, ok := h.kycID(c, req.KYCID)
	if !ok {
		return
	}
	if err := h.kyc.VerifyPhoneCode(c.Request.Context(), currentUser(c).ID, id, req.Code); err != nil {
		respondError(c, "[kyc][phone-verify]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// @Summary      Subir documento KYC
// @Description  multipart: file, type (document_front|document_back|selfie|selfie_with_document), kyc_id opcional
// @Tags         KYC
// @Accept       multipart/form-data
// @Produce      json
// @Param        file    formData  file    true   "Imagen o PDF"
// @Param        type    formData  string  true   "Tipo de documento"
// @Param        kyc_id  formData  string  false  "Verificación"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]interface{}
// @Failure      409     {object}  map[string]interface{}
// @Router       /api/kyc/documents [post]
func (h *KYCHandler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Archivo requerido")
		return
	}
	id, ok := h.kycID(c, c.PostForm("kyc_id"))
	if !ok {
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "No se pudo leer el archivo")
		return
	}
	defer f.Close()

	doc := models.DocumentType(strings.TrimSpace(c.PostForm("type")))
	url, err := h.uploads.UploadKYCDocument(c.Request.Context(), currentUser(c).ID, id, doc, f)
	if err != nil {
		respondError(c, "[kyc][document-upload]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url, "type": doc})
}

type documentURLRequest struct {
	KYCID string              `json:"kyc_id"`
	Type  models.DocumentType `json:"type"`
	URL   string              `json:"url"`
}

// @Summary      Registrar URL de documento KYC
// @Tags         KYC
// @Accept       json
// @Produce      json
// @Param        body  body      documentURLRequest  true  "Tipo y URL"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/kyc/documents [put]
func (h *KYCHandler) SetDocumentURL(c *gin.Context) {
	var req documentURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Datos inválidos")
		return
	}
	id, ok := h.kycID(c, req.KYCID)
	if !ok {
		return
	}
	if err := h.kyc.SetDocument(c.Request.Context(), currentUser(c).ID, id, req.Type, req.URL); err != nil {
		respondError(c, "[kyc][document]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type submitKYCRequest struct {
	KYCID string `json:"kyc_id"`
}

// @Summary      Enviar verificación a revisión
// @Tags         KYC
// @Accept       json
// @Produce      json
// @Param        body  body      submitKYCRequest  false  "Verificación"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]interface{}
// @Router       /api/kyc/submit [post]
func (h *KYCHandler) Submit(c *gin.Context) {
	var req submitKYCRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	id, ok := h.kycID(c, req.KYCID)
	if !ok {
		return
	}
	k, err := h.kyc.SubmitForReview(c.Request.Context(), currentUser(c).ID, id)
	if err != nil {
		respondError(c, "[kyc][submit]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "verification": k})
}
