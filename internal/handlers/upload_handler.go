package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"remesas/internal/services"
)

type UploadHandler struct {
	uploads services.UploadService
	maxBody int64
}

func NewUploadHandler(uploads services.UploadService, maxUpload int64) *UploadHandler {
	if maxUpload <= 0 {
		maxUpload = services.DefaultMaxUploadSize
	}
	return &UploadHandler{uploads: uploads, maxBody: maxUpload + 1<<20}
}

// @Summary      Subir archivo
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Imagen o PDF"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]interface{}
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Archivo requerido")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "No se pudo leer el archivo")
		return
	}
	defer f.Close()

	url, err := h.uploads.Upload(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		respondError(c, "[upload][put]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

type deleteUploadRequest struct {
	URL string `json:"url"`
}

// @Summary      Borrar archivo subido
// @Tags         Upload
// @Accept       json
// @Produce      json
// @Param        body  body      deleteUploadRequest  false  "URL (o query ?url=)"
// @Success      200   {object}  map[string]interface{}
// @Failure      403   {object}  map[string]interface{}
// @Router       /api/upload [delete]
func (h *UploadHandler) Delete(c *gin.Context) {
	var req deleteUploadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Datos inválidos")
			return
		}
	}
	if req.URL == "" {
		req.URL = c.Query("url")
	}
	if err := h.uploads.Delete(c.Request.Context(), currentUser(c).ID, req.URL); err != nil {
		respondError(c, "[upload][delete]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
