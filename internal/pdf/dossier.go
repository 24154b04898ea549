package pdf

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"remesas/internal/models"
)

// Generator renders the reviewer dossier.
type Generator interface {
	GenerateKYCDossier(w io.Writer, data DossierData) error
}

// DossierData is everything a reviewer sees for one verification.
type DossierData struct {
	KYC         *models.KYCVerification
	Owner       *models.User
	PhoneLogs   []*models.PhoneVerificationLog
	GeneratedAt time.Time
}

type DocumentGenerator struct {
	FontPath string // TTF с кириллицей/латиницей; пусто: встроенный Helvetica
}

func NewDocumentGenerator(fontPath string) *DocumentGenerator {
	return &DocumentGenerator{FontPath: fontPath}
}

// writer bundles the document with its font and text translation.
type writer struct {
	pdf  *gofpdf.Fpdf
	font string
	tr   func(string) string
}

func (g *DocumentGenerator) newWriter() *writer {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	w := &writer{pdf: pdf, font: "Helvetica", tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if g.FontPath != "" {
		if _, err := os.Stat(g.FontPath); err == nil {
			pdf.AddUTF8Font("DejaVu", "", g.FontPath)
			pdf.AddUTF8Font("DejaVu", "B", g.FontPath)
			w.font = "DejaVu"
			w.tr = func(s string) string { return s }
		}
	}
	return w
}

func (g *DocumentGenerator) GenerateKYCDossier(out io.Writer, data DossierData) error {
	if data.KYC == nil {
		return fmt.Errorf("dossier: verification is required")
	}
	k := data.KYC
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}

	w := g.newWriter()
	pdf := w.pdf
	pdf.SetTitle(w.tr("Verificación KYC "+k.ID.String()), false)
	pdf.SetAuthor("Remesas", false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(w.font, "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s %d/{nb}", w.tr("Página"), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont(w.font, "B", 18)
	pdf.CellFormat(0, 10, w.tr("EXPEDIENTE DE VERIFICACIÓN"), "", 1, "C", false, 0, "")
	pdf.SetFont(w.font, "", 10)
	pdf.CellFormat(0, 6, w.tr(fmt.Sprintf("Generado el %s", data.GeneratedAt.Format("02/01/2006 15:04"))), "", 1, "C", false, 0, "")
	w.hr()

	w.sectionTitle("Estado")
	w.kvLine("ID", k.ID.String())
	w.kvLine("Estado", string(k.Status))
	w.kvLine("Enviada", formatTime(k.SubmittedAt))
	w.kvLine("Revisada", formatTime(k.ReviewedAt))
	if k.ReviewedBy != nil {
		w.kvLine("Revisor", k.ReviewedBy.String())
	}
	if k.RejectionReason != nil {
		w.kvLine("Motivo", *k.RejectionReason)
	}
	if k.Notes != nil {
		w.kvLine("Notas", *k.Notes)
	}
	w.hr()

	if u := data.Owner; u != nil {
		w.sectionTitle("Cuenta")
		w.kvLine("Nombre", u.Name)
		w.kvLine("Email", u.Email)
		w.kvLine("Rol", string(u.Role))
		w.kvLine("Alta", u.CreatedAt.Format("02/01/2006"))
		w.hr()
	}

	w.sectionTitle("Datos personales")
	w.kvLine("Nombre", strings.TrimSpace(k.FirstName+" "+k.LastName))
	if k.DateOfBirth != nil {
		w.kvLine("Nacimiento", k.DateOfBirth.Format("02/01/2006"))
	}
	w.kvLine("Nacionalidad", k.Nationality)
	w.kvLine("Residencia", k.ResidenceCountry)
	w.kvLine("Documento", fmt.Sprintf("%s %s", k.DocumentType, k.DocumentNumber))
	w.hr()

	w.sectionTitle("Teléfono")
	w.kvLine("Número", k.PhoneNumber)
	w.kvLine("Verificado", yesNo(k.PhoneVerified))
	w.kvLine("Intentos", fmt.Sprintf("%d", k.PhoneVerificationAttempts))
	for _, l := range data.PhoneLogs {
		pdf.SetFont(w.font, "", 9)
		line := fmt.Sprintf("%s  %-8s  %s  verificado: %s",
			l.CreatedAt.Format("02/01/2006 15:04"), l.Method, l.PhoneNumber, yesNo(l.Verified))
		pdf.CellFormat(0, 5, w.tr(line), "", 1, "L", false, 0, "")
	}
	w.hr()

	w.sectionTitle("Documentos")
	for _, d := range []models.DocumentType{models.DocumentFront, models.DocumentBack, models.Selfie, models.SelfieWithDocument} {
		val := "(no subido)"
		if u := k.Document(d); u != nil && *u != "" {
			val = *u
		}
		w.kvLine(string(d), val)
	}

	return pdf.Output(out)
}

func (w *writer) sectionTitle(s string) {
	w.pdf.SetFont(w.font, "B", 12)
	w.pdf.CellFormat(0, 7, w.tr(s), "", 1, "L", false, 0, "")
	w.pdf.SetFont(w.font, "", 11)
}

func (w *writer) kvLine(key, val string) {
	w.pdf.SetFont(w.font, "B", 10)
	w.pdf.CellFormat(45, 6, w.tr(key+":"), "", 0, "L", false, 0, "")
	w.pdf.SetFont(w.font, "", 10)
	w.pdf.MultiCell(0, 6, w.tr(val), "", "L", false)
}

func (w *writer) hr() {
	y := w.pdf.GetY() + 1.5
	w.pdf.SetLineWidth(0.2)
	w.pdf.Line(20, y, 190, y)
	w.pdf.SetY(y + 2)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}

func yesNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
