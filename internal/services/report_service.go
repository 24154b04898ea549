package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"remesas/internal/models"
	"remesas/internal/pdf"
)

type ReportService interface {
	// WriteKYCDossier renders the reviewer PDF for one verification into w.
	WriteKYCDossier(ctx context.Context, actor *models.User, kycID uuid.UUID, w io.Writer) error
}

type reportService struct {
	kyc KYCService
	gen pdf.Generator
	now func() time.Time
}

func NewReportService(kyc KYCService, gen pdf.Generator) ReportService {
	return &reportService{kyc: kyc, gen: gen, now: time.Now}
}

func (s *reportService) WriteKYCDossier(ctx context.Context, actor *models.User, kycID uuid.UUID, w io.Writer) error {
	d, err := s.kyc.Detail(ctx, actor, kycID)
	if err != nil {
		return err
	}
	if err := s.gen.GenerateKYCDossier(w, pdf.DossierData{
		KYC:         d.Verification,
		Owner:       d.Owner,
		PhoneLogs:   d.PhoneLogs,
		GeneratedAt: s.now(),
	}); err != nil {
		return internal("render dossier", err)
	}
	return nil
}
