package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"remesas/internal/authz"
	"remesas/internal/pdf"
)

type captureGenerator struct{ got pdf.DossierData }

func (c *captureGenerator) GenerateKYCDossier(w io.Writer, d pdf.DossierData) error {
	c.got = d
	_, err := w.Write([]byte("%PDF-fake"))
	return err
}

func TestWriteKYCDossier(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	client, k := env.pendingKYC(t)
	gen := &captureGenerator{}
	svc := NewReportService(env.kyc, gen)

	var buf bytes.Buffer
	if err := svc.WriteKYCDossier(ctx, client, k.ID, &buf); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("client err = %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("wrote output for a forbidden request")
	}

	admin := env.addUser(t, authz.RoleAdmin)
	if err := svc.WriteKYCDossier(ctx, admin, k.ID, &buf); err != nil {
		t.Fatalf("WriteKYCDossier: %v", err)
	}
	if buf.String() != "%PDF-fake" {
		t.Fatalf("output = %q", buf.String())
	}
	if gen.got.KYC == nil || gen.got.KYC.ID != k.ID || gen.got.Owner == nil || gen.got.Owner.ID != client.ID {
		t.Fatalf("dossier data = %+v", gen.got)
	}
}
