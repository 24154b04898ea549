package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"remesas/internal/config"
)

func newTestTwilio(t *testing.T, h http.HandlerFunc) *Twilio {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tw, err := NewTwilio(config.TwilioConfig{
		AccountSID:   "AC123",
		AuthToken:    "secret",
		FromNumber:   "+15550000000",
		WhatsAppFrom: "+15551111111",
		BaseURL:      srv.URL,
	})
	if err != nil {
		t.Fatalf("NewTwilio: %v", err)
	}
	return tw
}

func TestTwilioSendSMS(t *testing.T) {
	tw := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("To"); got != "+34600111222" {
			t.Errorf("To = %q", got)
		}
		if got := r.PostForm.Get("From"); got != "+15550000000" {
			t.Errorf("From = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1","status":"queued"}`))
	})

	err := tw.Send(context.Background(), Message{To: "+34600111222", Body: "hola", Channel: ChannelSMS})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestTwilioSendWhatsAppPrefixesAddresses(t *testing.T) {
	tw := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if got := r.PostForm.Get("To"); got != "whatsapp:+34600111222" {
			t.Errorf("To = %q", got)
		}
		if got := r.PostForm.Get("From"); got != "whatsapp:+15551111111" {
			t.Errorf("From = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM2","status":"queued"}`))
	})

	if err := tw.Send(context.Background(), Message{To: "+34600111222", Body: "hola", Channel: ChannelWhatsApp}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestTwilioSendReportsAPIError(t *testing.T) {
	tw := newTestTwilio(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	})

	err := tw.Send(context.Background(), Message{To: "bad", Body: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNewTwilioRequiresCredentials(t *testing.T) {
	if _, err := NewTwilio(config.TwilioConfig{AccountSID: "AC"}); err == nil {
		t.Fatal("expected error for incomplete config")
	}
}

func TestMockRecordsMessages(t *testing.T) {
	m := NewMock()
	_ = m.Send(context.Background(), Message{To: "+1", Body: "123456"})
	if got := m.Sent(); len(got) != 1 || got[0].Body != "123456" {
		t.Fatalf("sent = %+v", got)
	}
}
