package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"remesas/internal/config"
)

func newTestMobizon(t *testing.T, h http.HandlerFunc) *Mobizon {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	m, err := NewMobizon(config.MobizonConfig{APIKey: "key", Sender: "REMESAS", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewMobizon: %v", err)
	}
	return m
}

func TestMobizonSend(t *testing.T) {
	m := newTestMobizon(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/service/message/sendsmsmessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("recipient"); got != "34600111222" {
			t.Errorf("recipient = %q", got)
		}
		if r.PostForm.Get("apiKey") != "key" || r.PostForm.Get("from") != "REMESAS" || r.PostForm.Get("text") != "hola" {
			t.Errorf("form = %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"code":0,"data":{"messageId":"42"}}`))
	})
	if err := m.Send(context.Background(), Message{To: "+34600111222", Body: "hola", Channel: ChannelSMS}); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestMobizonErrors(t *testing.T) {
	m := newTestMobizon(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":1,"message":"bad recipient"}`))
	})
	err := m.Send(context.Background(), Message{To: "+1", Body: "x"})
	if err == nil || !strings.Contains(err.Error(), "bad recipient") {
		t.Fatalf("err = %v", err)
	}

	err = m.Send(context.Background(), Message{To: "+1", Body: "x", Channel: ChannelWhatsApp})
	if err == nil || !strings.Contains(err.Error(), "whatsapp") {
		t.Fatalf("whatsapp err = %v", err)
	}

	if _, err := NewMobizon(config.MobizonConfig{}); err == nil {
		t.Fatal("NewMobizon without key should fail")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	for name, cfg := range map[string]config.SMSConfig{
		"mock":    {Provider: "mock"},
		"twilio":  {Provider: "twilio", Twilio: config.TwilioConfig{AccountSID: "AC", AuthToken: "t", FromNumber: "+1"}},
		"mobizon": {Provider: "mobizon", Mobizon: config.MobizonConfig{APIKey: "k"}},
	} {
		p, err := New(cfg)
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		if p.Name() != name {
			t.Errorf("New(%s).Name() = %q", name, p.Name())
		}
	}
	if _, err := New(config.SMSConfig{Provider: "pigeon"}); err == nil {
		t.Fatal("unknown provider accepted")
	}
}
