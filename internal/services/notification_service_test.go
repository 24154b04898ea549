package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"remesas/internal/models"
	"remesas/internal/sms"
)

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Send(context.Context, sms.Message) error {
	return errors.New("21211 invalid To")
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	mock := sms.NewMock()
	svc := NewNotificationService(mock)

	if res := svc.SendVerificationCode(ctx, "+34600111222", "123456", models.MethodWhatsApp); !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res := svc.SendKYCRejectionNotification(ctx, "+34600111222", "Ana", "Selfie borroso"); !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res := svc.SendKYCApprovalNotification(ctx, "", "Ana"); res.Success {
		t.Fatal("empty phone should fail")
	}

	sent := mock.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent = %d", len(sent))
	}
	if sent[0].Channel != sms.ChannelWhatsApp || !strings.Contains(sent[0].Body, "123456") {
		t.Fatalf("code message = %+v", sent[0])
	}
	if sent[1].Channel != sms.ChannelSMS || !strings.Contains(sent[1].Body, "Selfie borroso") {
		t.Fatalf("reject message = %+v", sent[1])
	}

	res := NewNotificationService(failingProvider{}).SendVerificationCode(ctx, "+34600111222", "1", models.MethodSMS)
	if res.Success || !strings.Contains(res.Error, "21211") {
		t.Fatalf("result = %+v", res)
	}
}

type captureBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (c *captureBot) Send(m tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.sent = append(c.sent, m)
	return tgbotapi.Message{}, c.err
}

func TestTelegramNotifier(t *testing.T) {
	bot := &captureBot{}
	n := newTelegramNotifier(bot, -100123, "https://remesas.test/")
	k := &models.KYCVerification{ID: uuid.New(), FirstName: "Ana", LastName: "<García>", DocumentType: "dni"}

	n.KYCSubmitted(context.Background(), k, &models.User{Email: "ana@example.test"})
	if len(bot.sent) != 1 {
		t.Fatalf("sent = %d", len(bot.sent))
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T", bot.sent[0])
	}
	if msg.ChatID != -100123 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("msg = %+v", msg)
	}
	if !strings.Contains(msg.Text, "https://remesas.test/admin/kyc/"+k.ID.String()) || !strings.Contains(msg.Text, "&lt;García&gt;") {
		t.Fatalf("text = %q", msg.Text)
	}

	// send errors are swallowed
	bot.err = errors.New("chat not found")
	n.KYCSubmitted(context.Background(), k, nil)
}

func TestNewTelegramNotifier_GivenNoToken_ThenNoop(t *testing.T) {
	if _, ok := NewTelegramNotifier("", 1, "").(NoopReviewNotifier); !ok {
		t.Fatal("expected no-op notifier")
	}
}
