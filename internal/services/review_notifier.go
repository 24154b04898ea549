package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remesas/internal/logger"
	"remesas/internal/models"
)

// ReviewNotifier tells staff that a verification is waiting for review.
type ReviewNotifier interface {
	KYCSubmitted(ctx context.Context, k *models.KYCVerification, owner *models.User)
}

type NoopReviewNotifier struct{}

func (NoopReviewNotifier) KYCSubmitted(context.Context, *models.KYCVerification, *models.User) {}

// botSender is the part of *tgbotapi.BotAPI we use.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramNotifier struct {
	bot      botSender
	chatID   int64
	adminURL string
}

// NewTelegramNotifier connects to the bot API. With no token or chat id, or
// when the bot cannot be reached, it returns a no-op notifier.
func NewTelegramNotifier(token string, chatID int64, publicURL string) ReviewNotifier {
	if token == "" || chatID == 0 {
		logger.Info("[tg][init] review alerts disabled")
		return NoopReviewNotifier{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Warn("[tg][init] bot unavailable, review alerts disabled", logger.Err(err))
		return NoopReviewNotifier{}
	}
	logger.Info("[tg][init] review alerts enabled", logger.String("bot", bot.Self.UserName))
	return newTelegramNotifier(bot, chatID, publicURL)
}

func newTelegramNotifier(bot botSender, chatID int64, publicURL string) *telegramNotifier {
	return &telegramNotifier{
		bot:      bot,
		chatID:   chatID,
		adminURL: strings.TrimRight(publicURL, "/") + "/admin/kyc/",
	}
}

func (t *telegramNotifier) KYCSubmitted(_ context.Context, k *models.KYCVerification, owner *models.User) {
	var b strings.Builder
	b.WriteString("<b>Nueva verificación KYC pendiente</b>\n")
	fmt.Fprintf(&b, "Nombre: %s\n", html.EscapeString(strings.TrimSpace(k.FirstName+" "+k.LastName)))
	if owner != nil {
		fmt.Fprintf(&b, "Email: %s\n", html.EscapeString(owner.Email))
	}
	fmt.Fprintf(&b, "Documento: %s\n", html.EscapeString(k.DocumentType))
	fmt.Fprintf(&b, "Teléfono verificado: %s\n", siNo(k.PhoneVerified))
	fmt.Fprintf(&b, `<a href="%s%s">Revisar</a>`, t.adminURL, k.ID)

	msg := tgbotapi.NewMessage(t.chatID, b.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		logger.Warn("[tg][send] review alert failed",
			logger.String("kyc_id", k.ID.String()), logger.Err(err))
	}
}

func siNo(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
