package services

import (
	"context"
	"fmt"

	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/sms"
)

type SendResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type NotificationService interface {
	SendVerificationCode(ctx context.Context, phone, code string, method models.VerificationMethod) SendResult
	SendKYCApprovalNotification(ctx context.Context, phone, name string) SendResult
	SendKYCRejectionNotification(ctx context.Context, phone, name, reason string) SendResult
}

type notificationService struct {
	provider sms.Provider
}

func NewNotificationService(provider sms.Provider) NotificationService {
	return &notificationService{provider: provider}
}

func (s *notificationService) send(ctx context.Context, msg sms.Message) SendResult {
	if msg.To == "" {
		return SendResult{Error: "teléfono vacío"}
	}
	if msg.Channel == "" {
		msg.Channel = sms.ChannelSMS
	}
	if err := s.provider.Send(ctx, msg); err != nil {
		logger.Warn("[notify][send] provider failed",
			logger.String("provider", s.provider.Name()),
			logger.String("channel", string(msg.Channel)),
			logger.Err(err))
		return SendResult{Error: err.Error()}
	}
	return SendResult{Success: true}
}

func (s *notificationService) SendVerificationCode(ctx context.Context, phone, code string, method models.VerificationMethod) SendResult {
	ch := sms.ChannelSMS
	if method == models.MethodWhatsApp {
		ch = sms.ChannelWhatsApp
	}
	return s.send(ctx, sms.Message{
		To:      phone,
		Body:    fmt.Sprintf("Tu código de verificación de Remesas es %s. Caduca en 10 minutos.", code),
		Channel: ch,
	})
}

func (s *notificationService) SendKYCApprovalNotification(ctx context.Context, phone, name string) SendResult {
	return s.send(ctx, sms.Message{
		To:   phone,
		Body: fmt.Sprintf("Hola %s, tu verificación de identidad ha sido aprobada. Ya puedes enviar dinero con Remesas.", name),
	})
}

func (s *notificationService) SendKYCRejectionNotification(ctx context.Context, phone, name, reason string) SendResult {
	return s.send(ctx, sms.Message{
		To:   phone,
		Body: fmt.Sprintf("Hola %s, tu verificación de identidad ha sido rechazada: %s. Puedes corregirla desde tu panel.", name, reason),
	})
}
