package services

import (
	"fmt"
	"html"
	"strings"

	"gopkg.in/gomail.v2"
)

// EmailResult is what callers get back; sending never panics or returns an error.
type EmailResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

const errEmailConfig = "configuración de correo incompleta"

type EmailService interface {
	SendWelcomeEmail(to, name string) EmailResult
	SendPasswordResetEmail(to, resetURL string) EmailResult
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
}

func (c EmailConfig) complete() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPassword != "" && c.FromEmail != ""
}

// mailSender is satisfied by *gomail.Dialer.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	cfg    EmailConfig
	dialer mailSender
}

func NewEmailService(cfg EmailConfig) EmailService {
	return &emailService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

func (s *emailService) send(to, subject, body string) EmailResult {
	if !s.cfg.complete() {
		return EmailResult{Error: errEmailConfig}
	}
	if strings.TrimSpace(to) == "" {
		return EmailResult{Error: "destinatario vacío"}
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return EmailResult{Error: fmt.Sprintf("no se pudo enviar el correo: %v", err)}
	}
	return EmailResult{Success: true}
}

func (s *emailService) SendWelcomeEmail(to, name string) EmailResult {
	body := fmt.Sprintf(`
		<h2>¡Bienvenido a Remesas, %s!</h2>
		<p>Tu cuenta ha sido creada correctamente.</p>
		<p>Para empezar a enviar dinero completa la verificación de identidad desde tu panel.</p>
		<p>Un saludo,<br>El equipo de Remesas</p>
	`, html.EscapeString(name))
	return s.send(to, "Bienvenido a Remesas", body)
}

func (s *emailService) SendPasswordResetEmail(to, resetURL string) EmailResult {
	body := fmt.Sprintf(`
		<h3>Recuperación de contraseña</h3>
		<p>Hemos recibido una solicitud para restablecer la contraseña de tu cuenta.</p>
		<p><a href="%s">Restablecer contraseña</a></p>
		<p>El enlace caduca en 1 hora. Si no has sido tú, ignora este correo.</p>
	`, html.EscapeString(resetURL))
	return s.send(to, "Restablece tu contraseña", body)
}
