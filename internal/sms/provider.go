// Package sms sends verification codes and KYC notices over SMS or WhatsApp.
package sms

import (
	"context"
	"fmt"

	"remesas/internal/config"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

type Message struct {
	To      string
	Body    string
	Channel Channel
}

type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// New selects the provider named in cfg.Provider.
func New(cfg config.SMSConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "mock":
		return NewMock(), nil
	case "twilio":
		return NewTwilio(cfg.Twilio)
	case "mobizon":
		return NewMobizon(cfg.Mobizon)
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}
