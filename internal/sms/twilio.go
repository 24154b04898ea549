package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"remesas/internal/config"
	"remesas/internal/logger"
)

const twilioBaseURL = "https://api.twilio.com"

type Twilio struct {
	accountSID   string
	authToken    string
	fromNumber   string
	whatsAppFrom string
	baseURL      string
	client       *http.Client
}

type twilioResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	Code         int    `json:"code,omitempty"`
	Message      string `json:"message,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

func NewTwilio(cfg config.TwilioConfig) (*Twilio, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, errors.New("twilio: account sid, auth token and from number are required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = twilioBaseURL
	}
	wa := cfg.WhatsAppFrom
	if wa == "" {
		wa = cfg.FromNumber
	}
	return &Twilio{
		accountSID:   cfg.AccountSID,
		authToken:    cfg.AuthToken,
		fromNumber:   cfg.FromNumber,
		whatsAppFrom: wa,
		baseURL:      base,
		client:       &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (t *Twilio) Name() string { return "twilio" }

func (t *Twilio) Send(ctx context.Context, msg Message) error {
	to, from := msg.To, t.fromNumber
	if msg.Channel == ChannelWhatsApp {
		to = "whatsapp:" + strings.TrimPrefix(msg.To, "whatsapp:")
		from = "whatsapp:" + strings.TrimPrefix(t.whatsAppFrom, "whatsapp:")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", from)
	form.Set("Body", msg.Body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: send: %w", err)
	}
	defer resp.Body.Close()

	var tr twilioResponse
	_ = json.NewDecoder(resp.Body).Decode(&tr)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		detail := tr.Message
		if detail == "" {
			detail = tr.ErrorMessage
		}
		return fmt.Errorf("twilio: status %d: %s", resp.StatusCode, detail)
	}

	logger.Info("[sms][twilio] sent",
		logger.String("sid", tr.SID),
		logger.String("status", tr.Status),
		logger.String("channel", string(msg.Channel)),
	)
	return nil
}
