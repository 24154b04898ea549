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

const mobizonBaseURL = "https://api.mobizon.kz"

// Mobizon sends plain SMS through the Mobizon gateway. WhatsApp is not
// supported.
type Mobizon struct {
	apiKey  string
	sender  string
	baseURL string
	client  *http.Client
}

type mobizonResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		MessageID string `json:"messageId"`
	} `json:"data"`
}

func NewMobizon(cfg config.MobizonConfig) (*Mobizon, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("mobizon: api key is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = mobizonBaseURL
	}
	return &Mobizon{
		apiKey:  cfg.APIKey,
		sender:  cfg.Sender,
		baseURL: base,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (m *Mobizon) Name() string { return "mobizon" }

func (m *Mobizon) Send(ctx context.Context, msg Message) error {
	if msg.Channel == ChannelWhatsApp {
		return errors.New("mobizon: whatsapp channel not supported")
	}

	form := url.Values{
		"apiKey":    {m.apiKey},
		"recipient": {strings.TrimPrefix(msg.To, "+")}, // шлюз ждёт только цифры
		"text":      {msg.Body},
	}
	if m.sender != "" {
		form.Set("from", m.sender)
	}

	endpoint := m.baseURL + "/service/message/sendsmsmessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mobizon: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mobizon: send: %w", err)
	}
	defer resp.Body.Close()

	var mr mobizonResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return fmt.Errorf("mobizon: status %d: parse response: %w", resp.StatusCode, err)
	}
	if mr.Code != 0 {
		return fmt.Errorf("mobizon: code %d: %s", mr.Code, mr.Message)
	}

	logger.Info("[sms][mobizon] sent", logger.String("message_id", mr.Data.MessageID))
	return nil
}
