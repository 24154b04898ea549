package sms

import (
	"context"
	"sync"

	"remesas/internal/logger"
)

// Mock logs messages instead of sending them. It keeps what it "sent" so
// development setups and tests can read codes back.
type Mock struct {
	mu   sync.Mutex
	sent []Message
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	logger.Info("[sms][mock] send",
		logger.String("to", msg.To),
		logger.String("channel", string(msg.Channel)),
		logger.String("body", msg.Body),
	)
	return nil
}

// Sent returns a copy of every message accepted so far.
func (m *Mock) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.sent))
	copy(out, m.sent)
	return out
}
