package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/repositories"
	"remesas/internal/session"
	"remesas/internal/utils"
)

const DefaultSessionTTL = 7 * 24 * time.Hour

type SessionService interface {
	// Create stores a new session and returns the signed cookie value.
	Create(ctx context.Context, userID uuid.UUID) (value string, expiresAt time.Time, err error)
	// Resolve returns the session owner, or nil. clear reports that the
	// client holds a cookie that should be removed.
	Resolve(ctx context.Context, cookieValue string) (user *models.User, clear bool)
	Destroy(ctx context.Context, cookieValue string) error
}

type sessionService struct {
	sessions repositories.SessionRepository
	users    repositories.UserRepository
	codec    *session.Codec
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(sessions repositories.SessionRepository, users repositories.UserRepository, codec *session.Codec, ttl time.Duration) SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &sessionService{sessions: sessions, users: users, codec: codec, ttl: ttl, now: time.Now}
}

func (s *sessionService) Create(ctx context.Context, userID uuid.UUID) (string, time.Time, error) {
	token, err := utils.NewToken(32)
	if err != nil {
		return "", time.Time{}, internal("new session token", err)
	}
	sess := &models.Session{
		Token:  token,
		UserID: userID,
		// в cookie срок хранится в секундах, в таблице должен совпадать
		ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", time.Time{}, internal("create session", err)
	}
	value, err := s.codec.Sign(session.Payload{Token: token, UserID: userID, ExpiresAt: sess.ExpiresAt})
	if err != nil {
		return "", time.Time{}, internal("sign session", err)
	}
	return value, sess.ExpiresAt, nil
}

func (s *sessionService) Resolve(ctx context.Context, cookieValue string) (*models.User, bool) {
	if cookieValue == "" {
		return nil, false
	}
	p, err := s.codec.Parse(cookieValue)
	if err != nil {
		logger.Debug("[session][resolve] bad cookie", logger.Err(err))
		s.dropExpired(ctx, cookieValue)
		return nil, true
	}

	sess, err := s.sessions.GetByToken(ctx, p.Token)
	if err != nil {
		logger.Error("[session][resolve] lookup failed", logger.Err(err))
		return nil, false
	}
	if sess == nil || sess.UserID != p.UserID {
		return nil, true
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.DeleteByToken(ctx, p.Token); err != nil {
			logger.Warn("[session][resolve] delete expired failed", logger.Err(err))
		}
		return nil, true
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		logger.Error("[session][resolve] load user failed", logger.Err(err))
		return nil, false
	}
	if user == nil {
		return nil, true
	}
	return user, false
}

// dropExpired removes the row behind a correctly signed but expired cookie.
func (s *sessionService) dropExpired(ctx context.Context, cookieValue string) {
	p, err := s.codec.ParseExpired(cookieValue)
	if err != nil {
		return
	}
	if err := s.sessions.DeleteByToken(ctx, p.Token); err != nil {
		logger.Warn("[session][resolve] delete expired failed", logger.Err(err))
	}
}

func (s *sessionService) Destroy(ctx context.Context, cookieValue string) error {
	// при logout просроченная cookie тоже удаляет строку
	p, err := s.codec.ParseExpired(cookieValue)
	if err != nil {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, p.Token); err != nil {
		return internal("delete session", err)
	}
	return nil
}
