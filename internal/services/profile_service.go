package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"remesas/internal/authz"
	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/repositories"
)

type ProfileService interface {
	// RequestUpdate queues a change set for staff; nothing is applied yet.
	RequestUpdate(ctx context.Context, userID uuid.UUID, changes map[string]string) (*models.ProfileUpdateRequest, error)
	ListPending(ctx context.Context, actor *models.User) ([]*models.ProfileUpdateRequest, error)
	Approve(ctx context.Context, actor *models.User, id uuid.UUID) error
	Reject(ctx context.Context, actor *models.User, id uuid.UUID) error
}

type profileService struct {
	requests repositories.ProfileUpdateRepository
	now      func() time.Time
}

func NewProfileService(requests repositories.ProfileUpdateRepository) ProfileService {
	return &profileService{requests: requests, now: time.Now}
}

func (s *profileService) RequestUpdate(ctx context.Context, userID uuid.UUID, changes map[string]string) (*models.ProfileUpdateRequest, error) {
	clean := make(map[string]string, len(changes))
	for k, v := range changes {
		k = strings.TrimSpace(k)
		if !models.ProfileUpdateFields[k] {
			return nil, validation("Campo no permitido: " + k)
		}
		v = strings.TrimSpace(v)
		// пустое значение затёрло бы колонку при одобрении
		if v == "" {
			return nil, validation("El campo no puede estar vacío: " + k)
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return nil, ErrNoProfileChanges
	}

	req := &models.ProfileUpdateRequest{UserID: userID, Changes: clean}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, internal("create profile request", err)
	}
	logger.Info("[profile][request] queued",
		logger.String("user_id", userID.String()), logger.Int("fields", len(clean)))
	return req, nil
}

func (s *profileService) ListPending(ctx context.Context, actor *models.User) ([]*models.ProfileUpdateRequest, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.IsStaff(actor.Role) {
		return nil, ErrNotAuthorized
	}
	list, err := s.requests.ListPending(ctx)
	if err != nil {
		return nil, internal("list profile requests", err)
	}
	return list, nil
}

func (s *profileService) Approve(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if actor == nil {
		return ErrNotAuthenticated
	}
	if !authz.CanApplyProfileUpdates(actor.Role) {
		return ErrNotAuthorized
	}
	if err := s.requests.Approve(ctx, id, actor.ID, s.now()); err != nil {
		return s.mapErr("approve profile request", err)
	}
	logger.Info("[profile][approve] applied", logger.String("request_id", id.String()))
	return nil
}

func (s *profileService) Reject(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if actor == nil {
		return ErrNotAuthenticated
	}
	if !authz.IsStaff(actor.Role) {
		return ErrNotAuthorized
	}
	if err := s.requests.Reject(ctx, id, actor.ID, s.now()); err != nil {
		return s.mapErr("reject profile request", err)
	}
	return nil
}

func (s *profileService) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return ErrProfileRequestNotFound
	case errors.Is(err, repositories.ErrConflict):
		return newError(KindInvalidTransition, "La solicitud ya fue revisada")
	}
	return internal(op, err)
}
