package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"remesas/internal/authz"
	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/repositories"
)

const minPasswordLength = 8

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	// CreateByAdmin is the back-office account creation; actor must be management.
	CreateByAdmin(ctx context.Context, actor *models.User, req models.CreateUserRequest) (*models.User, error)
	List(ctx context.Context, actor *models.User, page, limit int) ([]*models.User, error)
}

type userService struct {
	users  repositories.UserRepository
	kyc    repositories.KYCRepository
	emails EmailService
	auth   AuthService
}

func NewUserService(users repositories.UserRepository, kyc repositories.KYCRepository, emails EmailService, auth AuthService) UserService {
	return &userService{users: users, kyc: kyc, emails: emails, auth: auth}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return validation("El email es obligatorio")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validation("El email no es válido")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return validation("La contraseña debe tener al menos 8 caracteres")
	}
	return nil
}

func (s *userService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, validation("El nombre es obligatorio")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal("lookup email", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}
	user := &models.User{
		Email:            email,
		PasswordHash:     hash,
		Name:             name,
		Phone:            strings.TrimSpace(req.Phone),
		Country:          strings.TrimSpace(req.Country),
		Nationality:      strings.TrimSpace(req.Nationality),
		ResidenceCountry: strings.TrimSpace(req.ResidenceCountry),
		DocumentType:     strings.TrimSpace(req.DocumentType),
		DocumentNumber:   strings.TrimSpace(req.DocumentNumber),
		Role:             authz.RoleClient,
		KYCStatus:        models.KYCStatusNone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, internal("create user", err)
	}
	logger.Info("[auth][register] user created", logger.String("user_id", user.ID.String()))

	s.createDraftKYC(ctx, user)

	if s.emails != nil {
		if res := s.emails.SendWelcomeEmail(user.Email, user.Name); !res.Success {
			logger.Warn("[auth][register] welcome email failed",
				logger.String("user_id", user.ID.String()), logger.String("error", res.Error))
		}
	}
	return user, nil
}

// createDraftKYC prefills a draft verification from the account fields. A
// failure here is logged; the draft is created lazily on first KYC access.
func (s *userService) createDraftKYC(ctx context.Context, user *models.User) {
	if s.kyc == nil {
		return
	}
	k := &models.KYCVerification{
		UserID:           user.ID,
		FirstName:        user.Name,
		Nationality:      user.Nationality,
		ResidenceCountry: user.ResidenceCountry,
		DocumentType:     user.DocumentType,
		DocumentNumber:   user.DocumentNumber,
		PhoneNumber:      user.Phone,
		Status:           models.VerificationDraft,
	}
	if err := s.kyc.Create(ctx, k); err != nil {
		logger.Warn("[auth][register] draft kyc not created",
			logger.String("user_id", user.ID.String()), logger.Err(err))
		return
	}
	user.KYCID = &k.ID
}

func (s *userService) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal("lookup email", err)
	}
	if user == nil {
		logger.Info("[auth][login] unknown email")
		return nil, ErrInvalidCredentials
	}
	if !s.auth.CheckPassword(user.PasswordHash, password) {
		logger.Info("[auth][login] password mismatch", logger.String("user_id", user.ID.String()))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, internal("get user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) UpdatePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if err := validatePassword(next); err != nil {
		return err
	}
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	// у аккаунтов через Google текущего пароля нет
	if user.PasswordHash != "" && !s.auth.CheckPassword(user.PasswordHash, current) {
		return ErrWrongPassword
	}
	hash, err := s.auth.HashPassword(next)
	if err != nil {
		return internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return internal("update password", err)
	}
	return nil
}

func (s *userService) CreateByAdmin(ctx context.Context, actor *models.User, req models.CreateUserRequest) (*models.User, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.CanCreateUsers(actor.Role) {
		return nil, ErrNotAuthorized
	}

	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, validation("El nombre es obligatorio")
	}
	role, err := authz.ParseRole(strings.TrimSpace(req.Role))
	if err != nil {
		return nil, validation("Rol inválido")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, internal("lookup email", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}
	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, internal("hash password", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Phone:        strings.TrimSpace(req.Phone),
		Country:      strings.TrimSpace(req.Country),
		Role:         role,
		Verified:     true,
		KYCStatus:    models.KYCStatusNone,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, internal("create user", err)
	}
	logger.Info("[admin][users] user created",
		logger.String("user_id", user.ID.String()),
		logger.String("role", string(role)),
		logger.String("by", actor.ID.String()))
	return user, nil
}

func (s *userService) List(ctx context.Context, actor *models.User, page, limit int) ([]*models.User, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.IsStaff(actor.Role) {
		return nil, ErrNotAuthorized
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}
