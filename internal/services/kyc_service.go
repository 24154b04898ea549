package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"remesas/internal/authz"
	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/ratelimit"
	"remesas/internal/repositories"
)

// KYCDetail is the reviewer's view of one verification.
type KYCDetail struct {
	Verification *models.KYCVerification        `json:"verification"`
	Owner        *models.User                   `json:"owner"`
	PhoneLogs    []*models.PhoneVerificationLog `json:"phone_logs"`
}

type KYCService interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.KYCVerification, error)
	SubmitPersonalInfo(ctx context.Context, userID uuid.UUID, info models.PersonalInfo) (*models.KYCVerification, error)

	SendPhoneCode(ctx context.Context, userID, kycID uuid.UUID, method models.VerificationMethod) (time.Time, error)
	VerifyPhoneCode(ctx context.Context, userID, kycID uuid.UUID, code string) error

	// EnsureDocumentsEditable fails unless the owner may change documents now.
	EnsureDocumentsEditable(ctx context.Context, userID, kycID uuid.UUID) (*models.KYCVerification, error)
	SetDocument(ctx context.Context, userID, kycID uuid.UUID, doc models.DocumentType, url string) error
	SubmitForReview(ctx context.Context, userID, kycID uuid.UUID) (*models.KYCVerification, error)

	ListPending(ctx context.Context, actor *models.User) ([]*models.PendingKYC, error)
	Detail(ctx context.Context, actor *models.User, kycID uuid.UUID) (*KYCDetail, error)
	Approve(ctx context.Context, actor *models.User, kycID uuid.UUID, notes string) (*models.KYCVerification, error)
	Reject(ctx context.Context, actor *models.User, kycID uuid.UUID, reason string) (*models.KYCVerification, error)
}

type kycService struct {
	kyc           repositories.KYCRepository
	users         repositories.UserRepository
	notifications NotificationService
	reviews       ReviewNotifier
	limiter       ratelimit.Limiter
	now           func() time.Time
}

func NewKYCService(
	kyc repositories.KYCRepository,
	users repositories.UserRepository,
	notifications NotificationService,
	reviews ReviewNotifier,
	limiter ratelimit.Limiter,
) KYCService {
	if reviews == nil {
		reviews = NoopReviewNotifier{}
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &kycService{
		kyc:           kyc,
		users:         users,
		notifications: notifications,
		reviews:       reviews,
		limiter:       limiter,
		now:           time.Now,
	}
}

func (s *kycService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.KYCVerification, error) {
	k, err := s.kyc.GetLatestByUserID(ctx, userID)
	if err != nil {
		return nil, internal("get latest kyc", err)
	}
	if k != nil {
		return k, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internal("get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	k = &models.KYCVerification{
		UserID:           userID,
		FirstName:        user.Name,
		Nationality:      user.Nationality,
		ResidenceCountry: user.ResidenceCountry,
		DocumentType:     user.DocumentType,
		DocumentNumber:   user.DocumentNumber,
		PhoneNumber:      user.Phone,
		Status:           models.VerificationDraft,
	}
	if err := s.kyc.Create(ctx, k); err != nil {
		return nil, internal("create kyc", err)
	}
	logger.Info("[kyc][create] draft created",
		logger.String("user_id", userID.String()), logger.String("kyc_id", k.ID.String()))
	return k, nil
}

// owned loads a verification and checks it belongs to userID.
func (s *kycService) owned(ctx context.Context, userID, kycID uuid.UUID) (*models.KYCVerification, error) {
	k, err := s.kyc.GetByID(ctx, kycID)
	if err != nil {
		return nil, internal("get kyc", err)
	}
	if k == nil {
		return nil, ErrKYCNotFound
	}
	if k.UserID != userID {
		return nil, ErrNotAuthorized
	}
	return k, nil
}

var (
	phoneCleaner = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

func normalizePhone(p string) string {
	return phoneCleaner.Replace(strings.TrimSpace(p))
}

type validPersonalInfo struct {
	models.PersonalInfo
	dob time.Time
}

func (s *kycService) validatePersonalInfo(in models.PersonalInfo) (*validPersonalInfo, error) {
	v := &validPersonalInfo{PersonalInfo: models.PersonalInfo{
		FirstName:        strings.TrimSpace(in.FirstName),
		LastName:         strings.TrimSpace(in.LastName),
		Nationality:      strings.TrimSpace(in.Nationality),
		ResidenceCountry: strings.TrimSpace(in.ResidenceCountry),
		DocumentType:     strings.TrimSpace(in.DocumentType),
		DocumentNumber:   strings.ToUpper(strings.TrimSpace(in.DocumentNumber)),
		PhoneNumber:      normalizePhone(in.PhoneNumber),
		DateOfBirth:      strings.TrimSpace(in.DateOfBirth),
	}}

	switch {
	case v.FirstName == "":
		return nil, validation("El nombre es obligatorio")
	case v.LastName == "":
		return nil, validation("Los apellidos son obligatorios")
	case v.Nationality == "":
		return nil, validation("La nacionalidad es obligatoria")
	case v.ResidenceCountry == "":
		return nil, validation("El país de residencia es obligatorio")
	case !models.IdentityDocuments[v.DocumentType]:
		return nil, ErrInvalidDocumentType
	case v.DocumentNumber == "":
		return nil, validation("El número de documento es obligatorio")
	case !phonePattern.MatchString(v.PhoneNumber):
		return nil, validation("El teléfono debe incluir el prefijo internacional, por ejemplo +34600000000")
	}

	dob, err := time.Parse("2006-01-02", v.DateOfBirth)
	if err != nil {
		return nil, validation("Fecha de nacimiento inválida (AAAA-MM-DD)")
	}
	now := s.now()
	if dob.After(now) {
		return nil, validation("La fecha de nacimiento no puede ser futura")
	}
	if dob.AddDate(18, 0, 0).After(now) {
		return nil, validation("Debes ser mayor de edad")
	}
	v.dob = dob
	return v, nil
}

func (s *kycService) SubmitPersonalInfo(ctx context.Context, userID uuid.UUID, in models.PersonalInfo) (*models.KYCVerification, error) {
	info, err := s.validatePersonalInfo(in)
	if err != nil {
		return nil, err
	}

	k, err := s.kyc.GetLatestByUserID(ctx, userID)
	if err != nil {
		return nil, internal("get latest kyc", err)
	}
	if k == nil {
		k = &models.KYCVerification{UserID: userID, Status: models.VerificationDraft}
		applyPersonalInfo(k, info)
		if err := s.kyc.Create(ctx, k); err != nil {
			return nil, internal("create kyc", err)
		}
		return k, nil
	}

	if !editable(k.Status) {
		return nil, ErrKYCLocked
	}
	if k.Status == models.VerificationRejected {
		if !canTransition(k.Status, models.VerificationDraft) {
			return nil, ErrInvalidTransition
		}
		reopen(k)
		logger.Info("[kyc][resubmit] reopened rejected verification", logger.String("kyc_id", k.ID.String()))
	}
	applyPersonalInfo(k, info)

	if err := s.kyc.SaveDraft(ctx, k); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrKYCLocked
		}
		return nil, internal("save kyc draft", err)
	}
	return k, nil
}

func applyPersonalInfo(k *models.KYCVerification, info *validPersonalInfo) {
	k.FirstName = info.FirstName
	k.LastName = info.LastName
	dob := info.dob
	k.DateOfBirth = &dob
	k.Nationality = info.Nationality
	k.ResidenceCountry = info.ResidenceCountry
	k.DocumentType = info.DocumentType
	k.DocumentNumber = info.DocumentNumber

	if k.PhoneNumber != info.PhoneNumber {
		k.PhoneNumber = info.PhoneNumber
		k.PhoneVerified = false
		k.PhoneVerifiedAt = nil
		k.PhoneVerificationCode = nil
		k.PhoneVerificationExpires = nil
		k.PhoneVerificationAttempts = 0
	}
}

// reopen turns a rejected verification back into an empty-document draft.
func reopen(k *models.KYCVerification) {
	k.DocumentFront = nil
	k.DocumentBack = nil
	k.Selfie = nil
	k.SelfieWithDocument = nil
	k.ReviewedBy = nil
	k.ReviewedAt = nil
	k.RejectionReason = nil
	k.Notes = nil
	k.Status = models.VerificationDraft
}

func (s *kycService) EnsureDocumentsEditable(ctx context.Context, userID, kycID uuid.UUID) (*models.KYCVerification, error) {
	k, err := s.owned(ctx, userID, kycID)
	if err != nil {
		return nil, err
	}
	if !editable(k.Status) {
		return nil, ErrKYCLocked
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, internal("get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.CanEditDocuments() {
		return nil, ErrKYCLocked
	}
	return k, nil
}

func (s *kycService) SetDocument(ctx context.Context, userID, kycID uuid.UUID, doc models.DocumentType, url string) error {
	if !doc.Valid() {
		return ErrInvalidDocumentType
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return validation("La URL del documento es obligatoria")
	}
	if _, err := s.EnsureDocumentsEditable(ctx, userID, kycID); err != nil {
		return err
	}
	if err := s.kyc.SetDocument(ctx, kycID, doc, url); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return ErrKYCLocked
		}
		return internal("set document", err)
	}
	logger.Info("[kyc][document] stored",
		logger.String("kyc_id", kycID.String()), logger.String("type", string(doc)))
	return nil
}

func (s *kycService) SubmitForReview(ctx context.Context, userID, kycID uuid.UUID) (*models.KYCVerification, error) {
	k, err := s.owned(ctx, userID, kycID)
	if err != nil {
		return nil, err
	}
	if !canTransition(k.Status, models.VerificationPending) {
		return nil, ErrInvalidTransition
	}
	if missing := k.MissingDocuments(); len(missing) > 0 {
		return nil, wrap(ErrMissingDocuments, fmt.Errorf("missing %v", missing))
	}

	if err := s.kyc.Submit(ctx, kycID, s.now()); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, internal("submit kyc", err)
	}
	logger.Info("[kyc][submit] sent to review", logger.String("kyc_id", kycID.String()))

	updated, err := s.kyc.GetByID(ctx, kycID)
	if err != nil || updated == nil {
		logger.Warn("[kyc][submit] reload failed", logger.String("kyc_id", kycID.String()), logger.Err(err))
		k.Status = models.VerificationPending
		updated = k
	}
	owner, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.Warn("[kyc][submit] load owner failed", logger.Err(err))
	}
	s.reviews.KYCSubmitted(ctx, updated, owner)
	return updated, nil
}

func (s *kycService) ListPending(ctx context.Context, actor *models.User) ([]*models.PendingKYC, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.IsStaff(actor.Role) {
		return nil, ErrNotAuthorized
	}
	list, err := s.kyc.ListPending(ctx)
	if err != nil {
		return nil, internal("list pending kyc", err)
	}
	return list, nil
}

func (s *kycService) Detail(ctx context.Context, actor *models.User, kycID uuid.UUID) (*KYCDetail, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.IsStaff(actor.Role) {
		return nil, ErrNotAuthorized
	}

	d := &KYCDetail{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		k, err := s.kyc.GetByID(gctx, kycID)
		d.Verification = k
		return err
	})
	g.Go(func() error {
		logs, err := s.kyc.ListPhoneLogs(gctx, kycID)
		d.PhoneLogs = logs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, internal("load kyc detail", err)
	}
	if d.Verification == nil {
		return nil, ErrKYCNotFound
	}

	owner, err := s.users.GetByID(ctx, d.Verification.UserID)
	if err != nil {
		return nil, internal("load kyc owner", err)
	}
	d.Owner = owner
	return d, nil
}

func (s *kycService) Approve(ctx context.Context, actor *models.User, kycID uuid.UUID, notes string) (*models.KYCVerification, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.CanApproveKYC(actor.Role) {
		return nil, ErrNotAuthorized
	}
	var notesPtr *string
	if n := strings.TrimSpace(notes); n != "" {
		notesPtr = &n
	}
	k, err := s.review(ctx, repositories.ReviewDecision{
		KYCID:      kycID,
		ReviewerID: actor.ID,
		Status:     models.VerificationApproved,
		Notes:      notesPtr,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	phone, name := s.contact(ctx, k)
	if res := s.notifications.SendKYCApprovalNotification(ctx, phone, name); !res.Success {
		logger.Warn("[kyc][approve] notification failed",
			logger.String("kyc_id", kycID.String()), logger.String("error", res.Error))
	}
	return k, nil
}

func (s *kycService) Reject(ctx context.Context, actor *models.User, kycID uuid.UUID, reason string) (*models.KYCVerification, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if !authz.CanRejectKYC(actor.Role) {
		return nil, ErrNotAuthorized
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectionReason
	}
	k, err := s.review(ctx, repositories.ReviewDecision{
		KYCID:      kycID,
		ReviewerID: actor.ID,
		Status:     models.VerificationRejected,
		Reason:     &reason,
		At:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	phone, name := s.contact(ctx, k)
	if res := s.notifications.SendKYCRejectionNotification(ctx, phone, name, reason); !res.Success {
		logger.Warn("[kyc][reject] notification failed",
			logger.String("kyc_id", kycID.String()), logger.String("error", res.Error))
	}
	return k, nil
}

// review checks the transition, writes the decision and reloads the row.
func (s *kycService) review(ctx context.Context, d repositories.ReviewDecision) (*models.KYCVerification, error) {
	op := "[kyc][approve]"
	if d.Status == models.VerificationRejected {
		op = "[kyc][reject]"
	}

	k, err := s.kyc.GetByID(ctx, d.KYCID)
	if err != nil {
		return nil, internal("get kyc", err)
	}
	if k == nil {
		return nil, ErrKYCNotFound
	}
	if !canTransition(k.Status, d.Status) {
		return nil, wrap(ErrInvalidTransition, fmt.Errorf("%s -> %s", k.Status, d.Status))
	}

	if err := s.kyc.Review(ctx, d); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrKYCNotFound
		case errors.Is(err, repositories.ErrConflict):
			return nil, ErrInvalidTransition
		}
		return nil, internal("review kyc", err)
	}
	logger.Info(op+" done",
		logger.String("kyc_id", d.KYCID.String()),
		logger.String("reviewer_id", d.ReviewerID.String()))

	updated, err := s.kyc.GetByID(ctx, d.KYCID)
	if err != nil || updated == nil {
		logger.Warn(op+" reload failed", logger.Err(err))
		k.Status = d.Status
		return k, nil
	}
	return updated, nil
}

// contact picks the phone and display name used for review notices.
func (s *kycService) contact(ctx context.Context, k *models.KYCVerification) (phone, name string) {
	phone, name = k.PhoneNumber, k.FirstName
	if phone != "" && name != "" {
		return phone, name
	}
	owner, err := s.users.GetByID(ctx, k.UserID)
	if err != nil || owner == nil {
		return phone, name
	}
	if phone == "" {
		phone = owner.Phone
	}
	if name == "" {
		name = owner.Name
	}
	return phone, name
}
