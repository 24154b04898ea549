package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"remesas/internal/logger"
	"remesas/internal/models"
	"remesas/internal/storage"
)

const DefaultMaxUploadSize = 10 << 20

// AllowedUploadTypes are matched against the sniffed content, not the filename.
var AllowedUploadTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

type UploadService interface {
	Upload(ctx context.Context, userID uuid.UUID, body io.Reader) (string, error)
	Delete(ctx context.Context, userID uuid.UUID, url string) error
	// UploadKYCDocument stores the file and records it on the verification.
	UploadKYCDocument(ctx context.Context, userID, kycID uuid.UUID, doc models.DocumentType, body io.Reader) (string, error)
}

type uploadService struct {
	store   storage.Store
	kyc     KYCService
	maxSize int64
}

func NewUploadService(store storage.Store, kyc KYCService, maxSize int64) UploadService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &uploadService{store: store, kyc: kyc, maxSize: maxSize}
}

type checkedFile struct {
	data        []byte
	contentType string
	ext         string
}

func (s *uploadService) check(body io.Reader) (*checkedFile, error) {
	data, err := io.ReadAll(io.LimitReader(body, s.maxSize+1))
	if err != nil {
		return nil, validation("No se pudo leer el archivo")
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrFileTooLarge
	}
	mt := mimetype.Detect(data)
	for _, t := range AllowedUploadTypes {
		if mt.Is(t) {
			return &checkedFile{data: data, contentType: t, ext: mt.Extension()}, nil
		}
	}
	return nil, wrap(ErrFileType, fmt.Errorf("detected %s", mt.String()))
}

func (s *uploadService) put(ctx context.Context, key string, f *checkedFile) (string, error) {
	url, err := s.store.Upload(ctx, key+f.ext, f.contentType, bytes.NewReader(f.data), int64(len(f.data)))
	if err != nil {
		return "", wrap(ErrStorageFailure, err)
	}
	return url, nil
}

func uploadsPrefix(userID uuid.UUID) string { return "uploads/" + userID.String() + "/" }

func (s *uploadService) Upload(ctx context.Context, userID uuid.UUID, body io.Reader) (string, error) {
	f, err := s.check(body)
	if err != nil {
		return "", err
	}
	url, err := s.put(ctx, uploadsPrefix(userID)+uuid.New().String(), f)
	if err != nil {
		return "", err
	}
	logger.Info("[upload][put] stored", logger.String("user_id", userID.String()), logger.String("type", f.contentType))
	return url, nil
}

func (s *uploadService) Delete(ctx context.Context, userID uuid.UUID, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return validation("La URL es obligatoria")
	}
	key, err := s.store.Key(url)
	if err != nil {
		return wrap(validation("URL de archivo inválida"), err)
	}
	// только свои файлы из uploads/; документы KYC отсюда не удаляются
	if !strings.HasPrefix(key, uploadsPrefix(userID)) {
		return ErrNotAuthorized
	}
	if err := s.store.Delete(ctx, url); err != nil {
		if errors.Is(err, storage.ErrForeignURL) {
			return validation("URL de archivo inválida")
		}
		return wrap(ErrStorageFailure, err)
	}
	return nil
}

func (s *uploadService) UploadKYCDocument(ctx context.Context, userID, kycID uuid.UUID, doc models.DocumentType, body io.Reader) (string, error) {
	if !doc.Valid() {
		return "", ErrInvalidDocumentType
	}
	if _, err := s.kyc.EnsureDocumentsEditable(ctx, userID, kycID); err != nil {
		return "", err
	}
	f, err := s.check(body)
	if err != nil {
		return "", err
	}

	url, err := s.put(ctx, fmt.Sprintf("kyc/%s/%s/%s-%s", userID, kycID, doc, uuid.New()), f)
	if err != nil {
		return "", err
	}
	if err := s.kyc.SetDocument(ctx, userID, kycID, doc, url); err != nil {
		if derr := s.store.Delete(ctx, url); derr != nil {
			logger.Warn("[upload][kyc] orphaned blob not removed", logger.String("url", url), logger.Err(derr))
		}
		return "", err
	}
	return url, nil
}
