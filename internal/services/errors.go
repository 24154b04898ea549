package services

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures; handlers map it to an HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindAlreadyExists
	KindInvalidCredentials
	KindRateLimited
	KindExpired
	KindMissingDocuments
	KindInvalidTransition
	KindExternalService
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindRateLimited:
		return "rate_limited"
	case KindExpired:
		return "expired"
	case KindMissingDocuments:
		return "missing_documents"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindExternalService:
		return "external_service"
	case KindIntegrity:
		return "integrity"
	default:
		return "internal"
	}
}

// Error carries a user-facing (Spanish) message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind and message so wrapped copies still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// wrap attaches a cause to a sentinel.
func wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

func validation(msg string) *Error { return newError(KindValidation, msg) }

func internal(op string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: "Error interno del servidor", Err: fmt.Errorf("%s: %w", op, cause)}
}

// KindOf returns the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Error interno del servidor"
}

var (
	ErrNotAuthenticated = newError(KindAuthentication, "No autenticado")
	ErrNotAuthorized    = newError(KindAuthorization, "No autorizado")

	ErrEmailTaken         = newError(KindAlreadyExists, "El email ya está registrado")
	ErrInvalidCredentials = newError(KindInvalidCredentials, "Credenciales inválidas")
	ErrUserNotFound       = newError(KindNotFound, "Usuario no encontrado")
	ErrWrongPassword      = newError(KindInvalidCredentials, "La contraseña actual es incorrecta")
	ErrInvalidResetToken  = newError(KindValidation, "El enlace de recuperación es inválido o ha expirado")

	ErrKYCNotFound         = newError(KindNotFound, "Verificación no encontrada")
	ErrKYCLocked           = newError(KindInvalidTransition, "La verificación no se puede modificar en su estado actual")
	ErrInvalidTransition   = newError(KindInvalidTransition, "Transición de estado no permitida")
	ErrMissingDocuments    = newError(KindMissingDocuments, "Faltan documentos por subir")
	ErrRejectionReason     = newError(KindValidation, "Debe indicar el motivo del rechazo")
	ErrInvalidDocumentType = newError(KindValidation, "Tipo de documento inválido")

	ErrPhoneAlreadyVerified = newError(KindValidation, "El teléfono ya está verificado")
	ErrPhoneMissing         = newError(KindValidation, "Debe indicar un número de teléfono")
	ErrInvalidMethod        = newError(KindValidation, "Método de verificación inválido")
	ErrMaxAttemptsExceeded  = newError(KindRateLimited, "Demasiados intentos. Solicita soporte para continuar")
	ErrSendThrottled        = newError(KindRateLimited, "Has solicitado demasiados códigos. Inténtalo más tarde")
	ErrCodeExpired          = newError(KindExpired, "El código ha expirado. Solicita uno nuevo")
	ErrCodeInvalid          = newError(KindValidation, "Código incorrecto")
	ErrCodeDelivery         = newError(KindExternalService, "No se pudo enviar el código de verificación")

	ErrProfileRequestNotFound = newError(KindNotFound, "Solicitud no encontrada")
	ErrNoProfileChanges       = newError(KindValidation, "No hay cambios para solicitar")

	ErrFileTooLarge       = newError(KindValidation, "El archivo es demasiado grande")
	ErrFileType           = newError(KindValidation, "Tipo de archivo no permitido")
	ErrEmptyFile          = newError(KindValidation, "El archivo está vacío")
	ErrStorageFailure     = newError(KindExternalService, "No se pudo guardar el archivo")
	ErrOAuthNotConfigured = newError(KindInternal, "Inicio de sesión con Google no configurado")
)
