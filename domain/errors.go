package domain

import "errors"

// Messages shown to the user. The application is Arabic-first.
const (
	// FallbackReply is returned when the model produced no content.
	FallbackReply = "عذراً، حدث خطأ في المعالجة"
	// RelayFailureMessage is the only detail exposed for upstream failures.
	RelayFailureMessage = "فشل في معالجة الرسالة"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrValidation         = errors.New("validation failed")
	ErrRelayFailed        = errors.New(RelayFailureMessage)
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrTokenRevoked       = errors.New("token revoked")
)
