package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed     = fmt.Errorf("authentication failed")
	ErrAuthRequired   = fmt.Errorf("authentication required")
	ErrTokenExpired   = fmt.Errorf("access token expired")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Catalog errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrQuotaExceeded    = fmt.Errorf("API quota exceeded")
	ErrTransient        = fmt.Errorf("request failed")

	// Input validation errors
	ErrInvalidURL      = fmt.Errorf("invalid playlist URL")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Persistence errors
	ErrTokenNotFound = fmt.Errorf("token not found")
)

// ErrorKind discriminates catalog failures.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidURL
	KindNotFound
	KindAuthRequired
	KindMissingCredentials
	KindQuotaExceeded
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindNotFound:
		return "not_found"
	case KindAuthRequired:
		return "auth_required"
	case KindMissingCredentials:
		return "missing_credentials"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Sentinel returns the package level error matching the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindInvalidURL:
		return ErrInvalidURL
	case KindNotFound:
		return ErrPlaylistNotFound
	case KindAuthRequired:
		return ErrAuthRequired
	case KindMissingCredentials:
		return ErrMissingCredentials
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindTransient:
		return ErrTransient
	default:
		return nil
	}
}

// ServiceError is the tagged error produced at the platform adapter boundary.
//
// errors.Is matches both the wrapped cause and the sentinel of its [ErrorKind],
// so callers can test errors.Is(err, ErrQuotaExceeded) without inspecting messages.
type ServiceError struct {
	Kind     ErrorKind
	Platform string
	Op       string
	Err      error
}

// NewServiceError builds a [ServiceError].
func NewServiceError(kind ErrorKind, platform, op string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Platform: platform, Op: op, Err: err}
}

func (e *ServiceError) Error() string {
	msg := e.Kind.Sentinel()
	if msg == nil {
		msg = ErrTransient
	}
	prefix := e.Op
	if e.Platform != "" {
		prefix = e.Platform + " " + e.Op
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", prefix, msg)
	}
	return fmt.Sprintf("%s: %v: %v", prefix, msg, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// KindOf returns the [ErrorKind] carried by err.
//
// Bare sentinels are recognised too, so errors built with fmt.Errorf("%w") classify the same way.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	for _, k := range []ErrorKind{
		KindInvalidURL, KindNotFound, KindAuthRequired, KindMissingCredentials, KindQuotaExceeded, KindTransient,
	} {
		if errors.Is(err, k.Sentinel()) {
			return k
		}
	}
	return KindUnknown
}

// IsQuotaExceeded reports whether err signals an exhausted API quota.
func IsQuotaExceeded(err error) bool {
	return KindOf(err) == KindQuotaExceeded
}
