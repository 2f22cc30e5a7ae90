package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidThread        = errors.New("called from a foreign execution context")
	ErrInvalidSession       = errors.New("session is destroyed")
	ErrTrackerDestroyed     = errors.New("message tracker is destroyed")
	ErrPaginationInProgress = errors.New("message request already in progress")
	ErrInvalidRating        = errors.New("operator rating must be in range 1..5")
	ErrMissingParameter     = errors.New("required parameter is missing")
	ErrClientStopped        = errors.New("client is stopped")
	ErrSessionNotFound      = errors.New("stored session not found")
	ErrSecretNotFound       = errors.New("secret not found")
	ErrRetriesExhausted     = errors.New("retries exhausted")
)

type AccessErrorKind string

const (
	AccessErrorInvalidThread  AccessErrorKind = "invalid_thread"
	AccessErrorInvalidSession AccessErrorKind = "invalid_session"
)

// AccessError reports misuse of a confined API. It matches ErrInvalidThread
// or ErrInvalidSession under errors.Is.
type AccessError struct {
	Kind AccessErrorKind
	Op   string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.sentinel())
}

func (e *AccessError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *AccessError) sentinel() error {
	if e.Kind == AccessErrorInvalidThread {
		return ErrInvalidThread
	}
	return ErrInvalidSession
}

type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s can't be empty", e.Name)
}

func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// MissingParameterNames lists every missing field carried by err, which is
// usually an errors.Join of MissingParameterError values.
func MissingParameterNames(err error) []string {
	var names []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if missing, ok := err.(*MissingParameterError); ok {
			names = append(names, missing.Name)
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		walk(errors.Unwrap(err))
	}
	walk(err)
	return names
}

// Server error codes the client reacts to.
const (
	ServerErrorReinitRequired          = "reinit-required"
	ServerErrorServerNotReady          = "server-not-ready"
	ServerErrorAccountBlocked          = "account-blocked"
	ServerErrorVisitorBanned           = "visitor-banned"
	ServerErrorProvidedVisitorExpired  = "provided-visitor-expired"
	ServerErrorWrongProvidedVisitorKey = "wrong-provided-visitor-hash-value"
	ServerErrorFileTypeNotAllowed      = "file_type_not_allowed"
	ServerErrorFileSizeExceeded        = "max_file_size_exceeded"
	ServerErrorUnknown                 = "unknown"
)

// ServerError is an error code returned by the chat server.
//
//	var serverErr *ServerError
//	if errors.As(err, &serverErr) && serverErr.Code == ServerErrorReinitRequired { ... }
type ServerError struct {
	Code       string
	StatusCode int
}

func (e *ServerError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("server error: %s", e.Code)
	}
	return fmt.Sprintf("server error: %s (%d)", e.Code, e.StatusCode)
}

// Transient reports whether retrying the same request may succeed.
func (e *ServerError) Transient() bool {
	return e.Code == ServerErrorServerNotReady || e.StatusCode >= 500
}

// Fatal reports whether the session cannot continue at all.
func (e *ServerError) Fatal() bool {
	switch e.Code {
	case ServerErrorAccountBlocked, ServerErrorVisitorBanned,
		ServerErrorProvidedVisitorExpired, ServerErrorWrongProvidedVisitorKey:
		return true
	default:
		return false
	}
}

func IsServerError(err error, code string) bool {
	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Code == code
	}
	return false
}

type SendFileErrorKind string

const (
	SendFileErrorFileTypeNotAllowed SendFileErrorKind = "file_type_not_allowed"
	SendFileErrorFileSizeExceeded   SendFileErrorKind = "file_size_exceeded"
	SendFileErrorUnknown            SendFileErrorKind = "unknown"
)

type SendFileError struct {
	Kind      SendFileErrorKind
	MessageID MessageID
	Err       error
}

func (e *SendFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send file %s: %s: %v", e.MessageID, e.Kind, e.Err)
	}
	return fmt.Sprintf("send file %s: %s", e.MessageID, e.Kind)
}

func (e *SendFileError) Unwrap() error {
	return e.Err
}

// NewSendFileError classifies a failed upload.
func NewSendFileError(id MessageID, err error) *SendFileError {
	kind := SendFileErrorUnknown
	switch {
	case IsServerError(err, ServerErrorFileTypeNotAllowed):
		kind = SendFileErrorFileTypeNotAllowed
	case IsServerError(err, ServerErrorFileSizeExceeded):
		kind = SendFileErrorFileSizeExceeded
	}
	return &SendFileError{Kind: kind, MessageID: id, Err: err}
}
