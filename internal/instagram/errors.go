package instagram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrLoginRequired     = errors.New("login required")
	ErrChallengeRequired = errors.New("verification challenge required")
	ErrIPBlocked         = errors.New("ip blocked")
	ErrBadPassword       = errors.New("bad password")
	ErrRateLimited       = errors.New("rate limited")
	ErrUserNotFound      = errors.New("user not found")
)

// DecodeError is returned when a response body cannot be decoded into the
// expected shape. The service occasionally serves payloads that do not match
// its own schema; callers retry these instead of treating them as hard
// failures.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// apiError is the failure body the private API returns.
type apiError struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type"`
	Challenge any    `json:"challenge"`
}

// classify maps a failed response to one of the sentinel errors, keeping the
// server message for the log.
func classify(statusCode int, body apiError) error {
	msg := strings.ToLower(body.Message + " " + body.ErrorType)
	var sentinel error
	switch {
	case body.Challenge != nil || strings.Contains(msg, "challenge") || strings.Contains(msg, "checkpoint"):
		sentinel = ErrChallengeRequired
	case strings.Contains(msg, "ip_block") || strings.Contains(msg, "sentry_block") || strings.Contains(msg, "blacklist"):
		sentinel = ErrIPBlocked
	case strings.Contains(msg, "bad_password") || strings.Contains(msg, "password"):
		sentinel = ErrBadPassword
	case statusCode == http.StatusTooManyRequests || strings.Contains(msg, "rate_limit") || strings.Contains(msg, "wait a few minutes"):
		sentinel = ErrRateLimited
	case strings.Contains(msg, "login_required"):
		sentinel = ErrLoginRequired
	case statusCode == http.StatusNotFound || strings.Contains(msg, "user not found"):
		sentinel = ErrUserNotFound
	default:
		return fmt.Errorf("instagram returned status %d: %s", statusCode, strings.TrimSpace(body.Message))
	}
	if body.Message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, body.Message)
}
