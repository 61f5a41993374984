package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrPlayerNotFound    = errors.New("player not found")
	ErrTwoFactorRequired = errors.New("two-factor authentication is enabled on the Ubisoft account and must be disabled for API access")
	ErrInvalidPlatform   = errors.New("invalid platform")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInternalError     = errors.New("internal server error")

	// Vendor error kinds, carried by VendorError
	ErrAuthenticationFailed = errors.New("ubisoft authentication failed")
	ErrLookupFailed         = errors.New("profile lookup failed")
	ErrProgressionFetch     = errors.New("progression fetch failed")
	ErrSeasonalFetch        = errors.New("seasonal stats fetch failed")
)

// VendorError describes a non-success response from the Ubisoft API.
// Kind is one of the vendor error sentinels so callers can branch with
// errors.Is without parsing the message.
type VendorError struct {
	Kind   error
	Status int
	Text   string
	Body   string
}

func (e *VendorError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s - %s", e.Kind, e.Text, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

func (e *VendorError) Unwrap() error {
	return e.Kind
}

// IsNotFoundError checks if an error is a legitimate not-found outcome
// rather than a transport failure
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrPlayerNotFound)
}

// IsVendorError checks if an error originated from the Ubisoft API
func IsVendorError(err error) bool {
	var ve *VendorError
	return errors.As(err, &ve)
}
