package errors

import "errors"

// Sentinels for the certificate verification domain. Handlers map these onto
// HTTP statuses; services wrap them with fmt.Errorf("...: %w", err).
var (
	// ErrNotFound means no certificate with the given ID exists in any store.
	ErrNotFound = errors.New("not found")
	// ErrIncompleteRecord means the certificate ID exists but its referenced
	// owner or subject entity has since been deleted.
	ErrIncompleteRecord = errors.New("incomplete record")
	// ErrAlreadyIssued is returned on a forced re-issue attempt without the
	// override flag; normal repeat issuance is idempotent and does not error.
	ErrAlreadyIssued = errors.New("certificate already issued")
	// ErrOwnerNotEligible means completion criteria are not met yet.
	ErrOwnerNotEligible = errors.New("owner not eligible for certificate")
	// ErrProviderUnavailable means the OCR or image provider could not be
	// reached (infrastructure, retryable).
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
