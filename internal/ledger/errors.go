// internal/ledger/errors.go
package ledger

import "fmt"

// ErrorCode identifies a ledger failure. Codes are stable so callers and
// tests can branch on the specific failure kind instead of matching text.
type ErrorCode string

const (
	// Validation errors (caller input; never retried).
	CodeMissingMetadataHash      ErrorCode = "MISSING_METADATA_HASH"
	CodeZeroPriceNotAllowed      ErrorCode = "ZERO_PRICE_NOT_ALLOWED"
	CodeInvalidRoyaltySum        ErrorCode = "INVALID_ROYALTY_SUM"
	CodeTooManyRecipients        ErrorCode = "TOO_MANY_RECIPIENTS"
	CodeCertificateAlreadyExists ErrorCode = "CERTIFICATE_ALREADY_EXISTS"
	CodeLicenceAlreadyExists     ErrorCode = "LICENCE_ALREADY_EXISTS"

	// State-conflict errors (precondition violated by prior state).
	CodeLicenceRevoked      ErrorCode = "LICENCE_REVOKED"
	CodeCertificateMismatch ErrorCode = "CERTIFICATE_MISMATCH"

	// Resource errors (atomic rollback, caller may retry after fixing).
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// Lookup errors.
	CodeCertificateNotFound ErrorCode = "CERTIFICATE_NOT_FOUND"
	CodeLicenceNotFound     ErrorCode = "LICENCE_NOT_FOUND"

	// Authorization errors.
	CodeUnauthorizedRevoker ErrorCode = "UNAUTHORIZED_REVOKER"
)

// Error is a typed ledger failure carrying a stable code.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is allows errors.Is comparisons against sentinel *Error values by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinel errors for errors.Is checks.
var (
	ErrMissingMetadataHash      = newError(CodeMissingMetadataHash, "metadata hash cannot be empty")
	ErrZeroPriceNotAllowed      = newError(CodeZeroPriceNotAllowed, "price cannot be zero")
	ErrInvalidRoyaltySum        = newError(CodeInvalidRoyaltySum, "royalty splits must sum to exactly 10000 basis points")
	ErrTooManyRecipients        = newError(CodeTooManyRecipients, "cannot have more than 10 royalty recipients")
	ErrCertificateAlreadyExists = newError(CodeCertificateAlreadyExists, "certificate already registered for this asset")
	ErrLicenceAlreadyExists     = newError(CodeLicenceAlreadyExists, "buyer already holds a licence for this certificate")
	ErrLicenceRevoked           = newError(CodeLicenceRevoked, "licence is not active")
	ErrCertificateMismatch      = newError(CodeCertificateMismatch, "certificate does not match the licence record")
	ErrInsufficientFunds        = newError(CodeInsufficientFunds, "insufficient funds for purchase")
	ErrCertificateNotFound      = newError(CodeCertificateNotFound, "certificate not found")
	ErrLicenceNotFound          = newError(CodeLicenceNotFound, "licence not found")
	ErrUnauthorizedRevoker      = newError(CodeUnauthorizedRevoker, "only the certificate authority may revoke a licence")
)
