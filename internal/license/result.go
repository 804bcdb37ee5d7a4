package license

import "time"

// Code classifies the outcome of a license evaluation.
type Code string

const (
	CodeValid             Code = "valid"
	CodeExpiringSoon      Code = "expiring_soon"
	CodeExpired           Code = "expired"
	CodeNoLicense         Code = "no_license"
	CodeRevoked           Code = "revoked"
	CodeRemoteUnreachable Code = "remote_unreachable"
	CodeTamperWarning     Code = "tamper_warning"
	CodeAccountSuspended  Code = "account_suspended"
)

// GuardResult is the evaluation outcome attached to passing requests and
// returned by the status endpoint. The JSON shape is a stable public
// contract consumed by clients polling their license state.
type GuardResult struct {
	IsValid                  bool       `json:"isValid"`
	Code                     Code       `json:"code"`
	Message                  string     `json:"message"`
	Plan                     string     `json:"plan,omitempty"`
	ExpiresOn                *string    `json:"expiresOn"`       // ISO date or null (perpetual)
	DaysUntilExpiry          *int       `json:"daysUntilExpiry"` // null when perpetual
	IsExpiringSoon           bool       `json:"isExpiringSoon"`
	LastRemoteValidatedAtUtc *time.Time `json:"lastRemoteValidatedAtUtc"`
	TamperCount              int        `json:"tamperCount"`
	TamperWarningMessage     string     `json:"tamperWarningMessage,omitempty"`
}
