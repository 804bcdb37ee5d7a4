package license

import (
	"fmt"
	"time"

	"github.com/bizgrid/backend/internal/models"
)

// Evaluate is the pure, no-I/O validity check run on every request. It maps
// a local license record (or nil) plus the warning threshold to a
// GuardResult. All time arithmetic is done against the supplied clock so
// the function stays deterministic.
//
// A non-zero strike count below the suspension limit does not invalidate
// the license; it only surfaces as a warning. Suspension itself is enforced
// by the identity layer deactivating the account, so a suspended owner's
// requests never reach this point with a usable identity.
func Evaluate(rec *models.LicenseRecord, warningThresholdDays int, now time.Time) GuardResult {
	if rec == nil {
		return GuardResult{
			IsValid: false,
			Code:    CodeNoLicense,
			Message: "No active license found. Please activate your subscription.",
		}
	}

	res := GuardResult{
		Plan:                     rec.Plan,
		LastRemoteValidatedAtUtc: rec.LastRemoteValidatedAt,
		TamperCount:              rec.TamperStrikeCount,
		TamperWarningMessage:     rec.TamperWarningMessage,
	}

	if rec.ExpiresOn != nil {
		iso := rec.ExpiresOn.UTC().Format("2006-01-02")
		res.ExpiresOn = &iso
		days := daysBetween(now, *rec.ExpiresOn)
		res.DaysUntilExpiry = &days
		res.IsExpiringSoon = days >= 0 && days <= warningThresholdDays
	}

	// Defensive: a truly expired or revoked record should already have been
	// removed by the last sweep.
	switch rec.Status {
	case models.LicenseStatusRevoked:
		res.Code = CodeRevoked
		res.Message = "License has been revoked."
		return res
	case models.LicenseStatusExpired:
		res.Code = CodeExpired
		res.Message = "License has expired. Please renew your subscription."
		return res
	}

	if StrikeStateFor(rec.TamperStrikeCount) == StrikeSuspended {
		res.Code = CodeAccountSuspended
		res.Message = "Account suspended due to repeated license tampering."
		return res
	}

	if res.DaysUntilExpiry != nil && *res.DaysUntilExpiry < 0 {
		res.Code = CodeExpired
		res.Message = "License has expired. Please renew your subscription."
		return res
	}

	res.IsValid = true
	res.Code = CodeValid
	res.Message = "License is valid."

	if res.IsExpiringSoon {
		res.Code = CodeExpiringSoon
		res.Message = fmt.Sprintf("License expires in %d days.", *res.DaysUntilExpiry)
	}
	if StrikeStateFor(rec.TamperStrikeCount) == StrikeWarning {
		res.Code = CodeTamperWarning
		res.Message = rec.TamperWarningMessage
		if res.Message == "" {
			res.Message = "License integrity warning."
		}
	}

	return res
}

// daysBetween returns whole calendar days from now's date to target's date,
// both taken in UTC. Negative when target is in the past.
func daysBetween(now, target time.Time) int {
	y1, m1, d1 := now.UTC().Date()
	y2, m2, d2 := target.UTC().Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
