package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/gorm"
)

// LicenseStatus represents the lifecycle state of a license record
type LicenseStatus string

const (
	LicenseStatusActive  LicenseStatus = "active"
	LicenseStatusExpired LicenseStatus = "expired"
	LicenseStatusRevoked LicenseStatus = "revoked"
)

// TamperStrikeLimit is the terminal strike count: reaching it hard-deletes
// the license and deactivates the owning account in the same sweep iteration.
const TamperStrikeLimit = 3

// LicenseRecord is the local copy of an owner's license. At most one Active
// record exists per owner. The remote mapping is authoritative for plan,
// quota, feature and expiry fields; the sweep overwrites them on every
// successful reconciliation.
type LicenseRecord struct {
	ID         uint   `gorm:"column:id;primaryKey" json:"id"`
	OwnerID    uint   `gorm:"column:owner_id;not null;index" json:"owner_id"`
	BusinessID string `gorm:"column:business_id;size:36;not null" json:"business_id"`

	Plan   string        `gorm:"column:plan;size:50;not null" json:"plan"`
	Status LicenseStatus `gorm:"column:status;size:20;not null;index" json:"status"`

	MaxBusinesses int `gorm:"column:max_businesses;default:1" json:"max_businesses"`
	MaxBranches   int `gorm:"column:max_branches;default:1" json:"max_branches"`
	MaxEmployees  int `gorm:"column:max_employees;default:5" json:"max_employees"`

	// Features is a JSON object of boolean feature flags, e.g.
	// {"advanced_reports":true,"api_access":false}
	Features string `gorm:"column:features;type:text" json:"features"`

	StartsOn  time.Time  `gorm:"column:starts_on" json:"starts_on"`
	ExpiresOn *time.Time `gorm:"column:expires_on" json:"expires_on"` // nil = perpetual

	ExternalSubscriptionID string `gorm:"column:external_subscription_id;size:100" json:"external_subscription_id"`

	LastRemoteValidatedAt *time.Time `gorm:"column:last_remote_validated_at" json:"last_remote_validated_at"`

	// IntegrityHash is written only by the application (activation and sweep
	// sync). A sweep-time mismatch between this value and the hash of the
	// row's current fields means the row was altered outside the app.
	IntegrityHash string `gorm:"column:integrity_hash;size:64" json:"-"`

	TamperStrikeCount    int    `gorm:"column:tamper_strike_count;default:0" json:"tamper_strike_count"`
	TamperWarningMessage string `gorm:"column:tamper_warning_message;size:500" json:"tamper_warning_message,omitempty"`

	CreatedAt time.Time      `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (LicenseRecord) TableName() string {
	return "license_records"
}

// FeatureMap decodes the Features JSON column. An empty or malformed column
// decodes to an empty map rather than an error; feature flags are advisory.
func (l *LicenseRecord) FeatureMap() map[string]bool {
	m := make(map[string]bool)
	if l.Features == "" {
		return m
	}
	if err := json.Unmarshal([]byte(l.Features), &m); err != nil {
		return make(map[string]bool)
	}
	return m
}

// SetFeatureMap encodes feature flags into the Features column.
func (l *LicenseRecord) SetFeatureMap(m map[string]bool) {
	if m == nil {
		m = make(map[string]bool)
	}
	data, _ := json.Marshal(m)
	l.Features = string(data)
}

// SortedFeatureNames returns flag names in stable order, used by the
// canonical integrity encoding.
func SortedFeatureNames(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
