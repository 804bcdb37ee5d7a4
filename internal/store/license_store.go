package store

import (
	"errors"
	"time"

	"github.com/bizgrid/backend/internal/models"
	"gorm.io/gorm"
)

// LicenseStore wraps license persistence. It exposes two deliberately
// distinct delete operations: SoftDelete (reversible, the default used by
// the rest of the application) and HardDelete (irreversible, used only by
// the license guard for revocation, expiry and suspension). Intent is never
// inferred from record state.
type LicenseStore struct {
	db *gorm.DB
}

func NewLicenseStore(db *gorm.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

// Create inserts a new license record. Caller is responsible for having set
// the integrity hash.
func (s *LicenseStore) Create(rec *models.LicenseRecord) error {
	return s.db.Create(rec).Error
}

// LatestActiveByOwner returns the most recently created Active record for
// an owner, or nil when none exists. Single indexed read, no network.
func (s *LicenseStore) LatestActiveByOwner(ownerID uint) (*models.LicenseRecord, error) {
	var rec models.LicenseRecord
	err := s.db.Where("owner_id = ? AND status = ?", ownerID, models.LicenseStatusActive).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ActiveRecords returns every Active license record, for the sweep.
func (s *LicenseStore) ActiveRecords() ([]models.LicenseRecord, error) {
	var recs []models.LicenseRecord
	err := s.db.Where("status = ?", models.LicenseStatusActive).Find(&recs).Error
	return recs, err
}

// SyncFromRemote persists the remote-authoritative fields plus the freshly
// computed integrity hash and validation timestamp. Strike fields are left
// untouched: a clean sync never resets accumulated strikes.
func (s *LicenseStore) SyncFromRemote(rec *models.LicenseRecord, validatedAt time.Time) error {
	return s.db.Model(rec).Updates(map[string]interface{}{
		"plan":                     rec.Plan,
		"max_businesses":           rec.MaxBusinesses,
		"max_branches":             rec.MaxBranches,
		"max_employees":            rec.MaxEmployees,
		"features":                 rec.Features,
		"starts_on":                rec.StartsOn,
		"expires_on":               rec.ExpiresOn,
		"external_subscription_id": rec.ExternalSubscriptionID,
		"integrity_hash":           rec.IntegrityHash,
		"last_remote_validated_at": validatedAt,
	}).Error
}

// RecordStrike persists a non-terminal tamper strike (count 1 or 2) with its
// warning message. The record stays Active.
func (s *LicenseStore) RecordStrike(rec *models.LicenseRecord, count int, warning string) error {
	return s.db.Model(rec).Updates(map[string]interface{}{
		"tamper_strike_count":    count,
		"tamper_warning_message": warning,
	}).Error
}

// SoftDelete performs the reversible delete used everywhere outside the
// license guard.
func (s *LicenseStore) SoftDelete(rec *models.LicenseRecord) error {
	return s.db.Delete(rec).Error
}

// HardDelete permanently removes a record, bypassing soft delete. License
// guard use only.
func (s *LicenseStore) HardDelete(rec *models.LicenseRecord) error {
	return s.db.Unscoped().Delete(rec).Error
}

// HardDeleteByOwner permanently removes every record matching the owner,
// including previously soft-deleted rows.
func (s *LicenseStore) HardDeleteByOwner(ownerID uint) error {
	return s.db.Unscoped().Where("owner_id = ?", ownerID).Delete(&models.LicenseRecord{}).Error
}
