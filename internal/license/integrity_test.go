package license

import (
	"testing"
	"time"

	"github.com/bizgrid/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func hashableRecord() *models.LicenseRecord {
	expires := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &models.LicenseRecord{
		OwnerID:       7,
		BusinessID:    "b7f4f4e2-1111-2222-3333-444455556666",
		Plan:          "pro",
		MaxBusinesses: 2,
		MaxBranches:   5,
		MaxEmployees:  50,
		ExpiresOn:     &expires,
	}
	rec.SetFeatureMap(map[string]bool{"api_access": true, "advanced_reports": false})
	return rec
}

func TestIntegrityHashIsStable(t *testing.T) {
	rec := hashableRecord()
	assert.Equal(t, ComputeIntegrityHash(rec), ComputeIntegrityHash(rec))
	assert.Len(t, ComputeIntegrityHash(rec), 64)
}

func TestIntegrityHashChangesWithEachField(t *testing.T) {
	base := ComputeIntegrityHash(hashableRecord())

	mutations := map[string]func(*models.LicenseRecord){
		"owner":      func(r *models.LicenseRecord) { r.OwnerID = 8 },
		"business":   func(r *models.LicenseRecord) { r.BusinessID = "other" },
		"plan":       func(r *models.LicenseRecord) { r.Plan = "enterprise" },
		"businesses": func(r *models.LicenseRecord) { r.MaxBusinesses = 3 },
		"branches":   func(r *models.LicenseRecord) { r.MaxBranches = 6 },
		"employees":  func(r *models.LicenseRecord) { r.MaxEmployees = 51 },
		"features":   func(r *models.LicenseRecord) { r.SetFeatureMap(map[string]bool{"api_access": false}) },
		"expiry":     func(r *models.LicenseRecord) { r.ExpiresOn = nil },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			rec := hashableRecord()
			mutate(rec)
			assert.NotEqual(t, base, ComputeIntegrityHash(rec))
		})
	}
}

func TestIntegrityHashIgnoresFeatureInsertionOrder(t *testing.T) {
	a := hashableRecord()
	a.SetFeatureMap(map[string]bool{"x": true, "a": false, "m": true})

	b := hashableRecord()
	b.SetFeatureMap(map[string]bool{"m": true, "x": true, "a": false})

	assert.Equal(t, ComputeIntegrityHash(a), ComputeIntegrityHash(b))
}

func TestIntegrityHashPerpetualEncoding(t *testing.T) {
	rec := hashableRecord()
	rec.ExpiresOn = nil
	perpetual := ComputeIntegrityHash(rec)

	// A perpetual license must not collide with any dated one
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rec.ExpiresOn = &expires
	assert.NotEqual(t, perpetual, ComputeIntegrityHash(rec))
}

func TestIntegrityHashIgnoresNonCanonicalFields(t *testing.T) {
	rec := hashableRecord()
	base := ComputeIntegrityHash(rec)

	// Strike bookkeeping and timestamps are not part of the canonical set;
	// the sweep writes them without re-hashing
	rec.TamperStrikeCount = 2
	rec.TamperWarningMessage = "warned"
	now := time.Now()
	rec.LastRemoteValidatedAt = &now

	assert.Equal(t, base, ComputeIntegrityHash(rec))
}
