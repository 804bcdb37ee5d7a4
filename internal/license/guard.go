package license

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bizgrid/backend/internal/models"
	"github.com/bizgrid/backend/internal/store"
	"gorm.io/gorm"
)

// GuardService reconciles local license records against the remote
// authoritative mapping. One Sweep call is one full pass; it is idempotent
// and safe to run concurrently from both monitors, because every step
// re-applies the same remote truth and each row commits independently.
type GuardService struct {
	db      *gorm.DB
	fetcher MappingFetcher
}

func NewGuardService(db *gorm.DB, fetcher MappingFetcher) *GuardService {
	return &GuardService{db: db, fetcher: fetcher}
}

// sweepStats summarizes one sweep for logging.
type sweepStats struct {
	checked   int
	synced    int
	revoked   int
	expired   int
	struck    int
	suspended int
	failed    int
}

func (s sweepStats) String() string {
	return fmt.Sprintf("checked=%d synced=%d revoked=%d expired=%d struck=%d suspended=%d failed=%d",
		s.checked, s.synced, s.revoked, s.expired, s.struck, s.suspended, s.failed)
}

// Sweep fetches the remote mapping and reconciles every Active license
// record against it. If the mapping is unreachable the whole sweep is
// skipped without touching any record: local state stays authoritative for
// the fast path until the next successful run. A single row's failure is
// logged and does not abort the rest.
func (g *GuardService) Sweep(ctx context.Context, label string) error {
	snapshot, err := g.fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrRemoteUnreachable) {
			log.Printf("%s: remote mapping unreachable, skipping sweep", label)
			return err
		}
		return err
	}

	licenses := store.NewLicenseStore(g.db)
	owners := store.NewOwnerStore(g.db)

	recs, err := licenses.ActiveRecords()
	if err != nil {
		return fmt.Errorf("failed to load active licenses: %w", err)
	}

	ownerIDs := make([]uint, 0, len(recs))
	for _, rec := range recs {
		ownerIDs = append(ownerIDs, rec.OwnerID)
	}
	emails, err := owners.EmailsByIDs(ownerIDs)
	if err != nil {
		return fmt.Errorf("failed to load owner emails: %w", err)
	}

	now := time.Now().UTC()
	var stats sweepStats

	for i := range recs {
		rec := &recs[i]
		stats.checked++
		if err := g.reconcileRecord(rec, emails[rec.OwnerID], snapshot, now, &stats); err != nil {
			stats.failed++
			log.Printf("%s: license %d (owner %d): %v", label, rec.ID, rec.OwnerID, err)
		}
	}

	log.Printf("%s: sweep complete (%d remote entries, %s)", label, snapshot.Len(), stats)
	return nil
}

// reconcileRecord applies the sweep outcome for one license row. Outcomes
// in order of precedence: revoke (no matching remote entry or business),
// tamper strike (integrity hash mismatch, terminal at the strike limit),
// expire (remote says expired/revoked or expiry has passed), sync.
func (g *GuardService) reconcileRecord(rec *models.LicenseRecord, ownerEmail string, snapshot *MappingSnapshot, now time.Time, stats *sweepStats) error {
	licenses := store.NewLicenseStore(g.db)

	if ownerEmail == "" {
		// Orphaned license: owning account row is gone.
		stats.revoked++
		return licenses.HardDelete(rec)
	}

	entry, ok := snapshot.Lookup(ownerEmail)
	if !ok || !entry.HasBusiness(rec.BusinessID) {
		stats.revoked++
		return licenses.HardDelete(rec)
	}

	// Tamper detection: recompute the canonical hash over the row as it
	// stands and compare with the hash the application last wrote. An empty
	// stored hash means the row predates hashing and establishes its
	// baseline on the next sync instead.
	if rec.IntegrityHash != "" && ComputeIntegrityHash(rec) != rec.IntegrityHash {
		count, state := NextStrike(rec.TamperStrikeCount)
		if state == StrikeSuspended {
			stats.suspended++
			return g.suspend(rec)
		}
		warning := fmt.Sprintf("License integrity check failed (strike %d of %d). Contact support if this persists.",
			count, models.TamperStrikeLimit)
		if err := licenses.RecordStrike(rec, count, warning); err != nil {
			return fmt.Errorf("failed to record tamper strike: %w", err)
		}
		rec.TamperStrikeCount = count
		rec.TamperWarningMessage = warning
		stats.struck++
	}

	if !entry.License.IsCurrent(now) {
		stats.expired++
		return licenses.HardDelete(rec)
	}

	ApplyRemoteDetail(rec, entry.License)
	rec.IntegrityHash = ComputeIntegrityHash(rec)
	validatedAt := now
	rec.LastRemoteValidatedAt = &validatedAt
	if err := licenses.SyncFromRemote(rec, validatedAt); err != nil {
		return fmt.Errorf("failed to sync from remote: %w", err)
	}
	stats.synced++
	return nil
}

// suspend hard-deletes the license and deactivates the owning account in
// one transaction. Either both happen or neither does; a failed row is
// retried by the next sweep.
func (g *GuardService) suspend(rec *models.LicenseRecord) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		if err := store.NewLicenseStore(tx).HardDelete(rec); err != nil {
			return err
		}
		return store.NewOwnerStore(tx).Deactivate(rec.OwnerID)
	})
}

// ApplyRemoteDetail overwrites the remote-authoritative fields of a record
// from a mapping detail block. Strike fields and timestamps are untouched.
func ApplyRemoteDetail(rec *models.LicenseRecord, detail RemoteLicenseDetail) {
	rec.Plan = detail.Plan
	rec.MaxBusinesses = detail.MaxBusinesses
	rec.MaxBranches = detail.MaxBranches
	rec.MaxEmployees = detail.MaxEmployees
	rec.SetFeatureMap(detail.Features)
	rec.StartsOn = detail.StartsOn
	rec.ExpiresOn = detail.ExpiresOn
	rec.ExternalSubscriptionID = detail.SubscriptionID
}
