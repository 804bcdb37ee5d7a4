package license

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bizgrid/backend/internal/models"
)

// ComputeIntegrityHash returns the hex SHA-256 of the canonical encoding of
// the application-writable license fields. The encoding is fixed and must
// not change without a migration that rewrites stored hashes:
//
//	ownerID|businessID|plan|maxBusinesses|maxBranches|maxEmployees|features|expiry
//
// where features is the sorted list of "name=true/false" pairs joined by
// commas, and expiry is the RFC 3339 UTC timestamp or the literal
// "perpetual". The hash is recomputed and stored on every application write
// (activation, sweep sync) and compared against freshly computed state at
// sweep time - never against anything supplied by a request.
func ComputeIntegrityHash(rec *models.LicenseRecord) string {
	features := rec.FeatureMap()
	pairs := make([]string, 0, len(features))
	for _, name := range models.SortedFeatureNames(features) {
		pairs = append(pairs, fmt.Sprintf("%s=%t", name, features[name]))
	}

	expiry := "perpetual"
	if rec.ExpiresOn != nil {
		expiry = rec.ExpiresOn.UTC().Format(time.RFC3339)
	}

	canonical := strings.Join([]string{
		fmt.Sprintf("%d", rec.OwnerID),
		rec.BusinessID,
		rec.Plan,
		fmt.Sprintf("%d", rec.MaxBusinesses),
		fmt.Sprintf("%d", rec.MaxBranches),
		fmt.Sprintf("%d", rec.MaxEmployees),
		strings.Join(pairs, ","),
		expiry,
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
