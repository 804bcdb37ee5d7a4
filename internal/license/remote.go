package license

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrRemoteUnreachable is the single failure outcome of a mapping fetch.
// Transport errors, non-success statuses and parse failures all collapse to
// it: the policy is uniform "skip this sweep, try again next interval", so
// callers must not branch on finer-grained causes.
var ErrRemoteUnreachable = errors.New("remote license mapping unreachable")

// RemoteLicenseDetail is the license block of one remote mapping entry.
// The remote source is authoritative for every field here.
type RemoteLicenseDetail struct {
	Plan           string          `json:"plan"`
	Status         string          `json:"status"` // active, expired, revoked
	MaxBusinesses  int             `json:"max_businesses"`
	MaxBranches    int             `json:"max_branches"`
	MaxEmployees   int             `json:"max_employees"`
	Features       map[string]bool `json:"features"`
	SubscriptionID string          `json:"subscription_id"`
	StartsOn       time.Time       `json:"starts_on"`
	ExpiresOn      *time.Time      `json:"expires_on"` // null = perpetual
}

// IsCurrent reports whether the remote side considers the license usable
// right now.
func (d RemoteLicenseDetail) IsCurrent(now time.Time) bool {
	if d.Status != "active" {
		return false
	}
	if d.ExpiresOn != nil && d.ExpiresOn.Before(now) {
		return false
	}
	return true
}

// RemoteEntry is one owner's row in the remote mapping.
type RemoteEntry struct {
	Email       string              `json:"email"`
	BusinessIDs []string            `json:"business_ids"`
	License     RemoteLicenseDetail `json:"license"`
}

// HasBusiness reports whether the entry licenses the given business ID.
func (e RemoteEntry) HasBusiness(id string) bool {
	for _, b := range e.BusinessIDs {
		if b == id {
			return true
		}
	}
	return false
}

// MappingSnapshot is one fetched copy of the remote mapping, keyed by
// lowercased owner email. It is never persisted; every sweep fetches a
// fresh one.
type MappingSnapshot struct {
	entries   map[string]RemoteEntry
	FetchedAt time.Time
}

// Lookup finds the entry for an owner email, case-insensitively.
func (s *MappingSnapshot) Lookup(email string) (RemoteEntry, bool) {
	entry, ok := s.entries[strings.ToLower(email)]
	return entry, ok
}

// Len returns the number of entries in the snapshot.
func (s *MappingSnapshot) Len() int {
	return len(s.entries)
}

// MappingFetcher is the dependency the guard service takes, so sweeps can
// be tested against a canned snapshot.
type MappingFetcher interface {
	Fetch(ctx context.Context) (*MappingSnapshot, error)
}

// MappingClient fetches and parses the authoritative remote license
// mapping over HTTPS.
type MappingClient struct {
	url        string
	httpClient *http.Client
}

func NewMappingClient(url string, timeout time.Duration) *MappingClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MappingClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs one GET of the mapping document. Any failure is logged
// with its cause and returned as ErrRemoteUnreachable.
func (c *MappingClient) Fetch(ctx context.Context) (*MappingSnapshot, error) {
	if c.url == "" {
		log.Println("MappingClient: no mapping URL configured")
		return nil, ErrRemoteUnreachable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		log.Printf("MappingClient: failed to build request: %v", err)
		return nil, ErrRemoteUnreachable
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("MappingClient: fetch failed: %v", err)
		return nil, ErrRemoteUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("MappingClient: unexpected status %d from mapping source", resp.StatusCode)
		return nil, ErrRemoteUnreachable
	}

	var entries []RemoteEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		log.Printf("MappingClient: failed to parse mapping document: %v", err)
		return nil, ErrRemoteUnreachable
	}

	snapshot := &MappingSnapshot{
		entries:   make(map[string]RemoteEntry, len(entries)),
		FetchedAt: time.Now().UTC(),
	}
	for _, entry := range entries {
		snapshot.entries[strings.ToLower(entry.Email)] = entry
	}

	return snapshot, nil
}

// NewSnapshot builds a snapshot from entries directly. Test helper and
// activation-path convenience.
func NewSnapshot(entries []RemoteEntry) *MappingSnapshot {
	s := &MappingSnapshot{
		entries:   make(map[string]RemoteEntry, len(entries)),
		FetchedAt: time.Now().UTC(),
	}
	for _, entry := range entries {
		s.entries[strings.ToLower(entry.Email)] = entry
	}
	return s
}
