package schema

import (
	"encoding/json"
	"hash/fnv"
	"time"
)

// Dataset is the reconciled view of the remote store: every team record
// with its nested match records, plus the timestamp of the fetch that
// produced it. Downstream copies (the in-memory cache and the durable
// local snapshot) are derived from it and are never sources of truth.
type Dataset struct {
	Teams    []*TeamRecord `json:"teams"`
	SyncedAt time.Time     `json:"synced_at"`
}

// Team returns the record for the given team number, or nil if the
// dataset does not contain it.
func (d *Dataset) Team(teamNumber int) *TeamRecord {
	for _, t := range d.Teams {
		if t.TeamNumber == teamNumber {
			return t
		}
	}
	return nil
}

// MatchCount returns the total number of match records across all teams.
func (d *Dataset) MatchCount() int {
	n := 0
	for _, t := range d.Teams {
		n += len(t.Matches)
	}
	return n
}

// Fingerprint returns a stable hash of the dataset contents, excluding
// the sync timestamp. Two fetches that returned the same records produce
// the same fingerprint, which lets the background scheduler distinguish
// a new-data sync from a no-data one.
func (d *Dataset) Fingerprint() uint64 {
	h := fnv.New64a()
	enc := json.NewEncoder(h)
	for _, t := range d.Teams {
		// Encoding errors are impossible for these types; ignore them
		// so Fingerprint stays infallible for callers.
		_ = enc.Encode(t)
	}
	return h.Sum64()
}
