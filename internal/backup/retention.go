package backup

import (
	"fmt"
	"sort"
	"time"
)

// RetentionPolicy decides which stored backups to delete. The policy is
// keep-last-K with a first-of-month carve-out: the K most recent
// backups per database are always kept, and older backups taken on the
// first day of a month survive cleanup as long-term archives.
type RetentionPolicy struct {
	keep   int
	naming NamingPolicy
}

// NewRetentionPolicy validates the keep count up front so a
// misconfigured cleanup is rejected before any storage call is made.
func NewRetentionPolicy(keep int, naming NamingPolicy) (*RetentionPolicy, error) {
	if keep < 1 {
		return nil, NewRetentionConfigError(
			fmt.Sprintf("keep count must be at least 1, got %d", keep), nil)
	}
	return &RetentionPolicy{keep: keep, naming: naming}, nil
}

// Keep reports the configured keep count.
func (p *RetentionPolicy) Keep() int {
	return p.keep
}

// RetentionDecision is the outcome of applying a retention policy to
// one database's stored backups.
type RetentionDecision struct {
	// Delete lists filenames due for deletion, oldest first.
	Delete []string
	// Kept lists filenames the policy retains.
	Kept []string
	// Malformed maps filenames whose timestamp could not be parsed to
	// the parse error. They are never deleted; an unparseable name may
	// be a backup the policy cannot reason about.
	Malformed map[string]error
}

type datedEntry struct {
	filename  string
	timestamp time.Time
}

// Apply partitions the stored filenames belonging to one database into
// delete, keep and malformed sets. Entries that do not match the naming
// pattern at all are ignored as foreign; entries that match but carry an
// unparseable timestamp land in Malformed.
func (p *RetentionPolicy) Apply(database, servername, baseExt string, filenames []string) RetentionDecision {
	decision := RetentionDecision{Malformed: make(map[string]error)}

	entries := make([]datedEntry, 0, len(filenames))
	for _, name := range filenames {
		if !p.naming.Matches(name, database, servername, baseExt) {
			continue
		}
		ts, err := p.naming.ParseTimestamp(name, database, servername, baseExt)
		if err != nil {
			decision.Malformed[name] = err
			continue
		}
		entries = append(entries, datedEntry{filename: name, timestamp: ts})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].timestamp.Equal(entries[j].timestamp) {
			return entries[i].filename < entries[j].filename
		}
		return entries[i].timestamp.Before(entries[j].timestamp)
	})

	protectedFrom := len(entries) - p.keep
	if protectedFrom < 0 {
		protectedFrom = 0
	}

	for i, entry := range entries {
		if i >= protectedFrom {
			decision.Kept = append(decision.Kept, entry.filename)
			continue
		}
		if entry.timestamp.Day() == 1 {
			decision.Kept = append(decision.Kept, entry.filename)
			continue
		}
		decision.Delete = append(decision.Delete, entry.filename)
	}

	return decision
}
