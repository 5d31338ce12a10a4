package backup

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultDateFormat is the timestamp layout embedded in backup filenames.
// It sorts lexicographically in timestamp order at second granularity,
// which keeps listings readable; retention ordering itself always goes
// through ParseTimestamp and never relies on string order.
const DefaultDateFormat = "2006-01-02-150405"

// NamingPolicy derives canonical backup filenames and recovers timestamps
// from them. Filenames have the shape
//
//	{database}[-{servername}]-{timestamp}.{baseExt}{transform suffixes...}
//
// and the timestamp stays extractable no matter which transform suffixes
// were appended.
//
// Two backups of the same database within the same format-resolution
// window produce the same filename; the storage layer resolves that as
// last-write-wins. The policy does not deduplicate.
type NamingPolicy struct {
	dateFormat string
}

// NewNamingPolicy creates a naming policy for the given Go time layout.
// The layout must round-trip a timestamp exactly, otherwise retention
// ordering would silently degrade.
func NewNamingPolicy(dateFormat string) (NamingPolicy, error) {
	if dateFormat == "" {
		dateFormat = DefaultDateFormat
	}

	probe := time.Date(2024, 11, 23, 14, 5, 6, 0, time.UTC)
	formatted := probe.Format(dateFormat)
	parsed, err := time.Parse(dateFormat, formatted)
	if err != nil || !parsed.Equal(probe.Truncate(granularity(dateFormat))) {
		return NamingPolicy{}, NewConfigurationError(
			fmt.Sprintf("date format %q does not round-trip timestamps", dateFormat), err)
	}
	if strings.Contains(formatted, ".") {
		return NamingPolicy{}, NewConfigurationError(
			fmt.Sprintf("date format %q produces timestamps containing '.', which collides with extension parsing", dateFormat), nil)
	}

	return NamingPolicy{dateFormat: dateFormat}, nil
}

// granularity returns the round-trip resolution of a layout: layouts
// without seconds truncate to the minute, and so on.
func granularity(layout string) time.Duration {
	switch {
	case strings.Contains(layout, "05"):
		return time.Second
	case strings.Contains(layout, "04"):
		return time.Minute
	case strings.Contains(layout, "15"):
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// DateFormat returns the configured timestamp layout.
func (p NamingPolicy) DateFormat() string {
	return p.dateFormat
}

// Filename derives the canonical backup filename for one database at one
// timestamp. Deterministic; distinct timestamps at the layout's
// granularity yield distinct filenames.
func (p NamingPolicy) Filename(database, servername, baseExt string, ts time.Time) string {
	var b strings.Builder
	b.WriteString(database)
	if servername != "" {
		b.WriteByte('-')
		b.WriteString(servername)
	}
	b.WriteByte('-')
	b.WriteString(ts.Format(p.dateFormat))
	b.WriteByte('.')
	b.WriteString(baseExt)
	return b.String()
}

// Pattern returns the matching pattern that isolates the timestamp
// substring of any filename previously produced by Filename for the same
// database/servername, regardless of trailing transform suffixes.
func (p NamingPolicy) Pattern(database, servername, baseExt string) *regexp.Regexp {
	var b strings.Builder
	b.WriteByte('^')
	b.WriteString(regexp.QuoteMeta(database))
	if servername != "" {
		b.WriteByte('-')
		b.WriteString(regexp.QuoteMeta(servername))
	}
	b.WriteString(`-(.+?)\.`)
	b.WriteString(regexp.QuoteMeta(baseExt))
	b.WriteString(`(?:\.[A-Za-z0-9]+)*$`)
	return regexp.MustCompile(b.String())
}

// Matches reports whether filename was plausibly produced by Filename for
// the given database/servername. Used to ignore foreign storage entries
// during retention listing.
func (p NamingPolicy) Matches(filename, database, servername, baseExt string) bool {
	return p.Pattern(database, servername, baseExt).MatchString(filename)
}

// ParseTimestamp recovers the timestamp embedded in filename. A filename
// that does not match the pattern, or whose timestamp substring does not
// parse under the configured layout, yields a MALFORMED_FILENAME error;
// callers treat that as fatal for the entry but not for the batch.
func (p NamingPolicy) ParseTimestamp(filename, database, servername, baseExt string) (time.Time, error) {
	matches := p.Pattern(database, servername, baseExt).FindStringSubmatch(filename)
	if matches == nil {
		return time.Time{}, NewMalformedFilenameError(filename, nil)
	}

	ts, err := time.Parse(p.dateFormat, matches[1])
	if err != nil {
		return time.Time{}, NewMalformedFilenameError(filename, err)
	}
	return ts, nil
}
