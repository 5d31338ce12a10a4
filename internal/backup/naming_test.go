package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNamingPolicy(t *testing.T) {
	tests := []struct {
		name       string
		dateFormat string
		wantErr    bool
	}{
		{
			name:       "default format",
			dateFormat: "",
			wantErr:    false,
		},
		{
			name:       "explicit default format",
			dateFormat: DefaultDateFormat,
			wantErr:    false,
		},
		{
			name:       "day granularity format",
			dateFormat: "2006-01-02",
			wantErr:    false,
		},
		{
			name:       "format with literal text",
			dateFormat: "backup-not-a-layout",
			wantErr:    true,
		},
		{
			name:       "format containing a dot",
			dateFormat: "2006-01-02.150405",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewNamingPolicy(tt.dateFormat)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsErrorType(err, BackupErrorTypeConfiguration))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, policy.DateFormat())
		})
	}
}

func TestNamingPolicyFilename(t *testing.T) {
	policy, err := NewNamingPolicy(DefaultDateFormat)
	require.NoError(t, err)

	ts := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)

	tests := []struct {
		name       string
		database   string
		servername string
		baseExt    string
		want       string
	}{
		{
			name:     "without servername",
			database: "orders",
			baseExt:  "sql",
			want:     "orders-2024-03-15-103045.sql",
		},
		{
			name:       "with servername",
			database:   "orders",
			servername: "db1",
			baseExt:    "sql",
			want:       "orders-db1-2024-03-15-103045.sql",
		},
		{
			name:     "postgres extension",
			database: "billing",
			baseExt:  "dump",
			want:     "billing-2024-03-15-103045.dump",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Filename(tt.database, tt.servername, tt.baseExt, ts)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamingPolicyTimestampRoundTrip(t *testing.T) {
	policy, err := NewNamingPolicy(DefaultDateFormat)
	require.NoError(t, err)

	ts := time.Date(2024, 11, 23, 14, 5, 6, 0, time.UTC)

	// The timestamp must survive any combination of transform suffixes.
	suffixes := []string{"", ".gz", ".zst.enc", ".gz.enc", ".lz4"}
	for _, suffix := range suffixes {
		filename := policy.Filename("orders", "db1", "sql", ts) + suffix
		parsed, err := policy.ParseTimestamp(filename, "orders", "db1", "sql")
		require.NoError(t, err, "suffix %q", suffix)
		assert.True(t, parsed.Equal(ts), "suffix %q: got %v", suffix, parsed)
	}
}

func TestNamingPolicyParseTimestampMalformed(t *testing.T) {
	policy, err := NewNamingPolicy(DefaultDateFormat)
	require.NoError(t, err)

	tests := []struct {
		name     string
		filename string
	}{
		{name: "wrong database", filename: "billing-2024-03-15-103045.sql"},
		{name: "garbage timestamp", filename: "orders-notadate.sql"},
		{name: "wrong extension", filename: "orders-2024-03-15-103045.dump"},
		{name: "no timestamp at all", filename: "orders.sql"},
		{name: "empty", filename: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := policy.ParseTimestamp(tt.filename, "orders", "", "sql")
			require.Error(t, err)
			assert.True(t, IsMalformedFilename(err))
		})
	}
}

func TestNamingPolicyMatches(t *testing.T) {
	policy, err := NewNamingPolicy(DefaultDateFormat)
	require.NoError(t, err)

	assert.True(t, policy.Matches("orders-2024-03-15-103045.sql.gz.enc", "orders", "", "sql"))
	assert.False(t, policy.Matches("billing-2024-03-15-103045.sql", "orders", "", "sql"))
	assert.False(t, policy.Matches("orders-2024-03-15-103045.sql", "orders", "db1", "sql"))
}

func TestNamingPolicyCollisionWithinWindow(t *testing.T) {
	policy, err := NewNamingPolicy(DefaultDateFormat)
	require.NoError(t, err)

	ts := time.Date(2024, 3, 15, 10, 30, 45, 0, time.UTC)
	first := policy.Filename("orders", "", "sql", ts)
	second := policy.Filename("orders", "", "sql", ts.Add(500*time.Millisecond))
	assert.Equal(t, first, second, "same second must produce the same filename")

	third := policy.Filename("orders", "", "sql", ts.Add(time.Second))
	assert.NotEqual(t, first, third, "distinct seconds must produce distinct filenames")
}
