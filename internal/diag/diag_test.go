package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "amaroom.INFO")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestTail(t *testing.T) {
	var all []string
	for i := 1; i <= 10; i++ {
		all = append(all, fmt.Sprintf("Line %d", i))
	}
	path := writeLog(t, all...)

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, all},
		{"read all (negative)", -1, all},
		{"read partial (5)", 5, all[5:]},
		{"read exactly all (10)", 10, all},
		{"read more than exists (20)", 20, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tail(path, tt.maxLines)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTail_MissingFile(t *testing.T) {
	got, err := Tail(filepath.Join(t.TempDir(), "nope.log"), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParse_GlogHeader(t *testing.T) {
	ref := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	e := Parse("W1017 11:59:58.123456   4242 handle.go:301] roomsync: dropping frame \"x\": decode frame: invalid json", ref)

	assert.Equal(t, Warning, e.Severity)
	assert.Equal(t, "WARN", e.Severity.String())
	assert.Equal(t, time.Date(2026, 10, 17, 11, 59, 58, 123456000, time.UTC), e.Time)
	assert.Equal(t, 4242, e.Thread)
	assert.Equal(t, "handle.go:301", e.Source)
	assert.True(t, strings.HasPrefix(e.Message, "roomsync: dropping frame"))
}

func TestParse_YearRollover(t *testing.T) {
	ref := time.Date(2027, 1, 1, 0, 5, 0, 0, time.UTC)
	e := Parse("I1231 23:59:59.000000 1 main.go:1] bye", ref)
	assert.Equal(t, 2026, e.Time.Year())
}

func TestParse_Headerless(t *testing.T) {
	e := Parse("Log file created at: 2026/10/17 12:00:00", time.Now())
	assert.Zero(t, e.Severity)
	assert.Equal(t, "Log file created at: 2026/10/17 12:00:00", e.Message)
}

func TestRead_FiltersBySeverity(t *testing.T) {
	path := writeLog(t,
		"Log file created at: 2026/10/17 12:00:00",
		"I1017 12:00:01.000000 1 live.go:1] live: connecting",
		"W1017 12:00:02.000000 1 live.go:2] live: read failed",
		"",
		"E1017 12:00:03.000000 1 main.go:3] boom",
	)

	all, err := Read(path, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	warn, err := Read(path, 0, Warning)
	require.NoError(t, err)
	require.Len(t, warn, 2)
	assert.Equal(t, Warning, warn[0].Severity)
	assert.Equal(t, Error, warn[1].Severity)
}
