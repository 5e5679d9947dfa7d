package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(Config{Level: level, Output: &buf})
	t.Cleanup(func() {
		Configure(Config{Level: InfoLevel, Pretty: true, Output: os.Stdout})
	})
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestSlogWritesThroughZerolog(t *testing.T) {
	buf := captureJSON(t, DebugLevel)

	Slog().With("job_kind", "report.generate").
		WithGroup("queue").
		Warn("Job errored; retrying", "job_id", int64(42), "error", errors.New("timeout"))

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "warn", e["level"])
	assert.Equal(t, "Job errored; retrying", e["message"])
	assert.Equal(t, "report.generate", e["job_kind"])
	assert.Equal(t, float64(42), e["queue.job_id"])
	assert.Equal(t, "timeout", e["queue.error"])
}

func TestSlogRespectsLevel(t *testing.T) {
	buf := captureJSON(t, WarnLevel)

	log := Slog()
	log.Info("fetching jobs")
	log.Debug("poll")
	log.Error("job panicked", slog.Group("job", slog.String("kind", "email.send")))

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "email.send", entries[0]["job.kind"])
}

func TestWithFields(t *testing.T) {
	buf := captureJSON(t, InfoLevel)

	l := WithFields(map[string]interface{}{"reportId": "r-1"})
	l.Info().Msg("Report generated")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "r-1", entries[0]["reportId"])
}
