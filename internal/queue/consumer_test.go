package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	line := FormatLine(ScreeningScheduledEvent{
		Action: "created", ScreeningID: 4, MovieID: 2, MovieTitle: "Heat",
		CreatorEmail: "ann@example.com", StartTime: "2030-01-01T20:00:00Z",
		OccurredAt: "2029-12-01T10:00:00Z",
	})
	assert.Equal(t, `[2029-12-01T10:00:00Z] Screening created | screening_id=4 | movie_id=2 | movie="Heat" | creator="ann@example.com" | start=2030-01-01T20:00:00Z | end=unknown`+"\n", line)
}

func TestHandleMessageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "screenings.log")
	body, err := json.Marshal(ScreeningScheduledEvent{Action: "created", ScreeningID: 1, EndTime: "2030-01-01T22:50:00Z"})
	require.NoError(t, err)

	require.NoError(t, HandleMessage(body, path))
	require.NoError(t, HandleMessage(body, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(data)))
	assert.Contains(t, string(data), "end=2030-01-01T22:50:00Z")
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenings.log")
	assert.Error(t, HandleMessage([]byte("{not json"), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
