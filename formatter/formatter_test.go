package formatter

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fluent API", func(t *testing.T) {
		f := New().
			Type("json").
			TimestampFormat(time.RFC3339).
			ShowSeverity(true).
			ShowTime(true)

		data := f.FormatStatus(0, timestamp, "INFO", "main.go:10", "test")
		assert.Contains(t, string(data), `"severity":"INFO"`)
		assert.Contains(t, string(data), `"time":"2024-01-01T12:00:00Z"`)
		assert.Contains(t, string(data), `"location":"main.go:10"`)
	})

	t.Run("txt status", func(t *testing.T) {
		f := New().Type("txt")

		data := f.FormatStatus(FlagDefault, timestamp, "WARNING", "config.go:42", "disk almost full")
		str := string(data)

		assert.True(t, strings.HasPrefix(str, "2024-01-01"))
		assert.Contains(t, str, " WARNING config.go:42 disk almost full")
		assert.True(t, strings.HasSuffix(str, "\n"))
	})

	t.Run("txt status hex-encodes control characters", func(t *testing.T) {
		f := New().Type("txt").ShowTime(false).ShowLocation(false)

		data := f.FormatStatus(0, timestamp, "INFO", "", "bell\x07here")
		assert.Equal(t, "INFO bell<07>here\n", string(data))
	})

	t.Run("json status", func(t *testing.T) {
		f := New().Type("json")

		data := f.FormatStatus(FlagDefault, timestamp, "ERROR", "a.go:1", "line1\nline2 \"quoted\"")

		var result map[string]any
		err := json.Unmarshal(data[:len(data)-1], &result)
		require.NoError(t, err)

		assert.Equal(t, "ERROR", result["severity"])
		assert.Equal(t, "a.go:1", result["location"])
		assert.Equal(t, "line1\nline2 \"quoted\"", result["message"])
	})

	t.Run("raw status", func(t *testing.T) {
		f := New().Type("raw")

		data := f.FormatStatus(FlagDefault, timestamp, "INFO", "a.go:1", "plain")
		assert.Equal(t, "plain", string(data))
	})

	t.Run("json fields", func(t *testing.T) {
		f := New().Type("json")

		data := f.Format(FlagShowSeverity, timestamp, "INFO", "", []any{"type", "relay", "pending", 3, errors.New("boom")})

		var result map[string]any
		err := json.Unmarshal(data[:len(data)-1], &result)
		require.NoError(t, err)

		_, hasTime := result["time"]
		assert.False(t, hasTime)
		fields := result["fields"].([]any)
		assert.Equal(t, "type", fields[0])
		assert.Equal(t, float64(3), fields[3])
		assert.Equal(t, "boom", fields[4])
	})

	t.Run("txt fields quoting", func(t *testing.T) {
		f := New().Type("txt")

		data := f.Format(FlagShowSeverity, timestamp, "INFO", "", []any{"key", "two words", true, nil})
		assert.Equal(t, `INFO key "two words" true null`+"\n", string(data))
	})

	t.Run("raw complex value", func(t *testing.T) {
		f := New().Type("raw")

		data := f.Format(0, timestamp, "INFO", "", []any{map[string]int{"b": 2, "a": 1}})
		str := string(data)
		assert.Less(t, strings.Index(str, `"a"`), strings.Index(str, `"b"`))
	})

	t.Run("strings", func(t *testing.T) {
		assert.Equal(t, "result\n", string(New().Type("txt").FormatString("event", "result")))
		assert.Equal(t, "result", string(New().Type("raw").FormatString("event", "result")))

		data := New().Type("json").FormatString("snapshot", `{"a":1}`)
		var result map[string]any
		require.NoError(t, json.Unmarshal(data[:len(data)-1], &result))
		assert.Equal(t, "snapshot", result["category"])
		assert.Equal(t, `{"a":1}`, result["text"])
	})
}

func TestHexEncodeNonPrintable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"plain", "plain"},
		{"tab\there", "tab<09>here"},
		{"esc\x1b[31m", "esc<1b>[31m"},
		{"unicode ✓", "unicode ✓"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, hexEncodeNonPrintable(tt.input))
	}
}
