package statuslog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeverity(t *testing.T) {
	assert.Equal(t, "INFO", SeverityInfo.String())
	assert.Equal(t, "WARNING", SeverityWarning.String())
	assert.Equal(t, "ERROR", SeverityError.String())
	assert.Equal(t, "FATAL", SeverityFatal.String())
	assert.Equal(t, "SEVERITY(9)", Severity(9).String())

	assert.True(t, SeverityFatal.Valid())
	assert.False(t, Severity(-1).Valid())
	assert.True(t, SeverityInfo < SeverityWarning && SeverityWarning < SeverityError && SeverityError < SeverityFatal)
}

func TestNewStatusLine(t *testing.T) {
	before := time.Now()
	line := NewStatusLine(SeverityError, "main.go", 12, "failed")
	assert.Equal(t, SeverityError, line.Severity)
	assert.Equal(t, "main.go:12", line.Location())
	assert.False(t, line.Time.Before(before))

	assert.Equal(t, SeverityInfo, NewStatusLine(-3, "x.go", 1, "").Severity)
	assert.Equal(t, SeverityFatal, NewStatusLine(17, "x.go", 1, "").Severity)
}

func TestSeverityClamp(t *testing.T) {
	assert.Equal(t, SeverityInfo, Severity(-1).Clamp())
	assert.Equal(t, SeverityWarning, SeverityWarning.Clamp())
	assert.Equal(t, SeverityFatal, Severity(9).Clamp())
	assert.False(t, Severity(9).Valid())
}

func TestBuildMessage(t *testing.T) {
	assert.Equal(t, "", buildMessage(nil))
	assert.Equal(t, "plain", buildMessage([]any{"plain"}))
	assert.Equal(t, "count 3 ok", buildMessage([]any{"count", 3, "ok"}))
}

func TestGetCaller(t *testing.T) {
	file, line := getCaller(0)
	assert.Equal(t, "line_test.go", file)
	assert.NotZero(t, line)
}
