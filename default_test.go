package statuslog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLogger(t *testing.T) {
	assert.Same(t, defaultLogger, Default())
	assert.NotNil(t, Receivers())
	assert.Equal(t, defaultLogger.QueuedStatuses(), QueuedStatuses())
	assert.Equal(t, defaultLogger.QueuedSenders(), QueuedSenders())
}
