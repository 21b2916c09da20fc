package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiterEvictsIdleClients(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(2)
	l.now = func() time.Time { return clock }
	l.lastSweep = clock

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
	assert.Len(t, l.entries, 2)

	clock = clock.Add(limiterIdleTTL / 2)
	assert.True(t, l.allow("10.0.0.2"))

	clock = clock.Add(limiterIdleTTL/2 + time.Second)
	assert.True(t, l.allow("10.0.0.3"))

	assert.Len(t, l.entries, 2)
	assert.NotContains(t, l.entries, "10.0.0.1")
	assert.Contains(t, l.entries, "10.0.0.2")
}
