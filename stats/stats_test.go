package stats

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSystem(t *testing.T) {
	c := NewCollector()
	c.startTime = time.Now().Add(-time.Minute)

	s := c.System(context.Background())

	assert.Equal(t, runtime.NumCPU(), s.CPUCores)
	assert.Positive(t, s.Goroutines)
	assert.GreaterOrEqual(t, s.UptimeSeconds, 60.0)
	assert.GreaterOrEqual(t, s.CPUUsagePct, 0.0)
	assert.GreaterOrEqual(t, s.MemUsagePct, 0.0)
	assert.GreaterOrEqual(t, s.MemTotalMB, s.MemUsedMB)
}

func TestCollectorSystemCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewCollector().System(ctx)
	assert.Equal(t, runtime.NumCPU(), s.CPUCores, "static fields survive a cancelled context")
}
