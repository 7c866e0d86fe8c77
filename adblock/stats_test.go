package adblock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsRecordBlock(t *testing.T) {
	s := NewStats()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordBlock()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1000, s.BlockedTotal())
	assert.EqualValues(t, 1000, s.BlockedToday())
}

func TestStatsDailyReset(t *testing.T) {
	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	s := NewStats()
	s.lastReset = day
	s.now = func() time.Time { return day }

	s.RecordBlock()
	s.RecordBlock()
	assert.EqualValues(t, 2, s.BlockedToday())

	day = day.Add(2 * time.Minute)
	assert.EqualValues(t, 0, s.BlockedToday(), "a new day starts at zero")

	s.RecordBlock()
	assert.EqualValues(t, 1, s.BlockedToday())
	assert.EqualValues(t, 3, s.BlockedTotal(), "the total never resets")
}
