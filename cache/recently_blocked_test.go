package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentlyBlockedEviction(t *testing.T) {
	tr := NewRecentlyBlockedTracker(3)
	for i := 0; i < 5; i++ {
		tr.Add(fmt.Sprintf("https://ads%d.example/x", i), "||ads^")
	}

	all := tr.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "https://ads2.example/x", all[0].URL, "oldest entries are dropped first")
	assert.Equal(t, "https://ads4.example/x", all[2].URL)
	assert.Equal(t, "||ads^", all[2].Rule)
	assert.False(t, all[2].At.IsZero())
}

func TestRecentlyBlockedDefaultSize(t *testing.T) {
	tr := NewRecentlyBlockedTracker(0)
	for i := 0; i < DefaultRecentBlockedSize+5; i++ {
		tr.Add("u", "r")
	}
	assert.Equal(t, DefaultRecentBlockedSize, tr.Len())
}

func TestRecentlyBlockedCopyAndClear(t *testing.T) {
	tr := NewRecentlyBlockedTracker(2)
	tr.Add("a", "r")

	snapshot := tr.GetAll()
	snapshot[0].URL = "mutated"
	assert.Equal(t, "a", tr.GetAll()[0].URL)

	tr.Clear()
	assert.Zero(t, tr.Len())
	assert.Empty(t, tr.GetAll())
}

func TestRecentlyBlockedConcurrent(t *testing.T) {
	tr := NewRecentlyBlockedTracker(10)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.Add("u", "r")
				_ = tr.GetAll()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, tr.Len())
}

func TestRecentlyBlockedRingWraps(t *testing.T) {
	tr := NewRecentlyBlockedTracker(4)
	for i := 0; i < 11; i++ {
		tr.Add(fmt.Sprintf("u%d", i), "r")
	}

	var urls []string
	for _, e := range tr.GetAll() {
		urls = append(urls, e.URL)
	}
	assert.Equal(t, []string{"u7", "u8", "u9", "u10"}, urls)

	tr.Clear()
	tr.Add("after", "r")
	all := tr.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "after", all[0].URL)
}

func TestRecentlyBlockedAddWhenFullDoesNotAllocate(t *testing.T) {
	tr := NewRecentlyBlockedTracker(8)
	for i := 0; i < 8; i++ {
		tr.Add("u", "r")
	}
	allocs := testing.AllocsPerRun(100, func() { tr.Add("https://ads.example/x", "||ads^") })
	assert.Zero(t, allocs)
}
