package sim

import (
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryUnbounded(t *testing.T) {
	history := NewHistory(0)
	for ts := int64(0); ts < 1000; ts++ {
		history.Record(ts*3000, image.Pt(int(ts), int(ts)))
	}
	assert.Equal(t, 1000, history.Len())
	pos, ok := history.Lookup(0)
	assert.True(t, ok)
	assert.Equal(t, image.Pt(0, 0), pos)
}

func TestHistoryEvictsOldest(t *testing.T) {
	history := NewHistory(3)
	for ts := int64(1); ts <= 5; ts++ {
		history.Record(ts, image.Pt(int(ts)*10, 0))
	}
	assert.Equal(t, 3, history.Len())
	for _, evicted := range []int64{1, 2} {
		_, ok := history.Lookup(evicted)
		assert.False(t, ok, "timestamp %d should be evicted", evicted)
	}
	for _, kept := range []int64{3, 4, 5} {
		pos, ok := history.Lookup(kept)
		assert.True(t, ok, "timestamp %d should be kept", kept)
		assert.Equal(t, image.Pt(int(kept)*10, 0), pos)
	}
}

func TestHistoryRewriteDoesNotEvict(t *testing.T) {
	history := NewHistory(2)
	history.Record(1, image.Pt(1, 1))
	history.Record(2, image.Pt(2, 2))
	history.Record(2, image.Pt(3, 3))
	assert.Equal(t, 2, history.Len())
	pos, _ := history.Lookup(2)
	assert.Equal(t, image.Pt(3, 3), pos)
	_, ok := history.Lookup(1)
	assert.True(t, ok)
}

func TestHistoryConcurrentReaders(t *testing.T) {
	history := NewHistory(100)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ts := int64(0); ts < 5000; ts++ {
			history.Record(ts, image.Pt(1, 2))
		}
	}()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ts := int64(0); ts < 5000; ts++ {
				history.Lookup(ts)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, history.Len())
}
