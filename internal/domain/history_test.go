package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := newHistory[int](3)
	for i := 1; i <= 5; i++ {
		h.add(i)
	}

	assert.Equal(t, []int{3, 4, 5}, h.recent(0))
	assert.Equal(t, []int{4, 5}, h.recent(2))
	assert.Equal(t, []int{3, 4, 5}, h.recent(10))
	assert.Equal(t, 3, h.len())

	h.clear()
	assert.Empty(t, h.recent(0))
	h.add(9)
	assert.Equal(t, []int{9}, h.recent(0))
}

func TestHistoryRecentDoesNotAlias(t *testing.T) {
	h := newHistory[int](4)
	h.add(1)
	h.add(2)

	got := h.recent(0)
	got[0] = 100
	assert.Equal(t, []int{1, 2}, h.recent(0))
}

func TestHistoryConcurrentAdds(t *testing.T) {
	h := newHistory[int](50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h.add(i)
				_ = h.recent(5)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, h.len())
}
