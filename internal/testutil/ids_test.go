package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDGenerator_Sequence(t *testing.T) {
	g := NewSequenceIDGenerator("pay")
	assert.Equal(t, "pay-0001", g.Generate())
	assert.Equal(t, "pay-0002", g.Generate())

	g.Reset()
	assert.Equal(t, "pay-0001", g.Generate())
}

func TestSequenceIDGenerator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, "test-0001", NewSequenceIDGenerator("").Generate())
}

func TestSequenceIDGenerator_ThreadSafe(t *testing.T) {
	g := NewSequenceIDGenerator("x")
	const n = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := g.Generate()
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n, "all ids unique")
}
