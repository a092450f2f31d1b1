package translate

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertLookup(t *testing.T) {
	tbl := New()

	tbl.Insert("persons/alice1", "DE")
	tbl.Insert("persons/bob1", "FR")

	att, ok := tbl.Lookup("persons/alice1")
	assert.True(t, ok)
	assert.Equal(t, "DE", att)

	_, ok = tbl.Lookup("persons/unknown")
	assert.False(t, ok)

	assert.Equal(t, 2, tbl.Len())
}

func TestLastInsertWins(t *testing.T) {
	tbl := New()

	tbl.Insert("persons/alice1", "DE")
	tbl.Insert("persons/alice1", "FR")

	att, ok := tbl.Lookup("persons/alice1")
	assert.True(t, ok)
	assert.Equal(t, "FR", att)
	assert.Equal(t, 1, tbl.Len())
}

func TestAttributeInterning(t *testing.T) {
	tbl := New()

	for i := 0; i < 100; i++ {
		tbl.Insert(fmt.Sprintf("persons/p%d", i), "DE")
	}
	tbl.Insert("persons/x", "FR")

	assert.Equal(t, 101, tbl.Len())
	assert.Equal(t, 2, tbl.NumAttributes())
}

func TestConcurrentLookup(t *testing.T) {
	tbl := New()
	for i := 0; i < 1000; i++ {
		tbl.Insert(fmt.Sprintf("persons/p%d", i), fmt.Sprintf("a%d", i%7))
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				att, ok := tbl.Lookup(fmt.Sprintf("persons/p%d", i))
				assert.True(t, ok)
				assert.Equal(t, fmt.Sprintf("a%d", i%7), att)
			}
		}()
	}
	wg.Wait()
}
