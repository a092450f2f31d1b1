package translate

import (
	"sync"
)

// Table maps a fully qualified vertex identifier (collection/key) to the
// sharding attribute the vertex transform assigned it. Attribute strings are
// interned in a list and the map stores the index - millions of vertices
// typically share few distinct attribute values.
//
// Populated while vertex files are streamed, read-only once edge files start.
// The RWMutex supports concurrent lookups during a concurrent edge phase;
// inserts are serialised.

type Table struct {
	mu     sync.RWMutex
	keyTab map[string]int
	attrs  []string
	attTab map[string]int // attribute -> index into attrs
}

func New() *Table {
	return &Table{
		keyTab: make(map[string]int),
		attTab: make(map[string]int),
	}
}

// Insert records identifier -> attribute. Re-inserting the same identifier
// overwrites: last insert wins.
func (t *Table) Insert(fullID string, attribute string) {

	t.mu.Lock()
	i, ok := t.attTab[attribute]
	if !ok {
		i = len(t.attrs)
		t.attrs = append(t.attrs, attribute)
		t.attTab[attribute] = i
	}
	t.keyTab[fullID] = i
	t.mu.Unlock()
}

// Lookup returns the attribute assigned to an identifier.
func (t *Table) Lookup(fullID string) (string, bool) {

	t.mu.RLock()
	i, ok := t.keyTab[fullID]
	var att string
	if ok {
		att = t.attrs[i]
	}
	t.mu.RUnlock()
	return att, ok
}

// Len returns the number of identifiers held.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.keyTab)
}

// NumAttributes returns the number of distinct attribute strings held.
func (t *Table) NumAttributes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.attrs)
}
