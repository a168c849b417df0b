package operator

import "slices"

// Pair is one (key, value) element of a keyed stream.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

// KeyedOp tags an entry of a mutable keyed stream.
type KeyedOp int

const (
	// OpUpsert folds a value into the key's accumulator.
	OpUpsert KeyedOp = iota
	// OpDelete removes the key.
	OpDelete
)

// Keyed is an entry of a mutable keyed stream.
type Keyed[K comparable, V any] struct {
	Op    KeyedOp
	Key   K
	Value V
}

// Upsert returns an entry folding v into key k.
func Upsert[K comparable, V any](k K, v V) Keyed[K, V] {
	return Keyed[K, V]{Op: OpUpsert, Key: k, Value: v}
}

// Delete returns an entry removing key k.
func Delete[K comparable, V any](k K) Keyed[K, V] {
	return Keyed[K, V]{Op: OpDelete, Key: k}
}

// table is a keyed accumulator table iterated in key insertion order.
type table[K comparable, A any] struct {
	index map[K]int
	keys  []K
	accs  []A
}

// entry returns the accumulator for k, creating it with init if absent.
// fresh reports whether it was created.
func (t *table[K, A]) entry(k K, init func() A) (acc *A, fresh bool) {
	if t.index == nil {
		t.index = map[K]int{}
	}
	if i, ok := t.index[k]; ok {
		return &t.accs[i], false
	}
	t.index[k] = len(t.keys)
	t.keys = append(t.keys, k)
	t.accs = append(t.accs, init())
	return &t.accs[len(t.accs)-1], true
}

func (t *table[K, A]) remove(k K) {
	i, ok := t.index[k]
	if !ok {
		return
	}
	t.keys = slices.Delete(t.keys, i, i+1)
	t.accs = slices.Delete(t.accs, i, i+1)
	delete(t.index, k)
	for j := i; j < len(t.keys); j++ {
		t.index[t.keys[j]] = j
	}
}

func (t *table[K, A]) pairs() []Pair[K, A] {
	if len(t.keys) == 0 {
		return nil
	}
	out := make([]Pair[K, A], len(t.keys))
	for i, k := range t.keys {
		out[i] = Pair[K, A]{Key: k, Value: t.accs[i]}
	}
	return out
}

// drain returns every pair and empties the table.
func (t *table[K, A]) drain() []Pair[K, A] {
	out := t.pairs()
	t.clear()
	return out
}

func (t *table[K, A]) clear() {
	t.index = nil
	t.keys = nil
	t.accs = nil
}

func (t *table[K, A]) len() int {
	return len(t.keys)
}
