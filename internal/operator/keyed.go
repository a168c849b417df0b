package operator

import "fmt"

// keyedState is the state slot content of a keyed operator.
type keyedState[K comparable, A any] struct {
	table table[K, A]

	// tick is the tick the table was last touched in; Loop tables are
	// cleared when it changes.
	tick    int64
	touched bool
}

// keyedCore implements the persistence table shared by every keyed
// operator.
type keyedCore[K comparable, A any] struct {
	persistence Persistence
	slot        StateSlot[keyedState[K, A]]
}

// run performs one activation: apply folds the input into the table, then
// the output is selected by the persistence policy.
func (c *keyedCore[K, A]) run(ctx Context, apply func(t *table[K, A])) []Pair[K, A] {
	st, release := c.slot.Borrow()
	defer release()

	if c.persistence == Loop && st.touched && st.tick != ctx.CurrentTick() {
		st.table.clear()
	}
	st.tick = ctx.CurrentTick()
	st.touched = true

	apply(&st.table)

	var out []Pair[K, A]
	switch c.persistence {
	case None, Tick:
		out = st.table.drain()
	case Loop, Mutable:
		out = st.table.pairs()
	case Static:
		if ctx.IsFirstRunThisTick() {
			out = st.table.pairs()
		}
	}

	if c.persistence.Reschedules() {
		ctx.ScheduleSubgraph(ctx.CurrentSubgraph(), false)
	}
	return out
}

// plain aborts if a Mutable operator is handed untagged pairs.
func (c *keyedCore[K, A]) plain(op string) {
	if c.persistence == Mutable {
		panic(fmt.Sprintf("operator: %s::<%s> consumes keyed upsert/delete entries", op, Mutable))
	}
}

// tagged aborts if Upsert and Delete entries reach a non-Mutable operator.
func (c *keyedCore[K, A]) tagged(op string) {
	if c.persistence != Mutable {
		panic(fmt.Sprintf("operator: %s::<%s> does not accept keyed upsert/delete entries", op, c.persistence))
	}
}

func (c *keyedCore[K, A]) len() int {
	st, release := c.slot.Borrow()
	defer release()
	return st.table.len()
}

// FoldKeyed folds the values of a keyed stream into one accumulator per key.
type FoldKeyed[K comparable, V, A any] struct {
	core keyedCore[K, A]
	init func() A
	acc  func(acc *A, v V)
}

// NewFoldKeyed returns a keyed fold with the given policy. init creates the
// accumulator of an unseen key and acc folds one value into it.
func NewFoldKeyed[K comparable, V, A any](p Persistence, init func() A, acc func(*A, V)) *FoldKeyed[K, V, A] {
	return &FoldKeyed[K, V, A]{core: keyedCore[K, A]{persistence: p}, init: init, acc: acc}
}

// Persistence returns the operator's policy.
func (f *FoldKeyed[K, V, A]) Persistence() Persistence { return f.core.persistence }

// InputDelay returns the barrier on the input edge: no partial aggregate
// is ever observable.
func (f *FoldKeyed[K, V, A]) InputDelay() DelayType { return DelayStratum }

// Len returns the number of keys currently retained.
func (f *FoldKeyed[K, V, A]) Len() int { return f.core.len() }

// Activate folds one activation's input and returns the selected
// (key, accumulator) pairs in key insertion order. Under Mutable use
// ActivateMutable instead.
func (f *FoldKeyed[K, V, A]) Activate(ctx Context, in []Pair[K, V]) []Pair[K, A] {
	f.core.plain("fold_keyed")
	return f.core.run(ctx, func(t *table[K, A]) {
		for _, kv := range in {
			a, _ := t.entry(kv.Key, f.init)
			f.acc(a, kv.Value)
		}
	})
}

// ActivateMutable applies Upsert and Delete entries in order and returns
// every retained pair.
func (f *FoldKeyed[K, V, A]) ActivateMutable(ctx Context, in []Keyed[K, V]) []Pair[K, A] {
	f.core.tagged("fold_keyed")
	return f.core.run(ctx, func(t *table[K, A]) {
		for _, e := range in {
			switch e.Op {
			case OpUpsert:
				a, _ := t.entry(e.Key, f.init)
				f.acc(a, e.Value)
			case OpDelete:
				t.remove(e.Key)
			}
		}
	})
}

// ReduceKeyed combines the values of each key; the first value of a key
// seeds its accumulator.
type ReduceKeyed[K comparable, V any] struct {
	core keyedCore[K, V]
	f    func(acc *V, v V)
}

// NewReduceKeyed returns a keyed reduce with the given policy.
func NewReduceKeyed[K comparable, V any](p Persistence, f func(*V, V)) *ReduceKeyed[K, V] {
	return &ReduceKeyed[K, V]{core: keyedCore[K, V]{persistence: p}, f: f}
}

// Persistence returns the operator's policy.
func (r *ReduceKeyed[K, V]) Persistence() Persistence { return r.core.persistence }

// InputDelay returns the barrier on the input edge.
func (r *ReduceKeyed[K, V]) InputDelay() DelayType { return DelayStratum }

// Len returns the number of keys currently retained.
func (r *ReduceKeyed[K, V]) Len() int { return r.core.len() }

// Activate reduces one activation's input and returns the selected pairs.
// Under Mutable use ActivateMutable instead.
func (r *ReduceKeyed[K, V]) Activate(ctx Context, in []Pair[K, V]) []Pair[K, V] {
	r.core.plain("reduce_keyed")
	return r.core.run(ctx, func(t *table[K, V]) {
		for _, kv := range in {
			a, fresh := t.entry(kv.Key, func() V { return kv.Value })
			if !fresh {
				r.f(a, kv.Value)
			}
		}
	})
}

// ActivateMutable applies Upsert and Delete entries in order.
func (r *ReduceKeyed[K, V]) ActivateMutable(ctx Context, in []Keyed[K, V]) []Pair[K, V] {
	r.core.tagged("reduce_keyed")
	return r.core.run(ctx, func(t *table[K, V]) {
		for _, e := range in {
			switch e.Op {
			case OpUpsert:
				a, fresh := t.entry(e.Key, func() V { return e.Value })
				if !fresh {
					r.f(a, e.Value)
				}
			case OpDelete:
				t.remove(e.Key)
			}
		}
	})
}

// Fold folds a whole stream into one accumulator. It follows the same
// policy table as FoldKeyed with a single implicit key.
type Fold[V, A any] struct {
	core keyedCore[struct{}, A]
	init func() A
	acc  func(acc *A, v V)
}

// NewFold returns a fold with the given policy. Mutable is treated as
// Static since there are no keys to delete.
func NewFold[V, A any](p Persistence, init func() A, acc func(*A, V)) *Fold[V, A] {
	if p == Mutable {
		p = Static
	}
	return &Fold[V, A]{core: keyedCore[struct{}, A]{persistence: p}, init: init, acc: acc}
}

// InputDelay returns the barrier on the input edge.
func (f *Fold[V, A]) InputDelay() DelayType { return DelayStratum }

// Activate folds one activation's input. It reports false when the policy
// suppresses output for this activation.
func (f *Fold[V, A]) Activate(ctx Context, in []V) (A, bool) {
	out := f.core.run(ctx, func(t *table[struct{}, A]) {
		a, _ := t.entry(struct{}{}, f.init)
		for _, v := range in {
			f.acc(a, v)
		}
	})
	if len(out) == 0 {
		var zero A
		return zero, false
	}
	return out[0].Value, true
}
