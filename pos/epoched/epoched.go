// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package epoched provides containers for values associated with discrete
// epochs. Both containers keep a short sliding window of (epoch, value)
// entries, parameterized by an offset taken from the protocol parameters:
// the pipeline length for values whose updates take effect in the future,
// or the unbonding length for deltas that must stay individually
// addressable while a slash can still reach them.
package epoched

import (
	"iter"
	"slices"

	"github.com/lumenchain/lumen/pos/epoch"
)

// Delta is the capability required of accumulating values: a commutative,
// associative merge.
type Delta[V any] interface {
	Add(rhs V) V
}

type entry[V any] struct {
	at    epoch.Epoch
	value V
}

// Epoched holds a value whose new assignments become effective only a fixed
// number of epochs in the future. Looking up the effective value at any
// epoch yields the most recently scheduled update whose effective epoch is
// at or before it.
type Epoched[V any] struct {
	offset  uint64
	entries []entry[V] // ascending by effective epoch
}

// New creates an empty container with the given offset.
func New[V any](offset uint64) *Epoched[V] {
	return &Epoched[V]{offset: offset}
}

// NewInit creates a container holding value effective from the current
// epoch, with no scheduling delay. Used at genesis.
func NewInit[V any](value V, current epoch.Epoch, offset uint64) *Epoched[V] {
	e := New[V](offset)
	e.SetAt(value, current)
	return e
}

// Offset returns the scheduling offset in epochs.
func (e *Epoched[V]) Offset() uint64 {
	return e.offset
}

// Set schedules value to become effective at current + offset.
func (e *Epoched[V]) Set(value V, current epoch.Epoch) {
	e.SetAt(value, current.Add(e.offset))
}

// SetAt records value effective at exactly the given epoch. Entries
// scheduled at or after it are superseded and dropped; nothing can be
// legitimately scheduled further ahead than the newest write.
func (e *Epoched[V]) SetAt(value V, effective epoch.Epoch) {
	for len(e.entries) > 0 && e.entries[len(e.entries)-1].at >= effective {
		e.entries = e.entries[:len(e.entries)-1]
	}
	e.entries = append(e.entries, entry[V]{at: effective, value: value})
}

// Get returns the value effective at the given epoch. ok is false when no
// update has become effective yet, an expected condition for fresh keys.
func (e *Epoched[V]) Get(at epoch.Epoch) (V, bool) {
	for i := len(e.entries) - 1; i >= 0; i-- {
		if e.entries[i].at <= at {
			return e.entries[i].value, true
		}
	}
	var zero V
	return zero, false
}

// Advance prunes entries that can no longer be observed. Epochs down to
// current - offset stay queryable, so the latest entry effective at or
// before that boundary is retained together with everything scheduled
// after it.
func (e *Epoched[V]) Advance(current epoch.Epoch) {
	cutoff := current.SubOrDefault(epoch.Epoch(e.offset))
	keepFrom := 0
	for i, ent := range e.entries {
		if ent.at <= cutoff {
			keepFrom = i
		}
	}
	e.entries = slices.Delete(e.entries, 0, keepFrom)
}

// Iter yields the retained (effective epoch, value) entries in ascending
// epoch order.
func (e *Epoched[V]) Iter() iter.Seq2[epoch.Epoch, V] {
	return func(yield func(epoch.Epoch, V) bool) {
		for _, ent := range e.entries {
			if !yield(ent.at, ent.value) {
				return
			}
		}
	}
}

// EpochedDelta holds a value that is the sum of per-epoch deltas. Deltas
// inside the window remain separately keyed by epoch so that a late slash
// can be attributed to exactly the epochs it covers; older deltas collapse
// into a carried-forward total on Advance.
type EpochedDelta[V Delta[V]] struct {
	offset  uint64
	entries []entry[V] // ascending by epoch
}

// NewDelta creates an empty container with the given offset.
func NewDelta[V Delta[V]](offset uint64) *EpochedDelta[V] {
	return &EpochedDelta[V]{offset: offset}
}

// NewDeltaInit creates a container with one delta recorded at the current
// epoch. Used at genesis.
func NewDeltaInit[V Delta[V]](delta V, current epoch.Epoch, offset uint64) *EpochedDelta[V] {
	d := NewDelta[V](offset)
	d.AddAt(delta, current)
	return d
}

// Offset returns the retention offset in epochs.
func (d *EpochedDelta[V]) Offset() uint64 {
	return d.offset
}

// Add accumulates delta at current + offset.
func (d *EpochedDelta[V]) Add(delta V, current epoch.Epoch) {
	d.AddAt(delta, current.Add(d.offset))
}

// AddAt accumulates delta at exactly the given epoch. Contributions from
// independent transactions landing on the same epoch merge via Add, never
// by replacement.
func (d *EpochedDelta[V]) AddAt(delta V, at epoch.Epoch) {
	i, found := slices.BinarySearchFunc(d.entries, at, func(e entry[V], target epoch.Epoch) int {
		switch {
		case e.at < target:
			return -1
		case e.at > target:
			return 1
		default:
			return 0
		}
	})
	if found {
		d.entries[i].value = d.entries[i].value.Add(delta)
		return
	}
	d.entries = slices.Insert(d.entries, i, entry[V]{at: at, value: delta})
}

// SumUntil folds all deltas recorded at or before the given epoch. ok is
// false when no delta is in range.
func (d *EpochedDelta[V]) SumUntil(at epoch.Epoch) (V, bool) {
	var sum V
	ok := false
	for _, ent := range d.entries {
		if ent.at > at {
			break
		}
		if !ok {
			sum = ent.value
			ok = true
			continue
		}
		sum = sum.Add(ent.value)
	}
	return sum, ok
}

// Advance collapses deltas older than current - offset into a single
// carried entry keyed at the boundary. SumUntil is unchanged for every
// epoch still queryable; deltas inside the window stay individually keyed.
func (d *EpochedDelta[V]) Advance(current epoch.Epoch) {
	cutoff := current.SubOrDefault(epoch.Epoch(d.offset))

	collapse := 0
	for collapse < len(d.entries) && d.entries[collapse].at < cutoff {
		collapse++
	}
	if collapse == 0 {
		return
	}

	carried := d.entries[0].value
	for _, ent := range d.entries[1:collapse] {
		carried = carried.Add(ent.value)
	}

	if collapse < len(d.entries) && d.entries[collapse].at == cutoff {
		d.entries[collapse].value = carried.Add(d.entries[collapse].value)
		d.entries = slices.Delete(d.entries, 0, collapse)
		return
	}
	d.entries = slices.Delete(d.entries, 0, collapse-1)
	d.entries[0] = entry[V]{at: cutoff, value: carried}
}

// Iter yields the retained (epoch, delta) entries in ascending epoch order.
func (d *EpochedDelta[V]) Iter() iter.Seq2[epoch.Epoch, V] {
	return func(yield func(epoch.Epoch, V) bool) {
		for _, ent := range d.entries {
			if !yield(ent.at, ent.value) {
				return
			}
		}
	}
}
