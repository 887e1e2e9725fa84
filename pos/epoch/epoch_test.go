// Copyright (c) 2026 The Lumen developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package epoch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckedSub(t *testing.T) {
	diff, ok := Epoch(5).CheckedSub(Epoch(3))
	assert.True(t, ok)
	assert.Equal(t, Epoch(2), diff)

	_, ok = Epoch(3).CheckedSub(Epoch(5))
	assert.False(t, ok)

	diff, ok = Epoch(3).CheckedSub(Epoch(3))
	assert.True(t, ok)
	assert.Equal(t, Epoch(0), diff)
}

func TestSubOrDefault(t *testing.T) {
	assert.Equal(t, Epoch(0), Epoch(3).SubOrDefault(Epoch(5)))
	assert.Equal(t, Epoch(2), Epoch(7).SubOrDefault(Epoch(5)))
}

func TestAdd(t *testing.T) {
	assert.Equal(t, Epoch(12), Epoch(7).Add(5))
	assert.Equal(t, Epoch(7), Epoch(7).Add(0))
}

func TestAdd_OverflowPanics(t *testing.T) {
	assert.Panics(t, func() {
		Epoch(math.MaxUint64).Add(1)
	})
}

func TestIterRange(t *testing.T) {
	var got []Epoch
	for e := range Epoch(2).IterRange(3) {
		got = append(got, e)
	}
	assert.Equal(t, []Epoch{2, 3, 4}, got)
}

func TestIterRange_Empty(t *testing.T) {
	for range Epoch(9).IterRange(0) {
		t.Fatal("unexpected element")
	}
}

func TestIterRange_Restartable(t *testing.T) {
	seq := Epoch(0).IterRange(2)

	for range 2 {
		var got []Epoch
		for e := range seq {
			got = append(got, e)
		}
		assert.Equal(t, []Epoch{0, 1}, got)
	}
}

func TestIterRange_EarlyBreak(t *testing.T) {
	var got []Epoch
	for e := range Epoch(4).IterRange(10) {
		got = append(got, e)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []Epoch{4, 5}, got)
}

func TestString(t *testing.T) {
	assert.Equal(t, "42", Epoch(42).String())
}
