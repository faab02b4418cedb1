// SPDX-License-Identifier: Unlicense OR MIT

// Package state implements a sparse model of driver state and the
// algorithm that moves the driver from one State to another with the
// fewest calls.
package state

import (
	"fmt"
	"math/bits"
	"strings"
)

// State is a sparse, slot indexed collection of Sets. A missing Set means
// the driver default in a full State and an untouched slot in a delta.
type State struct {
	l    *Layout
	sets []*Set
	mask Mask
}

// NewState returns an empty State for the slots of l.
func (l *Layout) NewState() *State {
	return &State{
		l:    l,
		sets: make([]*Set, l.count),
		mask: newMask(l.count),
	}
}

func (s *State) Layout() *Layout { return s.l }

// Get returns the Set in slot, or nil.
func (s *State) Get(slot Slot) *Set {
	return s.sets[slot]
}

// Lookup returns the Set in slot, or the default if the slot is empty.
func (s *State) Lookup(slot Slot) *Set {
	if set := s.sets[slot]; set != nil {
		return set
	}
	return s.l.defaults[slot]
}

// Put stores set in its slot.
func (s *State) Put(set *Set) {
	s.sets[set.slot] = set
	s.mask.set(set.slot)
}

// Clear empties slot.
func (s *State) Clear(slot Slot) {
	s.sets[slot] = nil
	s.mask.clear(slot)
}

// Has reports whether slot is occupied.
func (s *State) Has(slot Slot) bool {
	return s.mask.Has(slot)
}

// Len returns the number of occupied slots.
func (s *State) Len() int {
	return s.mask.Count()
}

// Empty reports whether no slot is occupied.
func (s *State) Empty() bool {
	for _, w := range s.mask {
		if w != 0 {
			return false
		}
	}
	return true
}

// Range calls fn for every occupied slot in increasing slot order.
func (s *State) Range(fn func(set *Set)) {
	for w, word := range s.mask {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			fn(s.sets[w*64+b])
		}
	}
}

// Reset empties every occupied slot.
func (s *State) Reset() {
	for w, word := range s.mask {
		if word == 0 {
			continue
		}
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			s.sets[w*64+b] = nil
		}
		s.mask[w] = 0
	}
}

// CloneInto replaces the contents of dst with the contents of s. Only
// occupied slots of either side are touched.
func (s *State) CloneInto(dst *State) {
	if dst == s {
		return
	}
	dst.Reset()
	for w, word := range s.mask {
		if word == 0 {
			continue
		}
		dst.mask[w] = word
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			dst.sets[w*64+b] = s.sets[w*64+b]
		}
	}
}

// Clone returns an independent copy of s sharing its Sets.
func (s *State) Clone() *State {
	c := s.l.NewState()
	s.CloneInto(c)
	return c
}

// MergeDelta overwrites every slot occupied in delta.
func (s *State) MergeDelta(delta *State) {
	for w, word := range delta.mask {
		if word == 0 {
			continue
		}
		s.mask[w] |= word
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			s.sets[w*64+b] = delta.sets[w*64+b]
		}
	}
}

// CopySlots makes the slots in m of s equal to those of src, occupied or
// not.
func (s *State) CopySlots(src *State, m Mask) {
	for w, word := range m {
		if word == 0 {
			continue
		}
		s.mask[w] = s.mask[w]&^word | src.mask[w]&word
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			s.sets[w*64+b] = src.sets[w*64+b]
		}
	}
}

// Equal reports whether s and o hold identical Sets in identical slots.
func (s *State) Equal(o *State) bool {
	for w := range s.mask {
		if s.mask[w] != o.mask[w] {
			return false
		}
		word := s.mask[w]
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			if s.sets[w*64+b] != o.sets[w*64+b] {
				return false
			}
		}
	}
	return true
}

// Converged reports whether every slot occupied in either s or o describes
// the same setting, treating empty slots as defaults.
func (s *State) Converged(o *State) bool {
	for w := range s.mask {
		word := s.mask[w] | o.mask[w]
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			slot := Slot(w*64 + b)
			if !s.Lookup(slot).Equal(o.Lookup(slot)) {
				return false
			}
		}
	}
	return true
}

// Invalidate marks every supported slot as unknown, forcing the next
// application against s to issue every setting.
func (s *State) Invalidate() {
	s.InvalidateSlots(s.l.supported)
}

// InvalidateSlots marks the supported slots in m as unknown.
func (s *State) InvalidateSlots(m Mask) {
	for w, word := range m {
		word &= s.l.supported[w]
		s.mask[w] |= word
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			s.sets[w*64+b] = s.l.unknown[w*64+b]
		}
	}
}

// Scrub marks every occupied slot whose Set matches pred as unknown. It
// is used when a bound object is deleted and the driver silently reverts
// the binding.
func (s *State) Scrub(pred func(set *Set) bool) {
	for w, word := range s.mask {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			word &^= 1 << uint(b)
			set := s.sets[w*64+b]
			if set.kind != kindUnknown && pred(set) {
				s.sets[w*64+b] = s.l.unknown[w*64+b]
			}
		}
	}
}

func (s *State) String() string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	s.Range(func(set *Set) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprint(&b, set)
	})
	b.WriteString("}")
	return b.String()
}
