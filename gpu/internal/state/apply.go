// SPDX-License-Identifier: Unlicense OR MIT

package state

import (
	"fmt"
	"math/bits"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/internal/gl"
)

// Shadows maps vertex array objects to the State of the slots they hold.
type Shadows interface {
	// Shadow returns the State last applied to a. It never returns nil.
	Shadow(a gl.VertexArray) *State
}

// Applier issues the driver calls of State applications.
type Applier struct {
	Layout *Layout
	Funcs  driver.Functions
	// Shadows is nil when the driver lacks vertex array objects, in
	// which case vertex array slots are applied like any other.
	Shadows Shadows
	// DefaultVertexArray replaces the zero vertex array.
	DefaultVertexArray gl.VertexArray
}

// Apply issues the calls that move the driver from last to s and updates
// last to match. Empty slots of s are reset to their defaults.
//
// Ordinary slots are applied first, then the dependent slots. Applying an
// ordinary slot may change dependent slots of last; applying a dependent
// slot must not change another one.
func (s *State) Apply(last *State, a *Applier) {
	if s.l != last.l || s.l != a.Layout {
		panic("state: mismatched layouts")
	}
	va, shadowed := a.bracket(s, last)
	l := s.l
	visited := make(Mask, len(l.dependent))
	copy(visited, l.bracket)
	// Pass 1: everything but the dependent slots.
	for w := range visited {
		visited[w] |= l.dependent[w]
	}
	a.pass(s, last, visited, false)
	// Pass 2: the dependent slots.
	for w := range visited {
		visited[w] = ^l.dependent[w]
	}
	a.pass(s, last, visited, true)
	if shadowed {
		a.Shadows.Shadow(va).CopySlots(last, l.vertexArray)
	} else {
		// Without vertex array objects the binding is only tracked.
		last.CopySlots(s, l.bracket)
	}
}

func (a *Applier) pass(s, last *State, visited Mask, dependent bool) {
	for {
		slot, ok := next(s.mask, last.mask, visited)
		if !ok {
			return
		}
		visited.set(slot)
		if !dependent {
			a.apply(s, last, slot)
			continue
		}
		var before [8]*Set
		deps := a.Layout.dependentSlots
		for i, d := range deps {
			before[i] = last.sets[d]
		}
		a.apply(s, last, slot)
		for i, d := range deps {
			if d != slot && last.sets[d] != before[i] {
				panic(fmt.Errorf("state: applying dependent slot %d changed dependent slot %d", slot, d))
			}
		}
	}
}

// next returns the lowest slot occupied in s or last and not in visited.
// The set is derived anew for every call because applications change last.
func next(s, last, visited Mask) (Slot, bool) {
	for w := range visited {
		word := (s[w] | last[w]) &^ visited[w]
		if word != 0 {
			return Slot(w*64 + bits.TrailingZeros64(word)), true
		}
	}
	return 0, false
}

func (a *Applier) apply(s, last *State, slot Slot) {
	to, from := s.sets[slot], last.sets[slot]
	if to == from && !a.Layout.mutable.Has(slot) {
		return
	}
	switch {
	case to != nil && from != nil:
		to.emit(a, last, from)
		last.Put(to)
	case to == nil:
		a.Layout.defaults[slot].emit(a, last, from)
		last.Clear(slot)
	default:
		to.emit(a, last, a.Layout.defaults[slot])
		last.Put(to)
	}
}

// ApplyOne applies a single Set against last, without resetting any other
// slot. It is used to touch state outside of draws, such as binding an
// object for upload.
func (a *Applier) ApplyOne(last *State, set *Set) {
	if set.slot == SlotVertexArray && a.Shadows != nil {
		panic("state: vertex arrays are bound by Apply")
	}
	if !a.Layout.mutable.Has(set.slot) && last.sets[set.slot] == set {
		return
	}
	set.emit(a, last, last.Lookup(set.slot))
	last.Put(set)
}

// bracket binds the vertex array of s, saving the vertex array slots of
// last into the shadow of the previously bound array and loading the
// shadow of the new one. It returns the bound array.
func (a *Applier) bracket(s, last *State) (gl.VertexArray, bool) {
	if a.Shadows == nil {
		return gl.VertexArray{}, false
	}
	l := a.Layout
	want := s.Lookup(SlotVertexArray)
	cur := last.Lookup(SlotVertexArray)
	wantVA := a.vertexArray(want)
	if cur.kind != kindUnknown {
		curVA := a.vertexArray(cur)
		if curVA == wantVA {
			if cur != want {
				last.Put(want)
			}
			return wantVA, true
		}
		a.Shadows.Shadow(curVA).CopySlots(last, l.vertexArray)
	}
	a.Funcs.BindVertexArray(wantVA)
	last.Put(want)
	last.CopySlots(a.Shadows.Shadow(wantVA), l.vertexArray)
	return wantVA, true
}

func (a *Applier) vertexArray(set *Set) gl.VertexArray {
	if set.obj == 0 {
		return a.DefaultVertexArray
	}
	return gl.VertexArray{V: set.obj}
}

// selectUnit makes unit the active texture unit of the driver.
func (a *Applier) selectUnit(last *State, unit int) {
	cur := last.Lookup(SlotActiveTexture)
	if cur.kind != kindUnknown && cur.index == unit {
		return
	}
	set := a.Layout.activeTexture[unit]
	a.Funcs.ActiveTexture(set.e[0])
	last.Put(set)
}

func (a *Applier) selectMatrixMode(last *State, mode gl.Enum) {
	cur := last.Lookup(SlotMatrixMode)
	if cur.kind != kindUnknown && cur.e[0] == mode {
		return
	}
	set := a.Layout.matrixMode(mode)
	a.Funcs.MatrixMode(mode)
	last.Put(set)
}

func (a *Applier) bindArrayBuffer(last *State, b uint) {
	cur := last.Lookup(SlotArrayBuffer)
	if cur.kind != kindUnknown && cur.obj == b {
		return
	}
	a.Funcs.BindBuffer(gl.ARRAY_BUFFER, gl.Buffer{V: b})
	last.Put(&Set{kind: KindBuffer, slot: SlotArrayBuffer, target: gl.ARRAY_BUFFER, obj: b})
}
