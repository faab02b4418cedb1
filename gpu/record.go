// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"fmt"

	"gioui.org/gpustate/gpu/internal/state"
)

// CompiledDrawState is a recorded sequence of draws with the state
// changes that surround them. It is immutable and may be applied any
// number of times, in any context of the share group it was recorded in.
type CompiledDrawState struct {
	layout *state.Layout
	// delta holds the state changes left by the recording.
	delta *state.State
	ops   []drawOp
}

type recording struct {
	// frame is the index of the recording's frame.
	frame int
	ops   []drawOp
}

// Len returns the number of recorded operations.
func (c *CompiledDrawState) Len() int {
	return len(c.ops)
}

// BeginRecording starts recording. Until the matching EndRecording,
// state changes are tracked relative to the state at this call and
// draws are queued instead of issued. Recordings nest.
func (r *Renderer) BeginRecording() {
	p := r.ctx.pool
	r.frames = append(r.frames, frame{kind: frameRecording, st: p.Get(), delta: true})
	r.recs = append(r.recs, &recording{frame: len(r.frames) - 1})
}

// EndRecording ends the innermost recording and returns its draws and
// state changes.
func (r *Renderer) EndRecording() *CompiledDrawState {
	top := r.top()
	if top.kind != frameRecording {
		panic(fmt.Errorf("gpu: EndRecording without matching BeginRecording (innermost open scope: %v)", top.kind))
	}
	rec := r.recs[len(r.recs)-1]
	r.recs[len(r.recs)-1] = nil
	r.recs = r.recs[:len(r.recs)-1]
	cds := &CompiledDrawState{
		layout: r.ctx.layout,
		delta:  top.st.Clone(),
		ops:    rec.ops,
	}
	r.pop(frameRecording)
	return cds
}

// Record runs fn inside a recording and returns the result. The
// recording is closed even if fn panics.
func (r *Renderer) Record(fn func()) (cds *CompiledDrawState) {
	r.BeginRecording()
	depth := len(r.frames) - 1
	defer r.closeScope(depth, func() { cds = r.EndRecording() })
	fn()
	return nil
}

// snapshot returns the State in effect relative to the start of rec, and
// whether it is complete because a reset block was opened since.
func (r *Renderer) snapshot(rec *recording) (*state.State, bool) {
	start, full := rec.frame, false
	for i := len(r.frames) - 1; i > rec.frame; i-- {
		if !r.frames[i].delta {
			start, full = i, true
			break
		}
	}
	st := r.ctx.layout.NewState()
	for _, f := range r.frames[start:] {
		st.MergeDelta(f.st)
	}
	if n := len(rec.ops); n > 0 && rec.ops[n-1].full == full && rec.ops[n-1].st.Equal(st) {
		return rec.ops[n-1].st, full
	}
	return st, full
}

// ApplyCompiled replays the draws of cds against the current State and
// then merges its state changes into the current State. Inside a
// recording, the draws are queued in the enclosing recording instead.
//
// Bindings of objects local to another context are resolved to this
// context's objects, creating them if needed.
func (r *Renderer) ApplyCompiled(cds *CompiledDrawState) error {
	c := r.ctx
	if !c.layout.Compatible(cds.layout) {
		panic("gpu: compiled draw state from an incompatible context")
	}
	top := r.top()
	if n := len(r.recs); n > 0 {
		rec := r.recs[n-1]
		base, full := r.snapshot(rec)
		for _, op := range cds.ops {
			if !op.full {
				st := base.Clone()
				st.MergeDelta(op.st)
				op.st, op.full = st, full
			}
			rec.ops = append(rec.ops, op)
		}
		top.st.MergeDelta(cds.delta)
		return nil
	}
	for i := range cds.ops {
		op := &cds.ops[i]
		st := c.pool.Get()
		if op.full {
			op.st.CloneInto(st)
		} else {
			top.st.CloneInto(st)
			st.MergeDelta(op.st)
		}
		if err := r.revalidate(st); err != nil {
			c.pool.Put(st)
			return err
		}
		r.flush(st)
		c.pool.Put(st)
		if err := r.exec(op); err != nil {
			c.log.Warn("replayed operation failed", "err", err)
		}
	}
	top.st.MergeDelta(cds.delta)
	return r.revalidate(top.st)
}

// revalidate rebinds the context local objects of st owned by another
// context to their counterparts in the current context.
func (r *Renderer) revalidate(st *state.State) error {
	c := r.ctx
	for _, slot := range [...]state.Slot{state.SlotFramebuffer, state.SlotVertexArray} {
		set := st.Get(slot)
		if set == nil || set.Owner() == 0 || set.Owner() == c.id {
			continue
		}
		switch ref := set.Ref().(type) {
		case *RenderTarget:
			fb, err := c.framebufferFor(ref)
			if err != nil {
				return err
			}
			st.Put(set.WithObject(fb.obj.V, c.id))
		case *VertexArray:
			a, err := c.vertexArrayFor(ref)
			if err != nil {
				return err
			}
			st.Put(set.WithObject(a.V, c.id))
		default:
			panic(fmt.Errorf("gpu: cannot resolve %v in context %d", set, c.id))
		}
	}
	return nil
}
