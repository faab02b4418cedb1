// SPDX-License-Identifier: Unlicense OR MIT

package state

import (
	"fmt"

	"gioui.org/gpustate/internal/gl"
)

// Kind is the state category of a Set.
type Kind uint8

const (
	kindUnknown Kind = iota
	KindEnable
	KindTextureEnable
	KindActiveTexture
	KindMatrixMode
	KindMatrix
	KindTextureMatrix
	KindTexture
	KindBuffer
	KindVertexArray
	KindFramebuffer
	KindProgram
	KindBlendFunc
	KindBlendEquation
	KindBlendColor
	KindDepthFunc
	KindDepthMask
	KindStencilFunc
	KindStencilOp
	KindStencilMask
	KindCullFace
	KindFrontFace
	KindScissor
	KindViewport
	KindColorMask
	KindClearColor
	KindClearDepth
	KindClearStencil
	KindPolygonOffset
	KindLineWidth
	KindAttribEnable
	KindAttribPointer
)

// ContextID identifies a context within its share group. The zero value
// means the Set is not bound to a context.
type ContextID uint32

// Set is one immutable setting for one slot. Sets are shared between
// States, so they must never be modified after construction.
type Set struct {
	kind   Kind
	slot   Slot
	index  int
	target gl.Enum
	on     bool
	obj    uint
	owner  ContextID
	ref    any
	e      [4]gl.Enum
	i      [4]int32
	f      [4]float32
	mat    *[16]float32
	ptr    *AttribPointer
}

// AttribPointer describes the source of a vertex attribute.
type AttribPointer struct {
	Size       int
	Type       gl.Enum
	Normalized bool
	Stride     int
	Buffer     gl.Buffer
	Offset     uintptr
	// Data is client memory read by the driver at draw time.
	Data []byte
}

func (p *AttribPointer) equal(q *AttribPointer) bool {
	return p.Size == q.Size && p.Type == q.Type && p.Normalized == q.Normalized &&
		p.Stride == q.Stride && p.Buffer == q.Buffer && p.Offset == q.Offset &&
		p.Data == nil && q.Data == nil
}

func (s *Set) Kind() Kind { return s.kind }
func (s *Set) Slot() Slot { return s.slot }

// Index returns the texture unit or vertex attribute of per-unit and
// per-attribute Sets.
func (s *Set) Index() int { return s.index }

// Object returns the name of the bound object of binding Sets.
func (s *Set) Object() uint { return s.obj }

// Owner returns the context whose object the Set binds.
func (s *Set) Owner() ContextID { return s.owner }

// Ref returns the resource the bound object was resolved from.
func (s *Set) Ref() any { return s.ref }

func (s *Set) Enabled() bool { return s.on }

func (s *Set) Pointer() AttribPointer { return *s.ptr }

// Rect returns the rectangle of a scissor or viewport Set.
func (s *Set) Rect() [4]int32 { return s.i }

func (s *Set) String() string {
	if s.kind == kindUnknown {
		return fmt.Sprintf("unknown(%d)", s.slot)
	}
	return fmt.Sprintf("%d:%d{%d %v 0x%x %v %v}", s.slot, s.kind, s.index, s.on, s.obj, s.e, s.i)
}

// Equal reports whether s and o describe the same setting.
func (s *Set) Equal(o *Set) bool {
	if s == o {
		return true
	}
	if s.kind != o.kind || s.slot != o.slot || s.kind == kindUnknown {
		return false
	}
	return s.sameValue(o)
}

func (s *Set) sameValue(o *Set) bool {
	if s.on != o.on || s.obj != o.obj || s.index != o.index || s.target != o.target ||
		s.e != o.e || s.i != o.i || s.f != o.f {
		return false
	}
	if s.mat != nil && *s.mat != *o.mat {
		return false
	}
	if s.ptr != nil && !s.ptr.equal(o.ptr) {
		return false
	}
	return true
}

func Buffer(s Slot, b gl.Buffer) *Set {
	var target gl.Enum
	switch s {
	case SlotArrayBuffer:
		target = gl.ARRAY_BUFFER
	case SlotElementArrayBuffer:
		target = gl.ELEMENT_ARRAY_BUFFER
	case SlotUniformBuffer:
		target = gl.UNIFORM_BUFFER
	default:
		panic(fmt.Errorf("state: slot %d is not a buffer slot", s))
	}
	return &Set{kind: KindBuffer, slot: s, target: target, obj: b.V}
}

// VertexArray returns the Set binding a. The zero object denotes the
// context's default vertex array. ref identifies the resource a was
// resolved from, for re-resolution on other contexts.
func VertexArray(a gl.VertexArray, owner ContextID, ref any) *Set {
	return &Set{kind: KindVertexArray, slot: SlotVertexArray, obj: a.V, owner: owner, ref: ref}
}

// Framebuffer returns the Set binding fb for drawing and reading.
func Framebuffer(fb gl.Framebuffer, owner ContextID, ref any) *Set {
	return &Set{kind: KindFramebuffer, slot: SlotFramebuffer, target: gl.FRAMEBUFFER, obj: fb.V, owner: owner, ref: ref}
}

func Program(p gl.Program) *Set {
	return &Set{kind: KindProgram, slot: SlotProgram, obj: p.V}
}

func BlendFunc(srcRGB, dstRGB, srcA, dstA gl.Enum) *Set {
	return &Set{kind: KindBlendFunc, slot: SlotBlendFunc, e: [4]gl.Enum{srcRGB, dstRGB, srcA, dstA}}
}

func BlendEquation(modeRGB, modeA gl.Enum) *Set {
	return &Set{kind: KindBlendEquation, slot: SlotBlendEquation, e: [4]gl.Enum{modeRGB, modeA}}
}

func BlendColor(r, g, b, a float32) *Set {
	return &Set{kind: KindBlendColor, slot: SlotBlendColor, f: [4]float32{r, g, b, a}}
}

func DepthFunc(fn gl.Enum) *Set {
	return &Set{kind: KindDepthFunc, slot: SlotDepthFunc, e: [4]gl.Enum{fn}}
}

func DepthMask(mask bool) *Set {
	return &Set{kind: KindDepthMask, slot: SlotDepthMask, on: mask}
}

func StencilFunc(fn gl.Enum, ref int32, mask uint32) *Set {
	return &Set{kind: KindStencilFunc, slot: SlotStencilFunc, e: [4]gl.Enum{fn}, i: [4]int32{ref, int32(mask)}}
}

func StencilOp(sfail, dpfail, dppass gl.Enum) *Set {
	return &Set{kind: KindStencilOp, slot: SlotStencilOp, e: [4]gl.Enum{sfail, dpfail, dppass}}
}

func StencilMask(mask uint32) *Set {
	return &Set{kind: KindStencilMask, slot: SlotStencilMask, i: [4]int32{int32(mask)}}
}

func CullFace(mode gl.Enum) *Set {
	return &Set{kind: KindCullFace, slot: SlotCullFaceMode, e: [4]gl.Enum{mode}}
}

func FrontFace(mode gl.Enum) *Set {
	return &Set{kind: KindFrontFace, slot: SlotFrontFace, e: [4]gl.Enum{mode}}
}

func Scissor(x, y, width, height int32) *Set {
	return &Set{kind: KindScissor, slot: SlotScissor, i: [4]int32{x, y, width, height}}
}

func Viewport(x, y, width, height int32) *Set {
	return &Set{kind: KindViewport, slot: SlotViewport, i: [4]int32{x, y, width, height}}
}

func ColorMask(r, g, b, a bool) *Set {
	return &Set{kind: KindColorMask, slot: SlotColorMask, i: [4]int32{int32(b2i(r)), int32(b2i(g)), int32(b2i(b)), int32(b2i(a))}}
}

func ClearColor(r, g, b, a float32) *Set {
	return &Set{kind: KindClearColor, slot: SlotClearColor, f: [4]float32{r, g, b, a}}
}

func ClearDepth(d float32) *Set {
	return &Set{kind: KindClearDepth, slot: SlotClearDepth, f: [4]float32{d}}
}

func ClearStencil(s int32) *Set {
	return &Set{kind: KindClearStencil, slot: SlotClearStencil, i: [4]int32{s}}
}

func PolygonOffset(factor, units float32) *Set {
	return &Set{kind: KindPolygonOffset, slot: SlotPolygonOffset, f: [4]float32{factor, units}}
}

func LineWidth(width float32) *Set {
	return &Set{kind: KindLineWidth, slot: SlotLineWidth, f: [4]float32{width}}
}

// WithObject returns a copy of s bound to obj owned by owner. It is used to
// re-resolve context local bindings.
func (s *Set) WithObject(obj uint, owner ContextID) *Set {
	c := *s
	c.obj = obj
	c.owner = owner
	return &c
}

// emit issues the driver calls that move the driver from the setting from
// to s. from is never nil; from of kindUnknown forces the calls.
func (s *Set) emit(a *Applier, last *State, from *Set) {
	f := a.Funcs
	if s.kind == KindAttribPointer && s.ptr.Data != nil {
		// Client memory may change behind the same Set.
		p := s.ptr
		if a.Shadows != nil {
			if va := a.vertexArray(last.Lookup(SlotVertexArray)); va.Valid() {
				panic(fmt.Errorf("state: client memory vertex pointer with vertex array object %d bound", va.V))
			}
		}
		a.bindArrayBuffer(last, 0)
		f.VertexAttribClientPointer(gl.Attrib(s.index), p.Size, p.Type, p.Normalized, p.Stride, p.Data)
		return
	}
	if from.kind != kindUnknown && s.sameValue(from) {
		return
	}
	switch s.kind {
	case KindEnable:
		if s.on {
			f.Enable(s.target)
		} else {
			f.Disable(s.target)
		}
	case KindTextureEnable:
		a.selectUnit(last, s.index)
		if s.on {
			f.Enable(s.target)
		} else {
			f.Disable(s.target)
		}
	case KindActiveTexture:
		f.ActiveTexture(s.e[0])
	case KindMatrixMode:
		f.MatrixMode(s.e[0])
	case KindMatrix:
		a.selectMatrixMode(last, s.e[0])
		f.LoadMatrixf(s.mat)
	case KindTextureMatrix:
		a.selectUnit(last, s.index)
		a.selectMatrixMode(last, gl.TEXTURE)
		f.LoadMatrixf(s.mat)
	case KindTexture:
		a.selectUnit(last, s.index)
		f.BindTexture(s.target, gl.Texture{V: s.obj})
	case KindBuffer:
		f.BindBuffer(s.target, gl.Buffer{V: s.obj})
	case KindVertexArray:
		f.BindVertexArray(gl.VertexArray{V: s.obj})
	case KindFramebuffer:
		f.BindFramebuffer(s.target, gl.Framebuffer{V: s.obj})
	case KindProgram:
		f.UseProgram(gl.Program{V: s.obj})
	case KindBlendFunc:
		f.BlendFuncSeparate(s.e[0], s.e[1], s.e[2], s.e[3])
	case KindBlendEquation:
		f.BlendEquationSeparate(s.e[0], s.e[1])
	case KindBlendColor:
		f.BlendColor(s.f[0], s.f[1], s.f[2], s.f[3])
	case KindDepthFunc:
		f.DepthFunc(s.e[0])
	case KindDepthMask:
		f.DepthMask(s.on)
	case KindStencilFunc:
		f.StencilFunc(s.e[0], s.i[0], uint32(s.i[1]))
	case KindStencilOp:
		f.StencilOp(s.e[0], s.e[1], s.e[2])
	case KindStencilMask:
		f.StencilMask(uint32(s.i[0]))
	case KindCullFace:
		f.CullFace(s.e[0])
	case KindFrontFace:
		f.FrontFace(s.e[0])
	case KindScissor:
		f.Scissor(s.i[0], s.i[1], s.i[2], s.i[3])
	case KindViewport:
		f.Viewport(s.i[0], s.i[1], s.i[2], s.i[3])
	case KindColorMask:
		f.ColorMask(s.i[0] != 0, s.i[1] != 0, s.i[2] != 0, s.i[3] != 0)
	case KindClearColor:
		f.ClearColor(s.f[0], s.f[1], s.f[2], s.f[3])
	case KindClearDepth:
		f.ClearDepthf(s.f[0])
	case KindClearStencil:
		f.ClearStencil(s.i[0])
	case KindPolygonOffset:
		f.PolygonOffset(s.f[0], s.f[1])
	case KindLineWidth:
		f.LineWidth(s.f[0])
	case KindAttribEnable:
		if s.on {
			f.EnableVertexAttribArray(gl.Attrib(s.index))
		} else {
			f.DisableVertexAttribArray(gl.Attrib(s.index))
		}
	case KindAttribPointer:
		p := s.ptr
		a.bindArrayBuffer(last, p.Buffer.V)
		f.VertexAttribPointer(gl.Attrib(s.index), p.Size, p.Type, p.Normalized, p.Stride, p.Offset)
	default:
		panic(fmt.Errorf("state: cannot apply %v", s))
	}
}
