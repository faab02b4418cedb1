// SPDX-License-Identifier: Unlicense OR MIT

package state

import (
	"fmt"
	"math/bits"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/internal/gl"
)

// Slot identifies one orthogonal piece of driver state.
type Slot int

// Fixed slots. The routing slots come first so they occupy the low bits of
// the first mask word.
const (
	SlotActiveTexture Slot = iota
	SlotMatrixMode
	SlotArrayBuffer
	SlotVertexArray
	SlotFramebuffer
	SlotProgram
	SlotElementArrayBuffer
	SlotUniformBuffer
	SlotBlend
	SlotBlendFunc
	SlotBlendEquation
	SlotBlendColor
	SlotDepthTest
	SlotDepthFunc
	SlotDepthMask
	SlotStencilTest
	SlotStencilFunc
	SlotStencilOp
	SlotStencilMask
	SlotCullFace
	SlotCullFaceMode
	SlotFrontFace
	SlotScissorTest
	SlotScissor
	SlotViewport
	SlotColorMask
	SlotClearColor
	SlotClearDepth
	SlotClearStencil
	SlotPolygonOffsetFill
	SlotPolygonOffset
	SlotLineWidth
	SlotSRGB
	SlotProjectionMatrix
	SlotModelViewMatrix

	fixedSlots
)

const (
	unitTexture = iota
	unitTextureEnable
	unitTextureMatrix
	fieldsPerUnit
)

const (
	attribEnable = iota
	attribPointer
	fieldsPerAttrib
)

// enableCaps maps enable slots to their capability.
var enableCaps = [fixedSlots]gl.Enum{
	SlotBlend:             gl.BLEND,
	SlotDepthTest:         gl.DEPTH_TEST,
	SlotStencilTest:       gl.STENCIL_TEST,
	SlotCullFace:          gl.CULL_FACE,
	SlotScissorTest:       gl.SCISSOR_TEST,
	SlotPolygonOffsetFill: gl.POLYGON_OFFSET_FILL,
	SlotSRGB:              gl.FRAMEBUFFER_SRGB,
}

// Mask is a bit set of slots, 64 slots per word.
type Mask []uint64

func newMask(n int) Mask {
	return make(Mask, (n+63)/64)
}

func (m Mask) Has(s Slot) bool {
	return m[s/64]&(1<<(uint(s)%64)) != 0
}

func (m Mask) set(s Slot) {
	m[s/64] |= 1 << (uint(s) % 64)
}

func (m Mask) clear(s Slot) {
	m[s/64] &^= 1 << (uint(s) % 64)
}

// Count returns the number of slots in m.
func (m Mask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}

// Defaults holds the default values that depend on the drawable rather
// than on the driver.
type Defaults struct {
	Viewport    [4]int32
	Framebuffer gl.Framebuffer
}

// Layout is the slot registry of a context. It is immutable after
// NewLayout returns.
type Layout struct {
	units      int
	attribs    int
	unitBase   Slot
	attribBase Slot
	count      int
	features   driver.Features

	dependent    Mask
	mutable      Mask
	vertexArray  Mask
	contextLocal Mask
	// bracket holds the slots applied outside the ordinary passes.
	bracket Mask
	// supported holds the slots the driver implements.
	supported Mask
	// dependentSlots lists the dependent slots in order.
	dependentSlots []Slot

	defaults []*Set
	unknown  []*Set

	activeTexture []*Set
	textureEnable [][2]*Set
	attribEnable  [][2]*Set
	enables       [fixedSlots][2]*Set
	matrixModes   [3]*Set
}

// NewLayout assigns slots for the capabilities in caps. Slot numbering is
// deterministic for equal limits. It panics if the limits are invalid.
func NewLayout(caps driver.Caps, defs Defaults) *Layout {
	lim := caps.Limits
	if err := lim.Validate(); err != nil {
		panic(err)
	}
	l := &Layout{
		units:    lim.TextureUnits,
		attribs:  lim.VertexAttribs,
		features: caps.Features,
	}
	l.unitBase = fixedSlots
	l.attribBase = l.unitBase + Slot(l.units*fieldsPerUnit)
	l.count = int(l.attribBase) + l.attribs*fieldsPerAttrib

	l.dependent = newMask(l.count)
	l.mutable = newMask(l.count)
	l.vertexArray = newMask(l.count)
	l.contextLocal = newMask(l.count)
	l.bracket = newMask(l.count)
	l.dependentSlots = []Slot{SlotActiveTexture, SlotMatrixMode, SlotArrayBuffer}
	for _, s := range l.dependentSlots {
		l.dependent.set(s)
	}
	l.vertexArray.set(SlotElementArrayBuffer)
	for a := 0; a < l.attribs; a++ {
		l.vertexArray.set(l.AttribEnableSlot(a))
		l.vertexArray.set(l.AttribPointerSlot(a))
		l.mutable.set(l.AttribPointerSlot(a))
	}
	l.contextLocal.set(SlotFramebuffer)
	l.contextLocal.set(SlotVertexArray)
	l.bracket.set(SlotVertexArray)
	l.supported = l.supportedSlots()

	l.intern()
	l.setDefaults(defs)
	l.unknown = make([]*Set, l.count)
	for i := range l.unknown {
		l.unknown[i] = &Set{kind: kindUnknown, slot: Slot(i)}
	}
	return l
}

func (l *Layout) intern() {
	l.activeTexture = make([]*Set, l.units)
	l.textureEnable = make([][2]*Set, l.units)
	for u := 0; u < l.units; u++ {
		l.activeTexture[u] = &Set{kind: KindActiveTexture, slot: SlotActiveTexture, index: u, e: [4]gl.Enum{gl.TEXTURE0 + gl.Enum(u)}}
		s := l.TextureEnableSlot(u)
		l.textureEnable[u] = [2]*Set{
			{kind: KindTextureEnable, slot: s, index: u, target: gl.TEXTURE_2D},
			{kind: KindTextureEnable, slot: s, index: u, target: gl.TEXTURE_2D, on: true},
		}
	}
	l.attribEnable = make([][2]*Set, l.attribs)
	for a := 0; a < l.attribs; a++ {
		s := l.AttribEnableSlot(a)
		l.attribEnable[a] = [2]*Set{
			{kind: KindAttribEnable, slot: s, index: a},
			{kind: KindAttribEnable, slot: s, index: a, on: true},
		}
	}
	for s, c := range enableCaps {
		if c == 0 {
			continue
		}
		l.enables[s] = [2]*Set{
			{kind: KindEnable, slot: Slot(s), target: c},
			{kind: KindEnable, slot: Slot(s), target: c, on: true},
		}
	}
	for i, m := range []gl.Enum{gl.MODELVIEW, gl.PROJECTION, gl.TEXTURE} {
		l.matrixModes[i] = &Set{kind: KindMatrixMode, slot: SlotMatrixMode, index: i, e: [4]gl.Enum{m}}
	}
}

func (l *Layout) supportedSlots() Mask {
	m := newMask(l.count)
	for s := 0; s < l.count; s++ {
		m.set(Slot(s))
	}
	if !l.features.Has(driver.FeatureFixedFunction) {
		m.clear(SlotMatrixMode)
		m.clear(SlotProjectionMatrix)
		m.clear(SlotModelViewMatrix)
		for u := 0; u < l.units; u++ {
			m.clear(l.TextureEnableSlot(u))
			m.clear(l.TextureMatrixSlot(u))
		}
	}
	if !l.features.Has(driver.FeatureSRGB) {
		m.clear(SlotSRGB)
	}
	if !l.features.Has(driver.FeatureFramebufferObjects) {
		m.clear(SlotFramebuffer)
	}
	return m
}

var identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func (l *Layout) setDefaults(defs Defaults) {
	d := make([]*Set, l.count)
	l.defaults = d
	for s := range enableCaps {
		if l.enables[s][0] != nil {
			d[s] = l.enables[s][0]
		}
	}
	d[SlotActiveTexture] = l.activeTexture[0]
	d[SlotMatrixMode] = l.matrixModes[0]
	d[SlotArrayBuffer] = Buffer(SlotArrayBuffer, gl.Buffer{})
	d[SlotElementArrayBuffer] = Buffer(SlotElementArrayBuffer, gl.Buffer{})
	d[SlotUniformBuffer] = Buffer(SlotUniformBuffer, gl.Buffer{})
	d[SlotVertexArray] = VertexArray(gl.VertexArray{}, 0, nil)
	d[SlotFramebuffer] = Framebuffer(defs.Framebuffer, 0, nil)
	d[SlotProgram] = Program(gl.Program{})
	d[SlotBlendFunc] = BlendFunc(gl.ONE, gl.ZERO, gl.ONE, gl.ZERO)
	d[SlotBlendEquation] = BlendEquation(gl.FUNC_ADD, gl.FUNC_ADD)
	d[SlotBlendColor] = BlendColor(0, 0, 0, 0)
	d[SlotDepthFunc] = DepthFunc(gl.LESS)
	d[SlotDepthMask] = DepthMask(true)
	d[SlotStencilFunc] = StencilFunc(gl.ALWAYS, 0, ^uint32(0))
	d[SlotStencilOp] = StencilOp(gl.KEEP, gl.KEEP, gl.KEEP)
	d[SlotStencilMask] = StencilMask(^uint32(0))
	d[SlotCullFaceMode] = CullFace(gl.BACK)
	d[SlotFrontFace] = FrontFace(gl.CCW)
	vp := defs.Viewport
	d[SlotScissor] = Scissor(vp[0], vp[1], vp[2], vp[3])
	d[SlotViewport] = Viewport(vp[0], vp[1], vp[2], vp[3])
	d[SlotColorMask] = ColorMask(true, true, true, true)
	d[SlotClearColor] = ClearColor(0, 0, 0, 0)
	d[SlotClearDepth] = ClearDepth(1)
	d[SlotClearStencil] = ClearStencil(0)
	d[SlotPolygonOffset] = PolygonOffset(0, 0)
	d[SlotLineWidth] = LineWidth(1)
	d[SlotProjectionMatrix] = &Set{kind: KindMatrix, slot: SlotProjectionMatrix, e: [4]gl.Enum{gl.PROJECTION}, mat: &identity}
	d[SlotModelViewMatrix] = &Set{kind: KindMatrix, slot: SlotModelViewMatrix, e: [4]gl.Enum{gl.MODELVIEW}, mat: &identity}
	for u := 0; u < l.units; u++ {
		d[l.TextureSlot(u)] = &Set{kind: KindTexture, slot: l.TextureSlot(u), index: u, target: gl.TEXTURE_2D}
		d[l.TextureEnableSlot(u)] = l.textureEnable[u][0]
		d[l.TextureMatrixSlot(u)] = &Set{kind: KindTextureMatrix, slot: l.TextureMatrixSlot(u), index: u, mat: &identity}
	}
	for a := 0; a < l.attribs; a++ {
		d[l.AttribEnableSlot(a)] = l.attribEnable[a][0]
		s := l.AttribPointerSlot(a)
		d[s] = &Set{kind: KindAttribPointer, slot: s, index: a, ptr: &AttribPointer{Size: 4, Type: gl.FLOAT}}
	}
	for s, set := range d {
		if set == nil {
			panic(fmt.Sprintf("state: slot %d has no default", s))
		}
	}
}

// Count returns the total number of slots.
func (l *Layout) Count() int { return l.count }

func (l *Layout) TextureUnits() int { return l.units }

func (l *Layout) VertexAttribs() int { return l.attribs }

// Dependent returns the routing slots applied in the second pass.
func (l *Layout) Dependent() Mask { return l.dependent }

// Mutable returns the slots re-applied even when the Sets are identical.
func (l *Layout) Mutable() Mask { return l.mutable }

// VertexArraySlots returns the slots stored in the bound vertex array object.
func (l *Layout) VertexArraySlots() Mask { return l.vertexArray }

// ContextLocal returns the slots whose objects cannot be shared between
// contexts.
func (l *Layout) ContextLocal() Mask { return l.contextLocal }

// Default returns the driver default for slot s.
func (l *Layout) Default(s Slot) *Set { return l.defaults[s] }

func (l *Layout) Features() driver.Features { return l.features }

// Compatible reports whether States of l and o number their slots the same
// way, so that Sets may move between them.
func (l *Layout) Compatible(o *Layout) bool {
	return l == o || l.units == o.units && l.attribs == o.attribs && l.features == o.features
}

func (l *Layout) unitSlot(unit, field int) Slot {
	if unit < 0 || unit >= l.units {
		panic(fmt.Errorf("state: texture unit %d out of range [0,%d)", unit, l.units))
	}
	return l.unitBase + Slot(unit*fieldsPerUnit+field)
}

func (l *Layout) attribSlot(attr, field int) Slot {
	if attr < 0 || attr >= l.attribs {
		panic(fmt.Errorf("state: vertex attribute %d out of range [0,%d)", attr, l.attribs))
	}
	return l.attribBase + Slot(attr*fieldsPerAttrib+field)
}

func (l *Layout) TextureSlot(unit int) Slot       { return l.unitSlot(unit, unitTexture) }
func (l *Layout) TextureEnableSlot(unit int) Slot { return l.unitSlot(unit, unitTextureEnable) }
func (l *Layout) TextureMatrixSlot(unit int) Slot { return l.unitSlot(unit, unitTextureMatrix) }
func (l *Layout) AttribEnableSlot(attr int) Slot  { return l.attribSlot(attr, attribEnable) }
func (l *Layout) AttribPointerSlot(attr int) Slot { return l.attribSlot(attr, attribPointer) }

func (l *Layout) requireFixedFunction(what string) {
	if !l.features.Has(driver.FeatureFixedFunction) {
		panic("state: " + what + " requires fixed function support")
	}
}

// Enable returns the Set enabling or disabling the capability of an
// enable slot.
func (l *Layout) Enable(s Slot, on bool) *Set {
	if s < 0 || s >= fixedSlots || l.enables[s][0] == nil {
		panic(fmt.Errorf("state: slot %d is not an enable slot", s))
	}
	if s == SlotSRGB && !l.features.Has(driver.FeatureSRGB) {
		panic("state: sRGB framebuffers not supported")
	}
	return l.enables[s][b2i(on)]
}

// ActiveTexture returns the Set selecting texture unit.
func (l *Layout) ActiveTexture(unit int) *Set {
	l.unitSlot(unit, 0)
	return l.activeTexture[unit]
}

// MatrixMode returns the Set selecting the legacy matrix stack.
func (l *Layout) MatrixMode(mode gl.Enum) *Set {
	l.requireFixedFunction("matrix mode")
	return l.matrixMode(mode)
}

func (l *Layout) matrixMode(mode gl.Enum) *Set {
	for _, s := range l.matrixModes {
		if s.e[0] == mode {
			return s
		}
	}
	panic(fmt.Errorf("state: unknown matrix mode 0x%x", mode))
}

// TextureEnable returns the Set enabling or disabling legacy 2D texturing
// on unit.
func (l *Layout) TextureEnable(unit int, on bool) *Set {
	l.requireFixedFunction("texture enable")
	l.unitSlot(unit, 0)
	return l.textureEnable[unit][b2i(on)]
}

// Texture returns the Set binding t to the 2D target of unit.
func (l *Layout) Texture(unit int, t gl.Texture) *Set {
	return &Set{kind: KindTexture, slot: l.TextureSlot(unit), index: unit, target: gl.TEXTURE_2D, obj: t.V}
}

// Matrix returns the Set loading m into the projection or modelview
// matrix slot s.
func (l *Layout) Matrix(s Slot, m [16]float32) *Set {
	l.requireFixedFunction("matrix")
	var mode gl.Enum
	switch s {
	case SlotProjectionMatrix:
		mode = gl.PROJECTION
	case SlotModelViewMatrix:
		mode = gl.MODELVIEW
	default:
		panic(fmt.Errorf("state: slot %d is not a matrix slot", s))
	}
	return &Set{kind: KindMatrix, slot: s, e: [4]gl.Enum{mode}, mat: &m}
}

// TextureMatrix returns the Set loading m into the texture matrix of unit.
func (l *Layout) TextureMatrix(unit int, m [16]float32) *Set {
	l.requireFixedFunction("texture matrix")
	return &Set{kind: KindTextureMatrix, slot: l.TextureMatrixSlot(unit), index: unit, mat: &m}
}

// AttribEnable returns the Set enabling or disabling vertex attribute attr.
func (l *Layout) AttribEnable(attr int, on bool) *Set {
	l.attribSlot(attr, 0)
	return l.attribEnable[attr][b2i(on)]
}

// AttribPointer returns the Set specifying the source of vertex attribute
// attr. A pointer with Data set sources client memory.
func (l *Layout) AttribPointer(attr int, p AttribPointer) *Set {
	if p.Data != nil {
		l.requireFixedFunction("client memory vertex arrays")
		if p.Buffer.Valid() {
			panic("state: client memory vertex pointer with a buffer")
		}
	}
	return &Set{kind: KindAttribPointer, slot: l.AttribPointerSlot(attr), index: attr, ptr: &p}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
