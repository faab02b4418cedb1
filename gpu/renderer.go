// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"fmt"
	"image"

	"gioui.org/gpustate/gpu/internal/state"
	"gioui.org/gpustate/internal/gl"
)

// Renderer is the state stack of a Context. Setters change the current
// State; draws, clears and reads apply it to the driver first.
//
// State blocks, render target blocks and recordings nest in any order
// but must be closed in reverse order of opening.
type Renderer struct {
	ctx     *Context
	frames  []frame
	targets []target
	recs    []*recording
}

type frameKind uint8

const (
	frameBlock frameKind = iota
	frameTarget
	frameRecording
	frameTile
)

// frame is one entry of the state stack.
type frame struct {
	kind frameKind
	st   *state.State
	// delta is set when st only holds the changes made since the frame
	// was pushed inside a recording.
	delta bool
}

// target is an entry of the render target stack.
type target struct {
	rt *RenderTarget
	// fb and viewport are the bindings implied by the target.
	fb       *state.Set
	viewport *state.Set
	tiler    *tiler
}

func (k frameKind) String() string {
	switch k {
	case frameBlock:
		return "StateBlock"
	case frameTarget:
		return "RenderTarget"
	case frameRecording:
		return "Recording"
	case frameTile:
		return "Tile"
	default:
		panic("unknown frame kind")
	}
}

func newRenderer(c *Context) *Renderer {
	l := c.layout
	r := &Renderer{ctx: c}
	r.frames = []frame{{kind: frameTarget, st: l.NewState()}}
	r.targets = []target{{fb: l.Default(state.SlotFramebuffer), viewport: l.Default(state.SlotViewport)}}
	return r
}

func (r *Renderer) top() *frame {
	return &r.frames[len(r.frames)-1]
}

func (r *Renderer) put(set *state.Set) {
	r.top().st.Put(set)
}

// lookup returns the Set in effect for slot, as seen by the innermost
// recording if any.
func (r *Renderer) lookup(slot state.Slot) *state.Set {
	for i := len(r.frames) - 1; i >= 0; i-- {
		f := &r.frames[i]
		if set := f.st.Get(slot); set != nil {
			return set
		}
		if !f.delta {
			break
		}
	}
	return r.ctx.layout.Default(slot)
}

func (r *Renderer) push(kind frameKind, reset bool) *frame {
	p := r.ctx.pool
	f := frame{kind: kind}
	switch {
	case reset:
		f.st = p.Get()
		tg := r.targets[len(r.targets)-1]
		f.st.Put(tg.fb)
		f.st.Put(tg.viewport)
	case len(r.recs) > 0:
		f.st = p.Get()
		f.delta = true
	default:
		f.st = p.Clone(r.top().st)
	}
	r.frames = append(r.frames, f)
	return r.top()
}

func (r *Renderer) pop(kind frameKind) {
	n := len(r.frames)
	if n <= 1 || r.frames[n-1].kind != kind {
		panic(fmt.Errorf("gpu: End%s without matching Begin%s (innermost open scope: %v)", kind, kind, r.frames[n-1].kind))
	}
	f := r.frames[n-1]
	r.frames[n-1] = frame{}
	r.frames = r.frames[:n-1]
	r.ctx.pool.Put(f.st)
}

// BeginStateBlock saves the current State. Changes made until the
// matching EndStateBlock are discarded by it. If reset is set, the block
// starts from the default State of the active render target.
func (r *Renderer) BeginStateBlock(reset bool) {
	r.push(frameBlock, reset)
}

func (r *Renderer) EndStateBlock() {
	r.pop(frameBlock)
}

// StateBlock runs fn inside a state block. The block is closed even if
// fn panics.
func (r *Renderer) StateBlock(reset bool, fn func()) {
	r.BeginStateBlock(reset)
	depth := len(r.frames) - 1
	defer r.closeScope(depth, r.EndStateBlock)
	fn()
}

// closeScope ends the scope opened at depth. During a panic every scope
// above depth is unwound and the panic continues.
func (r *Renderer) closeScope(depth int, end func()) {
	if p := recover(); p != nil {
		r.unwind(depth)
		panic(p)
	}
	end()
}

// unwind closes every scope at or above depth. Cleanup failures are
// logged.
func (r *Renderer) unwind(depth int) {
	for len(r.frames) > depth && len(r.frames) > 1 {
		n := len(r.frames)
		kind := r.frames[n-1].kind
		r.ctx.log.Warn("closing scope during panic", "scope", kind.String())
		func() {
			defer func() {
				if err := recover(); err != nil {
					r.ctx.log.Warn("error while closing scope", "scope", kind.String(), "err", err)
				}
			}()
			switch kind {
			case frameBlock:
				r.EndStateBlock()
			case frameTarget:
				r.EndRenderTarget()
			case frameRecording:
				r.EndRecording()
			case frameTile:
				r.dropTile()
			}
		}()
		if len(r.frames) == n {
			// The end function failed before popping.
			r.drop()
		}
	}
}

// drop pops the top frame and its associated entries unconditionally.
func (r *Renderer) drop() {
	n := len(r.frames)
	switch r.frames[n-1].kind {
	case frameTarget:
		r.targets = r.targets[:len(r.targets)-1]
	case frameRecording:
		r.recs = r.recs[:len(r.recs)-1]
	}
	r.pop(r.frames[n-1].kind)
}

func (r *Renderer) SetEnabled(c Capability, on bool) {
	r.put(r.ctx.layout.Enable(c.slot(), on))
}

func (r *Renderer) SetBlendFunc(src, dst BlendFactor) {
	r.SetBlendFuncSeparate(src, dst, src, dst)
}

func (r *Renderer) SetBlendFuncSeparate(srcRGB, dstRGB, srcA, dstA BlendFactor) {
	r.put(state.BlendFunc(toGLBlendFactor(srcRGB), toGLBlendFactor(dstRGB), toGLBlendFactor(srcA), toGLBlendFactor(dstA)))
}

func (r *Renderer) SetBlendEquation(rgb, alpha BlendOp) {
	r.put(state.BlendEquation(toGLBlendOp(rgb), toGLBlendOp(alpha)))
}

func (r *Renderer) SetBlendColor(red, green, blue, alpha float32) {
	r.put(state.BlendColor(red, green, blue, alpha))
}

func (r *Renderer) SetDepthFunc(f CompareFunc) {
	r.put(state.DepthFunc(toGLCompareFunc(f)))
}

func (r *Renderer) SetDepthMask(mask bool) {
	r.put(state.DepthMask(mask))
}

func (r *Renderer) SetStencilFunc(f CompareFunc, ref int32, mask uint32) {
	r.put(state.StencilFunc(toGLCompareFunc(f), ref, mask))
}

func (r *Renderer) SetStencilOp(sfail, dpfail, dppass StencilAction) {
	r.put(state.StencilOp(toGLStencilAction(sfail), toGLStencilAction(dpfail), toGLStencilAction(dppass)))
}

func (r *Renderer) SetStencilMask(mask uint32) {
	r.put(state.StencilMask(mask))
}

func (r *Renderer) SetCullFace(f Face) {
	r.put(state.CullFace(toGLFace(f)))
}

func (r *Renderer) SetFrontFace(w Winding) {
	r.put(state.FrontFace(toGLWinding(w)))
}

func (r *Renderer) SetScissor(rect image.Rectangle) {
	r.put(state.Scissor(int32(rect.Min.X), int32(rect.Min.Y), int32(rect.Dx()), int32(rect.Dy())))
}

func (r *Renderer) SetViewport(rect image.Rectangle) {
	r.put(state.Viewport(int32(rect.Min.X), int32(rect.Min.Y), int32(rect.Dx()), int32(rect.Dy())))
}

func (r *Renderer) SetColorMask(red, green, blue, alpha bool) {
	r.put(state.ColorMask(red, green, blue, alpha))
}

func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.put(state.ClearColor(red, green, blue, alpha))
}

func (r *Renderer) SetClearDepth(d float32) {
	r.put(state.ClearDepth(d))
}

func (r *Renderer) SetClearStencil(s int32) {
	r.put(state.ClearStencil(s))
}

func (r *Renderer) SetPolygonOffset(factor, units float32) {
	r.put(state.PolygonOffset(factor, units))
}

func (r *Renderer) SetLineWidth(width float32) {
	r.put(state.LineWidth(width))
}

// SetActiveTexture selects the texture unit affected by legacy
// per-unit state.
func (r *Renderer) SetActiveTexture(unit int) {
	r.put(r.ctx.layout.ActiveTexture(unit))
}

// ActiveTexture returns the selected texture unit. Inside a recording
// the unit is the one in effect at record time.
func (r *Renderer) ActiveTexture() int {
	return r.lookup(state.SlotActiveTexture).Index()
}

// BindTexture binds t to unit for sampling. A nil t unbinds the unit.
// It panics if t is the color buffer of the active render target.
func (r *Renderer) BindTexture(unit int, t *Texture) {
	var obj gl.Texture
	if t != nil {
		r.checkSampling(t)
		obj = t.obj
	}
	r.put(r.ctx.layout.Texture(unit, obj))
}

func (r *Renderer) checkSampling(t *Texture) {
	tg := r.targets[len(r.targets)-1]
	if tg.rt != nil && tg.rt.tex == t {
		panic("gpu: texture bound for sampling while it is the active render target")
	}
	if tl := tg.tiler; tl != nil && tl.dst.Texture == t {
		panic("gpu: texture bound for sampling while it is the active tile destination")
	}
}

// EnableTexture enables legacy 2D texturing on unit.
func (r *Renderer) EnableTexture(unit int, on bool) {
	r.put(r.ctx.layout.TextureEnable(unit, on))
}

// SetMatrix loads m into the legacy projection or modelview matrix.
func (r *Renderer) SetMatrix(mode MatrixMode, m [16]float32) {
	slot := state.SlotModelViewMatrix
	if mode == MatrixProjection {
		slot = state.SlotProjectionMatrix
	}
	r.put(r.ctx.layout.Matrix(slot, m))
}

func (r *Renderer) SetTextureMatrix(unit int, m [16]float32) {
	r.put(r.ctx.layout.TextureMatrix(unit, m))
}

// BindProgram makes p the current program. A nil p unbinds it.
func (r *Renderer) BindProgram(p *Program) {
	var obj gl.Program
	if p != nil {
		obj = p.obj
	}
	r.put(state.Program(obj))
}

// BindVertexArray binds va, creating its object for the context on
// first use. A nil va binds the context's default vertex array.
func (r *Renderer) BindVertexArray(va *VertexArray) error {
	if va == nil {
		r.put(r.ctx.layout.Default(state.SlotVertexArray))
		return nil
	}
	set, err := r.ctx.vertexArraySet(va)
	if err != nil {
		return err
	}
	r.put(set)
	return nil
}

func bufferObj(b *Buffer) gl.Buffer {
	if b == nil {
		return gl.Buffer{}
	}
	return b.obj
}

// BindIndexBuffer binds the element buffer of the bound vertex array.
func (r *Renderer) BindIndexBuffer(b *Buffer) {
	r.put(state.Buffer(state.SlotElementArrayBuffer, bufferObj(b)))
}

func (r *Renderer) BindArrayBuffer(b *Buffer) {
	r.put(state.Buffer(state.SlotArrayBuffer, bufferObj(b)))
}

func (r *Renderer) BindUniformBuffer(b *Buffer) {
	r.put(state.Buffer(state.SlotUniformBuffer, bufferObj(b)))
}

func (r *Renderer) EnableAttrib(attr int, on bool) {
	r.put(r.ctx.layout.AttribEnable(attr, on))
}

// SetAttribPointer sources attribute attr from b.
func (r *Renderer) SetAttribPointer(attr int, b *Buffer, size int, typ DataType, normalized bool, stride, offset int) {
	if b == nil {
		panic("gpu: nil vertex buffer")
	}
	r.put(r.ctx.layout.AttribPointer(attr, state.AttribPointer{
		Size:       size,
		Type:       toGLDataType(typ),
		Normalized: normalized,
		Stride:     stride,
		Buffer:     b.obj,
		Offset:     uintptr(offset),
	}))
}

// SetAttribClientPointer sources attribute attr from client memory. The
// driver reads data when drawing, so data must stay unchanged until the
// draws using it are issued.
func (r *Renderer) SetAttribClientPointer(attr int, size int, typ DataType, normalized bool, stride int, data []byte) {
	if len(data) == 0 {
		panic("gpu: empty client vertex array")
	}
	r.put(r.ctx.layout.AttribPointer(attr, state.AttribPointer{
		Size:       size,
		Type:       toGLDataType(typ),
		Normalized: normalized,
		Stride:     stride,
		Data:       data,
	}))
}

type opKind uint8

const (
	opClear opKind = iota
	opDrawArrays
	opDrawElements
	opReadPixels
)

// drawOp is a draw, clear or read with the State it runs under.
type drawOp struct {
	kind   opKind
	mode   gl.Enum
	mask   gl.Enum
	typ    gl.Enum
	first  int
	count  int
	offset int
	rect   image.Rectangle
	pixels []byte

	st *state.State
	// full is set when st is complete rather than a delta over the State
	// current at replay.
	full bool
}

func (r *Renderer) Clear(bits ClearBits) {
	r.queue(drawOp{kind: opClear, mask: toGLClearBits(bits)})
}

func (r *Renderer) DrawArrays(mode DrawMode, first, count int) {
	r.queue(drawOp{kind: opDrawArrays, mode: toGLDrawMode(mode), first: first, count: count})
}

// DrawElements draws count indices of type typ starting at byte offset
// in the bound index buffer.
func (r *Renderer) DrawElements(mode DrawMode, count int, typ DataType, offset int) {
	switch typ {
	case DataTypeUnsignedByte, DataTypeUnsignedShort, DataTypeUnsignedInt:
	default:
		panic("gpu: unsupported index type")
	}
	r.queue(drawOp{kind: opDrawElements, mode: toGLDrawMode(mode), count: count, typ: toGLDataType(typ), offset: offset})
}

// ReadPixels reads the RGBA pixels of src from the bound framebuffer. In
// a recording the read happens at replay, and errors are logged.
func (r *Renderer) ReadPixels(src image.Rectangle, pixels []byte) error {
	if n := src.Dx() * src.Dy() * 4; len(pixels) < n {
		panic(fmt.Errorf("gpu: ReadPixels needs %d bytes, got %d", n, len(pixels)))
	}
	return r.queue(drawOp{kind: opReadPixels, rect: src, pixels: pixels})
}

func (r *Renderer) queue(op drawOp) error {
	if n := len(r.recs); n > 0 {
		rec := r.recs[n-1]
		op.st, op.full = r.snapshot(rec)
		rec.ops = append(rec.ops, op)
		return nil
	}
	r.flush(r.top().st)
	return r.exec(&op)
}

// flush moves the driver to st.
func (r *Renderer) flush(st *state.State) {
	if r.ctx.released {
		panic("gpu: context used after release")
	}
	st.Apply(r.ctx.last, &r.ctx.applier)
}

func (r *Renderer) exec(op *drawOp) error {
	f := r.ctx.funcs
	switch op.kind {
	case opClear:
		f.Clear(op.mask)
	case opDrawArrays:
		f.DrawArrays(op.mode, op.first, op.count)
	case opDrawElements:
		f.DrawElements(op.mode, op.count, op.typ, op.offset)
	case opReadPixels:
		src := op.rect
		f.ReadPixels(src.Min.X, src.Min.Y, src.Dx(), src.Dy(), gl.RGBA, gl.UNSIGNED_BYTE, op.pixels)
		return glErr(f, "read pixels")
	default:
		panic("unknown draw operation")
	}
	return nil
}

// Invalidate forgets the tracked driver state, so that the next draw
// issues every setting of the current State.
func (r *Renderer) Invalidate() {
	r.ctx.Invalidate()
}

// EndFrame ends a frame. All scopes must be closed. It runs the deferred
// deletions of the context and destroys resources left unused for more
// than the frame retention.
func (r *Renderer) EndFrame() {
	if n := len(r.frames); n != 1 {
		panic(fmt.Errorf("gpu: EndFrame with open scope %v", r.frames[n-1].kind))
	}
	c := r.ctx
	if c.cnf.RestoreDefaults {
		def := c.pool.Get()
		r.flush(def)
		c.pool.Put(def)
	}
	c.frame()
}
