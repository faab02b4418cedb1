// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"fmt"
	"image"

	"golang.org/x/exp/constraints"
	"golang.org/x/image/draw"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/gpu/internal/state"
	"gioui.org/gpustate/internal/gl"
)

// TileDestination is where a tiled render target ends up. Exactly one
// field must be set.
//
// Tile bounds follow the row order of the destination. Texture rows count
// up from texel row 0, which is the bottom row of a framebuffer rendered
// into the texture. Image rows count down from the top of the image, and
// every tile is flipped on readback.
type TileDestination struct {
	Texture *Texture
	Image   *image.RGBA
}

// tiler splits a large render target into tiles no larger than the
// driver supports.
type tiler struct {
	dst  TileDestination
	size image.Point
	tile image.Point
	// grid is the number of tile columns and rows.
	grid image.Point
	// next is the index of the next tile in row major order.
	next int
	cur  image.Rectangle
	// depth is the stack depth of the open tile, or 0.
	depth int

	// scratch is nil when tiles render to the default framebuffer.
	scratch *RenderTarget
}

// BeginRenderTarget directs rendering to t until the matching
// EndRenderTarget. The viewport is set to the bounds of t.
func (r *Renderer) BeginRenderTarget(t *RenderTarget) error {
	if t.group != r.ctx.group {
		panic("gpu: render target from another share group")
	}
	for _, tg := range r.targets {
		if tg.rt == t {
			panic("gpu: render target is already active")
		}
	}
	fb, err := r.ctx.framebufferSet(t)
	if err != nil {
		return err
	}
	sz := t.Size()
	r.pushTarget(target{rt: t, fb: fb, viewport: state.Viewport(0, 0, int32(sz.X), int32(sz.Y))})
	return nil
}

// BeginDefaultTarget directs rendering to the default framebuffer until
// the matching EndRenderTarget.
func (r *Renderer) BeginDefaultTarget() {
	l := r.ctx.layout
	r.pushTarget(target{fb: l.Default(state.SlotFramebuffer), viewport: l.Default(state.SlotViewport)})
}

func (r *Renderer) pushTarget(tg target) {
	f := r.push(frameTarget, false)
	f.st.Put(tg.fb)
	f.st.Put(tg.viewport)
	r.targets = append(r.targets, tg)
}

// EndRenderTarget restores the render target and State in effect at the
// matching Begin call.
func (r *Renderer) EndRenderTarget() {
	n := len(r.targets)
	if n <= 1 {
		panic("gpu: EndRenderTarget without matching BeginRenderTarget")
	}
	r.pop(frameTarget)
	tg := r.targets[n-1]
	r.targets[n-1] = target{}
	r.targets = r.targets[:n-1]
	if tl := tg.tiler; tl != nil {
		tl.release()
	}
}

// RenderTargetBlock runs fn with t as the render target. The block is
// closed even if fn panics.
func (r *Renderer) RenderTargetBlock(t *RenderTarget, fn func()) error {
	if err := r.BeginRenderTarget(t); err != nil {
		return err
	}
	depth := len(r.frames) - 1
	defer r.closeScope(depth, r.EndRenderTarget)
	fn()
	return nil
}

// ReadRenderTarget copies the pixels of t into img, top row first. It
// panics if t is an active render target.
func (r *Renderer) ReadRenderTarget(t *RenderTarget, img *image.RGBA) error {
	for _, tg := range r.targets {
		if tg.rt == t {
			panic("gpu: reading a render target while it is bound as a target")
		}
	}
	if len(r.recs) > 0 {
		panic("gpu: ReadRenderTarget inside a recording")
	}
	if img.Bounds().Size() != t.Size() {
		panic(fmt.Errorf("gpu: image size %v does not match render target size %v", img.Bounds().Size(), t.Size()))
	}
	fb, err := r.ctx.framebufferSet(t)
	if err != nil {
		return err
	}
	c := r.ctx
	st := c.pool.Clone(r.top().st)
	st.Put(fb)
	r.flush(st)
	c.pool.Put(st)
	return r.readImage(img, img.Bounds())
}

// readImage reads the bottom left corner of the bound framebuffer into
// the rectangle dr of img, flipping rows to top-down order.
func (r *Renderer) readImage(img *image.RGBA, dr image.Rectangle) error {
	w, h := dr.Dx(), dr.Dy()
	if dr.Min == img.Rect.Min && w == img.Rect.Dx() && img.Stride == w*4 {
		pix := img.Pix[:w*h*4]
		r.ctx.funcs.ReadPixels(0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, pix)
		flipRows(pix, w*4)
		return glErr(r.ctx.funcs, "read pixels")
	}
	tmp := image.NewRGBA(image.Rect(0, 0, w, h))
	r.ctx.funcs.ReadPixels(0, 0, w, h, gl.RGBA, gl.UNSIGNED_BYTE, tmp.Pix)
	flipRows(tmp.Pix, tmp.Stride)
	draw.Copy(img, dr.Min, tmp, tmp.Bounds(), draw.Src, nil)
	return glErr(r.ctx.funcs, "read pixels")
}

func flipRows(pix []byte, stride int) {
	h := len(pix) / stride
	row := make([]byte, stride)
	for y := 0; y < h/2; y++ {
		top := pix[y*stride : (y+1)*stride]
		bottom := pix[(h-1-y)*stride : (h-y)*stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func ceilDiv[T constraints.Integer](a, b T) T {
	return (a + b - 1) / b
}

// BeginTiledRenderTarget starts rendering an image of the given size to
// dst in tiles. Render each tile between BeginTile and EndTile, then
// call EndRenderTarget.
//
// Without off-screen render target support tiles are rendered to the
// default framebuffer, which limits the tile size to the viewport.
func (r *Renderer) BeginTiledRenderTarget(dst TileDestination, size image.Point) error {
	if len(r.recs) > 0 {
		panic("gpu: tiled render targets cannot be recorded")
	}
	if (dst.Texture == nil) == (dst.Image == nil) {
		panic("gpu: tile destination needs exactly one of Texture and Image")
	}
	if size.X <= 0 || size.Y <= 0 {
		panic(fmt.Errorf("gpu: invalid tiled render target size %v", size))
	}
	var dsz image.Point
	if dst.Texture != nil {
		dsz = dst.Texture.Size()
	} else {
		dsz = dst.Image.Bounds().Size()
	}
	if size.X > dsz.X || size.Y > dsz.Y {
		panic(fmt.Errorf("gpu: tiled size %v exceeds destination size %v", size, dsz))
	}
	c := r.ctx
	tl := &tiler{dst: dst, size: size}
	tg := target{tiler: tl}
	if c.caps.Features.Has(driver.FeatureFramebufferObjects) {
		limit := c.caps.Limits.RenderTargetSize()
		tl.tile = image.Pt(min(size.X, limit), min(size.Y, limit))
		tex, err := c.NewTexture(TextureFormatRGBA8, tl.tile.X, tl.tile.Y, FilterNearest, FilterNearest)
		if err != nil {
			return err
		}
		rt, err := c.NewRenderTarget(tex, 0)
		if err != nil {
			tex.Release()
			return err
		}
		tl.scratch = rt
		fb, err := c.framebufferSet(rt)
		if err != nil {
			tl.release()
			return err
		}
		tg.fb = fb
	} else {
		vp := c.cnf.Viewport.Size()
		if vp.X <= 0 || vp.Y <= 0 {
			return fmt.Errorf("gpu: tiling through the default framebuffer without a viewport: %w", ErrUnsupported)
		}
		c.warnOnce("tile-default-framebuffer", "render targets unsupported, tiling through the default framebuffer", "viewport", vp)
		tl.tile = image.Pt(min(size.X, vp.X), min(size.Y, vp.Y))
		tg.fb = c.layout.Default(state.SlotFramebuffer)
	}
	tl.grid = image.Pt(ceilDiv(size.X, tl.tile.X), ceilDiv(size.Y, tl.tile.Y))
	tg.viewport = state.Viewport(0, 0, int32(tl.tile.X), int32(tl.tile.Y))
	c.log.Debug("tiled render target", "size", size, "tile", tl.tile, "grid", tl.grid)
	r.pushTarget(tg)
	return nil
}

func (r *Renderer) activeTiler() *tiler {
	tl := r.targets[len(r.targets)-1].tiler
	if tl == nil {
		panic("gpu: no active tiled render target")
	}
	return tl
}

// BeginTile starts the next tile and returns its bounds in destination
// coordinates, in the row order of the destination kind. Tiles advance
// along a row before moving to the next one, so the first tile of a Texture
// destination is its bottom left corner and the first tile of an Image
// destination its top left corner. The viewport covers the tile, so
// callers offset their projection by the tile origin.
func (r *Renderer) BeginTile() image.Rectangle {
	tl := r.activeTiler()
	if tl.depth != 0 {
		panic("gpu: BeginTile inside an open tile")
	}
	if r.top().kind != frameTarget {
		panic(fmt.Errorf("gpu: BeginTile with open scope %v", r.top().kind))
	}
	if tl.next >= tl.grid.X*tl.grid.Y {
		panic("gpu: BeginTile after the last tile")
	}
	org := image.Pt(tl.next%tl.grid.X*tl.tile.X, tl.next/tl.grid.X*tl.tile.Y)
	tl.cur = image.Rectangle{Min: org, Max: org.Add(tl.tile)}.Intersect(image.Rectangle{Max: tl.size})
	r.push(frameTile, false)
	tl.depth = len(r.frames)
	r.put(state.Viewport(0, 0, int32(tl.cur.Dx()), int32(tl.cur.Dy())))
	return tl.cur
}

// EndTile copies the tile to the destination and reports whether tiles
// remain.
func (r *Renderer) EndTile() (more bool, err error) {
	tl := r.activeTiler()
	if tl.depth == 0 {
		panic("gpu: EndTile without matching BeginTile")
	}
	if len(r.frames) != tl.depth {
		panic(fmt.Errorf("gpu: EndTile with open scope %v", r.top().kind))
	}
	c := r.ctx
	// Make sure the tile framebuffer is bound even if nothing was drawn.
	r.flush(r.top().st)
	w, h := tl.cur.Dx(), tl.cur.Dy()
	if dst := tl.dst.Texture; dst != nil {
		c.applyOne(c.layout.Texture(0, dst.obj))
		c.funcs.CopyTexSubImage2D(gl.TEXTURE_2D, 0, tl.cur.Min.X, tl.cur.Min.Y, 0, 0, w, h)
		err = glErr(c.funcs, "copy tile")
	} else {
		dr := tl.cur.Add(tl.dst.Image.Rect.Min)
		err = r.readImage(tl.dst.Image, dr)
	}
	r.dropTile()
	tl.next++
	return tl.next < tl.grid.X*tl.grid.Y, err
}

// dropTile closes the open tile without copying it.
func (r *Renderer) dropTile() {
	tl := r.activeTiler()
	r.pop(frameTile)
	tl.depth = 0
}

func (tl *tiler) release() {
	if tl.scratch == nil {
		return
	}
	tl.scratch.Release()
	tl.scratch.Texture().Release()
	tl.scratch = nil
}
