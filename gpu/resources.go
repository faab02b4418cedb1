// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"errors"
	"fmt"
	"image"

	"gioui.org/shader"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/gpu/internal/state"
	"gioui.org/gpustate/internal/gl"
)

// TextureKey is the set of creation parameters of a Texture.
type TextureKey struct {
	Format    TextureFormat
	Width     int
	Height    int
	MinFilter TextureFilter
	MagFilter TextureFilter
}

// Texture is a 2D texture shared by the contexts of a ShareGroup.
type Texture struct {
	group  *ShareGroup
	obj    gl.Texture
	key    TextureKey
	triple textureTriple
}

type textureTriple struct {
	internalFormat gl.Enum
	format         gl.Enum
	typ            gl.Enum
}

type BufferKey struct {
	Size  int
	Usage BufferUsage
}

// Buffer is a vertex, index or uniform buffer shared by the contexts of
// a ShareGroup.
type Buffer struct {
	group *ShareGroup
	obj   gl.Buffer
	key   BufferKey
}

// ProgramKey identifies a program by the names of its shaders.
type ProgramKey struct {
	VS, FS string
}

type Program struct {
	group *ShareGroup
	obj   gl.Program
	key   ProgramKey
}

// RenderTarget is an off-screen color texture with an optional depth
// buffer. The framebuffer objects it needs are created for each context
// that draws to it.
type RenderTarget struct {
	group     *ShareGroup
	tex       *Texture
	depthBits int
	fbos      map[state.ContextID]*framebuffer
	released  bool
}

type fboKey struct {
	tex       gl.Texture
	size      image.Point
	depthBits int
}

type framebuffer struct {
	obj   gl.Framebuffer
	depth gl.Renderbuffer
	key   fboKey
}

// VertexArray is a vertex array object. Vertex array objects are not
// shared, so one is created for each context that binds it.
type VertexArray struct {
	group    *ShareGroup
	vaos     map[state.ContextID]gl.VertexArray
	released bool
}

type vaoKey struct{}

func (c *Context) textureTriple(f TextureFormat) (textureTriple, error) {
	feats := c.caps.Features
	switch f {
	case TextureFormatRGBA8:
		return textureTriple{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case TextureFormatSRGBA:
		if !feats.Has(driver.FeatureSRGB) {
			return textureTriple{}, fmt.Errorf("gpu: sRGB textures: %w", ErrUnsupported)
		}
		return textureTriple{gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE}, nil
	case TextureFormatFloat:
		if !feats.Has(driver.FeatureFloatRenderTargets) {
			return textureTriple{}, fmt.Errorf("gpu: float textures: %w", ErrUnsupported)
		}
		return textureTriple{gl.R16F, gl.RED, gl.HALF_FLOAT}, nil
	case TextureFormatAlpha:
		return textureTriple{gl.R8, gl.RED, gl.UNSIGNED_BYTE}, nil
	default:
		panic("unsupported texture format")
	}
}

// NewTexture returns a texture with the given parameters, recycling a
// released one if possible.
func (c *Context) NewTexture(format TextureFormat, width, height int, minFilter, magFilter TextureFilter) (*Texture, error) {
	if limit := c.caps.Limits.MaxTextureSize; width <= 0 || height <= 0 || width > limit || height > limit {
		return nil, fmt.Errorf("gpu: invalid texture size %dx%d (maximum %d)", width, height, limit)
	}
	key := TextureKey{Format: format, Width: width, Height: height, MinFilter: minFilter, MagFilter: magFilter}
	return c.group.textures.Acquire(key, c.createTexture)
}

func (c *Context) createTexture(k TextureKey) (*Texture, error) {
	triple, err := c.textureTriple(k.Format)
	if err != nil {
		return nil, err
	}
	f := c.funcs
	obj := f.CreateTexture()
	c.applyOne(c.layout.Texture(0, obj))
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, toGLFilter(k.MinFilter))
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, toGLFilter(k.MagFilter))
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	f.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	f.TexImage2D(gl.TEXTURE_2D, 0, triple.internalFormat, k.Width, k.Height, triple.format, triple.typ, nil)
	t := &Texture{group: c.group, obj: obj, key: k, triple: triple}
	if err := glErr(f, "create texture"); err != nil {
		c.destroyTexture(t)
		return nil, err
	}
	return t, nil
}

func (t *Texture) Size() image.Point {
	return image.Pt(t.key.Width, t.key.Height)
}

func (t *Texture) Format() TextureFormat { return t.key.Format }

// Release returns t to the texture cache of its group.
func (t *Texture) Release() {
	t.group.textures.Recycle(t)
}

// UploadTexture replaces the pixels of t within r.
func (c *Context) UploadTexture(t *Texture, r image.Rectangle, pixels []byte) {
	if !r.In(image.Rectangle{Max: t.Size()}) {
		panic(fmt.Errorf("gpu: upload rectangle %v outside texture bounds %v", r, t.Size()))
	}
	c.applyOne(c.layout.Texture(0, t.obj))
	c.funcs.TexSubImage2D(gl.TEXTURE_2D, 0, r.Min.X, r.Min.Y, r.Dx(), r.Dy(), t.triple.format, t.triple.typ, pixels)
}

// UploadImage replaces the pixels of t from img, placing the origin of
// img at offset.
func (c *Context) UploadImage(t *Texture, offset image.Point, img *image.RGBA) {
	size := img.Bounds().Size()
	if img.Stride != size.X*4 {
		panic("unsupported stride")
	}
	start := img.PixOffset(img.Bounds().Min.X, img.Bounds().Min.Y)
	end := start + size.Y*img.Stride
	c.UploadTexture(t, image.Rectangle{Min: offset, Max: offset.Add(size)}, img.Pix[start:end])
}

// ResizeTexture reallocates the storage of t. The new size becomes part
// of the parameters t is recycled under.
func (c *Context) ResizeTexture(t *Texture, width, height int) error {
	c.applyOne(c.layout.Texture(0, t.obj))
	c.funcs.TexImage2D(gl.TEXTURE_2D, 0, t.triple.internalFormat, width, height, t.triple.format, t.triple.typ, nil)
	if err := glErr(c.funcs, "resize texture"); err != nil {
		return err
	}
	t.key.Width, t.key.Height = width, height
	return nil
}

func (c *Context) destroyTexture(t *Texture) {
	c.funcs.DeleteTexture(t.obj)
	obj := t.obj.V
	c.group.scrubAll(func(s *state.Set) bool {
		return s.Kind() == state.KindTexture && s.Object() == obj
	}, false)
	// Framebuffers of other contexts may still hold t.
	for _, ctx := range c.group.contexts {
		ctx.framebuffers.Evict(func(fb *framebuffer) bool { return fb.key.tex == t.obj }, func(fb *framebuffer) {
			if ctx == c {
				c.destroyFramebuffer(fb)
				return
			}
			ctx.deleteLater(func() { ctx.destroyFramebuffer(fb) })
		})
	}
}

// NewBuffer returns a buffer of size bytes.
func (c *Context) NewBuffer(size int, usage BufferUsage) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("gpu: invalid buffer size %d", size)
	}
	return c.group.buffers.Acquire(BufferKey{Size: size, Usage: usage}, c.createBuffer)
}

func (c *Context) createBuffer(k BufferKey) (*Buffer, error) {
	f := c.funcs
	obj := f.CreateBuffer()
	// Uploads always go through the array buffer binding; the element
	// binding belongs to the bound vertex array.
	c.applyOne(state.Buffer(state.SlotArrayBuffer, obj))
	f.BufferData(gl.ARRAY_BUFFER, k.Size, nil, toGLUsage(k.Usage))
	b := &Buffer{group: c.group, obj: obj, key: k}
	if err := glErr(f, "create buffer"); err != nil {
		c.destroyBuffer(b)
		return nil, err
	}
	return b, nil
}

func (b *Buffer) Size() int { return b.key.Size }

func (b *Buffer) Release() {
	b.group.buffers.Recycle(b)
}

// UploadBuffer replaces the contents of b starting at offset.
func (c *Context) UploadBuffer(b *Buffer, offset int, data []byte) {
	if offset < 0 || offset+len(data) > b.key.Size {
		panic(fmt.Errorf("gpu: upload of %d bytes at %d overflows buffer of %d bytes", len(data), offset, b.key.Size))
	}
	c.applyOne(state.Buffer(state.SlotArrayBuffer, b.obj))
	c.funcs.BufferSubData(gl.ARRAY_BUFFER, offset, data)
}

func (c *Context) destroyBuffer(b *Buffer) {
	c.funcs.DeleteBuffer(b.obj)
	c.group.scrubAll(func(s *state.Set) bool {
		switch s.Kind() {
		case state.KindBuffer:
			return s.Object() == b.obj.V
		case state.KindAttribPointer:
			p := s.Pointer()
			return p.Data == nil && p.Buffer == b.obj
		}
		return false
	}, true)
}

// NewProgram links the vertex and fragment shader sources into a
// program. Attribute locations and texture units follow the shader
// reflection data.
func (c *Context) NewProgram(vs, fs shader.Sources) (*Program, error) {
	key := ProgramKey{VS: vs.Name, FS: fs.Name}
	return c.group.programs.Acquire(key, func(k ProgramKey) (*Program, error) {
		return c.createProgram(k, vs, fs)
	})
}

func (c *Context) createProgram(k ProgramKey, vs, fs shader.Sources) (*Program, error) {
	attr := make([]string, len(vs.Inputs))
	for _, inp := range vs.Inputs {
		if inp.Location >= len(attr) {
			return nil, fmt.Errorf("gpu: program %s: input %s at location %d out of range", k.VS, inp.Name, inp.Location)
		}
		attr[inp.Location] = inp.Name
	}
	if len(attr) > c.caps.Limits.VertexAttribs {
		return nil, fmt.Errorf("gpu: program %s: %d vertex inputs exceed the limit of %d", k.VS, len(attr), c.caps.Limits.VertexAttribs)
	}
	vsrc, fsrc := vs.GLSL100ES, fs.GLSL100ES
	if !c.caps.GLES && (c.caps.Version[0] >= 4 || c.caps.Version[0] == 3 && c.caps.Version[1] >= 2) {
		// OpenGL 3.2 Core only accepts glsl 1.50 or newer.
		vsrc, fsrc = vs.GLSL150, fs.GLSL150
	}
	if vsrc == "" || fsrc == "" {
		return nil, fmt.Errorf("gpu: program %s/%s: no GLSL source for OpenGL %d.%d: %w", k.VS, k.FS, c.caps.Version[0], c.caps.Version[1], ErrUnsupported)
	}
	f := c.funcs
	obj, err := f.CreateProgram(vsrc, fsrc, attr)
	if err != nil {
		return nil, fmt.Errorf("gpu: program %s/%s: %w", k.VS, k.FS, err)
	}
	p := &Program{group: c.group, obj: obj, key: k}
	c.applyOne(state.Program(obj))
	// Bind texture uniforms.
	for _, tex := range vs.Textures {
		u := f.GetUniformLocation(obj, tex.Name)
		if u.Valid() {
			f.Uniform1i(u, tex.Binding)
		}
	}
	for _, tex := range fs.Textures {
		u := f.GetUniformLocation(obj, tex.Name)
		if u.Valid() {
			f.Uniform1i(u, tex.Binding)
		}
	}
	if err := glErr(f, "create program"); err != nil {
		c.destroyProgram(p)
		return nil, err
	}
	return p, nil
}

func (p *Program) Release() {
	p.group.programs.Recycle(p)
}

func (c *Context) destroyProgram(p *Program) {
	c.funcs.DeleteProgram(p.obj)
	c.group.scrubAll(func(s *state.Set) bool {
		return s.Kind() == state.KindProgram && s.Object() == p.obj.V
	}, false)
}

// NewRenderTarget returns a target rendering into tex, with a depth
// buffer of depthBits bits if depthBits is not zero.
func (c *Context) NewRenderTarget(tex *Texture, depthBits int) (*RenderTarget, error) {
	feats := c.caps.Features
	if !feats.Has(driver.FeatureFramebufferObjects) {
		return nil, fmt.Errorf("gpu: render targets: %w", ErrUnsupported)
	}
	if depthBits > 0 && !feats.Has(driver.FeatureDepthRenderbuffers) {
		return nil, fmt.Errorf("gpu: render target depth buffers: %w", ErrUnsupported)
	}
	if tex.group != c.group {
		panic("gpu: texture from another share group")
	}
	if limit := c.caps.Limits.RenderTargetSize(); tex.key.Width > limit || tex.key.Height > limit {
		return nil, fmt.Errorf("gpu: render target %v exceeds maximum size %d: %w", tex.Size(), limit, ErrUnsupported)
	}
	t := &RenderTarget{
		group:     c.group,
		tex:       tex,
		depthBits: depthBits,
		fbos:      make(map[state.ContextID]*framebuffer),
	}
	if _, err := c.framebufferFor(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *RenderTarget) Texture() *Texture { return t.tex }

func (t *RenderTarget) Size() image.Point { return t.tex.Size() }

// Release recycles the framebuffer objects of t in every context. The
// color texture is not released.
func (t *RenderTarget) Release() {
	if t.released {
		return
	}
	t.released = true
	for id, fb := range t.fbos {
		if ctx, ok := t.group.contexts[id]; ok {
			ctx.framebuffers.Recycle(fb)
		}
		delete(t.fbos, id)
	}
}

// framebufferFor returns the framebuffer object of t in c, creating it
// on first use.
func (c *Context) framebufferFor(t *RenderTarget) (*framebuffer, error) {
	if t.released {
		panic("gpu: render target used after release")
	}
	if fb, ok := t.fbos[c.id]; ok {
		return fb, nil
	}
	key := fboKey{tex: t.tex.obj, size: t.tex.Size(), depthBits: t.depthBits}
	fb, err := c.framebuffers.Acquire(key, c.createFramebuffer)
	if err != nil {
		return nil, err
	}
	t.fbos[c.id] = fb
	return fb, nil
}

// framebufferSet returns the Set binding t in c.
func (c *Context) framebufferSet(t *RenderTarget) (*state.Set, error) {
	fb, err := c.framebufferFor(t)
	if err != nil {
		return nil, err
	}
	return state.Framebuffer(fb.obj, c.id, t), nil
}

func (c *Context) createFramebuffer(k fboKey) (*framebuffer, error) {
	f := c.funcs
	fb := &framebuffer{obj: f.CreateFramebuffer(), key: k}
	c.applyOne(state.Framebuffer(fb.obj, c.id, nil))
	f.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, k.tex, 0)
	if k.depthBits > 0 {
		var format gl.Enum
		switch {
		case k.depthBits > 24:
			format = gl.DEPTH_COMPONENT32F
		case k.depthBits > 16:
			format = gl.DEPTH_COMPONENT24
		default:
			format = gl.DEPTH_COMPONENT16
		}
		fb.depth = f.CreateRenderbuffer()
		// Renderbuffer bindings are not tracked; restore the default.
		f.BindRenderbuffer(gl.RENDERBUFFER, fb.depth)
		f.RenderbufferStorage(gl.RENDERBUFFER, format, k.size.X, k.size.Y)
		f.BindRenderbuffer(gl.RENDERBUFFER, gl.Renderbuffer{})
		f.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, fb.depth)
	}
	if st := f.CheckFramebufferStatus(gl.FRAMEBUFFER); st != gl.FRAMEBUFFER_COMPLETE {
		c.destroyFramebuffer(fb)
		glErr(f, "create framebuffer")
		return nil, fmt.Errorf("gpu: incomplete framebuffer, status = 0x%x", uint(st))
	}
	if err := glErr(f, "create framebuffer"); err != nil {
		c.destroyFramebuffer(fb)
		return nil, err
	}
	return fb, nil
}

func (c *Context) destroyFramebuffer(fb *framebuffer) {
	c.funcs.DeleteFramebuffer(fb.obj)
	if fb.depth.Valid() {
		c.funcs.DeleteRenderbuffer(fb.depth)
	}
	c.last.Scrub(func(s *state.Set) bool {
		return s.Kind() == state.KindFramebuffer && s.Object() == fb.obj.V
	})
}

// NewVertexArray returns a vertex array. It requires vertex array
// object support.
func (c *Context) NewVertexArray() (*VertexArray, error) {
	if !c.caps.Features.Has(driver.FeatureVertexArrayObjects) {
		return nil, fmt.Errorf("gpu: vertex arrays: %w", ErrUnsupported)
	}
	va := &VertexArray{group: c.group, vaos: make(map[state.ContextID]gl.VertexArray)}
	if _, err := c.vertexArrayFor(va); err != nil {
		return nil, err
	}
	return va, nil
}

func (c *Context) vertexArrayFor(va *VertexArray) (gl.VertexArray, error) {
	if va.released {
		panic("gpu: vertex array used after release")
	}
	if a, ok := va.vaos[c.id]; ok {
		return a, nil
	}
	a, err := c.vertexArrays.Acquire(vaoKey{}, c.createVertexArray)
	if err != nil {
		return gl.VertexArray{}, err
	}
	va.vaos[c.id] = a
	return a, nil
}

func (c *Context) vertexArraySet(va *VertexArray) (*state.Set, error) {
	a, err := c.vertexArrayFor(va)
	if err != nil {
		return nil, err
	}
	return state.VertexArray(a, c.id, va), nil
}

func (c *Context) createVertexArray(vaoKey) (gl.VertexArray, error) {
	a := c.funcs.CreateVertexArray()
	if err := glErr(c.funcs, "create vertex array"); err != nil {
		if a.Valid() {
			c.funcs.DeleteVertexArray(a)
		}
		return gl.VertexArray{}, err
	}
	if !a.Valid() {
		return gl.VertexArray{}, errors.New("gpu: glGenVertexArrays returned no name")
	}
	return a, nil
}

// Release recycles the vertex array objects of va in every context.
func (va *VertexArray) Release() {
	if va.released {
		return
	}
	va.released = true
	for id, a := range va.vaos {
		if ctx, ok := va.group.contexts[id]; ok {
			ctx.vertexArrays.Recycle(a)
		}
		delete(va.vaos, id)
	}
}

func (c *Context) destroyVertexArray(a gl.VertexArray) {
	c.funcs.DeleteVertexArray(a)
	delete(c.shadows, a)
	c.last.Scrub(func(s *state.Set) bool {
		return s.Kind() == state.KindVertexArray && s.Object() == a.V
	})
}
