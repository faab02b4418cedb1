// SPDX-License-Identifier: Unlicense OR MIT

// Package drivertest provides a driver.Functions implementation that
// records every call and tracks the driver state the calls produce.
package drivertest

import (
	"errors"
	"fmt"
	"strings"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/internal/gl"
)

// Call is a single recorded driver call.
type Call struct {
	Name string
	Args []interface{}
}

// Recorder records driver calls and models their effect.
type Recorder struct {
	Calls []Call
	Model Model
	// ReadPixels, if set, produces the pixels returned by ReadPixels.
	// The default fills the destination with 0xff.
	ReadPixelsFunc func(x, y, width, height int, pixels []byte)
	// FailCreate makes the next object creation report OUT_OF_MEMORY.
	FailCreate bool
	// FailProgram makes CreateProgram return an error.
	FailProgram bool

	nextName uint
	err      gl.Enum
}

// Model is the driver state produced by the recorded calls.
type Model struct {
	Enabled         map[gl.Enum]bool
	ActiveTexture   gl.Enum
	MatrixMode      gl.Enum
	Textures        map[int]gl.Texture
	TextureEnabled  map[int]bool
	Matrices        map[gl.Enum][16]float32
	TextureMatrices map[int][16]float32
	ArrayBuffer     gl.Buffer
	UniformBuffer   gl.Buffer
	DrawFramebuffer gl.Framebuffer
	ReadFramebuffer gl.Framebuffer
	Program         gl.Program
	VertexArray     gl.VertexArray
	VertexArrays    map[gl.VertexArray]*VertexArrayModel
	BlendFunc       [4]gl.Enum
	Viewport        [4]int32
	Scissor         [4]int32
	DepthMask       bool
	ClearColor      [4]float32
}

// VertexArrayModel is the state owned by a vertex array object.
type VertexArrayModel struct {
	ElementBuffer gl.Buffer
	Enabled       map[int]bool
	Pointers      map[int]Pointer
}

type Pointer struct {
	Buffer gl.Buffer
	Size   int
	Type   gl.Enum
	Offset uintptr
	Client bool
}

var _ driver.Functions = (*Recorder)(nil)

// New returns a Recorder in the OpenGL default state.
func New() *Recorder {
	r := new(Recorder)
	r.Model = Model{
		Enabled:         make(map[gl.Enum]bool),
		ActiveTexture:   gl.TEXTURE0,
		MatrixMode:      gl.MODELVIEW,
		Textures:        make(map[int]gl.Texture),
		TextureEnabled:  make(map[int]bool),
		Matrices:        make(map[gl.Enum][16]float32),
		TextureMatrices: make(map[int][16]float32),
		VertexArrays:    make(map[gl.VertexArray]*VertexArrayModel),
		BlendFunc:       [4]gl.Enum{gl.ONE, gl.ZERO, gl.ONE, gl.ZERO},
		DepthMask:       true,
	}
	r.vertexArray()
	return r
}

// Caps returns a capability table suitable for tests.
func Caps() driver.Caps {
	return driver.Caps{
		BottomLeftOrigin: true,
		Version:          [2]int{3, 3},
		Features: driver.FeatureFramebufferObjects | driver.FeatureVertexArrayObjects |
			driver.FeatureFixedFunction | driver.FeatureSRGB | driver.FeatureDepthRenderbuffers,
		Limits: driver.Limits{
			TextureUnits:        8,
			VertexAttribs:       8,
			MaxTextureSize:      4096,
			MaxRenderTargetSize: 4096,
		},
	}
}

func (c Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Reset forgets the recorded calls but keeps the model.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
}

// Count returns the number of recorded calls named name.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Without returns the recorded calls whose name is not in names.
func (r *Recorder) Without(names ...string) []Call {
	var calls []Call
outer:
	for _, c := range r.Calls {
		for _, n := range names {
			if c.Name == n {
				continue outer
			}
		}
		calls = append(calls, c)
	}
	return calls
}

// Names returns the names of the recorded calls in order.
func (r *Recorder) Names() []string {
	names := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		names[i] = c.Name
	}
	return names
}

func (r *Recorder) String() string {
	var b strings.Builder
	for _, c := range r.Calls {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *Recorder) record(name string, args ...interface{}) {
	r.Calls = append(r.Calls, Call{Name: name, Args: args})
}

func (r *Recorder) unit() int {
	return int(r.Model.ActiveTexture - gl.TEXTURE0)
}

func (r *Recorder) vertexArray() *VertexArrayModel {
	m := r.Model.VertexArrays[r.Model.VertexArray]
	if m == nil {
		m = &VertexArrayModel{
			Enabled:  make(map[int]bool),
			Pointers: make(map[int]Pointer),
		}
		r.Model.VertexArrays[r.Model.VertexArray] = m
	}
	return m
}

// Attrib returns the model of vertex attribute idx in the bound vertex array.
func (r *Recorder) Attrib(idx int) (enabled bool, p Pointer) {
	m := r.vertexArray()
	return m.Enabled[idx], m.Pointers[idx]
}

func (r *Recorder) name() uint {
	r.nextName++
	return r.nextName
}

func (r *Recorder) create(kind string) uint {
	if r.FailCreate {
		r.FailCreate = false
		r.err = gl.OUT_OF_MEMORY
	}
	n := r.name()
	r.record("Create"+kind, n)
	return n
}

func (r *Recorder) Enable(cap gl.Enum) {
	r.record("Enable", cap)
	if cap == gl.TEXTURE_2D {
		r.Model.TextureEnabled[r.unit()] = true
		return
	}
	r.Model.Enabled[cap] = true
}

func (r *Recorder) Disable(cap gl.Enum) {
	r.record("Disable", cap)
	if cap == gl.TEXTURE_2D {
		r.Model.TextureEnabled[r.unit()] = false
		return
	}
	r.Model.Enabled[cap] = false
}

func (r *Recorder) ActiveTexture(texture gl.Enum) {
	r.record("ActiveTexture", texture)
	r.Model.ActiveTexture = texture
}

func (r *Recorder) MatrixMode(mode gl.Enum) {
	r.record("MatrixMode", mode)
	r.Model.MatrixMode = mode
}

func (r *Recorder) LoadMatrixf(m *[16]float32) {
	r.record("LoadMatrixf", *m)
	if r.Model.MatrixMode == gl.TEXTURE {
		r.Model.TextureMatrices[r.unit()] = *m
		return
	}
	r.Model.Matrices[r.Model.MatrixMode] = *m
}

func (r *Recorder) BindTexture(target gl.Enum, t gl.Texture) {
	r.record("BindTexture", target, t.V)
	r.Model.Textures[r.unit()] = t
}

func (r *Recorder) BindBuffer(target gl.Enum, b gl.Buffer) {
	r.record("BindBuffer", target, b.V)
	switch target {
	case gl.ARRAY_BUFFER:
		r.Model.ArrayBuffer = b
	case gl.ELEMENT_ARRAY_BUFFER:
		r.vertexArray().ElementBuffer = b
	case gl.UNIFORM_BUFFER:
		r.Model.UniformBuffer = b
	}
}

func (r *Recorder) BindFramebuffer(target gl.Enum, fb gl.Framebuffer) {
	r.record("BindFramebuffer", target, fb.V)
	switch target {
	case gl.FRAMEBUFFER:
		r.Model.DrawFramebuffer = fb
		r.Model.ReadFramebuffer = fb
	case gl.DRAW_FRAMEBUFFER:
		r.Model.DrawFramebuffer = fb
	default:
		r.Model.ReadFramebuffer = fb
	}
}

func (r *Recorder) BindRenderbuffer(target gl.Enum, rb gl.Renderbuffer) {
	r.record("BindRenderbuffer", target, rb.V)
}

func (r *Recorder) BindVertexArray(a gl.VertexArray) {
	r.record("BindVertexArray", a.V)
	r.Model.VertexArray = a
}

func (r *Recorder) UseProgram(p gl.Program) {
	r.record("UseProgram", p.V)
	r.Model.Program = p
}

func (r *Recorder) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA gl.Enum) {
	r.record("BlendFuncSeparate", srcRGB, dstRGB, srcA, dstA)
	r.Model.BlendFunc = [4]gl.Enum{srcRGB, dstRGB, srcA, dstA}
}

func (r *Recorder) BlendEquationSeparate(modeRGB, modeA gl.Enum) {
	r.record("BlendEquationSeparate", modeRGB, modeA)
}

func (r *Recorder) BlendColor(red, green, blue, alpha float32) {
	r.record("BlendColor", red, green, blue, alpha)
}

func (r *Recorder) DepthFunc(fn gl.Enum) {
	r.record("DepthFunc", fn)
}

func (r *Recorder) DepthMask(mask bool) {
	r.record("DepthMask", mask)
	r.Model.DepthMask = mask
}

func (r *Recorder) StencilFunc(fn gl.Enum, ref int32, mask uint32) {
	r.record("StencilFunc", fn, ref, mask)
}

func (r *Recorder) StencilOp(sfail, dpfail, dppass gl.Enum) {
	r.record("StencilOp", sfail, dpfail, dppass)
}

func (r *Recorder) StencilMask(mask uint32) {
	r.record("StencilMask", mask)
}

func (r *Recorder) CullFace(mode gl.Enum) {
	r.record("CullFace", mode)
}

func (r *Recorder) FrontFace(mode gl.Enum) {
	r.record("FrontFace", mode)
}

func (r *Recorder) Scissor(x, y, width, height int32) {
	r.record("Scissor", x, y, width, height)
	r.Model.Scissor = [4]int32{x, y, width, height}
}

func (r *Recorder) Viewport(x, y, width, height int32) {
	r.record("Viewport", x, y, width, height)
	r.Model.Viewport = [4]int32{x, y, width, height}
}

func (r *Recorder) ColorMask(red, green, blue, alpha bool) {
	r.record("ColorMask", red, green, blue, alpha)
}

func (r *Recorder) ClearColor(red, green, blue, alpha float32) {
	r.record("ClearColor", red, green, blue, alpha)
	r.Model.ClearColor = [4]float32{red, green, blue, alpha}
}

func (r *Recorder) ClearDepthf(d float32) {
	r.record("ClearDepthf", d)
}

func (r *Recorder) ClearStencil(s int32) {
	r.record("ClearStencil", s)
}

func (r *Recorder) PolygonOffset(factor, units float32) {
	r.record("PolygonOffset", factor, units)
}

func (r *Recorder) LineWidth(width float32) {
	r.record("LineWidth", width)
}

func (r *Recorder) EnableVertexAttribArray(a gl.Attrib) {
	r.record("EnableVertexAttribArray", a)
	r.vertexArray().Enabled[int(a)] = true
}

func (r *Recorder) DisableVertexAttribArray(a gl.Attrib) {
	r.record("DisableVertexAttribArray", a)
	r.vertexArray().Enabled[int(a)] = false
}

func (r *Recorder) VertexAttribPointer(a gl.Attrib, size int, typ gl.Enum, normalized bool, stride int, offset uintptr) {
	r.record("VertexAttribPointer", a, size, typ, normalized, stride, offset)
	r.vertexArray().Pointers[int(a)] = Pointer{Buffer: r.Model.ArrayBuffer, Size: size, Type: typ, Offset: offset}
}

func (r *Recorder) VertexAttribClientPointer(a gl.Attrib, size int, typ gl.Enum, normalized bool, stride int, data []byte) {
	r.record("VertexAttribClientPointer", a, size, typ, normalized, stride, len(data))
	if r.Model.VertexArray.Valid() || r.Model.ArrayBuffer.Valid() {
		// Client arrays need the zero vertex array and no array buffer.
		r.setError(gl.INVALID_OPERATION)
		return
	}
	r.vertexArray().Pointers[int(a)] = Pointer{Size: size, Type: typ, Client: true}
}

func (r *Recorder) Clear(mask gl.Enum) {
	r.record("Clear", mask)
}

func (r *Recorder) DrawArrays(mode gl.Enum, first, count int) {
	r.record("DrawArrays", mode, first, count)
}

func (r *Recorder) DrawElements(mode gl.Enum, count int, typ gl.Enum, offset int) {
	r.record("DrawElements", mode, count, typ, offset)
}

func (r *Recorder) ReadPixels(x, y, width, height int, format, typ gl.Enum, pixels []byte) {
	r.record("ReadPixels", x, y, width, height, format, typ)
	if r.ReadPixelsFunc != nil {
		r.ReadPixelsFunc(x, y, width, height, pixels)
		return
	}
	for i := range pixels {
		pixels[i] = 0xff
	}
}

func (r *Recorder) CopyTexSubImage2D(target gl.Enum, level, xoff, yoff, x, y, width, height int) {
	r.record("CopyTexSubImage2D", target, level, xoff, yoff, x, y, width, height)
}

func (r *Recorder) CreateTexture() gl.Texture {
	return gl.Texture{V: r.create("Texture")}
}

func (r *Recorder) DeleteTexture(t gl.Texture) {
	r.record("DeleteTexture", t.V)
	for unit, bound := range r.Model.Textures {
		if bound == t {
			r.Model.Textures[unit] = gl.Texture{}
		}
	}
}

func (r *Recorder) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, typ gl.Enum, pixels []byte) {
	r.record("TexImage2D", target, level, internalFormat, width, height, format, typ)
}

func (r *Recorder) TexSubImage2D(target gl.Enum, level, x, y, width, height int, format, typ gl.Enum, pixels []byte) {
	r.record("TexSubImage2D", target, level, x, y, width, height, format, typ)
}

func (r *Recorder) TexParameteri(target, pname gl.Enum, param int) {
	r.record("TexParameteri", target, pname, param)
}

func (r *Recorder) CreateBuffer() gl.Buffer {
	return gl.Buffer{V: r.create("Buffer")}
}

func (r *Recorder) DeleteBuffer(b gl.Buffer) {
	r.record("DeleteBuffer", b.V)
	if r.Model.ArrayBuffer == b {
		r.Model.ArrayBuffer = gl.Buffer{}
	}
}

func (r *Recorder) BufferData(target gl.Enum, size int, data []byte, usage gl.Enum) {
	r.record("BufferData", target, size, usage)
}

func (r *Recorder) BufferSubData(target gl.Enum, offset int, data []byte) {
	r.record("BufferSubData", target, offset, len(data))
}

func (r *Recorder) CreateFramebuffer() gl.Framebuffer {
	return gl.Framebuffer{V: r.create("Framebuffer")}
}

func (r *Recorder) DeleteFramebuffer(fb gl.Framebuffer) {
	r.record("DeleteFramebuffer", fb.V)
	if r.Model.DrawFramebuffer == fb {
		r.Model.DrawFramebuffer = gl.Framebuffer{}
	}
	if r.Model.ReadFramebuffer == fb {
		r.Model.ReadFramebuffer = gl.Framebuffer{}
	}
}

func (r *Recorder) FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int) {
	r.record("FramebufferTexture2D", target, attachment, texTarget, t.V, level)
}

func (r *Recorder) FramebufferRenderbuffer(target, attachment, rbTarget gl.Enum, rb gl.Renderbuffer) {
	r.record("FramebufferRenderbuffer", target, attachment, rbTarget, rb.V)
}

func (r *Recorder) CheckFramebufferStatus(target gl.Enum) gl.Enum {
	r.record("CheckFramebufferStatus", target)
	return gl.FRAMEBUFFER_COMPLETE
}

func (r *Recorder) CreateRenderbuffer() gl.Renderbuffer {
	return gl.Renderbuffer{V: r.create("Renderbuffer")}
}

func (r *Recorder) DeleteRenderbuffer(rb gl.Renderbuffer) {
	r.record("DeleteRenderbuffer", rb.V)
}

func (r *Recorder) RenderbufferStorage(target, internalFormat gl.Enum, width, height int) {
	r.record("RenderbufferStorage", target, internalFormat, width, height)
}

func (r *Recorder) CreateVertexArray() gl.VertexArray {
	return gl.VertexArray{V: r.create("VertexArray")}
}

func (r *Recorder) DeleteVertexArray(a gl.VertexArray) {
	r.record("DeleteVertexArray", a.V)
	delete(r.Model.VertexArrays, a)
	if r.Model.VertexArray == a {
		r.Model.VertexArray = gl.VertexArray{}
	}
}

func (r *Recorder) CreateProgram(vsSrc, fsSrc string, attribs []string) (gl.Program, error) {
	if r.FailProgram {
		r.FailProgram = false
		return gl.Program{}, errors.New("program link failed: recorder")
	}
	return gl.Program{V: r.create("Program")}, nil
}

func (r *Recorder) DeleteProgram(p gl.Program) {
	r.record("DeleteProgram", p.V)
	if r.Model.Program == p {
		r.Model.Program = gl.Program{}
	}
}

// GetUniformLocation returns 0 for every name.
func (r *Recorder) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	r.record("GetUniformLocation", p.V, name)
	return gl.Uniform{}
}

func (r *Recorder) Uniform1i(u gl.Uniform, v int) {
	r.record("Uniform1i", u.V, v)
}

func (r *Recorder) setError(err gl.Enum) {
	if r.err == gl.NO_ERROR {
		r.err = err
	}
}

func (r *Recorder) GetError() gl.Enum {
	err := r.err
	r.err = gl.NO_ERROR
	return err
}
