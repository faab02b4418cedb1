// SPDX-License-Identifier: Unlicense OR MIT

// Package opengl implements driver.Functions on the current OpenGL
// context of the calling thread.
package opengl

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unsafe"

	gogl "github.com/go-gl/gl/v3.3-compatibility/gl"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/internal/gl"
)

// Functions calls OpenGL through go-gl. Every method must be called on
// the thread that has the context current.
type Functions struct {
	// pinners keep client vertex arrays in place until the attribute is
	// re-specified.
	pinners map[gl.Attrib]*runtime.Pinner
}

const (
	// OpenGL 3.2 introduced context profiles.
	glProfiles                     = 32
	contextFlags                   = 0x821e
	contextFlagForwardCompatible   = 0x1
	contextProfileMask             = 0x9126
	contextCompatibilityProfileBit = 0x2
	// TEXTURE0 through TEXTURE31 are contiguous.
	maxTextureUnits = 32
)

var _ driver.Functions = (*Functions)(nil)

// New loads the OpenGL entry points of the current context and queries
// its capabilities.
func New() (*Functions, driver.Caps, error) {
	var caps driver.Caps
	if err := gogl.Init(); err != nil {
		return nil, caps, fmt.Errorf("opengl: %w", err)
	}
	ver, gles, err := gl.ParseGLVersion(gogl.GoStr(gogl.GetString(gl.VERSION)))
	if err != nil {
		return nil, caps, err
	}
	exts := extensions(ver)
	caps = driver.Caps{
		BottomLeftOrigin: true,
		GLES:             gles,
		Version:          ver,
		Features:         features(ver, gles, exts),
	}
	units := getInteger(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS)
	if caps.Features.Has(driver.FeatureFixedFunction) {
		// Legacy per-unit state exists only for the fixed function units.
		if n := getInteger(gl.MAX_TEXTURE_UNITS); n > 0 && n < units {
			units = n
		}
	}
	if units > maxTextureUnits {
		units = maxTextureUnits
	}
	caps.Limits = driver.Limits{
		TextureUnits:   units,
		VertexAttribs:  getInteger(gl.MAX_VERTEX_ATTRIBS),
		MaxTextureSize: getInteger(gl.MAX_TEXTURE_SIZE),
	}
	if caps.Features.Has(driver.FeatureFramebufferObjects) {
		caps.Limits.MaxRenderTargetSize = getInteger(gl.MAX_RENDERBUFFER_SIZE)
	}
	if err := caps.Limits.Validate(); err != nil {
		return nil, caps, fmt.Errorf("opengl: %w", err)
	}
	// Drain errors left by queries the context does not know.
	for gogl.GetError() != gl.NO_ERROR {
	}
	f := &Functions{pinners: make(map[gl.Attrib]*runtime.Pinner)}
	return f, caps, nil
}

func features(ver [2]int, gles bool, exts []string) driver.Features {
	var feats driver.Features
	gl30 := ver[0] >= 3
	if gl30 || gl.HasExtension(exts, "GL_ARB_framebuffer_object") {
		feats |= driver.FeatureFramebufferObjects | driver.FeatureDepthRenderbuffers
	}
	if gl30 || gl.HasExtension(exts, "GL_ARB_vertex_array_object") || gl.HasExtension(exts, "GL_OES_vertex_array_object") {
		feats |= driver.FeatureVertexArrayObjects
	}
	if gl30 || gl.HasExtension(exts, "GL_ARB_framebuffer_sRGB") || gl.HasExtension(exts, "GL_EXT_framebuffer_sRGB") {
		feats |= driver.FeatureSRGB
	}
	if gl30 || gl.HasExtension(exts, "GL_ARB_color_buffer_float") || gl.HasExtension(exts, "GL_EXT_color_buffer_half_float") {
		feats |= driver.FeatureFloatRenderTargets
	}
	if !gles {
		legacy := ver[0]*10+ver[1] < glProfiles
		if !legacy {
			legacy = getInteger(contextProfileMask)&contextCompatibilityProfileBit != 0 &&
				getInteger(contextFlags)&contextFlagForwardCompatible == 0
		}
		if legacy {
			feats |= driver.FeatureFixedFunction
		}
	}
	return feats
}

func extensions(ver [2]int) []string {
	if ver[0] < 3 {
		return gl.SplitExtensions(gogl.GoStr(gogl.GetString(gl.EXTENSIONS)))
	}
	n := getInteger(gl.NUM_EXTENSIONS)
	exts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		exts = append(exts, gogl.GoStr(gogl.GetStringi(gl.EXTENSIONS, uint32(i))))
	}
	return exts
}

func getInteger(pname gl.Enum) int {
	var v int32
	gogl.GetIntegerv(uint32(pname), &v)
	return int(v)
}

func ptr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// Release unpins the client vertex arrays.
func (f *Functions) Release() {
	for _, p := range f.pinners {
		p.Unpin()
	}
	f.pinners = make(map[gl.Attrib]*runtime.Pinner)
}

func (f *Functions) Enable(cap gl.Enum)  { gogl.Enable(uint32(cap)) }
func (f *Functions) Disable(cap gl.Enum) { gogl.Disable(uint32(cap)) }

func (f *Functions) ActiveTexture(texture gl.Enum) { gogl.ActiveTexture(uint32(texture)) }

func (f *Functions) MatrixMode(mode gl.Enum) { gogl.MatrixMode(uint32(mode)) }

func (f *Functions) LoadMatrixf(m *[16]float32) { gogl.LoadMatrixf(&m[0]) }

func (f *Functions) BindTexture(target gl.Enum, t gl.Texture) {
	gogl.BindTexture(uint32(target), uint32(t.V))
}

func (f *Functions) BindBuffer(target gl.Enum, b gl.Buffer) {
	gogl.BindBuffer(uint32(target), uint32(b.V))
}

func (f *Functions) BindFramebuffer(target gl.Enum, fb gl.Framebuffer) {
	gogl.BindFramebuffer(uint32(target), uint32(fb.V))
}

func (f *Functions) BindRenderbuffer(target gl.Enum, rb gl.Renderbuffer) {
	gogl.BindRenderbuffer(uint32(target), uint32(rb.V))
}

func (f *Functions) BindVertexArray(a gl.VertexArray) { gogl.BindVertexArray(uint32(a.V)) }

func (f *Functions) UseProgram(p gl.Program) { gogl.UseProgram(uint32(p.V)) }

func (f *Functions) BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA gl.Enum) {
	gogl.BlendFuncSeparate(uint32(srcRGB), uint32(dstRGB), uint32(srcA), uint32(dstA))
}

func (f *Functions) BlendEquationSeparate(modeRGB, modeA gl.Enum) {
	gogl.BlendEquationSeparate(uint32(modeRGB), uint32(modeA))
}

func (f *Functions) BlendColor(r, g, b, a float32) { gogl.BlendColor(r, g, b, a) }

func (f *Functions) DepthFunc(fn gl.Enum) { gogl.DepthFunc(uint32(fn)) }

func (f *Functions) DepthMask(mask bool) { gogl.DepthMask(mask) }

func (f *Functions) StencilFunc(fn gl.Enum, ref int32, mask uint32) {
	gogl.StencilFunc(uint32(fn), ref, mask)
}

func (f *Functions) StencilOp(sfail, dpfail, dppass gl.Enum) {
	gogl.StencilOp(uint32(sfail), uint32(dpfail), uint32(dppass))
}

func (f *Functions) StencilMask(mask uint32) { gogl.StencilMask(mask) }

func (f *Functions) CullFace(mode gl.Enum) { gogl.CullFace(uint32(mode)) }

func (f *Functions) FrontFace(mode gl.Enum) { gogl.FrontFace(uint32(mode)) }

func (f *Functions) Scissor(x, y, width, height int32) { gogl.Scissor(x, y, width, height) }

func (f *Functions) Viewport(x, y, width, height int32) { gogl.Viewport(x, y, width, height) }

func (f *Functions) ColorMask(r, g, b, a bool) { gogl.ColorMask(r, g, b, a) }

func (f *Functions) ClearColor(r, g, b, a float32) { gogl.ClearColor(r, g, b, a) }

func (f *Functions) ClearDepthf(d float32) { gogl.ClearDepth(float64(d)) }

func (f *Functions) ClearStencil(s int32) { gogl.ClearStencil(s) }

func (f *Functions) PolygonOffset(factor, units float32) { gogl.PolygonOffset(factor, units) }

func (f *Functions) LineWidth(width float32) { gogl.LineWidth(width) }

func (f *Functions) EnableVertexAttribArray(a gl.Attrib) { gogl.EnableVertexAttribArray(uint32(a)) }

func (f *Functions) DisableVertexAttribArray(a gl.Attrib) { gogl.DisableVertexAttribArray(uint32(a)) }

func (f *Functions) VertexAttribPointer(a gl.Attrib, size int, typ gl.Enum, normalized bool, stride int, offset uintptr) {
	f.unpin(a)
	gogl.VertexAttribPointerWithOffset(uint32(a), int32(size), uint32(typ), normalized, int32(stride), offset)
}

func (f *Functions) VertexAttribClientPointer(a gl.Attrib, size int, typ gl.Enum, normalized bool, stride int, data []byte) {
	if len(data) == 0 {
		panic("opengl: empty client vertex array")
	}
	f.unpin(a)
	p := f.pinners[a]
	if p == nil {
		p = new(runtime.Pinner)
		f.pinners[a] = p
	}
	p.Pin(&data[0])
	gogl.VertexAttribPointer(uint32(a), int32(size), uint32(typ), normalized, int32(stride), unsafe.Pointer(&data[0]))
}

func (f *Functions) unpin(a gl.Attrib) {
	if p := f.pinners[a]; p != nil {
		p.Unpin()
	}
}

func (f *Functions) Clear(mask gl.Enum) { gogl.Clear(uint32(mask)) }

func (f *Functions) DrawArrays(mode gl.Enum, first, count int) {
	gogl.DrawArrays(uint32(mode), int32(first), int32(count))
}

func (f *Functions) DrawElements(mode gl.Enum, count int, typ gl.Enum, offset int) {
	gogl.DrawElementsWithOffset(uint32(mode), int32(count), uint32(typ), uintptr(offset))
}

func (f *Functions) ReadPixels(x, y, width, height int, format, typ gl.Enum, pixels []byte) {
	gogl.ReadPixels(int32(x), int32(y), int32(width), int32(height), uint32(format), uint32(typ), ptr(pixels))
}

func (f *Functions) CopyTexSubImage2D(target gl.Enum, level, xoff, yoff, x, y, width, height int) {
	gogl.CopyTexSubImage2D(uint32(target), int32(level), int32(xoff), int32(yoff), int32(x), int32(y), int32(width), int32(height))
}

func (f *Functions) CreateTexture() gl.Texture {
	var t uint32
	gogl.GenTextures(1, &t)
	return gl.Texture{V: uint(t)}
}

func (f *Functions) DeleteTexture(t gl.Texture) {
	v := uint32(t.V)
	gogl.DeleteTextures(1, &v)
}

func (f *Functions) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, typ gl.Enum, pixels []byte) {
	gogl.TexImage2D(uint32(target), int32(level), int32(internalFormat), int32(width), int32(height), 0, uint32(format), uint32(typ), ptr(pixels))
}

func (f *Functions) TexSubImage2D(target gl.Enum, level, x, y, width, height int, format, typ gl.Enum, pixels []byte) {
	gogl.TexSubImage2D(uint32(target), int32(level), int32(x), int32(y), int32(width), int32(height), uint32(format), uint32(typ), ptr(pixels))
}

func (f *Functions) TexParameteri(target, pname gl.Enum, param int) {
	gogl.TexParameteri(uint32(target), uint32(pname), int32(param))
}

func (f *Functions) CreateBuffer() gl.Buffer {
	var b uint32
	gogl.GenBuffers(1, &b)
	return gl.Buffer{V: uint(b)}
}

func (f *Functions) DeleteBuffer(b gl.Buffer) {
	v := uint32(b.V)
	gogl.DeleteBuffers(1, &v)
}

func (f *Functions) BufferData(target gl.Enum, size int, data []byte, usage gl.Enum) {
	gogl.BufferData(uint32(target), size, ptr(data), uint32(usage))
}

func (f *Functions) BufferSubData(target gl.Enum, offset int, data []byte) {
	gogl.BufferSubData(uint32(target), offset, len(data), ptr(data))
}

func (f *Functions) CreateFramebuffer() gl.Framebuffer {
	var fb uint32
	gogl.GenFramebuffers(1, &fb)
	return gl.Framebuffer{V: uint(fb)}
}

func (f *Functions) DeleteFramebuffer(fb gl.Framebuffer) {
	v := uint32(fb.V)
	gogl.DeleteFramebuffers(1, &v)
}

func (f *Functions) FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int) {
	gogl.FramebufferTexture2D(uint32(target), uint32(attachment), uint32(texTarget), uint32(t.V), int32(level))
}

func (f *Functions) FramebufferRenderbuffer(target, attachment, rbTarget gl.Enum, rb gl.Renderbuffer) {
	gogl.FramebufferRenderbuffer(uint32(target), uint32(attachment), uint32(rbTarget), uint32(rb.V))
}

func (f *Functions) CheckFramebufferStatus(target gl.Enum) gl.Enum {
	return gl.Enum(gogl.CheckFramebufferStatus(uint32(target)))
}

func (f *Functions) CreateRenderbuffer() gl.Renderbuffer {
	var rb uint32
	gogl.GenRenderbuffers(1, &rb)
	return gl.Renderbuffer{V: uint(rb)}
}

func (f *Functions) DeleteRenderbuffer(rb gl.Renderbuffer) {
	v := uint32(rb.V)
	gogl.DeleteRenderbuffers(1, &v)
}

func (f *Functions) RenderbufferStorage(target, internalFormat gl.Enum, width, height int) {
	gogl.RenderbufferStorage(uint32(target), uint32(internalFormat), int32(width), int32(height))
}

func (f *Functions) CreateVertexArray() gl.VertexArray {
	var a uint32
	gogl.GenVertexArrays(1, &a)
	return gl.VertexArray{V: uint(a)}
}

func (f *Functions) DeleteVertexArray(a gl.VertexArray) {
	v := uint32(a.V)
	gogl.DeleteVertexArrays(1, &v)
}

func (f *Functions) CreateProgram(vsSrc, fsSrc string, attribs []string) (gl.Program, error) {
	vs, err := createShader(gl.VERTEX_SHADER, vsSrc)
	if err != nil {
		return gl.Program{}, err
	}
	defer gogl.DeleteShader(vs)
	fs, err := createShader(gl.FRAGMENT_SHADER, fsSrc)
	if err != nil {
		return gl.Program{}, err
	}
	defer gogl.DeleteShader(fs)
	prog := gogl.CreateProgram()
	if prog == 0 {
		return gl.Program{}, errors.New("glCreateProgram failed")
	}
	gogl.AttachShader(prog, vs)
	gogl.AttachShader(prog, fs)
	for i, a := range attribs {
		if a == "" {
			continue
		}
		name, free := gogl.Strs(a + "\x00")
		gogl.BindAttribLocation(prog, uint32(i), *name)
		free()
	}
	gogl.LinkProgram(prog)
	var status int32
	gogl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gogl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &n)
		log := strings.Repeat("\x00", int(n)+1)
		gogl.GetProgramInfoLog(prog, n, nil, gogl.Str(log))
		gogl.DeleteProgram(prog)
		return gl.Program{}, fmt.Errorf("program link failed: %s", strings.TrimSpace(strings.TrimRight(log, "\x00")))
	}
	return gl.Program{V: uint(prog)}, nil
}

func createShader(typ gl.Enum, src string) (uint32, error) {
	sh := gogl.CreateShader(uint32(typ))
	if sh == 0 {
		return 0, errors.New("glCreateShader failed")
	}
	csrc, free := gogl.Strs(src + "\x00")
	gogl.ShaderSource(sh, 1, csrc, nil)
	free()
	gogl.CompileShader(sh)
	var status int32
	gogl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gogl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &n)
		log := strings.Repeat("\x00", int(n)+1)
		gogl.GetShaderInfoLog(sh, n, nil, gogl.Str(log))
		gogl.DeleteShader(sh)
		return 0, fmt.Errorf("shader compilation failed: %s", strings.TrimSpace(strings.TrimRight(log, "\x00")))
	}
	return sh, nil
}

func (f *Functions) DeleteProgram(p gl.Program) { gogl.DeleteProgram(uint32(p.V)) }

func (f *Functions) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	cname, free := gogl.Strs(name + "\x00")
	defer free()
	return gl.Uniform{V: int(gogl.GetUniformLocation(uint32(p.V), *cname))}
}

func (f *Functions) Uniform1i(u gl.Uniform, v int) { gogl.Uniform1i(int32(u.V), int32(v)) }

func (f *Functions) GetError() gl.Enum { return gl.Enum(gogl.GetError()) }
