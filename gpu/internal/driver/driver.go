// SPDX-License-Identifier: Unlicense OR MIT

package driver

import "gioui.org/gpustate/internal/gl"

// Functions is the driver call surface. Every method maps to exactly one
// OpenGL entry point with unmanaged semantics; redundant call elision is
// the responsibility of the caller.
type Functions interface {
	Enable(cap gl.Enum)
	Disable(cap gl.Enum)
	ActiveTexture(texture gl.Enum)
	MatrixMode(mode gl.Enum)
	LoadMatrixf(m *[16]float32)
	BindTexture(target gl.Enum, t gl.Texture)
	BindBuffer(target gl.Enum, b gl.Buffer)
	BindFramebuffer(target gl.Enum, fb gl.Framebuffer)
	BindRenderbuffer(target gl.Enum, rb gl.Renderbuffer)
	BindVertexArray(a gl.VertexArray)
	UseProgram(p gl.Program)
	BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA gl.Enum)
	BlendEquationSeparate(modeRGB, modeA gl.Enum)
	BlendColor(r, g, b, a float32)
	DepthFunc(fn gl.Enum)
	DepthMask(mask bool)
	StencilFunc(fn gl.Enum, ref int32, mask uint32)
	StencilOp(sfail, dpfail, dppass gl.Enum)
	StencilMask(mask uint32)
	CullFace(mode gl.Enum)
	FrontFace(mode gl.Enum)
	Scissor(x, y, width, height int32)
	Viewport(x, y, width, height int32)
	ColorMask(r, g, b, a bool)
	ClearColor(r, g, b, a float32)
	ClearDepthf(d float32)
	ClearStencil(s int32)
	PolygonOffset(factor, units float32)
	LineWidth(width float32)
	EnableVertexAttribArray(a gl.Attrib)
	DisableVertexAttribArray(a gl.Attrib)
	// VertexAttribPointer specifies an attribute sourced from the buffer
	// currently bound to ARRAY_BUFFER.
	VertexAttribPointer(a gl.Attrib, size int, typ gl.Enum, normalized bool, stride int, offset uintptr)
	// VertexAttribClientPointer specifies an attribute sourced from client
	// memory. The driver reads data at draw time, not at call time.
	VertexAttribClientPointer(a gl.Attrib, size int, typ gl.Enum, normalized bool, stride int, data []byte)

	Clear(mask gl.Enum)
	DrawArrays(mode gl.Enum, first, count int)
	DrawElements(mode gl.Enum, count int, typ gl.Enum, offset int)
	ReadPixels(x, y, width, height int, format, typ gl.Enum, pixels []byte)
	CopyTexSubImage2D(target gl.Enum, level, xoff, yoff, x, y, width, height int)

	CreateTexture() gl.Texture
	DeleteTexture(t gl.Texture)
	TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, typ gl.Enum, pixels []byte)
	TexSubImage2D(target gl.Enum, level, x, y, width, height int, format, typ gl.Enum, pixels []byte)
	TexParameteri(target, pname gl.Enum, param int)
	CreateBuffer() gl.Buffer
	DeleteBuffer(b gl.Buffer)
	BufferData(target gl.Enum, size int, data []byte, usage gl.Enum)
	BufferSubData(target gl.Enum, offset int, data []byte)
	CreateFramebuffer() gl.Framebuffer
	DeleteFramebuffer(fb gl.Framebuffer)
	FramebufferTexture2D(target, attachment, texTarget gl.Enum, t gl.Texture, level int)
	FramebufferRenderbuffer(target, attachment, rbTarget gl.Enum, rb gl.Renderbuffer)
	CheckFramebufferStatus(target gl.Enum) gl.Enum
	CreateRenderbuffer() gl.Renderbuffer
	DeleteRenderbuffer(rb gl.Renderbuffer)
	RenderbufferStorage(target, internalFormat gl.Enum, width, height int)
	CreateVertexArray() gl.VertexArray
	DeleteVertexArray(a gl.VertexArray)
	// CreateProgram compiles and links a program, binding attribs[i] to
	// attribute location i.
	CreateProgram(vsSrc, fsSrc string, attribs []string) (gl.Program, error)
	DeleteProgram(p gl.Program)
	GetUniformLocation(p gl.Program, name string) gl.Uniform
	// Uniform1i sets an integer uniform of the program in use.
	Uniform1i(u gl.Uniform, v int)
	GetError() gl.Enum
}
