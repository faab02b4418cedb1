// SPDX-License-Identifier: Unlicense OR MIT

// Command glfw draws with a state tracker embedded in a GLFW render
// loop that also issues its own OpenGL calls.
package main

import (
	"image"
	"log"
	"log/slog"
	"os"
	"runtime"
	"unsafe"

	"gioui.org/shader"
	"github.com/go-gl/gl/v3.3-compatibility/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"gioui.org/gpustate/gpu"
	gpugl "gioui.org/gpustate/gpu/gl"
)

var (
	vertexShader = shader.Sources{
		Name: "triangle.vert",
		GLSL100ES: `attribute vec2 pos;
void main() {
	gl_Position = vec4(pos, 0.0, 1.0);
}
`,
		GLSL150: `#version 150
in vec2 pos;
void main() {
	gl_Position = vec4(pos, 0.0, 1.0);
}
`,
		Inputs: []shader.InputLocation{{Name: "pos", Location: 0, Type: shader.DataTypeFloat, Size: 2}},
	}
	fragmentShader = shader.Sources{
		Name: "triangle.frag",
		GLSL100ES: `precision mediump float;
void main() {
	gl_FragColor = vec4(1.0, 0.5, 0.0, 1.0);
}
`,
		GLSL150: `#version 150
out vec4 fragColor;
void main() {
	fragColor = vec4(1.0, 0.5, 0.0, 1.0);
}
`,
	}
	triangle = []float32{
		-0.5, -0.5,
		0.5, -0.5,
		0.0, 0.5,
	}
)

type scene struct {
	prog  *gpu.Program
	verts *gpu.Buffer
	draw  *gpu.CompiledDrawState
}

func main() {
	// Required by the OpenGL threading model.
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		log.Fatal(err)
	}
	defer glfw.Terminate()
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCompatProfile)

	window, err := glfw.CreateWindow(800, 600, "gpustate + GLFW", nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	width, height := window.GetFramebufferSize()
	ctx, err := gpugl.NewContext(
		gpu.WithViewport(image.Rect(0, 0, width, height)),
		// The loop below assumes the driver defaults between frames.
		gpu.WithRestoreDefaults(true),
		gpu.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer ctx.Release()

	s, err := newScene(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer s.release()

	r := ctx.Renderer()
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		r.SetViewport(image.Rect(0, 0, w, h))
	})
	for !window.ShouldClose() {
		glfw.PollEvents()
		// Foreign code must leave the state it changes at the defaults.
		gl.ClearColor(0.2, 0.2, 0.2, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		gl.ClearColor(0, 0, 0, 0)

		if err := r.ApplyCompiled(s.draw); err != nil {
			log.Fatal(err)
		}
		r.EndFrame()
		window.SwapBuffers()
	}
}

func newScene(ctx *gpugl.Context) (*scene, error) {
	prog, err := ctx.NewProgram(vertexShader, fragmentShader)
	if err != nil {
		return nil, err
	}
	verts, err := ctx.NewBuffer(len(triangle)*4, gpu.BufferUsageStatic)
	if err != nil {
		prog.Release()
		return nil, err
	}
	ctx.UploadBuffer(verts, 0, unsafe.Slice((*byte)(unsafe.Pointer(&triangle[0])), len(triangle)*4))
	r := ctx.Renderer()
	draw := r.Record(func() {
		r.BindProgram(prog)
		r.EnableAttrib(0, true)
		r.SetAttribPointer(0, verts, 2, gpu.DataTypeFloat, false, 0, 0)
		r.DrawArrays(gpu.DrawModeTriangles, 0, 3)
	})
	return &scene{prog: prog, verts: verts, draw: draw}, nil
}

func (s *scene) release() {
	s.verts.Release()
	s.prog.Release()
}
