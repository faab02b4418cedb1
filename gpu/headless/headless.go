// SPDX-License-Identifier: Unlicense OR MIT

// Package headless runs gpu contexts on hidden GLFW windows, for
// rendering to an image without a display surface.
package headless

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"

	"gioui.org/gpustate/gpu"
	"gioui.org/gpustate/gpu/gl"
)

// Window is a hidden window rendering to an off-screen target.
type Window struct {
	size image.Point
	win  *glfw.Window
	ctx  *gl.Context
	tex  *gpu.Texture
	rt   *gpu.RenderTarget
}

var (
	initOnce sync.Once
	initErr  error
	// calls runs functions on the thread that owns GLFW.
	calls chan func()
)

func start() {
	calls = make(chan func())
	ready := make(chan struct{})
	go func() {
		// GLFW and the contexts it creates are bound to one thread.
		runtime.LockOSThread()
		initErr = glfw.Init()
		close(ready)
		for f := range calls {
			f()
		}
	}()
	<-ready
}

// do runs f on the GLFW thread. A panic in f is re-raised in the caller.
func do(f func()) {
	initOnce.Do(start)
	var perr any
	done := make(chan struct{})
	calls <- func() {
		defer close(done)
		defer func() { perr = recover() }()
		f()
	}
	<-done
	if perr != nil {
		panic(perr)
	}
}

// NewWindow creates a window with its own share group.
func NewWindow(width, height int) (*Window, error) {
	return newWindow(width, height, nil)
}

// NewSharedWindow creates a window sharing textures, buffers and
// programs with share.
func NewSharedWindow(width, height int, share *Window) (*Window, error) {
	if share == nil {
		return nil, errors.New("headless: nil share window")
	}
	return newWindow(width, height, share)
}

func newWindow(width, height int, share *Window) (*Window, error) {
	w := &Window{size: image.Pt(width, height)}
	var err error
	do(func() {
		if initErr != nil {
			err = fmt.Errorf("headless: %w", initErr)
			return
		}
		err = w.create(share)
		glfw.DetachCurrentContext()
	})
	if err != nil {
		w.Release()
		return nil, err
	}
	return w, nil
}

// profiles lists the context versions to try, most capable first.
var profiles = []struct {
	major, minor int
	profile      int
	forward      int
}{
	{3, 3, glfw.OpenGLCompatProfile, glfw.False},
	{3, 2, glfw.OpenGLCoreProfile, glfw.True},
}

func (w *Window) create(share *Window) error {
	var shareWin *glfw.Window
	opts := []gpu.Option{gpu.WithViewport(image.Rectangle{Max: w.size})}
	if share != nil {
		shareWin = share.win
		opts = append(opts, gpu.WithShareGroup(share.ctx.ShareGroup()))
	}
	var firstErr error
	for _, p := range profiles {
		glfw.DefaultWindowHints()
		glfw.WindowHint(glfw.Visible, glfw.False)
		glfw.WindowHint(glfw.ContextVersionMajor, p.major)
		glfw.WindowHint(glfw.ContextVersionMinor, p.minor)
		glfw.WindowHint(glfw.OpenGLProfile, p.profile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, p.forward)
		win, err := glfw.CreateWindow(w.size.X, w.size.Y, "headless", nil, shareWin)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		w.win = win
		break
	}
	if w.win == nil {
		return fmt.Errorf("headless: no OpenGL context: %w", firstErr)
	}
	w.win.MakeContextCurrent()
	ctx, err := gl.NewContext(opts...)
	if err != nil {
		return err
	}
	w.ctx = ctx
	tex, err := ctx.NewTexture(gpu.TextureFormatRGBA8, w.size.X, w.size.Y, gpu.FilterNearest, gpu.FilterNearest)
	if err != nil {
		return err
	}
	w.tex = tex
	rt, err := ctx.NewRenderTarget(tex, 24)
	if err != nil {
		return err
	}
	w.rt = rt
	return nil
}

// Size returns the window size.
func (w *Window) Size() image.Point {
	return w.size
}

// Do runs fn with the context of w current and the window contents as
// the render target, then ends the frame.
func (w *Window) Do(fn func(ctx *gpu.Context) error) error {
	var err error
	do(func() {
		w.win.MakeContextCurrent()
		defer glfw.DetachCurrentContext()
		r := w.ctx.Renderer()
		if rerr := r.RenderTargetBlock(w.rt, func() { err = fn(w.ctx.Context) }); rerr != nil {
			err = rerr
			return
		}
		r.EndFrame()
	})
	return err
}

// Screenshot returns the window contents.
func (w *Window) Screenshot() (*image.RGBA, error) {
	img := image.NewRGBA(image.Rectangle{Max: w.size})
	var err error
	do(func() {
		w.win.MakeContextCurrent()
		defer glfw.DetachCurrentContext()
		err = w.ctx.Renderer().ReadRenderTarget(w.rt, img)
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// Release destroys the window and its context.
func (w *Window) Release() {
	if w.win == nil {
		return
	}
	do(func() {
		w.win.MakeContextCurrent()
		if w.rt != nil {
			w.rt.Release()
			w.rt = nil
		}
		if w.tex != nil {
			w.tex.Release()
			w.tex = nil
		}
		if w.ctx != nil {
			w.ctx.Release()
			w.ctx = nil
		}
		glfw.DetachCurrentContext()
		w.win.Destroy()
		w.win = nil
	})
}
