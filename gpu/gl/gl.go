// SPDX-License-Identifier: Unlicense OR MIT

// Package gl attaches state trackers to OpenGL contexts made current by
// other code, such as a GLFW or SDL window.
package gl

import (
	"gioui.org/gpustate/gpu"
	"gioui.org/gpustate/gpu/internal/opengl"
)

// Context is a gpu.Context driving the OpenGL context that was current
// when it was created.
type Context struct {
	*gpu.Context
	funcs *opengl.Functions
}

// NewContext returns a state tracker for the OpenGL context current on
// the calling thread. The driver must be in its default state, or the
// caller must Invalidate the Context before its first use.
func NewContext(opts ...gpu.Option) (*Context, error) {
	funcs, caps, err := opengl.New()
	if err != nil {
		return nil, err
	}
	ctx, err := gpu.NewContext(funcs, caps, opts...)
	if err != nil {
		funcs.Release()
		return nil, err
	}
	return &Context{Context: ctx, funcs: funcs}, nil
}

// Release releases the tracker. The OpenGL context must be current.
func (c *Context) Release() {
	c.Context.Release()
	c.funcs.Release()
}
