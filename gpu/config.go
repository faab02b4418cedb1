// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"image"
	"log/slog"
)

// Config holds the settings of a Context. Use the With* options to
// change them.
type Config struct {
	// Logger overrides the package logger for the Context.
	Logger *slog.Logger
	// ShareGroup is the group the Context joins. A nil group creates a
	// new one.
	ShareGroup *ShareGroup
	// Viewport is the default viewport and scissor rectangle, usually
	// the bounds of the drawable.
	Viewport image.Rectangle
	// RestoreDefaults makes EndFrame reset the driver to its default
	// state, for embedding in code that assumes defaults.
	RestoreDefaults bool
	// FrameRetention is the number of frames a recycled resource is kept
	// before it is destroyed.
	FrameRetention int
}

// Option configures a Context.
type Option func(cnf *Config)

const defaultFrameRetention = 2

func WithLogger(l *slog.Logger) Option {
	return func(cnf *Config) {
		cnf.Logger = l
	}
}

// WithShareGroup makes the Context share textures, buffers and programs
// with the other contexts of g.
func WithShareGroup(g *ShareGroup) Option {
	return func(cnf *Config) {
		cnf.ShareGroup = g
	}
}

// WithViewport sets the default viewport, usually the drawable size.
func WithViewport(r image.Rectangle) Option {
	return func(cnf *Config) {
		cnf.Viewport = r
	}
}

func WithRestoreDefaults(restore bool) Option {
	return func(cnf *Config) {
		cnf.RestoreDefaults = restore
	}
}

// WithFrameRetention sets how many frames recycled resources survive.
// Framebuffers and vertex arrays age with the EndFrame of their context.
// Textures, buffers and programs age with the EndFrame of every context in
// the share group, so with n contexts ending one frame each they survive
// about frames/n rounds of rendering.
func WithFrameRetention(frames int) Option {
	return func(cnf *Config) {
		if frames < 0 {
			panic("gpu: negative frame retention")
		}
		cnf.FrameRetention = frames
	}
}

func newConfig(opts []Option) Config {
	cnf := Config{FrameRetention: defaultFrameRetention}
	for _, o := range opts {
		o(&cnf)
	}
	if cnf.Logger == nil {
		cnf.Logger = Logger()
	}
	return cnf
}
