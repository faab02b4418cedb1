// SPDX-License-Identifier: Unlicense OR MIT

// Package gpu tracks OpenGL state for a set of contexts. Callers declare
// the state they want through a Renderer; the Renderer issues the
// smallest set of driver calls that produces it, right before each draw.
package gpu

import (
	"fmt"
	"log/slog"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"gioui.org/gpustate/gpu/internal/cache"
	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/gpu/internal/state"
	"gioui.org/gpustate/internal/gl"
)

// ShareGroup is a set of contexts sharing textures, buffers and programs.
type ShareGroup struct {
	textures *cache.Cache[TextureKey, *Texture]
	buffers  *cache.Cache[BufferKey, *Buffer]
	programs *cache.Cache[ProgramKey, *Program]

	// contexts maps the live contexts of the group by id. Resources refer
	// to contexts by id only.
	contexts map[state.ContextID]*Context
	nextID   state.ContextID
}

// Context is the state tracker of one driver context. All methods must
// be called with the context current on the calling thread.
type Context struct {
	id    state.ContextID
	group *ShareGroup
	funcs driver.Functions
	caps  driver.Caps
	cnf   Config
	log   *slog.Logger

	layout  *state.Layout
	pool    *state.Pool
	applier state.Applier
	// last is the State of the driver as of the most recent application.
	last       *state.State
	shadows    map[gl.VertexArray]*state.State
	defaultVAO gl.VertexArray

	framebuffers *cache.Cache[fboKey, *framebuffer]
	vertexArrays *cache.Cache[vaoKey, gl.VertexArray]
	// deletions holds the destruction of objects of this context
	// requested while another context was current.
	deletions []func()
	warned    map[string]bool

	renderer *Renderer
	released bool
}

// NewShareGroup returns an empty group. Only the logger and frame
// retention options apply.
func NewShareGroup(opts ...Option) *ShareGroup {
	cnf := newConfig(opts)
	return newShareGroup(cnf)
}

func newShareGroup(cnf Config) *ShareGroup {
	copts := cache.Options{Retention: cnf.FrameRetention, Logger: cnf.Logger}
	return &ShareGroup{
		textures: cache.New("textures", cache.Shared, func(t *Texture) TextureKey { return t.key }, copts),
		buffers:  cache.New("buffers", cache.Shared, func(b *Buffer) BufferKey { return b.key }, copts),
		programs: cache.New("programs", cache.Shared, func(p *Program) ProgramKey { return p.key }, copts),
		contexts: make(map[state.ContextID]*Context),
	}
}

// Contexts returns the live contexts of the group in creation order.
func (g *ShareGroup) Contexts() []*Context {
	ids := maps.Keys(g.contexts)
	slices.Sort(ids)
	ctxs := make([]*Context, len(ids))
	for i, id := range ids {
		ctxs[i] = g.contexts[id]
	}
	return ctxs
}

func (g *ShareGroup) add(c *Context) {
	g.nextID++
	c.id = g.nextID
	g.contexts[c.id] = c
}

// NewContext returns the state tracker for the driver context f, which
// must be current and in its default state. caps is the result of the
// driver's capability query.
func NewContext(f driver.Functions, caps driver.Caps, opts ...Option) (*Context, error) {
	if err := caps.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("gpu: %w", err)
	}
	cnf := newConfig(opts)
	g := cnf.ShareGroup
	if g == nil {
		g = newShareGroup(cnf)
	}
	vp := cnf.Viewport
	layout := state.NewLayout(caps, state.Defaults{
		Viewport: [4]int32{int32(vp.Min.X), int32(vp.Min.Y), int32(vp.Dx()), int32(vp.Dy())},
	})
	c := &Context{
		group:   g,
		funcs:   f,
		caps:    caps,
		cnf:     cnf,
		layout:  layout,
		pool:    state.NewPool(layout),
		last:    layout.NewState(),
		shadows: make(map[gl.VertexArray]*state.State),
		warned:  make(map[string]bool),
	}
	g.add(c)
	c.log = cnf.Logger.With("context", int(c.id))
	copts := cache.Options{Retention: cnf.FrameRetention, Logger: c.log}
	c.framebuffers = cache.New("framebuffers", cache.NonShared, func(fb *framebuffer) fboKey { return fb.key }, copts)
	c.vertexArrays = cache.New("vertex arrays", cache.NonShared, func(gl.VertexArray) vaoKey { return vaoKey{} }, copts)
	c.applier = state.Applier{Layout: layout, Funcs: f}
	if caps.Features.Has(driver.FeatureVertexArrayObjects) {
		c.applier.Shadows = c
	}
	// Core profiles have no usable zero vertex array. Compatibility
	// contexts keep it, because client memory vertex pointers are only
	// legal while it is bound.
	if c.applier.Shadows != nil && !caps.Features.Has(driver.FeatureFixedFunction) {
		c.defaultVAO = f.CreateVertexArray()
		if err := glErr(f, "create default vertex array"); err != nil {
			delete(g.contexts, c.id)
			return nil, err
		}
		c.applier.DefaultVertexArray = c.defaultVAO
		// Bind it now so last matches the driver.
		f.BindVertexArray(c.defaultVAO)
	}
	c.renderer = newRenderer(c)
	c.log.Debug("context created",
		"version", fmt.Sprintf("%d.%d", caps.Version[0], caps.Version[1]),
		"gles", caps.GLES,
		"slots", layout.Count(),
		"units", caps.Limits.TextureUnits,
		"attribs", caps.Limits.VertexAttribs,
	)
	return c, nil
}

// ShareGroup returns the group of c.
func (c *Context) ShareGroup() *ShareGroup { return c.group }

func (c *Context) Caps() driver.Caps { return c.caps }

// Renderer returns the state stack of c.
func (c *Context) Renderer() *Renderer { return c.renderer }

// Shadow implements state.Shadows.
func (c *Context) Shadow(a gl.VertexArray) *state.State {
	s, ok := c.shadows[a]
	if !ok {
		s = c.layout.NewState()
		c.shadows[a] = s
	}
	return s
}

func (c *Context) applyOne(set *state.Set) {
	c.applier.ApplyOne(c.last, set)
}

func (c *Context) warnOnce(key, msg string, args ...any) {
	if c.warned[key] {
		return
	}
	c.warned[key] = true
	c.log.Warn(msg, args...)
}

// deleteLater queues fn to run the next time c is current.
func (c *Context) deleteLater(fn func()) {
	c.deletions = append(c.deletions, fn)
}

func (c *Context) drainDeletions() {
	for i, fn := range c.deletions {
		fn()
		c.deletions[i] = nil
	}
	c.deletions = c.deletions[:0]
}

// frame runs the deferred deletions and ages the caches.
func (c *Context) frame() {
	c.drainDeletions()
	c.framebuffers.Frame(c.destroyFramebuffer)
	c.vertexArrays.Frame(c.destroyVertexArray)
	g := c.group
	g.textures.Frame(c.destroyTexture)
	g.buffers.Frame(c.destroyBuffer)
	g.programs.Frame(c.destroyProgram)
}

// Invalidate forgets the tracked driver state. Use it after foreign code
// changed the driver state behind the tracker's back.
func (c *Context) Invalidate() {
	c.last.Invalidate()
	for _, s := range c.shadows {
		s.InvalidateSlots(c.layout.VertexArraySlots())
	}
	c.log.Debug("driver state invalidated")
}

// Release destroys the objects local to c. The shared objects are
// destroyed with the last context of the group.
func (c *Context) Release() {
	if c.released {
		return
	}
	c.drainDeletions()
	c.framebuffers.Release(c.destroyFramebuffer)
	c.vertexArrays.Release(c.destroyVertexArray)
	if c.defaultVAO.Valid() {
		c.funcs.DeleteVertexArray(c.defaultVAO)
	}
	g := c.group
	delete(g.contexts, c.id)
	if len(g.contexts) == 0 {
		g.textures.Release(c.destroyTexture)
		g.buffers.Release(c.destroyBuffer)
		g.programs.Release(c.destroyProgram)
	}
	c.pool.Release()
	c.released = true
	c.log.Debug("context released")
}

// scrubAll marks the bindings matching pred unknown in the tracked state
// of every context of the group, including vertex array shadows.
func (g *ShareGroup) scrubAll(pred func(*state.Set) bool, shadows bool) {
	for _, ctx := range g.contexts {
		ctx.last.Scrub(pred)
		if !shadows {
			continue
		}
		for _, s := range ctx.shadows {
			s.Scrub(pred)
		}
	}
}
