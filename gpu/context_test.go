// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"errors"
	"image"
	"testing"

	"gioui.org/shader"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/gpu/internal/driver/drivertest"
	"gioui.org/gpustate/internal/gl"
)

func TestSharedContexts(t *testing.T) {
	g := NewShareGroup()
	rec1, rec2 := drivertest.New(), drivertest.New()
	vp := WithViewport(image.Rect(0, 0, 100, 100))
	ctx1, err := NewContext(rec1, drivertest.Caps(), WithShareGroup(g), vp)
	if err != nil {
		t.Fatal(err)
	}
	ctx2, err := NewContext(rec2, drivertest.Caps(), WithShareGroup(g), vp)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(g.Contexts()); n != 2 {
		t.Fatalf("got %d contexts, want 2", n)
	}
	if ctx1.ShareGroup() != ctx2.ShareGroup() {
		t.Fatal("contexts in different groups")
	}
	tex, err := ctx1.NewTexture(TextureFormatRGBA8, 32, 32, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := ctx1.NewRenderTarget(tex, 0)
	if err != nil {
		t.Fatal(err)
	}
	r1 := ctx1.Renderer()
	cds := r1.Record(func() {
		if err := r1.BeginRenderTarget(rt); err != nil {
			t.Fatal(err)
		}
		r1.Clear(ClearColorBuffer)
		r1.EndRenderTarget()
	})
	rec2.Reset()
	if err := ctx2.Renderer().ApplyCompiled(cds); err != nil {
		t.Fatal(err)
	}
	if n := rec2.Count("CreateFramebuffer"); n != 1 {
		t.Errorf("got %d framebuffers in the second context, want 1", n)
	}
	fb2, ok := rt.fbos[ctx2.id]
	if !ok {
		t.Fatal("no framebuffer resolved for the second context")
	}
	if got := rec2.Model.DrawFramebuffer; got != fb2.obj {
		t.Errorf("second context drew to framebuffer %v, want %v", got, fb2.obj)
	}
	if n := rec2.Count("Clear"); n != 1 {
		t.Errorf("got %d clears, want 1", n)
	}

	ctx1.Release()
	if n := rec1.Count("DeleteTexture"); n != 0 {
		t.Errorf("shared texture deleted while the group is alive")
	}
	if n := len(g.Contexts()); n != 1 {
		t.Errorf("got %d contexts after release, want 1", n)
	}
	rec2.Reset()
	ctx2.Release()
	if n := rec2.Count("DeleteTexture"); n != 1 {
		t.Errorf("got %d texture deletions with the last context, want 1", n)
	}
	if n := rec2.Count("DeleteFramebuffer"); n != 1 {
		t.Errorf("got %d framebuffer deletions, want 1", n)
	}
}

func TestSharedRetention(t *testing.T) {
	g := NewShareGroup(WithFrameRetention(1))
	rec1, rec2 := drivertest.New(), drivertest.New()
	ctx1, err := NewContext(rec1, drivertest.Caps(), WithShareGroup(g))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx1.Release()
	ctx2, err := NewContext(rec2, drivertest.Caps(), WithShareGroup(g))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx2.Release()
	tex, err := ctx1.NewTexture(TextureFormatRGBA8, 8, 8, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	tex.Release()
	// Shared resources age once per context frame.
	ctx1.Renderer().EndFrame()
	ctx2.Renderer().EndFrame()
	if n := rec1.Count("DeleteTexture") + rec2.Count("DeleteTexture"); n != 1 {
		t.Errorf("got %d texture deletions after one frame of each context, want 1", n)
	}
}

func TestIncompatibleReplay(t *testing.T) {
	ctx1, _ := newTestContext(t)
	caps := drivertest.Caps()
	caps.Limits.TextureUnits = 2
	ctx2, _ := newTestContextCaps(t, caps)
	r1 := ctx1.Renderer()
	cds := r1.Record(func() {
		r1.DrawArrays(DrawModeTriangles, 0, 3)
	})
	mustPanic(t, "replay in an incompatible context", func() {
		ctx2.Renderer().ApplyCompiled(cds)
	})
}

func TestDriverError(t *testing.T) {
	ctx, rec := newTestContext(t)
	rec.FailCreate = true
	_, err := ctx.NewTexture(TextureFormatRGBA8, 16, 16, FilterNearest, FilterNearest)
	var derr *DriverError
	if !errors.As(err, &derr) {
		t.Fatalf("got error %v, want a driver error", err)
	}
	if derr.Code != gl.OUT_OF_MEMORY {
		t.Errorf("got error code 0x%x, want GL_OUT_OF_MEMORY", uint(derr.Code))
	}
	if n := rec.Count("DeleteTexture"); n != 1 {
		t.Errorf("failed texture not deleted")
	}
}

func TestUnsupported(t *testing.T) {
	caps := drivertest.Caps()
	caps.Features &^= driver.FeatureSRGB | driver.FeatureFramebufferObjects | driver.FeatureVertexArrayObjects
	ctx, _ := newTestContextCaps(t, caps)
	if _, err := ctx.NewTexture(TextureFormatSRGBA, 16, 16, FilterNearest, FilterNearest); !errors.Is(err, ErrUnsupported) {
		t.Errorf("sRGB texture: got error %v, want ErrUnsupported", err)
	}
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 16, 16, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.NewRenderTarget(tex, 0); !errors.Is(err, ErrUnsupported) {
		t.Errorf("render target: got error %v, want ErrUnsupported", err)
	}
	if _, err := ctx.NewVertexArray(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("vertex array: got error %v, want ErrUnsupported", err)
	}
	if _, err := ctx.NewTexture(TextureFormatRGBA8, 0, 16, FilterNearest, FilterNearest); err == nil {
		t.Error("empty texture created")
	}
}

func TestInvalidLimits(t *testing.T) {
	caps := drivertest.Caps()
	caps.Limits.TextureUnits = 0
	if _, err := NewContext(drivertest.New(), caps); err == nil {
		t.Error("context created without texture units")
	}
}

func TestNewProgram(t *testing.T) {
	ctx, rec := newTestContext(t)
	vs := shader.Sources{
		Name:    "blit.vert",
		GLSL150: "#version 150\nin vec2 pos;\nvoid main() {}",
		Inputs:  []shader.InputLocation{{Name: "pos", Location: 0}},
	}
	fs := shader.Sources{
		Name:     "blit.frag",
		GLSL150:  "#version 150\nuniform sampler2D tex;\nvoid main() {}",
		Textures: []shader.TextureBinding{{Name: "tex", Binding: 1}},
	}
	p, err := ctx.NewProgram(vs, fs)
	if err != nil {
		t.Fatal(err)
	}
	if n := rec.Count("Uniform1i"); n != 1 {
		t.Errorf("got %d sampler bindings, want 1", n)
	}
	r := ctx.Renderer()
	r.BindProgram(p)
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if got := rec.Model.Program; got != p.obj {
		t.Errorf("got program %v, want %v", got, p.obj)
	}

	es := shader.Sources{Name: "es.vert", GLSL100ES: "void main() {}"}
	if _, err := ctx.NewProgram(es, es); !errors.Is(err, ErrUnsupported) {
		t.Errorf("got error %v, want ErrUnsupported", err)
	}
	rec.FailProgram = true
	if _, err := ctx.NewProgram(shader.Sources{Name: "a", GLSL150: "x"}, shader.Sources{Name: "b", GLSL150: "y"}); err == nil {
		t.Error("link failure not reported")
	}
}

func TestDeletedProgramIsScrubbed(t *testing.T) {
	ctx, rec := newTestContext(t, WithFrameRetention(0))
	src := shader.Sources{Name: "s", GLSL150: "void main() {}"}
	p, err := ctx.NewProgram(src, src)
	if err != nil {
		t.Fatal(err)
	}
	r := ctx.Renderer()
	r.StateBlock(false, func() {
		r.BindProgram(p)
		r.DrawArrays(DrawModeTriangles, 0, 3)
	})
	p.Release()
	r.EndFrame()
	rec.Reset()
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if n := rec.Count("UseProgram"); n != 1 {
		t.Errorf("got %d program binds after deletion, want 1", n)
	}
}
