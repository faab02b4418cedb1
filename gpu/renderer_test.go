// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"bytes"
	"errors"
	"image"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"gioui.org/gpustate/gpu/internal/cache"
	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/gpu/internal/driver/drivertest"
	"gioui.org/gpustate/gpu/internal/state"
	"gioui.org/gpustate/internal/gl"
)

func newTestContext(t *testing.T, opts ...Option) (*Context, *drivertest.Recorder) {
	t.Helper()
	return newTestContextCaps(t, drivertest.Caps(), opts...)
}

func newTestContextCaps(t *testing.T, caps driver.Caps, opts ...Option) (*Context, *drivertest.Recorder) {
	t.Helper()
	rec := drivertest.New()
	opts = append([]Option{WithViewport(image.Rect(0, 0, 640, 480))}, opts...)
	ctx, err := NewContext(rec, caps, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ctx.Release)
	rec.Reset()
	return ctx, rec
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestStateBlockRestores(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	r.SetClearColor(1, 0, 0, 1)
	r.StateBlock(false, func() {
		r.SetClearColor(0, 1, 0, 1)
		r.Clear(ClearColorBuffer)
		if got, want := rec.Model.ClearColor, [4]float32{0, 1, 0, 1}; got != want {
			t.Errorf("clear color in block: got %v, want %v", got, want)
		}
	})
	r.Clear(ClearColorBuffer)
	if got, want := rec.Model.ClearColor, [4]float32{1, 0, 0, 1}; got != want {
		t.Errorf("clear color after block: got %v, want %v", got, want)
	}
	want := []string{"ClearColor", "Clear", "ClearColor", "Clear"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
}

func TestResetBlock(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	r.SetEnabled(CapBlend, true)
	r.DrawArrays(DrawModeTriangles, 0, 3)
	r.StateBlock(true, func() {
		r.DrawArrays(DrawModeTriangles, 0, 3)
		if rec.Model.Enabled[gl.BLEND] {
			t.Error("blending enabled inside reset block")
		}
	})
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if !rec.Model.Enabled[gl.BLEND] {
		t.Error("blending not restored after reset block")
	}
	if n := rec.Count("Enable"); n != 2 {
		t.Errorf("got %d Enable calls, want 2", n)
	}
	if n := rec.Count("Disable"); n != 1 {
		t.Errorf("got %d Disable calls, want 1", n)
	}
}

func TestMismatchedScopes(t *testing.T) {
	tests := []struct {
		name string
		fn   func(r *Renderer)
	}{
		{"EndStateBlock", func(r *Renderer) { r.EndStateBlock() }},
		{"EndRecording", func(r *Renderer) { r.EndRecording() }},
		{"EndRenderTarget", func(r *Renderer) { r.EndRenderTarget() }},
		{"interleaved", func(r *Renderer) {
			r.BeginStateBlock(false)
			r.BeginRecording()
			r.EndStateBlock()
		}},
		{"EndFrame", func(r *Renderer) {
			r.BeginStateBlock(false)
			r.EndFrame()
		}},
		{"EndTile", func(r *Renderer) { r.EndTile() }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx, _ := newTestContext(t)
			mustPanic(t, test.name, func() { test.fn(ctx.Renderer()) })
		})
	}
}

func TestPanicUnwindsScopes(t *testing.T) {
	ctx, _ := newTestContext(t)
	r := ctx.Renderer()
	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		r.StateBlock(false, func() {
			r.BeginStateBlock(false)
			r.BeginRecording()
			panic("boom")
		})
	}()
	if n := len(r.frames); n != 1 {
		t.Errorf("got %d frames after unwinding, want 1", n)
	}
	if n := len(r.recs); n != 0 {
		t.Errorf("got %d open recordings after unwinding, want 0", n)
	}
	r.EndFrame()
}

func TestCompiledDrawStateElidesRedundantState(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	// Leave the driver with blending on and unit 1 active.
	r.StateBlock(false, func() {
		r.SetEnabled(CapBlend, true)
		r.SetActiveTexture(1)
		r.DrawArrays(DrawModeTriangles, 0, 3)
	})
	cds := r.Record(func() {
		r.SetEnabled(CapBlend, true)
		r.SetActiveTexture(1)
		r.DrawArrays(DrawModeTriangles, 0, 3)
		r.DrawArrays(DrawModeTriangles, 3, 3)
	})
	if n := cds.Len(); n != 2 {
		t.Fatalf("got %d recorded operations, want 2", n)
	}
	if n := cds.delta.Len(); n != 2 {
		t.Errorf("got %d changed slots, want 2", n)
	}
	rec.Reset()
	if err := r.ApplyCompiled(cds); err != nil {
		t.Fatal(err)
	}
	want := []string{"DrawArrays", "DrawArrays"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
	if got := r.ActiveTexture(); got != 1 {
		t.Errorf("active texture after replay: got %d, want 1", got)
	}
}

func TestRecordingDoesNotDraw(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	cds := r.Record(func() {
		r.SetEnabled(CapDepthTest, true)
		r.Clear(ClearColorBuffer | ClearDepthBuffer)
	})
	if len(rec.Calls) != 0 {
		t.Errorf("recording issued calls:\n%s", rec)
	}
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if rec.Model.Enabled[gl.DEPTH_TEST] {
		t.Error("recorded state leaked into the enclosing State")
	}
	rec.Reset()
	if err := r.ApplyCompiled(cds); err != nil {
		t.Fatal(err)
	}
	want := []string{"Enable", "Clear"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
}

func TestNestedApplyCompiled(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	inner := r.Record(func() {
		r.SetEnabled(CapBlend, true)
		r.DrawArrays(DrawModeTriangles, 0, 3)
	})
	outer := r.Record(func() {
		r.SetEnabled(CapDepthTest, true)
		if err := r.ApplyCompiled(inner); err != nil {
			t.Fatal(err)
		}
		r.DrawArrays(DrawModeTriangles, 0, 6)
	})
	if n := outer.Len(); n != 2 {
		t.Fatalf("got %d operations, want 2", n)
	}
	if n := outer.delta.Len(); n != 2 {
		t.Errorf("got %d changed slots, want 2", n)
	}
	if err := r.ApplyCompiled(outer); err != nil {
		t.Fatal(err)
	}
	want := []string{"Enable", "Enable", "DrawArrays", "DrawArrays"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
	if !rec.Model.Enabled[gl.BLEND] || !rec.Model.Enabled[gl.DEPTH_TEST] {
		t.Errorf("got enabled %v, want blend and depth test", rec.Model.Enabled)
	}
}

func TestRoutingReadInRecording(t *testing.T) {
	ctx, _ := newTestContext(t)
	r := ctx.Renderer()
	r.SetActiveTexture(2)
	r.Record(func() {
		if got := r.ActiveTexture(); got != 2 {
			t.Errorf("active texture at record start: got %d, want 2", got)
		}
		r.SetActiveTexture(3)
		if got := r.ActiveTexture(); got != 3 {
			t.Errorf("active texture after change: got %d, want 3", got)
		}
	})
	if got := r.ActiveTexture(); got != 2 {
		t.Errorf("active texture after recording: got %d, want 2", got)
	}
}

func TestRenderTarget(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 64, 32, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := ctx.NewRenderTarget(tex, 16)
	if err != nil {
		t.Fatal(err)
	}
	fbo := rt.fbos[ctx.id].obj
	err = r.RenderTargetBlock(rt, func() {
		r.Clear(ClearColorBuffer)
		if got := rec.Model.DrawFramebuffer; got != fbo {
			t.Errorf("bound framebuffer: got %v, want %v", got, fbo)
		}
		if got, want := rec.Model.Viewport, [4]int32{0, 0, 64, 32}; got != want {
			t.Errorf("viewport in target: got %v, want %v", got, want)
		}
		mustPanic(t, "sampling the active target", func() { r.BindTexture(0, tex) })
	})
	if err != nil {
		t.Fatal(err)
	}
	r.Clear(ClearColorBuffer)
	if got := rec.Model.DrawFramebuffer; got.Valid() {
		t.Errorf("framebuffer %v still bound after EndRenderTarget", got)
	}
	if got, want := rec.Model.Viewport, [4]int32{0, 0, 640, 480}; got != want {
		t.Errorf("viewport after target: got %v, want %v", got, want)
	}
	if n := rec.Count("RenderbufferStorage"); n != 1 {
		t.Errorf("got %d depth buffers, want 1", n)
	}
	mustPanic(t, "nested bind of the same target", func() {
		r.BeginRenderTarget(rt)
		defer r.EndRenderTarget()
		r.BeginRenderTarget(rt)
	})
}

func TestReadRenderTarget(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 4, 2, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	rt, err := ctx.NewRenderTarget(tex, 0)
	if err != nil {
		t.Fatal(err)
	}
	rec.ReadPixelsFunc = func(x, y, w, h int, pixels []byte) {
		// Bottom row 1, top row 2.
		for i := range pixels {
			pixels[i] = byte(i/(w*4) + 1)
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	if err := r.ReadRenderTarget(rt, img); err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0).R; got != 2 {
		t.Errorf("top row: got %d, want 2", got)
	}
	if got := img.RGBAAt(3, 1).R; got != 1 {
		t.Errorf("bottom row: got %d, want 1", got)
	}
	if got := rec.Model.ReadFramebuffer; got != rt.fbos[ctx.id].obj {
		t.Errorf("read from framebuffer %v, want %v", got, rt.fbos[ctx.id].obj)
	}
}

func TestTiledImage(t *testing.T) {
	caps := drivertest.Caps()
	caps.Limits.MaxRenderTargetSize = 64
	ctx, rec := newTestContextCaps(t, caps)
	r := ctx.Renderer()
	tile := 0
	rec.ReadPixelsFunc = func(x, y, w, h int, pixels []byte) {
		for i := range pixels {
			pixels[i] = byte(tile)
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if err := r.BeginTiledRenderTarget(TileDestination{Image: img}, image.Pt(100, 50)); err != nil {
		t.Fatal(err)
	}
	var tiles []image.Rectangle
	for {
		tile++
		tiles = append(tiles, r.BeginTile())
		r.Clear(ClearColorBuffer)
		more, err := r.EndTile()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	r.EndRenderTarget()
	want := []image.Rectangle{image.Rect(0, 0, 64, 50), image.Rect(64, 0, 100, 50)}
	if !reflect.DeepEqual(tiles, want) {
		t.Errorf("got tiles %v, want %v", tiles, want)
	}
	if n := rec.Count("ReadPixels"); n != 2 {
		t.Errorf("got %d reads, want 2", n)
	}
	if got := img.RGBAAt(10, 10).R; got != 1 {
		t.Errorf("pixel of first tile: got %d, want 1", got)
	}
	if got := img.RGBAAt(80, 40).R; got != 2 {
		t.Errorf("pixel of second tile: got %d, want 2", got)
	}
	if n := len(r.frames); n != 1 {
		t.Errorf("got %d frames after tiling, want 1", n)
	}
}

func TestTiledTexture(t *testing.T) {
	caps := drivertest.Caps()
	caps.Limits.MaxRenderTargetSize = 64
	ctx, rec := newTestContextCaps(t, caps)
	r := ctx.Renderer()
	dst, err := ctx.NewTexture(TextureFormatRGBA8, 100, 100, FilterLinear, FilterLinear)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.BeginTiledRenderTarget(TileDestination{Texture: dst}, image.Pt(100, 50)); err != nil {
		t.Fatal(err)
	}
	for more := true; more; {
		r.BeginTile()
		mustPanic(t, "sampling the tile destination", func() { r.BindTexture(0, dst) })
		r.Clear(ClearColorBuffer)
		if more, err = r.EndTile(); err != nil {
			t.Fatal(err)
		}
	}
	r.EndRenderTarget()
	if n := rec.Count("CopyTexSubImage2D"); n != 2 {
		t.Errorf("got %d tile copies, want 2", n)
	}
}

func TestTiledImageRows(t *testing.T) {
	caps := drivertest.Caps()
	caps.Limits.MaxRenderTargetSize = 64
	ctx, rec := newTestContextCaps(t, caps)
	r := ctx.Renderer()
	tile := 0
	// Mark each pixel with the tile number and whether it lies in the
	// lower or upper half of the framebuffer.
	rec.ReadPixelsFunc = func(x, y, w, h int, pixels []byte) {
		for row := 0; row < h; row++ {
			v := byte(tile * 16)
			if row >= h/2 {
				v++
			}
			for i := row * w * 4; i < (row+1)*w*4; i++ {
				pixels[i] = v
			}
		}
	}
	img := image.NewRGBA(image.Rect(0, 0, 64, 128))
	if err := r.BeginTiledRenderTarget(TileDestination{Image: img}, image.Pt(64, 128)); err != nil {
		t.Fatal(err)
	}
	var tiles []image.Rectangle
	for more := true; more; {
		tile++
		tiles = append(tiles, r.BeginTile())
		r.Clear(ClearColorBuffer)
		var err error
		if more, err = r.EndTile(); err != nil {
			t.Fatal(err)
		}
	}
	r.EndRenderTarget()
	want := []image.Rectangle{image.Rect(0, 0, 64, 64), image.Rect(0, 64, 64, 128)}
	if !reflect.DeepEqual(tiles, want) {
		t.Errorf("got tiles %v, want %v", tiles, want)
	}
	// The upper framebuffer half of a tile ends up in its top image rows.
	tests := []struct {
		y    int
		want byte
	}{
		{10, 1*16 + 1},
		{50, 1 * 16},
		{70, 2*16 + 1},
		{120, 2 * 16},
	}
	for _, test := range tests {
		if got := img.RGBAAt(5, test.y).R; got != test.want {
			t.Errorf("row %d: got %d, want %d", test.y, got, test.want)
		}
	}
}

func TestTiledTextureRows(t *testing.T) {
	caps := drivertest.Caps()
	caps.Limits.MaxRenderTargetSize = 64
	ctx, rec := newTestContextCaps(t, caps)
	r := ctx.Renderer()
	dst, err := ctx.NewTexture(TextureFormatRGBA8, 128, 150, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.BeginTiledRenderTarget(TileDestination{Texture: dst}, image.Pt(100, 150)); err != nil {
		t.Fatal(err)
	}
	var tiles []image.Rectangle
	for more := true; more; {
		tiles = append(tiles, r.BeginTile())
		r.Clear(ClearColorBuffer)
		if more, err = r.EndTile(); err != nil {
			t.Fatal(err)
		}
	}
	r.EndRenderTarget()
	want := []image.Rectangle{
		image.Rect(0, 0, 64, 64), image.Rect(64, 0, 100, 64),
		image.Rect(0, 64, 64, 128), image.Rect(64, 64, 100, 128),
		image.Rect(0, 128, 64, 150), image.Rect(64, 128, 100, 150),
	}
	if !reflect.DeepEqual(tiles, want) {
		t.Errorf("got tiles %v, want %v", tiles, want)
	}
	var copies []image.Rectangle
	for _, c := range rec.Calls {
		if c.Name != "CopyTexSubImage2D" {
			continue
		}
		xoff, yoff, w, h := c.Args[2].(int), c.Args[3].(int), c.Args[6].(int), c.Args[7].(int)
		if x, y := c.Args[4].(int), c.Args[5].(int); x != 0 || y != 0 {
			t.Errorf("tile copied from (%d,%d), want the framebuffer origin", x, y)
		}
		copies = append(copies, image.Rect(xoff, yoff, xoff+w, yoff+h))
	}
	// Texel rows count up from the bottom of the framebuffer, like the
	// tile bounds.
	if !reflect.DeepEqual(copies, want) {
		t.Errorf("got texture copies %v, want %v", copies, want)
	}
	mustPanic(t, "BeginTile after the last tile", func() {
		if err := r.BeginTiledRenderTarget(TileDestination{Texture: dst}, image.Pt(10, 10)); err != nil {
			t.Fatal(err)
		}
		defer r.EndRenderTarget()
		r.BeginTile()
		r.EndTile()
		r.BeginTile()
	})
}

func TestTiledDefaultFramebuffer(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	caps := drivertest.Caps()
	caps.Features &^= driver.FeatureFramebufferObjects
	ctx, rec := newTestContextCaps(t, caps, WithLogger(logger))
	r := ctx.Renderer()
	img := image.NewRGBA(image.Rect(0, 0, 1000, 100))
	for i := 0; i < 2; i++ {
		if err := r.BeginTiledRenderTarget(TileDestination{Image: img}, img.Bounds().Size()); err != nil {
			t.Fatal(err)
		}
		tiles := 0
		for more := true; more; tiles++ {
			r.BeginTile()
			r.Clear(ClearColorBuffer)
			var err error
			if more, err = r.EndTile(); err != nil {
				t.Fatal(err)
			}
		}
		r.EndRenderTarget()
		if tiles != 2 {
			t.Errorf("got %d tiles, want 2", tiles)
		}
	}
	if n := strings.Count(buf.String(), "tiling through the default framebuffer"); n != 1 {
		t.Errorf("fallback warning logged %d times, want 1", n)
	}
	if n := rec.Count("CreateFramebuffer"); n != 0 {
		t.Errorf("created %d framebuffers without framebuffer support", n)
	}
}

func TestRestoreDefaults(t *testing.T) {
	ctx, rec := newTestContext(t, WithRestoreDefaults(true))
	r := ctx.Renderer()
	r.StateBlock(false, func() {
		r.SetEnabled(CapBlend, true)
		r.SetScissor(image.Rect(10, 10, 20, 20))
		r.DrawArrays(DrawModeTriangles, 0, 3)
	})
	r.EndFrame()
	if rec.Model.Enabled[gl.BLEND] {
		t.Error("blending left enabled at end of frame")
	}
	if got, want := rec.Model.Scissor, [4]int32{0, 0, 640, 480}; got != want {
		t.Errorf("scissor after frame: got %v, want %v", got, want)
	}
}

func TestInvalidate(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	r.SetEnabled(CapBlend, true)
	r.DrawArrays(DrawModeTriangles, 0, 3)
	r.Invalidate()
	rec.Reset()
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if n := rec.Count("Enable"); n == 0 {
		t.Error("blending not re-enabled after Invalidate")
	}
	if n := rec.Count("BindVertexArray"); n != 1 {
		t.Errorf("got %d vertex array binds after Invalidate, want 1", n)
	}
	rec.Reset()
	r.DrawArrays(DrawModeTriangles, 0, 3)
	want := []string{"DrawArrays"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
}

func TestInvalidateCoreProfile(t *testing.T) {
	caps := drivertest.Caps()
	caps.Features &^= driver.FeatureFixedFunction | driver.FeatureSRGB
	ctx, rec := newTestContextCaps(t, caps, WithRestoreDefaults(true))
	if !ctx.defaultVAO.Valid() {
		t.Error("core profile context has no default vertex array")
	}
	r := ctx.Renderer()
	r.Invalidate()
	r.DrawArrays(DrawModeTriangles, 0, 3)
	r.Invalidate()
	r.EndFrame()
	for _, name := range []string{"MatrixMode", "LoadMatrixf"} {
		if n := rec.Count(name); n != 0 {
			t.Errorf("%s issued %d times on a core profile", name, n)
		}
	}
	for _, c := range rec.Calls {
		if c.Name != "Enable" && c.Name != "Disable" {
			continue
		}
		if e := c.Args[0].(gl.Enum); e == gl.TEXTURE_2D || e == gl.FRAMEBUFFER_SRGB {
			t.Errorf("unsupported capability touched: %v", c)
		}
	}
	if n := rec.Count("Viewport"); n == 0 {
		t.Error("viewport not re-issued after Invalidate")
	}
}

func TestClientPointerUsesZeroVertexArray(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	data := make([]byte, 3*2*4)
	r.EnableAttrib(0, true)
	r.SetAttribClientPointer(0, 2, DataTypeFloat, false, 0, data)
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if got := rec.Model.VertexArray; got.Valid() {
		t.Errorf("client pointer issued with vertex array %v bound", got)
	}
	if err := rec.GetError(); err != gl.NO_ERROR {
		t.Errorf("driver error 0x%x after client pointer draw", err)
	}
	if p := rec.Model.VertexArrays[gl.VertexArray{}].Pointers[0]; !p.Client {
		t.Errorf("attribute 0 not sourced from client memory: %+v", p)
	}

	va, err := ctx.NewVertexArray()
	if err != nil {
		t.Fatal(err)
	}
	defer va.Release()
	r.StateBlock(false, func() {
		if err := r.BindVertexArray(va); err != nil {
			t.Fatal(err)
		}
		mustPanic(t, "client pointer with a vertex array object", func() {
			r.DrawArrays(DrawModeTriangles, 0, 3)
		})
	})
}

func TestVertexArrayShadow(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	va, err := ctx.NewVertexArray()
	if err != nil {
		t.Fatal(err)
	}
	defer va.Release()
	idx, err := ctx.NewBuffer(64, BufferUsageStatic)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.BindVertexArray(va); err != nil {
		t.Fatal(err)
	}
	r.BindIndexBuffer(idx)
	r.DrawElements(DrawModeTriangles, 6, DataTypeUnsignedShort, 0)
	if err := r.BindVertexArray(nil); err != nil {
		t.Fatal(err)
	}
	r.BindIndexBuffer(nil)
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if got := rec.Model.VertexArray; got != ctx.defaultVAO {
		t.Errorf("bound vertex array %v, want the default %v", got, ctx.defaultVAO)
	}
	if err := r.BindVertexArray(va); err != nil {
		t.Fatal(err)
	}
	r.BindIndexBuffer(idx)
	rec.Reset()
	r.DrawElements(DrawModeTriangles, 6, DataTypeUnsignedShort, 0)
	// The element binding is part of the vertex array.
	want := []string{"BindVertexArray", "DrawElements"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
	mustPanic(t, "float indices", func() { r.DrawElements(DrawModeTriangles, 3, DataTypeFloat, 0) })
}

func TestDeletedTextureIsScrubbed(t *testing.T) {
	ctx, rec := newTestContext(t, WithFrameRetention(0))
	r := ctx.Renderer()
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 16, 16, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	r.StateBlock(false, func() {
		r.BindTexture(0, tex)
		r.DrawArrays(DrawModeTriangles, 0, 3)
	})
	tex.Release()
	r.EndFrame()
	if n := rec.Count("DeleteTexture"); n != 1 {
		t.Fatalf("got %d texture deletions, want 1", n)
	}
	slot := ctx.layout.TextureSlot(0)
	if set := ctx.last.Get(slot); set != nil && set.Kind() == state.KindTexture && set.Object() == tex.obj.V {
		t.Errorf("deleted texture still tracked in slot %d", slot)
	}
	rec.Reset()
	r.DrawArrays(DrawModeTriangles, 0, 3)
	if n := rec.Count("BindTexture"); n != 1 {
		t.Errorf("got %d texture binds after deletion, want 1", n)
	}
}

func TestRecycledTextureConsistency(t *testing.T) {
	ctx, _ := newTestContext(t)
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 64, 64, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.ResizeTexture(tex, 32, 32); err != nil {
		t.Fatal(err)
	}
	tex.Release()
	_, err = ctx.NewTexture(TextureFormatRGBA8, 64, 64, FilterNearest, FilterNearest)
	var cerr *cache.ConsistencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("got error %v, want a consistency error", err)
	}
}

func TestRecycledTexture(t *testing.T) {
	ctx, rec := newTestContext(t)
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 64, 64, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	tex.Release()
	again, err := ctx.NewTexture(TextureFormatRGBA8, 64, 64, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	if again != tex {
		t.Error("released texture was not recycled")
	}
	if n := rec.Count("CreateTexture"); n != 1 {
		t.Errorf("got %d texture creations, want 1", n)
	}
}

func TestUploads(t *testing.T) {
	ctx, rec := newTestContext(t)
	tex, err := ctx.NewTexture(TextureFormatRGBA8, 8, 8, FilterNearest, FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	ctx.UploadImage(tex, image.Pt(4, 4), img)
	mustPanic(t, "upload outside texture", func() { ctx.UploadImage(tex, image.Pt(6, 6), img) })
	buf, err := ctx.NewBuffer(16, BufferUsageDynamic)
	if err != nil {
		t.Fatal(err)
	}
	ctx.UploadBuffer(buf, 8, make([]byte, 8))
	mustPanic(t, "buffer overflow", func() { ctx.UploadBuffer(buf, 12, make([]byte, 8)) })
	if n := rec.Count("TexSubImage2D"); n != 1 {
		t.Errorf("got %d texture uploads, want 1", n)
	}
	if n := rec.Count("BufferSubData"); n != 1 {
		t.Errorf("got %d buffer uploads, want 1", n)
	}
}

func TestClientPointerReemits(t *testing.T) {
	ctx, rec := newTestContext(t)
	r := ctx.Renderer()
	data := make([]byte, 3*2*4)
	r.EnableAttrib(0, true)
	r.SetAttribClientPointer(0, 2, DataTypeFloat, false, 0, data)
	r.DrawArrays(DrawModeTriangles, 0, 3)
	rec.Reset()
	r.DrawArrays(DrawModeTriangles, 0, 3)
	want := []string{"VertexAttribClientPointer", "DrawArrays"}
	if got := rec.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("got calls %v, want %v", got, want)
	}
}
