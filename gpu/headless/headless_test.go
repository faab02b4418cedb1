// SPDX-License-Identifier: Unlicense OR MIT

package headless

import (
	"image"
	"image/color"
	"testing"

	"gioui.org/gpustate/gpu"
)

func TestClear(t *testing.T) {
	w := newTestWindow(t)
	red := color.RGBA{R: 0xff, A: 0xff}
	err := w.Do(func(ctx *gpu.Context) error {
		r := ctx.Renderer()
		r.SetClearColor(1, 0, 0, 1)
		r.Clear(gpu.ClearColorBuffer)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := w.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if isz := img.Bounds().Size(); isz != w.Size() {
		t.Errorf("got %v screenshot, expected %v", isz, w.Size())
	}
	if got := img.RGBAAt(0, 0); got != red {
		t.Errorf("got color %v, expected %v", got, red)
	}
}

func TestScissor(t *testing.T) {
	w := newTestWindow(t)
	blue := color.RGBA{B: 0xff, A: 0xff}
	err := w.Do(func(ctx *gpu.Context) error {
		r := ctx.Renderer()
		r.SetClearColor(0, 0, 0, 1)
		r.Clear(gpu.ClearColorBuffer)
		r.StateBlock(false, func() {
			r.SetEnabled(gpu.CapScissorTest, true)
			// Scissor rectangles have a bottom left origin.
			r.SetScissor(image.Rect(0, 0, 50, 50))
			r.SetClearColor(0, 0, 1, 1)
			r.Clear(gpu.ClearColorBuffer)
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := w.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	h := w.Size().Y
	tests := []struct {
		x, y  int
		color color.RGBA
	}{
		{10, h - 10, blue},
		{60, h - 10, color.RGBA{A: 0xff}},
		{10, 10, color.RGBA{A: 0xff}},
	}
	for _, test := range tests {
		if got := img.RGBAAt(test.x, test.y); got != test.color {
			t.Errorf("(%d,%d): got color %v, expected %v", test.x, test.y, got, test.color)
		}
	}
}

func TestSharedReplay(t *testing.T) {
	w1 := newTestWindow(t)
	w2, err := NewSharedWindow(64, 64, w1)
	if err != nil {
		t.Fatal(err)
	}
	defer w2.Release()
	var cds *gpu.CompiledDrawState
	err = w1.Do(func(ctx *gpu.Context) error {
		r := ctx.Renderer()
		cds = r.Record(func() {
			r.SetClearColor(0, 1, 0, 1)
			r.Clear(gpu.ClearColorBuffer)
		})
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = w2.Do(func(ctx *gpu.Context) error {
		return ctx.Renderer().ApplyCompiled(cds)
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := w2.Screenshot()
	if err != nil {
		t.Fatal(err)
	}
	if got, want := img.RGBAAt(32, 32), (color.RGBA{G: 0xff, A: 0xff}); got != want {
		t.Errorf("got color %v, expected %v", got, want)
	}
}

func newTestWindow(t *testing.T) *Window {
	t.Helper()
	w, err := NewWindow(128, 128)
	if err != nil {
		t.Skipf("headless windows not supported: %v", err)
	}
	t.Cleanup(w.Release)
	return w
}
