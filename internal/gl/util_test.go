// SPDX-License-Identifier: Unlicense OR MIT

package gl

import "testing"

func TestParseGLVersion(t *testing.T) {
	tests := []struct {
		in   string
		ver  [2]int
		gles bool
		err  bool
	}{
		{"3.3.0 NVIDIA 535.54.03", [2]int{3, 3}, false, false},
		{"4.6 (Compatibility Profile) Mesa 23.2.1", [2]int{4, 6}, false, false},
		{"OpenGL ES 3.2 Mesa 23.0", [2]int{3, 2}, true, false},
		{"WebGL 1.0", [2]int{2, 0}, true, false},
		{"garbage", [2]int{}, false, true},
	}
	for _, test := range tests {
		ver, gles, err := ParseGLVersion(test.in)
		if (err != nil) != test.err {
			t.Errorf("%q: unexpected error state %v", test.in, err)
			continue
		}
		if test.err {
			continue
		}
		if ver != test.ver || gles != test.gles {
			t.Errorf("%q: got %v, %v; want %v, %v", test.in, ver, gles, test.ver, test.gles)
		}
	}
}

func TestHasExtension(t *testing.T) {
	exts := SplitExtensions("GL_ARB_framebuffer_object  GL_EXT_framebuffer_sRGB ")
	if len(exts) != 2 {
		t.Fatalf("got %d extensions, want 2", len(exts))
	}
	if !HasExtension(exts, "GL_EXT_framebuffer_sRGB") {
		t.Error("missing extension")
	}
	if HasExtension(exts, "GL_EXT_framebuffer") {
		t.Error("prefix matched as extension")
	}
}
