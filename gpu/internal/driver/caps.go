// SPDX-License-Identifier: Unlicense OR MIT

package driver

import "fmt"

type Features uint

// Caps is the immutable capability table produced by a driver's
// capability query.
type Caps struct {
	// BottomLeftOrigin is true if the driver has the origin in the lower left
	// corner. The OpenGL driver returns true.
	BottomLeftOrigin bool
	// GLES is set for OpenGL ES contexts.
	GLES     bool
	Version  [2]int
	Features Features
	Limits   Limits
}

// Limits holds the numeric hardware limits that size the slot registry.
type Limits struct {
	TextureUnits        int
	VertexAttribs       int
	MaxTextureSize      int
	MaxRenderTargetSize int
}

const (
	FeatureFramebufferObjects Features = 1 << iota
	FeatureVertexArrayObjects
	// FeatureFixedFunction covers the legacy matrix stack, per-unit
	// texture enables and client memory vertex arrays.
	FeatureFixedFunction
	FeatureSRGB
	FeatureDepthRenderbuffers
	FeatureFloatRenderTargets
)

func (f Features) Has(feats Features) bool {
	return f&feats == feats
}

// Validate reports whether the limits can size a slot registry.
func (l Limits) Validate() error {
	switch {
	case l.TextureUnits <= 0:
		return fmt.Errorf("driver: invalid texture unit count %d", l.TextureUnits)
	case l.VertexAttribs <= 0:
		return fmt.Errorf("driver: invalid vertex attribute count %d", l.VertexAttribs)
	case l.MaxTextureSize <= 0:
		return fmt.Errorf("driver: invalid maximum texture size %d", l.MaxTextureSize)
	}
	return nil
}

// RenderTargetSize returns the largest width and height usable for an
// off-screen render target.
func (l Limits) RenderTargetSize() int {
	if l.MaxRenderTargetSize > 0 && l.MaxRenderTargetSize < l.MaxTextureSize {
		return l.MaxRenderTargetSize
	}
	return l.MaxTextureSize
}
