// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"fmt"

	"gioui.org/gpustate/gpu/internal/state"
	"gioui.org/gpustate/internal/gl"
)

type Capability uint8

type BlendFactor uint8

type BlendOp uint8

type CompareFunc uint8

type StencilAction uint8

type Face uint8

type Winding uint8

type DrawMode uint8

type DataType uint8

type MatrixMode uint8

type ClearBits uint8

type TextureFormat uint8

type TextureFilter uint8

type BufferUsage uint8

const (
	CapBlend Capability = iota
	CapDepthTest
	CapStencilTest
	CapCullFace
	CapScissorTest
	CapPolygonOffsetFill
	CapFramebufferSRGB
)

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
	BlendFactorConstantColor
)

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessOrEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterOrEqual
	CompareAlways
)

const (
	StencilKeep StencilAction = iota
	StencilZero
	StencilReplace
	StencilIncr
	StencilDecr
	StencilInvert
)

const (
	FaceFront Face = iota
	FaceBack
	FaceFrontAndBack
)

const (
	WindingCCW Winding = iota
	WindingCW
)

const (
	DrawModeTriangles DrawMode = iota
	DrawModeTriangleStrip
	DrawModeLines
	DrawModePoints
)

const (
	DataTypeFloat DataType = iota
	DataTypeUnsignedByte
	DataTypeShort
	DataTypeUnsignedShort
	DataTypeInt
	DataTypeUnsignedInt
)

const (
	MatrixProjection MatrixMode = iota
	MatrixModelView
)

const (
	ClearColorBuffer ClearBits = 1 << iota
	ClearDepthBuffer
	ClearStencilBuffer
)

const (
	TextureFormatRGBA8 TextureFormat = iota
	TextureFormatSRGBA
	TextureFormatFloat
	TextureFormatAlpha
)

const (
	FilterNearest TextureFilter = iota
	FilterLinear
)

const (
	BufferUsageStatic BufferUsage = iota
	BufferUsageDynamic
	BufferUsageStream
)

func (c Capability) slot() state.Slot {
	switch c {
	case CapBlend:
		return state.SlotBlend
	case CapDepthTest:
		return state.SlotDepthTest
	case CapStencilTest:
		return state.SlotStencilTest
	case CapCullFace:
		return state.SlotCullFace
	case CapScissorTest:
		return state.SlotScissorTest
	case CapPolygonOffsetFill:
		return state.SlotPolygonOffsetFill
	case CapFramebufferSRGB:
		return state.SlotSRGB
	default:
		panic(fmt.Errorf("gpu: unknown capability %d", c))
	}
}

func toGLBlendFactor(f BlendFactor) gl.Enum {
	switch f {
	case BlendFactorZero:
		return gl.ZERO
	case BlendFactorOne:
		return gl.ONE
	case BlendFactorSrcColor:
		return gl.SRC_COLOR
	case BlendFactorOneMinusSrcColor:
		return gl.ONE_MINUS_SRC_COLOR
	case BlendFactorDstColor:
		return gl.DST_COLOR
	case BlendFactorOneMinusDstColor:
		return gl.ONE_MINUS_DST_COLOR
	case BlendFactorSrcAlpha:
		return gl.SRC_ALPHA
	case BlendFactorOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case BlendFactorDstAlpha:
		return gl.DST_ALPHA
	case BlendFactorOneMinusDstAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	case BlendFactorConstantColor:
		return gl.CONSTANT_COLOR
	default:
		panic("unsupported blend factor")
	}
}

func toGLBlendOp(op BlendOp) gl.Enum {
	switch op {
	case BlendOpAdd:
		return gl.FUNC_ADD
	case BlendOpSubtract:
		return gl.FUNC_SUBTRACT
	case BlendOpReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case BlendOpMin:
		return gl.MIN
	case BlendOpMax:
		return gl.MAX
	default:
		panic("unsupported blend operation")
	}
}

func toGLCompareFunc(f CompareFunc) gl.Enum {
	switch f {
	case CompareNever:
		return gl.NEVER
	case CompareLess:
		return gl.LESS
	case CompareEqual:
		return gl.EQUAL
	case CompareLessOrEqual:
		return gl.LEQUAL
	case CompareGreater:
		return gl.GREATER
	case CompareNotEqual:
		return gl.NOTEQUAL
	case CompareGreaterOrEqual:
		return gl.GEQUAL
	case CompareAlways:
		return gl.ALWAYS
	default:
		panic("unsupported compare function")
	}
}

func toGLStencilAction(a StencilAction) gl.Enum {
	switch a {
	case StencilKeep:
		return gl.KEEP
	case StencilZero:
		return gl.ZERO
	case StencilReplace:
		return gl.REPLACE
	case StencilIncr:
		return gl.INCR
	case StencilDecr:
		return gl.DECR
	case StencilInvert:
		return gl.INVERT
	default:
		panic("unsupported stencil action")
	}
}

func toGLFace(f Face) gl.Enum {
	switch f {
	case FaceFront:
		return gl.FRONT
	case FaceBack:
		return gl.BACK
	case FaceFrontAndBack:
		return gl.FRONT_AND_BACK
	default:
		panic("unsupported face")
	}
}

func toGLWinding(w Winding) gl.Enum {
	if w == WindingCW {
		return gl.CW
	}
	return gl.CCW
}

func toGLDrawMode(mode DrawMode) gl.Enum {
	switch mode {
	case DrawModeTriangles:
		return gl.TRIANGLES
	case DrawModeTriangleStrip:
		return gl.TRIANGLE_STRIP
	case DrawModeLines:
		return gl.LINES
	case DrawModePoints:
		return gl.POINTS
	default:
		panic("unsupported draw mode")
	}
}

func toGLDataType(t DataType) gl.Enum {
	switch t {
	case DataTypeFloat:
		return gl.FLOAT
	case DataTypeUnsignedByte:
		return gl.UNSIGNED_BYTE
	case DataTypeShort:
		return gl.SHORT
	case DataTypeUnsignedShort:
		return gl.UNSIGNED_SHORT
	case DataTypeInt:
		return gl.INT
	case DataTypeUnsignedInt:
		return gl.UNSIGNED_INT
	default:
		panic("unsupported data type")
	}
}

func toGLClearBits(b ClearBits) gl.Enum {
	var mask gl.Enum
	if b&ClearColorBuffer != 0 {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if b&ClearDepthBuffer != 0 {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if b&ClearStencilBuffer != 0 {
		mask |= gl.STENCIL_BUFFER_BIT
	}
	return mask
}

func toGLFilter(f TextureFilter) int {
	switch f {
	case FilterNearest:
		return gl.NEAREST
	case FilterLinear:
		return gl.LINEAR
	default:
		panic("unsupported texture filter")
	}
}

func toGLUsage(u BufferUsage) gl.Enum {
	switch u {
	case BufferUsageStatic:
		return gl.STATIC_DRAW
	case BufferUsageDynamic:
		return gl.DYNAMIC_DRAW
	case BufferUsageStream:
		return gl.STREAM_DRAW
	default:
		panic("unsupported buffer usage")
	}
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8:
		return "RGBA8"
	case TextureFormatSRGBA:
		return "SRGBA"
	case TextureFormatFloat:
		return "Float"
	case TextureFormatAlpha:
		return "Alpha"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint8(f))
	}
}
