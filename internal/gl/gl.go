// SPDX-License-Identifier: Unlicense OR MIT

// Package gl defines the OpenGL enums and object names shared by the
// state tracker and its drivers.
package gl

type (
	Attrib uint
	Enum   uint
)

const (
	ALWAYS                           = 0x207
	ARRAY_BUFFER                     = 0x8892
	BACK                             = 0x0405
	BLEND                            = 0xbe2
	CCW                              = 0x901
	CLAMP_TO_EDGE                    = 0x812f
	COLOR_ATTACHMENT0                = 0x8ce0
	COLOR_BUFFER_BIT                 = 0x4000
	COMPILE_STATUS                   = 0x8b81
	CONSTANT_COLOR                   = 0x8001
	CULL_FACE                        = 0xb44
	CW                               = 0x900
	DECR                             = 0x1e03
	DEPTH_ATTACHMENT                 = 0x8d00
	DEPTH_BUFFER_BIT                 = 0x100
	DEPTH_COMPONENT16                = 0x81a5
	DEPTH_COMPONENT24                = 0x81a6
	DEPTH_COMPONENT32F               = 0x8cac
	DEPTH_TEST                       = 0xb71
	DRAW_FRAMEBUFFER                 = 0x8ca9
	DST_ALPHA                        = 0x304
	DST_COLOR                        = 0x306
	DYNAMIC_DRAW                     = 0x88e8
	ELEMENT_ARRAY_BUFFER             = 0x8893
	EQUAL                            = 0x202
	EXTENSIONS                       = 0x1f03
	FALSE                            = 0
	FLOAT                            = 0x1406
	FRAGMENT_SHADER                  = 0x8b30
	FRAMEBUFFER                      = 0x8d40
	FRAMEBUFFER_COMPLETE             = 0x8cd5
	FRAMEBUFFER_SRGB                 = 0x8db9
	FRONT                            = 0x404
	FRONT_AND_BACK                   = 0x408
	FUNC_ADD                         = 0x8006
	FUNC_REVERSE_SUBTRACT            = 0x800b
	FUNC_SUBTRACT                    = 0x800a
	GEQUAL                           = 0x206
	GREATER                          = 0x204
	HALF_FLOAT                       = 0x140b
	INCR                             = 0x1e02
	INFO_LOG_LENGTH                  = 0x8b84
	INT                              = 0x1404
	INVALID_ENUM                     = 0x500
	INVALID_FRAMEBUFFER_OPERATION    = 0x506
	INVALID_OPERATION                = 0x502
	INVALID_VALUE                    = 0x501
	INVERT                           = 0x150a
	KEEP                             = 0x1e00
	LEQUAL                           = 0x203
	LESS                             = 0x201
	LINEAR                           = 0x2601
	LINES                            = 0x1
	LINK_STATUS                      = 0x8b82
	MAX                              = 0x8008
	MAX_COMBINED_TEXTURE_IMAGE_UNITS = 0x8b4d
	MAX_RENDERBUFFER_SIZE            = 0x84e8
	MAX_TEXTURE_SIZE                 = 0xd33
	MAX_TEXTURE_UNITS                = 0x84e2
	MAX_VERTEX_ATTRIBS               = 0x8869
	MIN                              = 0x8007
	MODELVIEW                        = 0x1700
	NEAREST                          = 0x2600
	NEVER                            = 0x200
	NOTEQUAL                         = 0x205
	NO_ERROR                         = 0x0
	NUM_EXTENSIONS                   = 0x821d
	ONE                              = 0x1
	ONE_MINUS_DST_ALPHA              = 0x305
	ONE_MINUS_DST_COLOR              = 0x307
	ONE_MINUS_SRC_ALPHA              = 0x303
	ONE_MINUS_SRC_COLOR              = 0x301
	OUT_OF_MEMORY                    = 0x505
	POINTS                           = 0x0
	POLYGON_OFFSET_FILL              = 0x8037
	PROJECTION                       = 0x1701
	R16F                             = 0x822d
	R8                               = 0x8229
	RED                              = 0x1903
	RENDERBUFFER                     = 0x8d41
	RENDERER                         = 0x1f01
	REPLACE                          = 0x1e01
	RGBA                             = 0x1908
	RGBA8                            = 0x8058
	SCISSOR_TEST                     = 0xc11
	SHORT                            = 0x1402
	SRC_ALPHA                        = 0x302
	SRC_COLOR                        = 0x300
	SRGB8_ALPHA8                     = 0x8c43
	STATIC_DRAW                      = 0x88e4
	STENCIL_BUFFER_BIT               = 0x400
	STENCIL_TEST                     = 0xb90
	STREAM_DRAW                      = 0x88e0
	TEXTURE                          = 0x1702
	TEXTURE_2D                       = 0xde1
	TEXTURE_MAG_FILTER               = 0x2800
	TEXTURE_MIN_FILTER               = 0x2801
	TEXTURE_WRAP_S                   = 0x2802
	TEXTURE_WRAP_T                   = 0x2803
	TEXTURE0                         = 0x84c0
	TRIANGLE_STRIP                   = 0x5
	TRIANGLES                        = 0x4
	TRUE                             = 1
	UNIFORM_BUFFER                   = 0x8a11
	UNSIGNED_BYTE                    = 0x1401
	UNSIGNED_INT                     = 0x1405
	UNSIGNED_SHORT                   = 0x1403
	VERSION                          = 0x1f02
	VERTEX_SHADER                    = 0x8b31
	ZERO                             = 0x0
)
