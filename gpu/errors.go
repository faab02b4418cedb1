// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"errors"
	"fmt"

	"gioui.org/gpustate/gpu/internal/driver"
	"gioui.org/gpustate/internal/gl"
)

// ErrUnsupported is returned when an operation needs a capability the
// context lacks.
var ErrUnsupported = errors.New("gpu: unsupported")

// DriverError wraps an error code reported by the driver.
type DriverError struct {
	Op   string
	Code gl.Enum
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("gpu: %s: %s", e.Op, errorName(e.Code))
}

func errorName(code gl.Enum) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("0x%x", uint(code))
	}
}

// glErr drains the driver error queue and returns the first error.
func glErr(f driver.Functions, op string) error {
	var first gl.Enum
	for {
		code := f.GetError()
		if code == gl.NO_ERROR {
			break
		}
		if first == gl.NO_ERROR {
			first = code
		}
	}
	if first != gl.NO_ERROR {
		return &DriverError{Op: op, Code: first}
	}
	return nil
}
