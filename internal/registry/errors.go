package registry

import (
	"errors"
	"fmt"

	"github.com/born-ml/hpickle/internal/container"
)

// Dispatch errors.
var (
	ErrUnsupportedType = errors.New("unsupported type")
	ErrUnserializable  = errors.New("value has no state hook and no binary form")
	// ErrReservedName is returned for mapping keys that would shadow a
	// reserved attribute. It also matches container.ErrInvalidName.
	ErrReservedName = fmt.Errorf("%w: reserved name", container.ErrInvalidName)
)

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", container.ErrCorruptData, fmt.Sprintf(format, args...))
}
