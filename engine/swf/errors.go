package swf

import (
	"errors"
	"fmt"
)

// MalformedContainerError reports a container whose header or tag
// lengths disagree with the bytes available. Offset is relative to the
// uncompressed container, header included.
type MalformedContainerError struct {
	Offset int
	Reason string
}

func (e *MalformedContainerError) Error() string {
	return fmt.Sprintf("swf: malformed container at offset %d: %s", e.Offset, e.Reason)
}

// IsMalformed reports whether err is or wraps a *MalformedContainerError
func IsMalformed(err error) bool {
	var malformed *MalformedContainerError
	return errors.As(err, &malformed)
}

func malformed(offset int, format string, args ...any) error {
	return &MalformedContainerError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
