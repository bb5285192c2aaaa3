// internal/drivers/errors.go
package drivers

import "errors"

var (
	ErrDriverNotFound = errors.New("no driver registered for this uri scheme")
	ErrReadFailed     = errors.New("frame read failed")
	ErrNotOpen        = errors.New("source not open")
)
