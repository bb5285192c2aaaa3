// internal/core/errors.go
package core

import "errors"

var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrBufferEmpty       = errors.New("buffer empty")
	ErrWrite             = errors.New("write error")
	ErrConversion        = errors.New("conversion failure")
	ErrUpload            = errors.New("upload failure")
	ErrPayloadTooLarge   = errors.New("payload too large")
)
