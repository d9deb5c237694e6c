package features

import (
	"fmt"

	"github.com/RyanBlaney/sonido-embed/config"
)

// DecodeError marks audio that could not be read or was empty. It is
// recoverable per item: batch extraction records it and moves on.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode audio: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ShapeError means a tensor or embedding came out with the wrong shape.
// It indicates a logic error and aborts the batch.
type ShapeError struct {
	What string
	Got  []int
	Want []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s shape %v, want %v", e.What, e.Got, e.Want)
}

// ConfigError is shared with the config package
type ConfigError = config.ConfigError
