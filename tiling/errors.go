package tiling

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for tile configurations that cannot form a grid.
	ErrInvalidConfig = errors.New("tiling: invalid tile configuration")

	// ErrEmptyImage is returned when the input has no pixels.
	ErrEmptyImage = errors.New("tiling: empty image")

	// ErrCancelled is returned when the cancellation check fires between tiles.
	ErrCancelled = errors.New("tiling: cancelled")

	// ErrOutputShape is returned when inference returns a buffer of a different shape.
	ErrOutputShape = errors.New("tiling: inference output shape mismatch")
)

// TileError reports a failed tile inference.
type TileError struct {
	Index int // tile index in grid order
	Total int
	Code  int // backend status code, 0 when the failure carried no code
	Err   error
}

func (e *TileError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("tiling: tile %d/%d failed with status %d: %v", e.Index+1, e.Total, e.Code, e.Err)
	}
	return fmt.Sprintf("tiling: tile %d/%d failed: %v", e.Index+1, e.Total, e.Err)
}

func (e *TileError) Unwrap() error {
	return e.Err
}
