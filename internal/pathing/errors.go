package pathing

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/pai-pathfinder/internal/curriculum"
)

var (
	// ErrInvalidInput marks a malformed request. Nothing is written.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a topic id absent from the catalogue.
	ErrNotFound = curriculum.ErrNotFound
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
