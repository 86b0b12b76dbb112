package recommender

import (
	"errors"
	"fmt"
)

// ErrInsufficientInput is matched by every InsufficientInputError.
var ErrInsufficientInput = errors.New("insufficient ratings")

// InsufficientInputError is returned when fewer ratings than required were
// supplied. The count is taken before unknown items are filtered out.
type InsufficientInputError struct {
	Got      int
	Required int
}

func (e *InsufficientInputError) Error() string {
	return fmt.Sprintf("insufficient ratings: got %d, need at least %d", e.Got, e.Required)
}

func (e *InsufficientInputError) Is(target error) bool { return target == ErrInsufficientInput }
