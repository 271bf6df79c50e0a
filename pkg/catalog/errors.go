package catalog

import "errors"

var (
	// ErrNotFound is returned when an item id does not exist so HTTP handlers can respond with 404.
	ErrNotFound = errors.New("catalog item not found")
	// ErrDuplicate is returned when an item with the same name and price is already registered.
	ErrDuplicate = errors.New("an item with the same name and price already exists")
	// ErrNameTaken is returned when the name exists with another price; callers offer a price edit instead.
	ErrNameTaken = errors.New("an item with the same name already exists")
)

// ValidationError communicates input rule violations back to the caller.
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

// IsValidation helps callers distinguish between input and state failures.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}
