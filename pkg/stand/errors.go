package stand

import "errors"

var (
	// ErrClosed is returned once Close has stopped the service goroutine.
	ErrClosed = errors.New("stand service is closed")
	// ErrNotOpen is returned when an order is placed while no day is running.
	ErrNotOpen = errors.New("no operating day is open")
	// ErrNothingToReceive means no unreceived order matched the ticket.
	ErrNothingToReceive = errors.New("no unreceived order for ticket")
	// ErrPersistence wraps gateway failures. In-memory state is kept as is.
	ErrPersistence = errors.New("persistence failed")
)

// InvalidRequestError reports a malformed order or query.
type InvalidRequestError struct {
	Message string
}

func (e InvalidRequestError) Error() string { return e.Message }

func invalid(msg string) error { return InvalidRequestError{Message: msg} }

// IsInvalidRequest lets handlers tell request mistakes from state conflicts.
func IsInvalidRequest(err error) bool {
	var v InvalidRequestError
	return errors.As(err, &v)
}
