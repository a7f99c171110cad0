package asset

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTicket = errors.New("asset: unknown ticket")
	ErrNotFailed     = errors.New("asset: ticket is not failed")
	ErrConflict      = errors.New("asset: id already requested with a different path or kind")
)

// MissingLabelError reports a labelled sub-asset absent from a successfully
// decoded file.
type MissingLabelError struct {
	Path  string
	Label Label
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("asset %s: no element %s", e.Path, e.Label)
}
