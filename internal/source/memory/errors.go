package memory

import "errors"

// ErrSourceClosed is returned when publishing to a closed source.
var ErrSourceClosed = errors.New("source is closed")
