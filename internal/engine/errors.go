package engine

import "errors"

// ErrNotSupported is returned when the active backend does not
// implement the requested capability, such as group administration in
// real mode where the vendor owns group definitions.
var ErrNotSupported = errors.New("engine: operation not supported by backend")
