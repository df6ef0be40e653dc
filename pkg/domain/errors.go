package domain

import "errors"

// ErrFlagNotFound is returned by a FlagStore when the flag ID is unknown.
var ErrFlagNotFound = errors.New("flag not found")

// ErrFlagNotModifiable is returned when an update targets a flag locked by configuration.
var ErrFlagNotModifiable = errors.New("flag not modifiable")
