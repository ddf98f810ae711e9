package segments

import "errors"

// Sentinel errors for the segments service layer.
var (
	ErrNotFound     = errors.New("segment not found")
	ErrInvalidRules = errors.New("invalid segment rules")
)
