package campaign

import "errors"

// Sentinel errors for the campaign service layer.
var (
	ErrNotFound          = errors.New("campaign not found")
	ErrSegmentNotFound   = errors.New("campaign segment not found")
	ErrEmptyAudience     = errors.New("segment matches no customers")
	ErrAlreadySending    = errors.New("campaign is already sending or sent")
	ErrInvalidTransition = errors.New("invalid status transition")
)
