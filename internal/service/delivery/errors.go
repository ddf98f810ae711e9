package delivery

import "errors"

// Sentinel errors for the delivery pipeline.
var (
	// ErrAlreadySending means another send of the same campaign won the
	// single-flight race.
	ErrAlreadySending = errors.New("campaign is already sending or sent")

	// ErrIntegrity means the attempt count diverged from the audience
	// size after dispatch. The pipeline is built so this cannot happen;
	// if it does, the send is marked failed rather than reporting
	// inconsistent metrics.
	ErrIntegrity = errors.New("delivery attempt count does not match audience size")

	// ErrLogNotFound is returned by LogStore implementations when a
	// delivery receipt references a message with no log entry.
	ErrLogNotFound = errors.New("communication log entry not found")
)
