// Package segments implements segment lifecycle management.
//
// The service layer contains all business logic for creating, editing,
// previewing, and deleting customer segments. It depends on repository
// interfaces defined in this package and should never import from the
// api handlers.
//
// Repository implementations live in repository/postgres/ and
// repository/memory/.
package segments
