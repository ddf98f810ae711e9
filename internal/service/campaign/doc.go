// Package campaign implements campaign lifecycle management.
//
// The service layer contains all business logic for creating, editing,
// and sending campaigns. Sending resolves the campaign's segment to a
// concrete audience and hands it to the delivery dispatcher; the
// dispatcher owns the status transitions from sending onward.
//
// Repository implementations live in repository/postgres/ and
// repository/memory/.
package campaign
