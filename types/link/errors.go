package link

import "errors"

var (
	// ErrCapacity is returned when a table is full and a new address must be admitted.
	ErrCapacity = errors.New("capacity exceeded")

	// ErrBusy is returned when discovery is requested while another candidate is in flight.
	ErrBusy = errors.New("discovery busy with another candidate")

	ErrNotFound = errors.New("peer not found")

	ErrInvalidState = errors.New("peer is not in a state that permits this operation")

	// ErrNotPermitted is returned when the current mode does not allow an administrative request.
	ErrNotPermitted = errors.New("not permitted in current mode")

	// ErrPeerActive is returned when removing a peer that has a link up or in negotiation.
	ErrPeerActive = errors.New("peer has an active link")

	ErrStopped = errors.New("link manager stopped")
)
