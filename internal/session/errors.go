package session

import "errors"

var (
	// ErrBusy rejects SendMessage while a turn is still streaming.
	ErrBusy = errors.New("a turn is already streaming")

	// ErrNotConnected rejects SendMessage while the channel is down.
	ErrNotConnected = errors.New("assistant channel is not connected")

	// ErrAlreadyResolved reports a confirm/cancel that lost the race against
	// another transition. Callers swallow it; the first transition won.
	ErrAlreadyResolved = errors.New("confirmation already resolved")

	// ErrUnknownConfirm reports a confirm/cancel for an id this session never saw.
	ErrUnknownConfirm = errors.New("unknown confirmation id")
)
