package stream

import "errors"

var (
	// ErrChannelNotFound is returned for operations on an unknown channel id.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrAlreadyActive is returned when starting a channel that is already
	// starting or active.
	ErrAlreadyActive = errors.New("channel already active")

	// ErrMaxChannels is returned when the channel registry is full.
	ErrMaxChannels = errors.New("maximum number of channels reached")

	// ErrDiscoveryFailed is returned when no candidate URL yields a decodable
	// frame. The channel stays stopped and is not retried automatically.
	ErrDiscoveryFailed = errors.New("no candidate URL yielded a decodable stream")

	// ErrStopRequested aborts discovery or reconnection mid-sequence.
	ErrStopRequested = errors.New("stop requested")
)
