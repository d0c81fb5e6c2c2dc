package player

import "errors"

var (
	// ErrPopTimeout is returned by PopWait when no track arrives within the
	// wait window.
	ErrPopTimeout = errors.New("queue: pop timed out")

	// ErrQueueClosed is returned once a queue has been closed by a stop or
	// by idle teardown. The queue never reopens.
	ErrQueueClosed = errors.New("queue: closed")

	// ErrOutOfRange is returned by RemoveAt when the position does not name
	// a queued track.
	ErrOutOfRange = errors.New("queue: position out of range")
)
