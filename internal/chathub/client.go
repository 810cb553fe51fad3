package chathub

import (
	"campusconnect/backend/internal/models"
	"errors"
)

var (
	// ErrConnectionClosed is returned by Send after Close.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a slow reader cannot keep up.
	ErrSendBufferFull = errors.New("send buffer full")
)

// Connection is one live session as seen by the Registry. It abstracts the
// transport so the registry can be exercised without sockets.
type Connection interface {
	// Send queues evt without blocking. A non-nil error means the event
	// was not queued and the connection should be dropped.
	Send(evt models.Event) error
	// Close releases the connection. It must be safe to call more than once.
	Close()
}
