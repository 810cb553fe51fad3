package chathub_test

import (
	"campusconnect/backend/internal/models"
	"sync"

	"github.com/stretchr/testify/mock"
)

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) Send(evt models.Event) error {
	args := m.Called(evt)
	return args.Error(0)
}

func (m *MockConnection) Close() {
	m.Called()
}

func newMockConnection() *MockConnection {
	c := new(MockConnection)
	c.On("Send", mock.Anything).Return(nil)
	c.On("Close").Return()
	return c
}

// recordingConn keeps every delivered event; safe for concurrent use.
type recordingConn struct {
	mu     sync.Mutex
	events []models.Event
	closed bool
}

func (c *recordingConn) Send(evt models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *recordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingConn) Events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

func (c *recordingConn) count(t models.EventType) int {
	n := 0
	for _, evt := range c.Events() {
		if evt.Type == t {
			n++
		}
	}
	return n
}
