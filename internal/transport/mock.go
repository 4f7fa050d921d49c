package transport

import (
	"sync"
)

// MockSender records every datagram, it is used by tests of the pipeline
type MockSender struct {
	mu      sync.Mutex
	sent    [][]byte
	closed  bool
	sendErr error
	notify  chan struct{}
}

// NewMockSender creates a mock, notify receives a token after every send if not nil
func NewMockSender(notify chan struct{}) *MockSender {
	return &MockSender{notify: notify}
}

// FailWith makes all following sends fail with err, nil restores success
func (m *MockSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

func (m *MockSender) Send(b []byte) error {
	m.mu.Lock()
	err := m.sendErr
	if err == nil {
		m.sent = append(m.sent, append([]byte(nil), b...))
	}
	m.mu.Unlock()

	if m.notify != nil {
		select {
		case m.notify <- struct{}{}:
		default:
		}
	}

	return err
}

// Sent returns a copy of all successfully sent datagrams
func (m *MockSender) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockSender) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockSender) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockSender) String() string {
	return "mock://"
}

// MockDialer hands out the configured sender or error and records the endpoints
type MockDialer struct {
	mu        sync.Mutex
	Sender    Sender
	Err       error
	Endpoints []Endpoint
}

func (d *MockDialer) Dial(e Endpoint) (Sender, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Endpoints = append(d.Endpoints, e)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Sender, nil
}
