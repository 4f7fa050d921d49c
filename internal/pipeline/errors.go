package pipeline

import (
	"errors"
	"fmt"

	"github.com/LeoCommon/egrim/internal/transport"
)

var (
	ErrAlreadyRunning = errors.New("pipeline is already running")
	ErrNotRunning     = errors.New("pipeline is not running")
)

// InitializationError is returned by Start when the transport could not be created.
// The pipeline stays idle.
type InitializationError struct {
	Endpoint transport.Endpoint
	Err      error
}

func (i *InitializationError) Error() string {
	return fmt.Sprintf("failed to initialize transport to %s: %v", i.Endpoint, i.Err)
}

func (i *InitializationError) Unwrap() error {
	return i.Err
}

func (i *InitializationError) Is(e error) bool {
	_, ok := e.(*InitializationError)
	return ok
}

// TransmissionError records a single failed send, the packet is dropped
type TransmissionError struct {
	PacketNumber uint32
	Err          error
}

func (t *TransmissionError) Error() string {
	return fmt.Sprintf("failed to send packet %d: %v", t.PacketNumber, t.Err)
}

func (t *TransmissionError) Unwrap() error {
	return t.Err
}

func (t *TransmissionError) Is(e error) bool {
	_, ok := e.(*TransmissionError)
	return ok
}
