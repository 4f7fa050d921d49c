package transport

import (
	"fmt"
	"io"

	"github.com/LeoCommon/egrim/pkg/log"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

const DefaultBaudRate = 115200

// SerialOptions describe the UART the FPGA ingest listens on
type SerialOptions struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// Normalize fills defaults and rejects values the serial driver does not support
func (o SerialOptions) Normalize() (SerialOptions, error) {
	if o.Path == "" {
		return o, fmt.Errorf("serial path is empty")
	}
	if o.BaudRate == 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.BaudRate < 0 {
		return o, fmt.Errorf("invalid baud rate %d", o.BaudRate)
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d", o.DataBits)
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.Parity == "" {
		o.Parity = "N"
	}

	return o, nil
}

// Mode converts the options into the structure go.bug.st/serial expects
func (o SerialOptions) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", opts.StopBits)
	}

	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", opts.Parity)
	}

	return mode, nil
}

// openPort is replaced in tests
var openPort = func(path string, mode *serial.Mode) (io.WriteCloser, error) {
	return serial.Open(path, mode)
}

// SerialSender writes every packet as one frame to a serial port
type SerialSender struct {
	port io.WriteCloser
	path string
}

// OpenSerial opens the port described by opts
func OpenSerial(opts SerialOptions) (*SerialSender, error) {
	mode, err := opts.Mode()
	if err != nil {
		return nil, err
	}

	port, err := openPort(opts.Path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", opts.Path, err)
	}

	log.Debug("serial sender ready", zap.String("path", opts.Path), zap.Int("baud", mode.BaudRate))
	return &SerialSender{port: port, path: opts.Path}, nil
}

// Serial returns a dialer that ignores the network endpoint and opens opts instead
func Serial(opts SerialOptions) Dialer {
	return func(Endpoint) (Sender, error) {
		s, err := OpenSerial(opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func (s *SerialSender) Send(b []byte) error {
	n, err := s.port.Write(b)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}

func (s *SerialSender) Close() error {
	return s.port.Close()
}

func (s *SerialSender) String() string {
	return "serial://" + s.path
}
