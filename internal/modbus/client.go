package modbus

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	mb "github.com/goburrow/modbus"
)

// RequestTimeout is the per-request deadline on the slave session
const RequestTimeout = 5 * time.Second

// ErrTimeout marks a request that exhausted its deadline. This is the
// only error class that tears the transports down; everything else
// skips the point and keeps the session.
var ErrTimeout = errors.New("modbus: request timed out")

// Session is a long-lived request/response session against one
// MODBUS/TCP slave endpoint
type Session struct {
	handler *mb.TCPClientHandler
	client  mb.Client
}

// NewSession builds a session bound to host:port. The TCP connection is
// established lazily on the first request.
func NewSession(host string, port int) *Session {
	handler := mb.NewTCPClientHandler(fmt.Sprintf("%s:%d", host, port))
	handler.Timeout = RequestTimeout

	return &Session{
		handler: handler,
		client:  mb.NewClient(handler),
	}
}

// Read issues one request for the given validated address and decodes
// the response into a typed value
func (s *Session) Read(addr Address) (Value, error) {
	s.handler.SlaveId = addr.SlaveID

	var data []byte
	var err error
	switch addr.FunctionCode {
	case 1:
		data, err = s.client.ReadCoils(addr.Offset, addr.NumberOfRegisters)
	case 2:
		data, err = s.client.ReadDiscreteInputs(addr.Offset, addr.NumberOfRegisters)
	case 3:
		data, err = s.client.ReadHoldingRegisters(addr.Offset, addr.NumberOfRegisters)
	case 4:
		data, err = s.client.ReadInputRegisters(addr.Offset, addr.NumberOfRegisters)
	default:
		return Value{}, &AddressError{Reason: fmt.Sprintf("unsupported function_code %d", addr.FunctionCode)}
	}
	if err != nil {
		return Value{}, classify(err)
	}

	return decodeValue(addr.FunctionCode, addr.Format, data)
}

// Close releases the underlying TCP connection
func (s *Session) Close() error {
	return s.handler.Close()
}

// classify separates deadline exhaustion from every other transport
// error so the supervisor can key its fault cascade on errors.Is.
func classify(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("modbus: %w", err)
}
