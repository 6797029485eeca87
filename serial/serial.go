package serial

import (
	"errors"
	"io"

	"github.com/jacobsa/go-serial/serial"

	"github.com/ftl/iso8583-parser/com"
)

var (
	NoTracePortFound = errors.New("no trace port found")
)

// DefaultBaudRate is the baud rate of the trace port of most payment terminals.
const DefaultBaudRate = 9600

// Port describes the serial port that delivers hex encoded messages, one per line.
type Port struct {
	Name     string
	BaudRate uint
}

// Open opens the given port and starts a session that passes every received line to the handler.
// The returned closer ends the session.
func Open(port Port, handler com.LineHandler) (*com.Session, io.Closer, error) {
	device, err := openSerial(port)
	if err != nil {
		return nil, nil, err
	}

	return com.New(device, handler), device, nil
}

// OpenWithTrace is like Open, but traces all received lines to the given writer.
func OpenWithTrace(port Port, tracer io.Writer, handler com.LineHandler) (*com.Session, io.Closer, error) {
	device, err := openSerial(port)
	if err != nil {
		return nil, nil, err
	}

	return com.NewWithTrace(device, tracer, handler), device, nil
}

func openSerial(port Port) (io.ReadWriteCloser, error) {
	return serial.Open(portOptions(port))
}

func portOptions(port Port) serial.OpenOptions {
	baudRate := port.BaudRate
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return serial.OpenOptions{
		PortName:              port.Name,
		BaudRate:              baudRate,
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		MinimumReadSize:       1,
		InterCharacterTimeout: 100,
	}
}
