package platform

import "context"

// SerialPort is the byte-stream contract the bridge transport's UART dialer
// and a console/REPL pipe consume, independent of which UART peripheral (or
// host pty) backs it. Production RP2040 builds wire a concrete SerialPort
// over github.com/jangala-dev/tinygo-uartx (platform/serial_mcu.go); hosted
// builds and tests use NoopSerialPort.
type SerialPort interface {
	Write(b []byte) (int, error)
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
	SetBaudRate(baud uint32) error
	SetFormat(databits, stopbits uint8, parity string) error
}

// NoopSerialPort discards writes and never yields a byte, for hosted builds
// and tests where no real UART exists. Written bytes are retained so tests
// can assert on what a driver tried to send.
type NoopSerialPort struct {
	Written  []byte
	BaudRate uint32
}

func (p *NoopSerialPort) Write(b []byte) (int, error) {
	p.Written = append(p.Written, b...)
	return len(b), nil
}

func (p *NoopSerialPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (p *NoopSerialPort) SetBaudRate(baud uint32) error {
	p.BaudRate = baud
	return nil
}

func (p *NoopSerialPort) SetFormat(databits, stopbits uint8, parity string) error {
	return nil
}
