//go:build rp2040

package platform

import (
	"context"
	"errors"

	"github.com/jangala-dev/tinygo-uartx/uartx"
	"machine"
)

var errUnknownUART = errors.New("platform: unknown UART id")

// mcuSerialPort adapts a tinygo-uartx UART to SerialPort, the same shape the
// teacher's rp2SerialPort gives services/hal's core.SerialPort.
type mcuSerialPort struct{ u *uartx.UART }

// NewMCUSerial configures uart0 or uart1 on the given TX/RX pins and returns
// it as a SerialPort. Baud and pin defaults come from uartx when zero.
func NewMCUSerial(id string, baud uint32, tx, rx int) (SerialPort, error) {
	var hw *uartx.UART
	switch id {
	case "uart0":
		hw = uartx.UART0
	case "uart1":
		hw = uartx.UART1
	default:
		return nil, errUnknownUART
	}
	if err := hw.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.Pin(tx),
		RX:       machine.Pin(rx),
	}); err != nil {
		return nil, err
	}
	return &mcuSerialPort{u: hw}, nil
}

func (p *mcuSerialPort) Write(b []byte) (int, error) { return p.u.Write(b) }

func (p *mcuSerialPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	return p.u.RecvSomeContext(ctx, buf)
}

func (p *mcuSerialPort) SetBaudRate(baud uint32) error {
	p.u.SetBaudRate(baud)
	return nil
}

// SetFormat accepts "none", "even", "odd" parity, defaulting to none.
func (p *mcuSerialPort) SetFormat(databits, stopbits uint8, parity string) error {
	var par uartx.UARTParity
	switch parity {
	case "even":
		par = uartx.ParityEven
	case "odd":
		par = uartx.ParityOdd
	default:
		par = uartx.ParityNone
	}
	return p.u.SetFormat(databits, stopbits, par)
}
