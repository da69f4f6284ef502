//go:build rp2040

package platform

import (
	"context"
	"io"

	"manuvr-go/services/bridge"
)

func init() {
	bridge.UARTDial = dialBridgeUART
}

// serialReadWriteCloser adapts a SerialPort to io.ReadWriteCloser for
// bridge.UARTDial; RP2040 UARTs have no separate close step.
type serialReadWriteCloser struct {
	SerialPort
	ctx context.Context
}

func (s *serialReadWriteCloser) Read(p []byte) (int, error) {
	return s.RecvSomeContext(s.ctx, p)
}

func (s *serialReadWriteCloser) Close() error { return nil }

// dialBridgeUART opens uart0 with the pins and baud the bridge's config
// names, wired exactly where bridge.go documents a platform package should
// (its UARTDial hook).
func dialBridgeUART(ctx context.Context, u bridge.UARTConfig) (io.ReadWriteCloser, error) {
	port, err := NewMCUSerial("uart0", uint32(u.Baud), u.TxPin, u.RxPin)
	if err != nil {
		return nil, err
	}
	return &serialReadWriteCloser{SerialPort: port, ctx: ctx}, nil
}
