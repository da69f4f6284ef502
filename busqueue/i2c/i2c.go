// Package i2c specializes busqueue for I²C: a ping map, a slave registry,
// and a Transactor driving tinygo.org/x/drivers.I2C through the generic
// BusOp state machine (spec.md §4.5). Grounded on the teacher's
// drivers/ltc4015/bus.go raw Tx calls, lifted behind the shared queue
// instead of being issued directly from the driver.
package i2c

import (
	"sync"

	"manuvr-go/busqueue"
)

// Bus is the subset of tinygo.org/x/drivers.I2C this package needs.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// PingState is one entry in the ping map, one entry per 7-bit address
// (spec.md §4.5).
type PingState uint8

const (
	Unprobed PingState = iota
	NoDevice
	Present
	Reserved
)

func (p PingState) String() string {
	switch p {
	case NoDevice:
		return "no-device"
	case Present:
		return "present"
	case Reserved:
		return "reserved"
	default:
		return "unprobed"
	}
}

const pingMapSize = 128

// Slave is a device that has registered itself against one Adapter address
// (spec.md §4.6: "Each driver registers as a receiver and (if I²C) as a
// slave on one adapter").
type Slave interface {
	Address() uint16
}

// Adapter wraps a busqueue.Adapter with I²C-specific bookkeeping: pin
// identity, ping map, slave list, and bus-wide flags.
type Adapter struct {
	*busqueue.Adapter

	bus Bus

	mu       sync.Mutex
	pingMap  [pingMapSize]PingState
	slaves   map[uint16]Slave
	busError bool
	online   bool
	pingRan  bool
	pinging  bool
}

// NewAdapter builds an I²C Adapter over bus, with preallocCount BusOps and
// a work queue capped at queueDepthCap.
func NewAdapter(bus Bus, preallocCount, queueDepthCap int) *Adapter {
	a := &Adapter{bus: bus, slaves: map[uint16]Slave{}}
	a.Adapter = busqueue.NewAdapter(&transactor{bus: bus}, preallocCount, queueDepthCap)
	a.online = true
	return a
}

// AttachSlave registers s against its own address. Re-adding an existing
// address is rejected with FaultExists; a colliding different slave at the
// same address with FaultCollision (spec.md §6 fault taxonomy).
func (a *Adapter) AttachSlave(s Slave) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	addr := s.Address()
	if existing, ok := a.slaves[addr]; ok {
		if existing == s {
			return faultError{busqueue.FaultExists}
		}
		return faultError{busqueue.FaultCollision}
	}
	a.slaves[addr] = s
	return nil
}

// DetachSlave removes a previously attached slave.
func (a *Adapter) DetachSlave(addr uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.slaves, addr)
}

// SlaveAt returns the slave registered at addr, if any.
func (a *Adapter) SlaveAt(addr uint16) (Slave, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slaves[addr]
	return s, ok
}

// PingDevice emits a zero-length TX-cmd to addr, blocking until the bus
// reports success or failure, and records the result in the ping map
// (spec.md §4.5 "Device pinging").
func (a *Adapter) PingDevice(addr uint16) PingState {
	err := a.bus.Tx(addr, nil, nil)
	state := Present
	if err != nil {
		state = NoDevice
	}
	a.mu.Lock()
	if addr < pingMapSize {
		a.pingMap[addr] = state
	}
	a.mu.Unlock()
	return state
}

// PingAll pings every 7-bit address (0x00-0x7F) and records results.
func (a *Adapter) PingAll() {
	a.mu.Lock()
	a.pinging = true
	a.mu.Unlock()
	for addr := uint16(0); addr < pingMapSize; addr++ {
		a.PingDevice(addr)
	}
	a.mu.Lock()
	a.pinging = false
	a.pingRan = true
	a.mu.Unlock()
}

// DumpPingMap returns a copy of the current ping-map table.
func (a *Adapter) DumpPingMap() [pingMapSize]PingState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pingMap
}

// faultError lets AttachSlave report a busqueue.FaultCode as an
// error without pulling busqueue's fault taxonomy into a parallel errcode
// hierarchy; busqueue.FaultCode is already the single source of truth.
type faultError struct{ code busqueue.FaultCode }

func (e faultError) Error() string { return e.code.String() }

// Fault extracts the FaultCode from an error produced by this package, if
// any.
func Fault(err error) (busqueue.FaultCode, bool) {
	fe, ok := err.(faultError)
	return fe.code, ok
}
