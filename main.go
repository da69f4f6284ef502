// Command manuvr-go boots the kernel, attaches the I²C-backed device
// drivers and the GPIO interrupt bridge, and starts the config/bridge/
// heartbeat collaborators on their own bus. It stands in for the teacher's
// board-specific main.go (power-rail sequencing over a fixed hal.Run loop);
// this one drives the generalized kernel+busqueue core instead, against a
// simulated I²C bus and GPIO pin since no real silicon is present on a host
// build.
package main

import (
	"context"
	"time"

	"manuvr-go/bus"
	"manuvr-go/busqueue/i2c"
	"manuvr-go/drivers/aht20"
	"manuvr-go/drivers/ltc4015"
	"manuvr-go/gpioworker"
	"manuvr-go/kernel"
	"manuvr-go/message"
	"manuvr-go/platform"
	"manuvr-go/receiver"
	"manuvr-go/services/bridge"
	"manuvr-go/services/config"
	"manuvr-go/services/console"
	"manuvr-go/services/heartbeat"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := message.NewRegistry()
	cfg := kernel.DefaultConfig()
	k := kernel.New(reg, cfg)

	sink := newDemoSink()
	_ = k.Subscribe(sink, 0)

	i2cBus := i2c.NewAdapter(newSimBus(), 8, 32)

	humidity := aht20.New(i2cBus)
	humidity.Configure()
	humidityRcv := aht20.NewReceiver(humidity, "aht20-0")
	_ = i2cBus.AttachSlave(humidityRcv)
	_ = k.Subscribe(humidityRcv, 5)

	chargerCfg := ltc4015.DefaultConfig()
	chargerCfg.RSNSB_uOhm = 10000
	chargerCfg.RSNSI_uOhm = 10000
	charger := ltc4015.New(i2cBus, chargerCfg)
	chargerRcv := ltc4015.NewReceiver(charger, "ltc4015-0")
	_ = i2cBus.AttachSlave(chargerRcv)
	_ = k.Subscribe(chargerRcv, 5)

	gw := gpioworker.New(k, 32)
	gw.Start(ctx)
	alertPin := &simIRQPin{num: 2}
	_, _ = gw.RegisterInput("ltc4015-0/alert", alertPin, platform.EdgeFalling, 5, false)

	b := bus.NewBus(4)
	svcConn := b.NewConnection("services")
	configConn := b.NewConnection("config")

	heartbeatSvc := &heartbeat.Service{}
	_ = heartbeatSvc.Start(ctx, svcConn)
	heartbeatRcv := heartbeat.NewReceiver(k, svcConn)
	heartbeatRcv.Start(ctx)

	bridgeSvcConn := b.NewConnection("bridge")
	go bridge.Start(ctx, bridgeSvcConn)
	bridgeRcv := bridge.NewReceiver(k, bridgeSvcConn)
	bridgeRcv.Start(ctx)

	deviceCtx := context.WithValue(ctx, config.CtxDeviceKey, "pico")
	configSvc := config.NewConfigService()
	configSvc.Start(deviceCtx, configConn)
	configRcv := config.NewReceiver(k, configConn)
	configRcv.Start(ctx)

	repl := console.New(&platform.NoopSerialPort{})
	repl.Register("aht20-0", humidityRcv)
	repl.Register("ltc4015-0", chargerRcv)
	repl.Start(ctx)

	if err := k.Bootstrap(); err != nil {
		panic(err)
	}

	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	readTick := time.NewTicker(2 * time.Second)
	defer readTick.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			elapsed := now.Sub(last)
			last = now
			for i2cBus.Depth() > 0 {
				if !i2cBus.AdvanceWorkQueue() {
					break
				}
			}
			k.AdvanceScheduler(uint32(elapsed.Milliseconds()))
			k.ProcIdleFlags()
		case <-readTick.C:
			_, _ = k.RaiseEvent(aht20.CodeReadNow, sink, 0)
			_, _ = k.RaiseEvent(ltc4015.CodeReadNow, sink, 0)
		}
	}
}

// demoSink subscribes to every kernel Message for console visibility and
// acts as the originator for on-demand sensor reads, the role a console/
// REPL Receiver would play per spec.md §4.3.
type demoSink struct {
	*receiver.Base
}

func newDemoSink() *demoSink {
	return &demoSink{Base: receiver.NewBase(7)}
}

func (s *demoSink) Attached() error { return nil }

func (s *demoSink) ProcDirectDebugInstruction(instruction string) error { return nil }

func (s *demoSink) Notify(m *message.Message) (int8, error) {
	switch m.Code() {
	case aht20.CodeSampleReady, ltc4015.CodeSnapshotReady, gpioworker.CodeGPIOEdge,
		heartbeat.CodeTick, bridge.CodeState, config.CodeLoaded:
		s.PrintDebug(7, "event code=0x%x args=%d", m.Code(), m.ArgCount())
		return 1, nil
	default:
		return 0, nil
	}
}

func (s *demoSink) CallbackProc(m *message.Message) message.CallbackCode {
	return message.Reap
}

// simBus fakes an I²C transport for host demo purposes: the AHT20's 7-byte
// measurement read returns a fixed sample whose status byte is calibrated
// and ready; every other read, including the AHT20's 1-byte status read,
// comes back zeroed.
type simBus struct{}

func newSimBus() *simBus { return &simBus{} }

func (b *simBus) Tx(addr uint16, w, r []byte) error {
	if addr == aht20.Address && len(r) == 7 {
		copy(r, []byte{0x08, 0x80, 0x00, 0x05, 0xC3, 0x8F, 0x00})
		return nil
	}
	for i := range r {
		r[i] = 0
	}
	return nil
}

// simIRQPin is a host-only GPIO stand-in satisfying platform.IRQPin; it
// never actually fires (no hardware interrupt source exists on a host
// build), the same hosted-build stand-in role platform.NoopRebooter plays.
type simIRQPin struct {
	num     int
	level   bool
	handler func()
}

func (p *simIRQPin) ConfigureInput(pull platform.Pull) error { return nil }
func (p *simIRQPin) ConfigureOutput(initial bool) error      { p.level = initial; return nil }
func (p *simIRQPin) Set(level bool)                          { p.level = level }
func (p *simIRQPin) Get() bool                               { return p.level }
func (p *simIRQPin) Toggle()                                 { p.level = !p.level }
func (p *simIRQPin) Number() int                             { return p.num }
func (p *simIRQPin) SetIRQ(edge platform.Edge, handler func()) error {
	p.handler = handler
	return nil
}
func (p *simIRQPin) ClearIRQ() error { p.handler = nil; return nil }
