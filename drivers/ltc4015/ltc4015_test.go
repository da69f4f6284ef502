package ltc4015

import (
	"testing"

	"manuvr-go/busqueue/i2c"
)

// fakeRegBus backs a 16-bit little-endian register file. The transactor
// sends a register's sub-address as one Tx(addr, []byte{reg}, nil) call,
// then follows with a separate Tx carrying the 2-byte word payload — so
// fakeRegBus remembers the last addressed register across calls the same
// way the real LTC4015's internal register pointer would.
type fakeRegBus struct {
	regs    map[byte]uint16
	lastReg byte
}

func newFakeRegBus() *fakeRegBus { return &fakeRegBus{regs: make(map[byte]uint16)} }

func (b *fakeRegBus) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) == 1 && len(r) == 0:
		b.lastReg = w[0]
	case len(w) >= 2:
		v := uint16(w[0]) | uint16(w[1])<<8
		b.regs[b.lastReg] = v
	case len(r) >= 2:
		v := b.regs[b.lastReg]
		r[0] = byte(v)
		r[1] = byte(v >> 8)
	}
	return nil
}

func newTestDevice(bus *fakeRegBus) *Device {
	adapter := i2c.NewAdapter(bus, 4, 0)
	cfg := DefaultConfig()
	cfg.RSNSB_uOhm = 10000
	cfg.RSNSI_uOhm = 10000
	return New(adapter, cfg)
}

func TestWriteWordThenReadWordRoundTrips(t *testing.T) {
	bus := newFakeRegBus()
	d := newTestDevice(bus)

	if err := d.writeWord(regConfigBits, 0x1234); err != nil {
		t.Fatalf("writeWord: %v", err)
	}
	v, err := d.readWord(regConfigBits)
	if err != nil {
		t.Fatalf("readWord: %v", err)
	}
	if v != 0x1234 {
		t.Fatalf("readWord = 0x%x, want 0x1234", v)
	}
}

func TestDetectVariantMapsChemCellsCode(t *testing.T) {
	bus := newFakeRegBus()
	// code 0x6 in bits [11:8] => ChemVarLiFePO4Fix36.
	bus.regs[regChemCells] = 0x0600
	d := newTestDevice(bus)

	vt, err := d.DetectVariant()
	if err != nil {
		t.Fatalf("DetectVariant: %v", err)
	}
	if vt != ChemVarLiFePO4Fix36 {
		t.Fatalf("variant = %v, want ChemVarLiFePO4Fix36", vt)
	}
	if !vt.IsLiFePO4() || !vt.IsLithium() {
		t.Fatalf("expected LiFePO4/lithium variant, got %v", vt)
	}
}

func TestSetAndClearConfigBits(t *testing.T) {
	bus := newFakeRegBus()
	d := newTestDevice(bus)

	if err := d.SetConfigBits(0x0001); err != nil {
		t.Fatalf("SetConfigBits: %v", err)
	}
	cfg, err := d.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if !cfg.Has(0x0001) {
		t.Fatalf("config = 0x%x, want bit 0x1 set", cfg)
	}

	if err := d.ClearConfigBits(0x0001); err != nil {
		t.Fatalf("ClearConfigBits: %v", err)
	}
	cfg, err = d.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Has(0x0001) {
		t.Fatalf("config = 0x%x, want bit 0x1 cleared", cfg)
	}
}

func TestEnsureTargetsWritableGuard(t *testing.T) {
	bus := newFakeRegBus()
	adapter := i2c.NewAdapter(bus, 4, 0)
	cfg := DefaultConfig()
	cfg.RSNSB_uOhm = 10000
	cfg.RSNSI_uOhm = 10000
	cfg.TargetsWritable = false
	d := New(adapter, cfg)

	if err := d.ensureTargetsWritable(); err != ErrTargetsReadOnly {
		t.Fatalf("ensureTargetsWritable err = %v, want ErrTargetsReadOnly", err)
	}
}
