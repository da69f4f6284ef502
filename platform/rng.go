package platform

import "crypto/rand"

// RNG is the kernel's source of random identifiers (schedule PIDs, pool
// slot tokens), grounded on the same crypto/rand the teacher's bus package
// uses for its genID helper (bus/bus.go).
type RNG struct{}

// Uint32 returns a random, non-cryptographic-strength-guaranteed but
// unpredictable-enough 32-bit value.
func (RNG) Uint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// DefaultRNG is the RNG every production Kernel wires in.
var DefaultRNG RNG
