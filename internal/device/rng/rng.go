// Package rng implements the kernel's hardware random-number collaborator,
// backed by the host's cryptographic random source.
//
// original_source's rng.rs lazily initializes an optional HwRng and
// forwards rand/r_rand/entropy calls to it, returning a "not ready" signal
// if the hardware hasn't been brought up yet; here, entropy exhaustion is
// simulated by an explicit budget rather than real hardware state, since
// crypto/rand.Reader never actually runs dry.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
)

// ErrExhausted is returned when the simulated entropy budget has been
// spent.
var ErrExhausted = errors.New("rng: entropy exhausted")

// Source draws randomness from an io.Reader (crypto/rand.Reader in
// production, a deterministic stream in tests) and tracks a simulated
// entropy budget that depletes with use and is never replenished within a
// kernel's lifetime -- mirroring hardware RNGs that must periodically
// recondition.
type Source struct {
	reader  io.Reader
	budget  int
	maximum int
}

// New creates a Source reading from crypto/rand.Reader with the given
// initial entropy budget, in bits.
func New(budgetBits int) *Source {
	return &Source{reader: rand.Reader, budget: budgetBits, maximum: budgetBits}
}

// NewFromReader creates a Source reading from an arbitrary stream, for
// deterministic tests.
func NewFromReader(r io.Reader, budgetBits int) *Source {
	return &Source{reader: r, budget: budgetBits, maximum: budgetBits}
}

// Rand returns a full 64-bit random value.
func (s *Source) Rand() (uint64, error) {
	if s.budget <= 0 {
		return 0, ErrExhausted
	}

	var buf [8]byte

	if _, err := io.ReadFull(s.reader, buf[:]); err != nil {
		return 0, err
	}

	s.budget -= 64

	return binary.BigEndian.Uint64(buf[:]), nil
}

// RRand returns a value uniformly distributed in [0, bound).
func (s *Source) RRand(bound uint64) (uint64, error) {
	if bound == 0 {
		return 0, nil
	}

	v, err := s.Rand()
	if err != nil {
		return 0, err
	}

	return v % bound, nil
}

// Entropy reports the estimated bits of entropy remaining in the budget.
func (s *Source) Entropy() int {
	if s.budget < 0 {
		return 0
	}

	return s.budget
}
