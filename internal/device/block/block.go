// Package block implements an in-memory BlockDevice, standing in for the
// real kernel's SD/MMC card.
package block

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned for a sector index beyond the device's capacity.
var ErrOutOfRange = errors.New("block: sector out of range")

// Device is a fixed-size in-memory block device.
type Device struct {
	sectorSize int
	sectors    [][]byte
}

// New creates a Device of count sectors, each sectorSize bytes.
func New(sectorSize int, count uint64) *Device {
	sectors := make([][]byte, count)
	for i := range sectors {
		sectors[i] = make([]byte, sectorSize)
	}

	return &Device{sectorSize: sectorSize, sectors: sectors}
}

func (d *Device) SectorSize() int { return d.sectorSize }

func (d *Device) SectorCount() uint64 { return uint64(len(d.sectors)) }

// ReadSector copies sector index into buf, which must be at least
// SectorSize bytes.
func (d *Device) ReadSector(index uint64, buf []byte) error {
	if index >= uint64(len(d.sectors)) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}

	copy(buf, d.sectors[index])

	return nil
}

// WriteSector copies buf into sector index, which must be at least
// SectorSize bytes.
func (d *Device) WriteSector(index uint64, buf []byte) error {
	if index >= uint64(len(d.sectors)) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, index)
	}

	copy(d.sectors[index], buf)

	return nil
}
