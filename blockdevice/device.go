// Package blockdevice provides the sector-addressed device abstraction that
// the ext2 package consumes. A Device exposes only read_sector/write_sector;
// ReadAt/WriteAt sectorize arbitrary byte ranges on top of that primitive,
// the way a raw disk looks to anything above the driver.
package blockdevice

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Device is the primitive contract a block device must satisfy. Sector size
// and count are fixed for the lifetime of the device.
type Device interface {
	SectorSize() int
	SectorCount() int
	ReadSector(index int, buf []byte) error
	WriteSector(index int, buf []byte) error
}

var log = logrus.WithField("component", "blockdevice")

// ReadAt reads len(buf) bytes starting at byte offset off, sectorizing the
// range over d's sector size. A zero-length read is a no-op.
func ReadAt(d Device, off int64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	ss := int64(d.SectorSize())
	if ss <= 0 {
		return 0, fmt.Errorf("blockdevice: invalid sector size %d", ss)
	}

	start := off / ss
	end := (off + int64(len(buf)) - 1) / ss
	startOff := off % ss

	// Single sector, fully contained: short-circuit straight to ReadSector.
	if start == end {
		sector := make([]byte, ss)
		if err := d.ReadSector(int(start), sector); err != nil {
			return 0, fmt.Errorf("read sector %d: %w", start, err)
		}
		n := copy(buf, sector[startOff:startOff+int64(len(buf))])
		return n, nil
	}

	log.WithFields(logrus.Fields{"start_sector": start, "end_sector": end}).Trace("reading spanning sector range")

	staging := make([]byte, (end-start+1)*ss)
	for s := start; s <= end; s++ {
		rel := (s - start) * ss
		if err := d.ReadSector(int(s), staging[rel:rel+ss]); err != nil {
			return 0, fmt.Errorf("read sector %d: %w", s, err)
		}
	}
	n := copy(buf, staging[startOff:startOff+int64(len(buf))])
	return n, nil
}

// WriteAt writes buf starting at byte offset off, sectorizing the range over
// d's sector size. Partial sectors at either end are read-modify-written;
// fully-covered middle sectors are written directly. A zero-length write is
// a no-op.
func WriteAt(d Device, off int64, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	ss := int64(d.SectorSize())
	if ss <= 0 {
		return 0, fmt.Errorf("blockdevice: invalid sector size %d", ss)
	}

	start := off / ss
	end := (off + int64(len(buf)) - 1) / ss
	startOff := off % ss

	if start == end {
		sector := make([]byte, ss)
		if err := d.ReadSector(int(start), sector); err != nil {
			return 0, fmt.Errorf("read-modify-write sector %d: %w", start, err)
		}
		copy(sector[startOff:startOff+int64(len(buf))], buf)
		if err := d.WriteSector(int(start), sector); err != nil {
			return 0, fmt.Errorf("write sector %d: %w", start, err)
		}
		return len(buf), nil
	}

	written := 0
	for s := start; s <= end; s++ {
		sectorStart := s * ss
		sectorEnd := sectorStart + ss

		rangeStart := sectorStart
		if off > rangeStart {
			rangeStart = off
		}
		rangeEnd := sectorEnd
		if off+int64(len(buf)) < rangeEnd {
			rangeEnd = off + int64(len(buf))
		}

		if rangeStart == sectorStart && rangeEnd == sectorEnd {
			// Fully covered: write straight through, no read needed.
			chunk := buf[rangeStart-off : rangeEnd-off]
			if err := d.WriteSector(int(s), chunk); err != nil {
				return written, fmt.Errorf("write sector %d: %w", s, err)
			}
		} else {
			sector := make([]byte, ss)
			if err := d.ReadSector(int(s), sector); err != nil {
				return written, fmt.Errorf("read-modify-write sector %d: %w", s, err)
			}
			copy(sector[rangeStart-sectorStart:rangeEnd-sectorStart], buf[rangeStart-off:rangeEnd-off])
			if err := d.WriteSector(int(s), sector); err != nil {
				return written, fmt.Errorf("write sector %d: %w", s, err)
			}
		}
		written = int(rangeEnd - off)
	}
	return written, nil
}
