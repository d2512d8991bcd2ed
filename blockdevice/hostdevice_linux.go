//go:build linux

package blockdevice

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// ioctl request numbers for discovering a real block device's geometry, the
// same constants the teacher's disk package uses.
const (
	blkSSZGet = 0x1268
)

// HostDevice is a Device backed by a real block device node (e.g. /dev/sda),
// discovering its native sector size via ioctl rather than assuming one.
type HostDevice struct {
	f          *os.File
	sectorSize int
	sectors    int
}

// OpenHostDevice opens a block device node and sizes it via BLKSSZGET, the
// same ioctl the teacher's disk.getSectorSizes uses for the logical sector
// size.
func OpenHostDevice(path string) (*HostDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_EXCL, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	sectorSize, err := unix.IoctlGetInt(int(f.Fd()), blkSSZGet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdevice: get logical sector size of %s: %w", path, err)
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdevice: size %s: %w", path, err)
	}
	if size%int64(sectorSize) != 0 {
		f.Close()
		return nil, fmt.Errorf("blockdevice: %s size %d is not a multiple of sector size %d", path, size, sectorSize)
	}

	return &HostDevice{f: f, sectorSize: sectorSize, sectors: int(size / int64(sectorSize))}, nil
}

func (d *HostDevice) SectorSize() int  { return d.sectorSize }
func (d *HostDevice) SectorCount() int { return d.sectors }

func (d *HostDevice) ReadSector(index int, buf []byte) error {
	if index < 0 || index >= d.sectors {
		return fmt.Errorf("blockdevice: sector index %d out of range [0, %d)", index, d.sectors)
	}
	if len(buf) != d.sectorSize {
		return fmt.Errorf("blockdevice: read buffer length %d does not match sector size %d", len(buf), d.sectorSize)
	}
	if _, err := d.f.ReadAt(buf, int64(index)*int64(d.sectorSize)); err != nil {
		return fmt.Errorf("read sector %d: %w", index, err)
	}
	return nil
}

func (d *HostDevice) WriteSector(index int, buf []byte) error {
	if index < 0 || index >= d.sectors {
		return fmt.Errorf("blockdevice: sector index %d out of range [0, %d)", index, d.sectors)
	}
	if len(buf) != d.sectorSize {
		return fmt.Errorf("blockdevice: write buffer length %d does not match sector size %d", len(buf), d.sectorSize)
	}
	if _, err := d.f.WriteAt(buf, int64(index)*int64(d.sectorSize)); err != nil {
		return fmt.Errorf("write sector %d: %w", index, err)
	}
	return nil
}

// Close closes the underlying device file.
func (d *HostDevice) Close() error {
	return d.f.Close()
}
