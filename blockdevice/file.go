package blockdevice

import (
	"fmt"
	"os"
)

// File is an os.File-backed Device, used to mount ext2 images stored as
// regular files rather than real block devices.
type File struct {
	f          *os.File
	sectorSize int
	sectors    int
}

// OpenFile opens path and treats it as a Device with the given sector size.
// The file's size must be a multiple of sectorSize.
func OpenFile(path string, sectorSize int) (*File, error) {
	if sectorSize <= 0 {
		return nil, fmt.Errorf("blockdevice: sector size must be positive, got %d", sectorSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size()%int64(sectorSize) != 0 {
		f.Close()
		return nil, fmt.Errorf("blockdevice: %s size %d is not a multiple of sector size %d", path, info.Size(), sectorSize)
	}
	return &File{f: f, sectorSize: sectorSize, sectors: int(info.Size() / int64(sectorSize))}, nil
}

func (d *File) SectorSize() int  { return d.sectorSize }
func (d *File) SectorCount() int { return d.sectors }

func (d *File) ReadSector(index int, buf []byte) error {
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

func (d *File) WriteSector(index int, buf []byte) error {
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

// Close closes the underlying file.
func (d *File) Close() error {
	return d.f.Close()
}
