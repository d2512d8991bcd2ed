package blockdevice

import "fmt"

// Memory is an in-memory Device backing tests and synthetic fixtures. It is
// the Go counterpart of the original driver's MemoryBlockDevice.
type Memory struct {
	sectorSize int
	data       []byte
}

// NewMemory builds a Memory device of the given sector size over size bytes
// of zeroed backing storage. size must be a multiple of sectorSize.
func NewMemory(sectorSize, size int) (*Memory, error) {
	if sectorSize <= 0 {
		return nil, fmt.Errorf("blockdevice: sector size must be positive, got %d", sectorSize)
	}
	if size%sectorSize != 0 {
		return nil, fmt.Errorf("blockdevice: size %d is not a multiple of sector size %d", size, sectorSize)
	}
	return &Memory{sectorSize: sectorSize, data: make([]byte, size)}, nil
}

// NewMemoryFromBytes wraps an existing byte slice as a Memory device without
// copying it.
func NewMemoryFromBytes(sectorSize int, data []byte) (*Memory, error) {
	if sectorSize <= 0 {
		return nil, fmt.Errorf("blockdevice: sector size must be positive, got %d", sectorSize)
	}
	if len(data)%sectorSize != 0 {
		return nil, fmt.Errorf("blockdevice: data length %d is not a multiple of sector size %d", len(data), sectorSize)
	}
	return &Memory{sectorSize: sectorSize, data: data}, nil
}

func (m *Memory) SectorSize() int  { return m.sectorSize }
func (m *Memory) SectorCount() int { return len(m.data) / m.sectorSize }

func (m *Memory) Bytes() []byte { return m.data }

func (m *Memory) ReadSector(index int, buf []byte) error {
	if index < 0 || index >= m.SectorCount() {
		return fmt.Errorf("blockdevice: sector index %d out of range [0, %d)", index, m.SectorCount())
	}
	if len(buf) != m.sectorSize {
		return fmt.Errorf("blockdevice: read buffer length %d does not match sector size %d", len(buf), m.sectorSize)
	}
	off := index * m.sectorSize
	copy(buf, m.data[off:off+m.sectorSize])
	return nil
}

func (m *Memory) WriteSector(index int, buf []byte) error {
	if index < 0 || index >= m.SectorCount() {
		return fmt.Errorf("blockdevice: sector index %d out of range [0, %d)", index, m.SectorCount())
	}
	if len(buf) != m.sectorSize {
		return fmt.Errorf("blockdevice: write buffer length %d does not match sector size %d", len(buf), m.sectorSize)
	}
	off := index * m.sectorSize
	copy(m.data[off:off+m.sectorSize], buf)
	return nil
}
