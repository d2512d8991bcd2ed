package ext2

import "encoding/binary"

// layout is a thin little-endian accessor over a fixed-size byte buffer. It
// is the declarative backbone every on-disk record below decodes/encodes
// through: every record in this package is a flat, offset-addressed binary
// layout, and centralizing the field access here removes the repetition
// that hand-rolling binary.LittleEndian calls per field would otherwise
// scatter across superblock.go, groupdescriptor.go, inode.go and direntry.go.
type layout struct {
	buf []byte
}

func newLayout(buf []byte) layout {
	return layout{buf: buf}
}

func (l layout) u8(off int) uint8 { return l.buf[off] }

func (l layout) u16(off int) uint16 { return binary.LittleEndian.Uint16(l.buf[off : off+2]) }

func (l layout) u32(off int) uint32 { return binary.LittleEndian.Uint32(l.buf[off : off+4]) }

func (l layout) raw(off, n int) []byte {
	b := make([]byte, n)
	copy(b, l.buf[off:off+n])
	return b
}

func (l layout) putU8(off int, v uint8) { l.buf[off] = v }

func (l layout) putU16(off int, v uint16) { binary.LittleEndian.PutUint16(l.buf[off:off+2], v) }

func (l layout) putU32(off int, v uint32) { binary.LittleEndian.PutUint32(l.buf[off:off+4], v) }

func (l layout) putRaw(off int, v []byte) { copy(l.buf[off:off+len(v)], v) }

// align4 rounds n up to the next multiple of 4, the alignment every
// directory entry's total_size must satisfy.
func align4(n int) int {
	return (n + 3) &^ 3
}
