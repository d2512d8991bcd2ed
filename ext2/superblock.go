package ext2

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	superblockOffset = 1024
	superblockSize   = 1024
	superblockMagic  = 0xEF53

	// featureIncompatFiletype is EXT2_FEATURE_INCOMPAT_FILETYPE: directory
	// entries carry a file-type byte instead of the high byte of name_length.
	featureIncompatFiletype = 0x0002
)

// Standard ext2 revision-1 superblock field offsets, relative to the start
// of the 1024-byte superblock region.
const (
	offNumInodes             = 0
	offNumBlocks             = 4
	offNumReservedBlocks     = 8
	offNumUnallocatedBlocks  = 12
	offNumUnallocatedInodes  = 16
	offFirstDataBlock        = 20
	offLogBlockSize          = 24
	offBlocksPerGroup        = 32
	offInodesPerGroup        = 40
	offMagic                 = 56
	offRevLevel              = 76
	offFirstInode            = 84
	offInodeSize             = 88
	offFeatureCompat         = 92
	offFeatureIncompat       = 96
	offFeatureROCompat       = 100
	offUUID                  = 104
	offVolumeName            = 120
	offVolumeNameLen         = 16
)

// Superblock holds the global, mutable metadata of a mounted ext2 volume. It
// is loaded once at mount and re-encoded/written back on every allocation,
// per spec.md §4.3.
type Superblock struct {
	NumInodes            uint32
	NumBlocks            uint32
	NumReservedBlocks    uint32
	NumUnallocatedBlocks uint32
	NumUnallocatedInodes uint32
	FirstDataBlock       uint32
	LogBlockSize         uint32
	BlocksPerGroup       uint32
	InodesPerGroup       uint32
	InodeSize            uint16
	RevLevel             uint32
	FirstInode           uint32
	FeatureCompat        uint32
	RequiredFeatures     uint32
	ROCompatFeatures     uint32
	UUID                 uuid.UUID
	VolumeName           string
}

// BlockSize returns the filesystem block size in bytes: 1024 << log_block_size.
func (sb *Superblock) BlockSize() uint32 {
	return 1024 << sb.LogBlockSize
}

// NumGroups returns ⌈num_blocks / blocks_per_group⌉.
func (sb *Superblock) NumGroups() uint32 {
	if sb.BlocksPerGroup == 0 {
		return 0
	}
	return (sb.NumBlocks + sb.BlocksPerGroup - 1) / sb.BlocksPerGroup
}

// DirEntriesHaveType reports whether directory entries carry a type byte
// instead of a 16-bit name_length (the only required feature this core
// honors).
func (sb *Superblock) DirEntriesHaveType() bool {
	return sb.RequiredFeatures&featureIncompatFiletype != 0
}

// bgdtOffset returns the byte offset of the block-group descriptor table:
// the block immediately following the superblock (block 2 when
// block_size == 1024, since the superblock itself occupies block 1; block 1
// otherwise, since block 0 already holds the superblock alongside the
// leading padding).
func (sb *Superblock) bgdtOffset() int64 {
	if sb.BlockSize() == 1024 {
		return blockByteOffset(2, sb.BlockSize())
	}
	return blockByteOffset(1, sb.BlockSize())
}

// blockByteOffset returns the byte offset of 0-based block b. Block 0 is the
// volume's first block_size bytes; the 1024-byte superblock always starts at
// absolute offset 1024, which lands inside block 0 for block_size > 1024 and
// is itself block 1 when block_size == 1024.
func blockByteOffset(b uint32, blockSize uint32) int64 {
	return int64(b) * int64(blockSize)
}

func decodeSuperblock(buf []byte) (*Superblock, error) {
	if len(buf) < superblockSize {
		return nil, fmt.Errorf("%w: buffer too short (%d bytes)", ErrInvalidSuperblock, len(buf))
	}
	l := newLayout(buf)

	magic := l.u16(offMagic)
	if magic != superblockMagic {
		return nil, fmt.Errorf("%w: magic %#04x, want %#04x", ErrInvalidSuperblock, magic, superblockMagic)
	}

	sb := &Superblock{
		NumInodes:            l.u32(offNumInodes),
		NumBlocks:            l.u32(offNumBlocks),
		NumReservedBlocks:    l.u32(offNumReservedBlocks),
		NumUnallocatedBlocks: l.u32(offNumUnallocatedBlocks),
		NumUnallocatedInodes: l.u32(offNumUnallocatedInodes),
		FirstDataBlock:       l.u32(offFirstDataBlock),
		LogBlockSize:         l.u32(offLogBlockSize),
		BlocksPerGroup:       l.u32(offBlocksPerGroup),
		InodesPerGroup:       l.u32(offInodesPerGroup),
		InodeSize:            128,
		RevLevel:             l.u32(offRevLevel),
	}

	if sb.RevLevel >= 1 {
		sb.FirstInode = l.u32(offFirstInode)
		sb.InodeSize = l.u16(offInodeSize)
		sb.FeatureCompat = l.u32(offFeatureCompat)
		sb.RequiredFeatures = l.u32(offFeatureIncompat)
		sb.ROCompatFeatures = l.u32(offFeatureROCompat)
		if id, err := uuid.FromBytes(l.raw(offUUID, 16)); err == nil {
			sb.UUID = id
		}
		sb.VolumeName = cstring(l.raw(offVolumeName, offVolumeNameLen))
	} else {
		sb.FirstInode = 11
	}

	if sb.InodeSize < 128 {
		sb.InodeSize = 128
	}

	if sb.BlocksPerGroup == 0 || sb.InodesPerGroup == 0 {
		return nil, fmt.Errorf("%w: zero blocks_per_group or inodes_per_group", ErrInvalidSuperblock)
	}

	return sb, nil
}

func (sb *Superblock) encode() []byte {
	buf := make([]byte, superblockSize)
	l := newLayout(buf)

	l.putU32(offNumInodes, sb.NumInodes)
	l.putU32(offNumBlocks, sb.NumBlocks)
	l.putU32(offNumReservedBlocks, sb.NumReservedBlocks)
	l.putU32(offNumUnallocatedBlocks, sb.NumUnallocatedBlocks)
	l.putU32(offNumUnallocatedInodes, sb.NumUnallocatedInodes)
	l.putU32(offFirstDataBlock, sb.FirstDataBlock)
	l.putU32(offLogBlockSize, sb.LogBlockSize)
	l.putU32(offBlocksPerGroup, sb.BlocksPerGroup)
	l.putU32(offInodesPerGroup, sb.InodesPerGroup)
	l.putU16(offMagic, superblockMagic)
	l.putU32(offRevLevel, sb.RevLevel)

	if sb.RevLevel >= 1 {
		l.putU32(offFirstInode, sb.FirstInode)
		l.putU16(offInodeSize, sb.InodeSize)
		l.putU32(offFeatureCompat, sb.FeatureCompat)
		l.putU32(offFeatureIncompat, sb.RequiredFeatures)
		l.putU32(offFeatureROCompat, sb.ROCompatFeatures)
		idBytes, _ := sb.UUID.MarshalBinary()
		l.putRaw(offUUID, idBytes)
		name := make([]byte, offVolumeNameLen)
		copy(name, sb.VolumeName)
		l.putRaw(offVolumeName, name)
	}

	return buf
}

// cstring trims a fixed-size, NUL-padded byte array down to its string
// content.
func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
