package ext2

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// AllocateBlock finds and reserves the first free data block, scanning
// groups 0..N-1 and, within each group's bitmap, byte 0..end then bit 0..7
// (LSB first), per spec.md §4.6. The bitmap write precedes the BGDT write,
// which precedes the superblock write, so a crash between them leaves at
// worst a leaked block, never a double allocation.
func (fs *FileSystem) AllocateBlock() (uint32, error) {
	addr, err := fs.allocate(resourceBlock)
	if err != nil {
		return 0, err
	}
	log.WithFields(logrus.Fields{"block": addr}).Debug("allocated block")
	return addr, nil
}

// AllocateInode finds and reserves the first free inode, using the same
// scan order and write ordering as AllocateBlock, over the inode-usage
// bitmaps. The returned address is 1-based.
func (fs *FileSystem) AllocateInode() (uint32, error) {
	addr, err := fs.allocate(resourceInode)
	if err != nil {
		return 0, err
	}
	log.WithFields(logrus.Fields{"inode": addr}).Debug("allocated inode")
	return addr, nil
}

type resourceKind int

const (
	resourceBlock resourceKind = iota
	resourceInode
)

// allocate implements the shared allocation algorithm for both resources.
func (fs *FileSystem) allocate(kind resourceKind) (uint32, error) {
	numGroups := len(fs.groupDescriptors)
	for g := 0; g < numGroups; g++ {
		gd := fs.groupDescriptors[g]

		var bitmapBlock uint32
		var perGroup uint32
		if kind == resourceBlock {
			bitmapBlock = gd.BlockUsageBitmapBlock
			perGroup = fs.superblock.BlocksPerGroup
		} else {
			bitmapBlock = gd.InodeUsageBitmapBlock
			perGroup = fs.superblock.InodesPerGroup
		}

		limit := int(perGroup)
		if kind == resourceBlock {
			// The last group may cover fewer actual blocks than
			// blocks_per_group; never hand out a bit beyond the real
			// device extent. Bit 0 of group 0's bitmap names block
			// FirstDataBlock, not block 0, so the offset comes out of
			// NumBlocks here too.
			remaining := int(fs.superblock.NumBlocks) - int(fs.superblock.FirstDataBlock) - g*int(fs.superblock.BlocksPerGroup)
			if remaining < limit {
				limit = remaining
			}
		}
		if limit <= 0 {
			continue
		}

		raw, err := fs.readBlock(bitmapBlock)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrDeviceRead, err)
		}
		bm := bitmapFromBytes(raw)

		bit := bm.firstClear(limit)
		if bit < 0 {
			continue
		}

		bm.set(bit)
		if err := fs.writeBlock(bitmapBlock, bm.toBytes()); err != nil {
			return 0, err
		}

		if kind == resourceBlock {
			gd.NumUnallocatedBlocks--
		} else {
			gd.NumUnallocatedInodes--
		}
		fs.groupDescriptors[g] = gd
		if err := fs.writeGroupDescriptors(); err != nil {
			return 0, err
		}

		if kind == resourceBlock {
			fs.superblock.NumUnallocatedBlocks--
		} else {
			fs.superblock.NumUnallocatedInodes--
		}
		if err := fs.writeSuperblock(); err != nil {
			return 0, err
		}

		global := uint32(g)*perGroup + uint32(bit)
		if kind == resourceBlock {
			// Bit i of group g's block bitmap names absolute block
			// FirstDataBlock + g*blocks_per_group + i, not the bare bit
			// index (block 0 in a bitmap-addressed sense is FirstDataBlock).
			global += fs.superblock.FirstDataBlock
		} else {
			global++
		}
		return global, nil
	}
	return 0, ErrNoSpace
}
