package ext2

import (
	"testing"

	"github.com/tsatke/mkfs/blockdevice"
)

// Fixture geometry for a minimal, single-group, synthetic ext2 image:
//
//	block 1:    superblock
//	block 2:    BGDT (one group descriptor)
//	block 3:    block usage bitmap
//	block 4:    inode usage bitmap
//	blocks 5-8: inode table (32 inodes * 128 bytes = 4096 bytes)
//	block 9:    root directory data block ("." and "..")
//	blocks 10..: free
const (
	fixtureBlockSize      = 1024
	fixtureBlocksPerGroup = 64
	fixtureInodesPerGroup = 32
	fixtureNumBlocks      = 64
	fixtureNumInodes      = 32

	fixtureBlockBitmapBlock = 3
	fixtureInodeBitmapBlock = 4
	fixtureInodeTableBlock  = 5
	fixtureRootDataBlock    = 9
	fixtureUsedBlocks       = 9 // blocks 1-9 are pre-allocated metadata/root data
	fixtureFirstDataBlock   = 1 // block 0 carries no bitmap bit; bit i names block FirstDataBlock+i
)

// newTestFilesystem builds the fixture above over a Memory device of the
// given sector size and mounts it, exercising the read path's independence
// from sector size (spec.md §8's quantified invariant).
func newTestFilesystem(t *testing.T, sectorSize int) (*FileSystem, *blockdevice.Memory) {
	t.Helper()

	size := 1024 + fixtureNumBlocks*fixtureBlockSize
	if size%sectorSize != 0 {
		size += sectorSize - size%sectorSize
	}
	dev, err := blockdevice.NewMemory(sectorSize, size)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	sb := &Superblock{
		NumInodes:            fixtureNumInodes,
		NumBlocks:            fixtureNumBlocks,
		NumUnallocatedBlocks: fixtureNumBlocks - fixtureFirstDataBlock - fixtureUsedBlocks,
		NumUnallocatedInodes: fixtureNumInodes - 2,
		FirstDataBlock:       fixtureFirstDataBlock,
		LogBlockSize:         0,
		BlocksPerGroup:       fixtureBlocksPerGroup,
		InodesPerGroup:       fixtureInodesPerGroup,
		InodeSize:            128,
		RevLevel:              1,
		RequiredFeatures:     featureIncompatFiletype,
	}
	if _, err := blockdevice.WriteAt(dev, superblockOffset, sb.encode()); err != nil {
		t.Fatalf("write superblock: %v", err)
	}

	gd := GroupDescriptor{
		BlockUsageBitmapBlock:   fixtureBlockBitmapBlock,
		InodeUsageBitmapBlock:   fixtureInodeBitmapBlock,
		InodeTableStartingBlock: fixtureInodeTableBlock,
		NumUnallocatedBlocks:    fixtureBlocksPerGroup - fixtureFirstDataBlock - fixtureUsedBlocks,
		NumUnallocatedInodes:    fixtureInodesPerGroup - 2,
		NumDirectories:          1,
	}
	gdtBuf := encodeGroupDescriptors([]GroupDescriptor{gd}, fixtureBlockSize)
	if _, err := blockdevice.WriteAt(dev, sb.bgdtOffset(), gdtBuf); err != nil {
		t.Fatalf("write BGDT: %v", err)
	}

	blockBitmap := make([]byte, fixtureBlockSize)
	for i := 0; i < fixtureUsedBlocks; i++ {
		blockBitmap[i/8] |= 1 << uint(i%8)
	}
	writeFixtureBlock(t, dev, fixtureBlockBitmapBlock, blockBitmap)

	inodeBitmap := make([]byte, fixtureBlockSize)
	inodeBitmap[0] = 0b0000_0011 // inodes 1 and 2 reserved/root
	writeFixtureBlock(t, dev, fixtureInodeBitmapBlock, inodeBitmap)

	root := &Inode{TypeAndPerm: uint16(TypeDirectory) | 0o755, NumHardLinks: 2}
	root.DirectBlockPtr[0] = fixtureRootDataBlock
	root.ByteSizeLower = fixtureBlockSize
	writeFixtureInode(t, dev, rootInodeAddress, root)

	dirBuf := make([]byte, fixtureBlockSize)
	dotSize := align4(direntryHeaderSize + 1)
	encodeDirEntry(dirBuf, DirEntry{Inode: rootInodeAddress, TotalSize: uint16(dotSize), Type: DirTypeDirectory, Name: "."}, true)
	encodeDirEntry(dirBuf, DirEntry{Inode: rootInodeAddress, TotalSize: uint16(fixtureBlockSize - dotSize), Type: DirTypeDirectory, Name: "..", offset: dotSize}, true)
	writeFixtureBlock(t, dev, fixtureRootDataBlock, dirBuf)

	fs, err := Mount(dev, Params{})
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return fs, dev
}

func writeFixtureBlock(t *testing.T, dev blockdevice.Device, b uint32, data []byte) {
	t.Helper()
	if _, err := blockdevice.WriteAt(dev, blockByteOffset(b, fixtureBlockSize), data); err != nil {
		t.Fatalf("write block %d: %v", b, err)
	}
}

func writeFixtureInode(t *testing.T, dev blockdevice.Device, addr uint32, in *Inode) {
	t.Helper()
	group := (addr - 1) / fixtureInodesPerGroup
	index := (addr - 1) % fixtureInodesPerGroup
	if group != 0 {
		t.Fatalf("fixture only supports group 0, got group %d for inode %d", group, addr)
	}
	off := blockByteOffset(fixtureInodeTableBlock, fixtureBlockSize) + int64(index)*128
	if _, err := blockdevice.WriteAt(dev, off, in.encode()); err != nil {
		t.Fatalf("write inode %d: %v", addr, err)
	}
}

var fixtureSectorSizes = []int{1, 32, 512, 1024}

func sectorSizeName(ss int) string {
	switch ss {
	case 1:
		return "sector_1"
	case 32:
		return "sector_32"
	case 512:
		return "sector_512"
	case 1024:
		return "sector_1024"
	default:
		return "sector_other"
	}
}
