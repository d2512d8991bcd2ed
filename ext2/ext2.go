// Package ext2 implements the core of an ext2 filesystem driver: superblock
// and block-group descriptor table decoding, the inode record, logical block
// address resolution, bitmap-backed allocation, and the directory and file
// read/write engines, all layered over a blockdevice.Device.
package ext2

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tsatke/mkfs/blockdevice"
)

const rootInodeAddress = 2

var log = logrus.WithField("component", "ext2")

// Params configures a Mount, following the teacher's Params-struct
// convention (ext4.Params) rather than reading any config file.
type Params struct{}

// FileSystem is a mounted ext2 volume. The superblock and BGDT are the only
// mutable global state, cached in memory for the lifetime of the mount and
// written back on every allocation (spec.md §3 "Lifecycle").
type FileSystem struct {
	device           blockdevice.Device
	superblock       *Superblock
	groupDescriptors []GroupDescriptor
}

// Mount reads the superblock and block-group descriptor table from device
// and returns a FileSystem ready for use.
func Mount(device blockdevice.Device, _ Params) (*FileSystem, error) {
	fs := &FileSystem{device: device}

	sbBuf := make([]byte, superblockSize)
	if _, err := blockdevice.ReadAt(device, superblockOffset, sbBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnableToReadSuperblock, err)
	}
	sb, err := decodeSuperblock(sbBuf)
	if err != nil {
		return nil, err
	}
	fs.superblock = sb

	numGroups := int(sb.NumGroups())
	gdtBuf := make([]byte, sb.BlockSize())
	if _, err := blockdevice.ReadAt(device, sb.bgdtOffset(), gdtBuf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnableToReadBlockGroupDescriptorTable, err)
	}
	fs.groupDescriptors = decodeGroupDescriptors(gdtBuf, numGroups)

	log.WithFields(logrus.Fields{
		"block_size": sb.BlockSize(),
		"num_groups": numGroups,
		"num_inodes": sb.NumInodes,
		"num_blocks": sb.NumBlocks,
	}).Debug("mounted ext2 filesystem")

	return fs, nil
}

// Superblock returns the filesystem's in-memory superblock.
func (fs *FileSystem) Superblock() *Superblock { return fs.superblock }

// Root returns the root directory, inode address 2.
func (fs *FileSystem) Root() (*Directory, error) {
	addr, in, err := fs.ReadInode(rootInodeAddress)
	if err != nil {
		return nil, err
	}
	return newDirectory(addr, in)
}

// ReadInode reads and decodes the inode at the given 1-based address.
func (fs *FileSystem) ReadInode(addr uint32) (uint32, *Inode, error) {
	if addr == 0 || addr > fs.superblock.NumInodes {
		return 0, nil, &InvalidInodeAddressError{Address: addr}
	}
	group := (addr - 1) / fs.superblock.InodesPerGroup
	index := (addr - 1) % fs.superblock.InodesPerGroup
	if int(group) >= len(fs.groupDescriptors) {
		return 0, nil, &InvalidInodeAddressError{Address: addr}
	}

	gd := fs.groupDescriptors[group]
	off := blockByteOffset(gd.InodeTableStartingBlock, fs.superblock.BlockSize()) + int64(index)*int64(fs.superblock.InodeSize)

	buf := make([]byte, inodeSize)
	if _, err := blockdevice.ReadAt(fs.device, off, buf); err != nil {
		return 0, nil, fmt.Errorf("%w: read inode %d: %v", ErrDeviceRead, addr, err)
	}
	in, err := decodeInode(buf)
	if err != nil {
		return 0, nil, err
	}
	return addr, in, nil
}

// WriteInode re-serializes the 128-byte inode prefix and writes it back at
// the inode's on-disk location.
func (fs *FileSystem) WriteInode(addr uint32, in *Inode) error {
	if addr == 0 || addr > fs.superblock.NumInodes {
		return &InvalidInodeAddressError{Address: addr}
	}
	group := (addr - 1) / fs.superblock.InodesPerGroup
	index := (addr - 1) % fs.superblock.InodesPerGroup
	if int(group) >= len(fs.groupDescriptors) {
		return &InvalidInodeAddressError{Address: addr}
	}

	gd := fs.groupDescriptors[group]
	off := blockByteOffset(gd.InodeTableStartingBlock, fs.superblock.BlockSize()) + int64(index)*int64(fs.superblock.InodeSize)

	if _, err := blockdevice.WriteAt(fs.device, off, in.encode()); err != nil {
		return fmt.Errorf("%w: write inode %d: %v", ErrDeviceWrite, addr, err)
	}
	return nil
}

// readBlock reads one full, block-size-sized block at block address b (see
// blockByteOffset).
func (fs *FileSystem) readBlock(b uint32) ([]byte, error) {
	buf := make([]byte, fs.superblock.BlockSize())
	off := blockByteOffset(b, fs.superblock.BlockSize())
	if _, err := blockdevice.ReadAt(fs.device, off, buf); err != nil {
		return nil, fmt.Errorf("%w: read block %d: %v", ErrDeviceRead, b, err)
	}
	return buf, nil
}

// writeBlock writes one full, block-size-sized block at block address b (see
// blockByteOffset).
func (fs *FileSystem) writeBlock(b uint32, data []byte) error {
	off := blockByteOffset(b, fs.superblock.BlockSize())
	if _, err := blockdevice.WriteAt(fs.device, off, data); err != nil {
		return fmt.Errorf("%w: write block %d: %v", ErrDeviceWrite, b, err)
	}
	return nil
}

// writeSuperblock re-encodes and writes back the superblock.
func (fs *FileSystem) writeSuperblock() error {
	if _, err := blockdevice.WriteAt(fs.device, superblockOffset, fs.superblock.encode()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnableToWriteSuperblock, err)
	}
	return nil
}

// writeGroupDescriptors re-encodes and writes back the full BGDT block.
func (fs *FileSystem) writeGroupDescriptors() error {
	buf := encodeGroupDescriptors(fs.groupDescriptors, fs.superblock.BlockSize())
	if _, err := blockdevice.WriteAt(fs.device, fs.superblock.bgdtOffset(), buf); err != nil {
		return fmt.Errorf("%w: %v", ErrUnableToWriteBlockGroupDescriptorTable, err)
	}
	return nil
}
