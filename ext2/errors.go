package ext2

import (
	"errors"
	"fmt"
)

// Sentinel errors, mirroring the taxonomy the teacher exposes as package-level
// vars (filesystem.ErrNotSupported, filesystem.ErrNotImplemented, ...).
var (
	ErrInvalidSuperblock                   = errors.New("ext2: invalid superblock")
	ErrUnableToReadSuperblock               = errors.New("ext2: unable to read superblock")
	ErrUnableToWriteSuperblock              = errors.New("ext2: unable to write superblock")
	ErrUnableToReadBlockGroupDescriptorTable  = errors.New("ext2: unable to read block group descriptor table")
	ErrUnableToWriteBlockGroupDescriptorTable = errors.New("ext2: unable to write block group descriptor table")
	ErrDeviceRead  = errors.New("ext2: device read failure")
	ErrDeviceWrite = errors.New("ext2: device write failure")
	ErrNotDirectory   = errors.New("ext2: not a directory")
	ErrNotRegularFile = errors.New("ext2: not a regular file")
	ErrNoSpace    = errors.New("ext2: no space left")
	ErrEntryExists = errors.New("ext2: directory entry already exists")

	// ErrUnsupported marks paths the core spec leaves open: indirect
	// directory blocks and indirect block growth on write.
	ErrUnsupported = errors.New("ext2: operation requires unsupported indirect growth")
)

// InvalidInodeAddressError reports an inode address of 0 or out of the
// [1, num_inodes] range.
type InvalidInodeAddressError struct {
	Address uint32
}

func (e *InvalidInodeAddressError) Error() string {
	return fmt.Sprintf("ext2: invalid inode address %d", e.Address)
}
