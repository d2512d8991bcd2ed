package ext2

import "fmt"

const inodeSize = 128

// Standard ext2 inode field offsets within the 128-byte prefix. Grounded in
// original_source/ext2/src/inode.rs's bytefield declarations.
const (
	offTypeAndPerm            = 0
	offUserID                 = 2
	offByteSizeLower          = 4
	offLastAccessTime         = 8
	offCreationTime           = 12
	offLastModificationTime   = 16
	offDeletionTime           = 20
	offGroupID                = 24
	offNumHardLinks           = 26
	offNumDiskSectors         = 28
	offFlags                  = 32
	offDirectBlockPtr0        = 40
	offSinglyIndirectBlockPtr = 88
	offDoublyIndirectBlockPtr = 92
	offTriplyIndirectBlockPtr = 96
	offGeneration             = 100
	offExtendedAttributeBlock = 104
	offByteSizeUpperOrDirACL  = 108
	offFragmentBlockAddress   = 112
)

const numDirectPtrs = 12

// FileType is the upper nibble of an inode's type_and_perm field.
type FileType uint16

const (
	TypeFIFO        FileType = 0x1000
	TypeCharDevice  FileType = 0x2000
	TypeDirectory   FileType = 0x4000
	TypeBlockDevice FileType = 0x6000
	TypeRegular     FileType = 0x8000
	TypeSymLink     FileType = 0xA000
	TypeSocket      FileType = 0xC000
)

func (t FileType) String() string {
	switch t {
	case TypeFIFO:
		return "fifo"
	case TypeCharDevice:
		return "character device"
	case TypeDirectory:
		return "directory"
	case TypeBlockDevice:
		return "block device"
	case TypeRegular:
		return "regular file"
	case TypeSymLink:
		return "symlink"
	case TypeSocket:
		return "socket"
	default:
		return fmt.Sprintf("unknown type %#04x", uint16(t))
	}
}

// Permissions is the lower 12 bits of type_and_perm: the classic
// owner/group/other rwx bits plus setuid/setgid/sticky.
type Permissions uint16

const (
	PermOtherExec Permissions = 1 << iota
	PermOtherWrite
	PermOtherRead
	PermGroupExec
	PermGroupWrite
	PermGroupRead
	PermOwnerExec
	PermOwnerWrite
	PermOwnerRead
	PermSticky
	PermSetGID
	PermSetUID
)

func (p Permissions) Has(bit Permissions) bool { return p&bit != 0 }

// Flags is the inode's flags field: secure-delete, append-only, immutable,
// no-atime and similar bits. Supplemental to the core spec (which treats
// flags opaquely); decoded and encoded as-is, not enforced anywhere in this
// package.
type Flags uint32

const (
	FlagSecureDelete Flags = 1 << iota
	FlagKeepCopyOnDelete
	FlagFileCompression
	FlagSynchronousUpdates
	FlagImmutable
	FlagAppendOnly
	FlagNotDumpable
	FlagNoAccessTimeUpdate
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Inode is a typed view over the 128-byte on-disk inode record.
type Inode struct {
	TypeAndPerm             uint16
	UserID                  uint16
	ByteSizeLower           uint32
	LastAccessTime          uint32
	CreationTime            uint32
	LastModificationTime    uint32
	DeletionTime            uint32
	GroupID                 uint16
	NumHardLinks            uint16
	NumDiskSectors          uint32
	InodeFlags              Flags
	DirectBlockPtr          [numDirectPtrs]uint32
	SinglyIndirectBlockPtr  uint32
	DoublyIndirectBlockPtr  uint32
	TriplyIndirectBlockPtr  uint32
	Generation              uint32
	ExtendedAttributeBlock  uint32
	ByteSizeUpperOrDirACL   uint32
	FragmentBlockAddress    uint32
}

// Type returns the inode's type nibble.
func (i *Inode) Type() FileType { return FileType(i.TypeAndPerm & 0xF000) }

// Perm returns the inode's permission bits.
func (i *Inode) Perm() Permissions { return Permissions(i.TypeAndPerm & 0x0FFF) }

// Len returns the file's byte length: regular files use the full 64-bit
// size, directories use only the lower 32 bits (the upper field is dir_acl
// for directories).
func (i *Inode) Len() uint64 {
	if i.Type() == TypeDirectory {
		return uint64(i.ByteSizeLower)
	}
	return uint64(i.ByteSizeUpperOrDirACL)<<32 | uint64(i.ByteSizeLower)
}

// setLen updates byte_size_lower / byte_size_upper_or_dir_acl for the
// inode's type.
func (i *Inode) setLen(n uint64) {
	if i.Type() == TypeDirectory {
		i.ByteSizeLower = uint32(n)
		return
	}
	i.ByteSizeLower = uint32(n)
	i.ByteSizeUpperOrDirACL = uint32(n >> 32)
}

func decodeInode(buf []byte) (*Inode, error) {
	if len(buf) < inodeSize {
		return nil, fmt.Errorf("ext2: inode buffer too short (%d bytes)", len(buf))
	}
	l := newLayout(buf)
	in := &Inode{
		TypeAndPerm:            l.u16(offTypeAndPerm),
		UserID:                 l.u16(offUserID),
		ByteSizeLower:          l.u32(offByteSizeLower),
		LastAccessTime:         l.u32(offLastAccessTime),
		CreationTime:           l.u32(offCreationTime),
		LastModificationTime:   l.u32(offLastModificationTime),
		DeletionTime:           l.u32(offDeletionTime),
		GroupID:                l.u16(offGroupID),
		NumHardLinks:           l.u16(offNumHardLinks),
		NumDiskSectors:         l.u32(offNumDiskSectors),
		InodeFlags:             Flags(l.u32(offFlags)),
		SinglyIndirectBlockPtr: l.u32(offSinglyIndirectBlockPtr),
		DoublyIndirectBlockPtr: l.u32(offDoublyIndirectBlockPtr),
		TriplyIndirectBlockPtr: l.u32(offTriplyIndirectBlockPtr),
		Generation:             l.u32(offGeneration),
		ExtendedAttributeBlock: l.u32(offExtendedAttributeBlock),
		ByteSizeUpperOrDirACL:  l.u32(offByteSizeUpperOrDirACL),
		FragmentBlockAddress:   l.u32(offFragmentBlockAddress),
	}
	for n := 0; n < numDirectPtrs; n++ {
		in.DirectBlockPtr[n] = l.u32(offDirectBlockPtr0 + n*4)
	}
	return in, nil
}

// encode re-serializes the 128-byte inode prefix. Callers writing it back
// to disk must preserve any trailing bytes beyond this prefix themselves
// (spec.md §4.4: only the 128-byte prefix is authoritative).
func (i *Inode) encode() []byte {
	buf := make([]byte, inodeSize)
	l := newLayout(buf)
	l.putU16(offTypeAndPerm, i.TypeAndPerm)
	l.putU16(offUserID, i.UserID)
	l.putU32(offByteSizeLower, i.ByteSizeLower)
	l.putU32(offLastAccessTime, i.LastAccessTime)
	l.putU32(offCreationTime, i.CreationTime)
	l.putU32(offLastModificationTime, i.LastModificationTime)
	l.putU32(offDeletionTime, i.DeletionTime)
	l.putU16(offGroupID, i.GroupID)
	l.putU16(offNumHardLinks, i.NumHardLinks)
	l.putU32(offNumDiskSectors, i.NumDiskSectors)
	l.putU32(offFlags, uint32(i.InodeFlags))
	for n := 0; n < numDirectPtrs; n++ {
		l.putU32(offDirectBlockPtr0+n*4, i.DirectBlockPtr[n])
	}
	l.putU32(offSinglyIndirectBlockPtr, i.SinglyIndirectBlockPtr)
	l.putU32(offDoublyIndirectBlockPtr, i.DoublyIndirectBlockPtr)
	l.putU32(offTriplyIndirectBlockPtr, i.TriplyIndirectBlockPtr)
	l.putU32(offGeneration, i.Generation)
	l.putU32(offExtendedAttributeBlock, i.ExtendedAttributeBlock)
	l.putU32(offByteSizeUpperOrDirACL, i.ByteSizeUpperOrDirACL)
	l.putU32(offFragmentBlockAddress, i.FragmentBlockAddress)
	return buf
}

// Typed inode wrappers. Each binds (address, *Inode) together, refusing
// construction when the type nibble disagrees; grounded in
// original_source/ext2/src/inode.rs's inode_type! macro, which instantiates
// one such wrapper per Type variant.

type Directory struct {
	Address uint32
	Inode   *Inode
}

type RegularFile struct {
	Address uint32
	Inode   *Inode
}

type Fifo struct {
	Address uint32
	Inode   *Inode
}

type CharacterDeviceFile struct {
	Address uint32
	Inode   *Inode
}

type BlockDeviceFile struct {
	Address uint32
	Inode   *Inode
}

type SymLink struct {
	Address uint32
	Inode   *Inode
}

type UnixSocket struct {
	Address uint32
	Inode   *Inode
}

func newDirectory(addr uint32, in *Inode) (*Directory, error) {
	if in.Type() != TypeDirectory {
		return nil, ErrNotDirectory
	}
	return &Directory{Address: addr, Inode: in}, nil
}

func newRegularFile(addr uint32, in *Inode) (*RegularFile, error) {
	if in.Type() != TypeRegular {
		return nil, ErrNotRegularFile
	}
	return &RegularFile{Address: addr, Inode: in}, nil
}

func newFifo(addr uint32, in *Inode) (*Fifo, error) {
	if in.Type() != TypeFIFO {
		return nil, fmt.Errorf("ext2: inode %d is not a fifo", addr)
	}
	return &Fifo{Address: addr, Inode: in}, nil
}

func newCharacterDeviceFile(addr uint32, in *Inode) (*CharacterDeviceFile, error) {
	if in.Type() != TypeCharDevice {
		return nil, fmt.Errorf("ext2: inode %d is not a character device", addr)
	}
	return &CharacterDeviceFile{Address: addr, Inode: in}, nil
}

func newBlockDeviceFile(addr uint32, in *Inode) (*BlockDeviceFile, error) {
	if in.Type() != TypeBlockDevice {
		return nil, fmt.Errorf("ext2: inode %d is not a block device", addr)
	}
	return &BlockDeviceFile{Address: addr, Inode: in}, nil
}

func newSymLink(addr uint32, in *Inode) (*SymLink, error) {
	if in.Type() != TypeSymLink {
		return nil, fmt.Errorf("ext2: inode %d is not a symlink", addr)
	}
	return &SymLink{Address: addr, Inode: in}, nil
}

// newInode dispatches addr/in to the typed wrapper matching in.Type(),
// returned as one of *Directory, *RegularFile, *Fifo, *CharacterDeviceFile,
// *BlockDeviceFile, *SymLink or *UnixSocket. Callers walking a directory use
// this to get a typed handle for whatever inode type nibble an entry names,
// rather than special-casing regular files and directories only.
func newInode(addr uint32, in *Inode) (interface{}, error) {
	switch in.Type() {
	case TypeDirectory:
		return newDirectory(addr, in)
	case TypeRegular:
		return newRegularFile(addr, in)
	case TypeFIFO:
		return newFifo(addr, in)
	case TypeCharDevice:
		return newCharacterDeviceFile(addr, in)
	case TypeBlockDevice:
		return newBlockDeviceFile(addr, in)
	case TypeSymLink:
		return newSymLink(addr, in)
	case TypeSocket:
		return newUnixSocket(addr, in)
	default:
		return nil, fmt.Errorf("ext2: inode %d has unrecognized type nibble %#x", addr, uint16(in.Type())&0xF000)
	}
}

func newUnixSocket(addr uint32, in *Inode) (*UnixSocket, error) {
	if in.Type() != TypeSocket {
		return nil, fmt.Errorf("ext2: inode %d is not a socket", addr)
	}
	return &UnixSocket{Address: addr, Inode: in}, nil
}
