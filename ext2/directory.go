package ext2

import "fmt"

// ListDir enumerates every entry in dir, in on-disk order, across its
// allocated direct blocks. Zero direct pointers are skipped; blocks reached
// through the indirect pointers are not read.
func (fs *FileSystem) ListDir(dir *Directory) ([]DirEntry, error) {
	hasType := fs.superblock.DirEntriesHaveType()
	var entries []DirEntry

	for _, ptr := range dir.Inode.DirectBlockPtr {
		if ptr == 0 {
			continue
		}
		block, err := fs.readBlock(ptr)
		if err != nil {
			return nil, err
		}

		blockSize := int(fs.superblock.BlockSize())
		offset := 0
		for offset <= blockSize-direntryHeaderSize {
			e := decodeDirEntry(block, offset, hasType)
			e.block = ptr
			if e.TotalSize == 0 {
				break
			}
			if e.Inode != 0 {
				entries = append(entries, e)
			}
			offset += int(e.TotalSize)
		}
	}
	return entries, nil
}

// LookupDir returns the first entry in dir for which predicate returns
// true, resolved to its inode.
func (fs *FileSystem) LookupDir(dir *Directory, predicate func(DirEntry) bool) (uint32, *Inode, bool, error) {
	entries, err := fs.ListDir(dir)
	if err != nil {
		return 0, nil, false, err
	}
	for _, e := range entries {
		if predicate(e) {
			addr, in, err := fs.ReadInode(e.Inode)
			if err != nil {
				return 0, nil, false, err
			}
			return addr, in, true, nil
		}
	}
	return 0, nil, false, nil
}

// LookupDirByName is the common case of LookupDir: find the entry named
// name.
func (fs *FileSystem) LookupDirByName(dir *Directory, name string) (uint32, *Inode, bool, error) {
	return fs.LookupDir(dir, func(e DirEntry) bool { return e.Name == name })
}

// OpenEntry resolves e to its inode and returns it wrapped in the typed
// handle matching its file type: *Directory, *RegularFile, *Fifo,
// *CharacterDeviceFile, *BlockDeviceFile, *SymLink or *UnixSocket.
func (fs *FileSystem) OpenEntry(e DirEntry) (interface{}, error) {
	addr, in, err := fs.ReadInode(e.Inode)
	if err != nil {
		return nil, err
	}
	return newInode(addr, in)
}

// AddEntryToDir inserts a directory entry for (childAddr, name, typ) into
// dir, per spec.md §4.7's slot-splitting algorithm. Refuses a name that
// already exists with ErrEntryExists.
func (fs *FileSystem) AddEntryToDir(dir *Directory, name string, childAddr uint32, typ FileType) error {
	hasType := fs.superblock.DirEntriesHaveType()
	blockSize := int(fs.superblock.BlockSize())
	required := align4(direntryHeaderSize + len(name))

	existing, err := fs.ListDir(dir)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Name == name {
			return ErrEntryExists
		}
	}

	for _, ptr := range dir.Inode.DirectBlockPtr {
		if ptr == 0 {
			continue
		}
		block, err := fs.readBlock(ptr)
		if err != nil {
			return err
		}

		offset := 0
		for offset <= blockSize-direntryHeaderSize {
			e := decodeDirEntry(block, offset, hasType)
			if e.TotalSize == 0 {
				break
			}
			occupied := align4(direntryHeaderSize + len(e.Name))
			free := int(e.TotalSize) - occupied
			if free >= required {
				oldTotal := e.TotalSize
				e.TotalSize = uint16(occupied)
				e.offset = offset
				encodeDirEntry(block, e, hasType)

				newEntry := DirEntry{
					Inode:     childAddr,
					TotalSize: uint16(int(oldTotal) - occupied),
					Type:      dirTypeFor(typ),
					Name:      name,
					offset:    offset + occupied,
				}
				encodeDirEntry(block, newEntry, hasType)

				if err := fs.writeBlock(ptr, block); err != nil {
					return err
				}
				return nil
			}
			offset += int(e.TotalSize)
		}
	}

	return fs.growDirAndInsert(dir, name, childAddr, typ)
}

// growDirAndInsert allocates a fresh directory block, links it into dir's
// next free direct pointer slot, and inserts the single requested entry
// spanning the whole block.
func (fs *FileSystem) growDirAndInsert(dir *Directory, name string, childAddr uint32, typ FileType) error {
	slot := -1
	for i, ptr := range dir.Inode.DirectBlockPtr {
		if ptr == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return fmt.Errorf("%w: directory has no free direct pointer slot", ErrUnsupported)
	}

	newBlock, err := fs.AllocateBlock()
	if err != nil {
		return err
	}

	blockSize := int(fs.superblock.BlockSize())
	hasType := fs.superblock.DirEntriesHaveType()
	buf := make([]byte, blockSize)
	entry := DirEntry{
		Inode:     childAddr,
		TotalSize: uint16(blockSize),
		Type:      dirTypeFor(typ),
		Name:      name,
		offset:    0,
	}
	encodeDirEntry(buf, entry, hasType)
	if err := fs.writeBlock(newBlock, buf); err != nil {
		return err
	}

	dir.Inode.DirectBlockPtr[slot] = newBlock
	dir.Inode.setLen(dir.Inode.Len() + uint64(blockSize))
	if err := fs.WriteInode(dir.Address, dir.Inode); err != nil {
		return err
	}
	return nil
}
