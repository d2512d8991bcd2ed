package ext2

import "fmt"

// ReadFromFile reads into buf starting at byte offset off, composing the
// resolver and device per spec.md §4.8; it never allocates. Sparse (unallocated)
// blocks read as zero. Returns the number of bytes copied into buf.
func (fs *FileSystem) ReadFromFile(file *RegularFile, off int, buf []byte) (int, error) {
	length := file.Inode.Len()
	if len(buf) == 0 {
		return 0, nil
	}
	if uint64(off) >= length {
		return 0, nil
	}

	blockSize := int(fs.superblock.BlockSize())
	start := off / blockSize
	end := (off + len(buf) - 1) / blockSize
	rel := off % blockSize

	staging := make([]byte, (end-start+1)*blockSize)
	for l := start; l <= end; l++ {
		addr, ok, err := fs.resolveBlock(file.Inode, uint32(l))
		if err != nil {
			return 0, err
		}
		chunk := staging[(l-start)*blockSize : (l-start+1)*blockSize]
		if !ok {
			continue // sparse block: leave zeroed
		}
		data, err := fs.readBlock(addr)
		if err != nil {
			return 0, err
		}
		copy(chunk, data)
	}

	remaining := length - uint64(off)
	spanned := uint64((end - start + 1) * blockSize - rel)
	copied := uint64(len(buf))
	if remaining < copied {
		copied = remaining
	}
	if spanned < copied {
		copied = spanned
	}
	copy(buf, staging[rel:int(uint64(rel)+copied)])
	return int(copied), nil
}

// WriteToFile writes buf at byte offset off, allocating blocks as needed
// into the file's direct pointers, per spec.md §4.8. Returns the number of
// bytes written. Growth beyond the 12 direct pointers is not specified by
// the core and surfaces ErrUnsupported.
func (fs *FileSystem) WriteToFile(file *RegularFile, off int, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	blockSize := int(fs.superblock.BlockSize())
	start := off / blockSize
	end := (off + len(buf) - 1) / blockSize
	rel := off % blockSize

	staging := make([]byte, (end-start+1)*blockSize)
	for l := start; l <= end; l++ {
		addr, ok, err := fs.resolveBlock(file.Inode, uint32(l))
		if err != nil {
			return 0, err
		}
		if !ok {
			continue // left zeroed; about to be overwritten (at least in part) below
		}
		data, err := fs.readBlock(addr)
		if err != nil {
			return 0, err
		}
		copy(staging[(l-start)*blockSize:(l-start+1)*blockSize], data)
	}
	copy(staging[rel:rel+len(buf)], buf)

	for l := start; l <= end; l++ {
		addr, ok, err := fs.resolveBlock(file.Inode, uint32(l))
		if err != nil {
			return 0, err
		}
		if !ok {
			if l >= numDirectPtrs {
				return 0, fmt.Errorf("%w: logical block %d is beyond the direct pointers", ErrUnsupported, l)
			}
			newBlock, err := fs.AllocateBlock()
			if err != nil {
				return 0, err
			}
			file.Inode.DirectBlockPtr[l] = newBlock
			if err := fs.WriteInode(file.Address, file.Inode); err != nil {
				return 0, err
			}
			addr = newBlock
		}
		chunk := staging[(l-start)*blockSize : (l-start+1)*blockSize]
		if err := fs.writeBlock(addr, chunk); err != nil {
			return 0, err
		}
	}

	newLen := uint64(off) + uint64(len(buf))
	if newLen > file.Inode.Len() {
		file.Inode.setLen(newLen)
		if err := fs.WriteInode(file.Address, file.Inode); err != nil {
			return 0, err
		}
	}

	return len(buf), nil
}
