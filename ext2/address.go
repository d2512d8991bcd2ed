package ext2

// resolveBlock maps a logical file-block index L (0 = first file block) to
// a physical block address through the inode's direct/single/double/triple
// indirect pointer tree, per spec.md §4.5. The second return value is false
// for sparse/unallocated holes. The walk never allocates intermediate
// blocks; it is pure and read-only.
func (fs *FileSystem) resolveBlock(in *Inode, logical uint32) (uint32, bool, error) {
	p := fs.superblock.BlockSize() / 4 // pointers per indirect block

	directLimit := uint32(numDirectPtrs)
	singleLimit := directLimit + p
	doubleLimit := singleLimit + p*p

	switch {
	case logical < directLimit:
		addr := in.DirectBlockPtr[logical]
		return addr, addr != 0, nil

	case logical < singleLimit:
		return fs.resolveIndirect(in.SinglyIndirectBlockPtr, logical-directLimit)

	case logical < doubleLimit:
		return fs.resolveDoubleIndirect(in.DoublyIndirectBlockPtr, logical-singleLimit, p)

	default:
		return fs.resolveTripleIndirect(in.TriplyIndirectBlockPtr, logical-doubleLimit, p)
	}
}

// resolveIndirect walks one level of indirection: ptr names a block of p
// u32 pointers, indexed by index.
func (fs *FileSystem) resolveIndirect(ptr uint32, index uint32) (uint32, bool, error) {
	if ptr == 0 {
		return 0, false, nil
	}
	block, err := fs.readBlock(ptr)
	if err != nil {
		return 0, false, err
	}
	off := int(index) * 4
	addr := newLayout(block).u32(off)
	return addr, addr != 0, nil
}

// resolveDoubleIndirect walks two levels: ptr names a block of pointers to
// single-indirect blocks.
func (fs *FileSystem) resolveDoubleIndirect(ptr uint32, index uint32, p uint32) (uint32, bool, error) {
	if ptr == 0 {
		return 0, false, nil
	}
	block, err := fs.readBlock(ptr)
	if err != nil {
		return 0, false, err
	}
	outer := index / p
	inner := index % p
	off := int(outer) * 4
	singlePtr := newLayout(block).u32(off)
	return fs.resolveIndirect(singlePtr, inner)
}

// resolveTripleIndirect walks three levels: ptr names a block of pointers
// to double-indirect blocks.
func (fs *FileSystem) resolveTripleIndirect(ptr uint32, index uint32, p uint32) (uint32, bool, error) {
	if ptr == 0 {
		return 0, false, nil
	}
	block, err := fs.readBlock(ptr)
	if err != nil {
		return 0, false, err
	}
	pSquared := p * p
	outer := index / pSquared
	inner := index % pSquared
	off := int(outer) * 4
	doublePtr := newLayout(block).u32(off)
	return fs.resolveDoubleIndirect(doublePtr, inner, p)
}
