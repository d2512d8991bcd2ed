package ext2

// CreateInode allocates an inode, builds a fresh record of type typ, persists
// it, and inserts a directory entry named name for it in parent, per
// spec.md §4.9.
func (fs *FileSystem) CreateInode(parent *Directory, name string, typ FileType) (uint32, *Inode, error) {
	addr, err := fs.AllocateInode()
	if err != nil {
		return 0, nil, err
	}

	in := &Inode{TypeAndPerm: uint16(typ)}
	if err := fs.WriteInode(addr, in); err != nil {
		return 0, nil, err
	}

	if err := fs.AddEntryToDir(parent, name, addr, typ); err != nil {
		return 0, nil, err
	}

	log.WithField("inode", addr).WithField("name", name).Debug("created inode")
	return addr, in, nil
}

// CreateRegularFile is the common case of CreateInode: create a regular
// file named name in parent.
func (fs *FileSystem) CreateRegularFile(parent *Directory, name string) (*RegularFile, error) {
	addr, in, err := fs.CreateInode(parent, name, TypeRegular)
	if err != nil {
		return nil, err
	}
	return newRegularFile(addr, in)
}
