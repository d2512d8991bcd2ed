package ext2

import "testing"

// TestInsertionNonOverlap checks spec.md §8's insertion invariant: after
// add_entry_to_dir, decoding all entries in the affected block yields
// disjoint [offset, offset+total_size) ranges that exactly tile
// [0, block_size).
func TestInsertionNonOverlap(t *testing.T) {
	fs, _ := newTestFilesystem(t, 512)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}

	for _, name := range []string{"alpha", "beta", "gamma", "delta.txt", "epsilon"} {
		if _, err := fs.CreateRegularFile(root, name); err != nil {
			t.Fatalf("CreateRegularFile(%q): %v", name, err)
		}
	}

	root, err = fs.Root()
	if err != nil {
		t.Fatalf("Root (reread): %v", err)
	}

	hasType := fs.superblock.DirEntriesHaveType()
	blockSize := int(fs.superblock.BlockSize())
	for _, ptr := range root.Inode.DirectBlockPtr {
		if ptr == 0 {
			continue
		}
		block, err := fs.readBlock(ptr)
		if err != nil {
			t.Fatalf("readBlock: %v", err)
		}

		offset := 0
		for offset <= blockSize-direntryHeaderSize {
			e := decodeDirEntry(block, offset, hasType)
			if e.TotalSize == 0 {
				t.Fatalf("block %d: zero total_size at offset %d", ptr, offset)
			}
			if int(e.TotalSize)%4 != 0 {
				t.Errorf("block %d: entry at offset %d has non-4-aligned total_size %d", ptr, offset, e.TotalSize)
			}
			offset += int(e.TotalSize)
		}
		if offset != blockSize {
			t.Errorf("block %d: entries tile [0,%d), want tiling [0,%d)", ptr, offset, blockSize)
		}
	}
}

func TestLookupDirByName(t *testing.T) {
	fs, _ := newTestFilesystem(t, 512)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	f, err := fs.CreateRegularFile(root, "target.txt")
	if err != nil {
		t.Fatalf("CreateRegularFile: %v", err)
	}

	root, err = fs.Root()
	if err != nil {
		t.Fatalf("Root (reread): %v", err)
	}
	addr, in, ok, err := fs.LookupDirByName(root, "target.txt")
	if err != nil {
		t.Fatalf("LookupDirByName: %v", err)
	}
	if !ok {
		t.Fatal("LookupDirByName: not found")
	}
	if addr != f.Address {
		t.Errorf("LookupDirByName returned address %d, want %d", addr, f.Address)
	}
	if in.Type() != TypeRegular {
		t.Errorf("LookupDirByName returned type %v, want regular", in.Type())
	}

	if _, _, ok, err := fs.LookupDirByName(root, "nonexistent"); err != nil {
		t.Fatalf("LookupDirByName: %v", err)
	} else if ok {
		t.Fatal("LookupDirByName: unexpectedly found nonexistent name")
	}
}

func TestOpenEntryReturnsTypedWrapper(t *testing.T) {
	fs, _ := newTestFilesystem(t, 512)
	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if _, err := fs.CreateRegularFile(root, "regular.txt"); err != nil {
		t.Fatalf("CreateRegularFile: %v", err)
	}

	root, err = fs.Root()
	if err != nil {
		t.Fatalf("Root (reread): %v", err)
	}
	entries, err := fs.ListDir(root)
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}

	for _, e := range entries {
		handle, err := fs.OpenEntry(e)
		if err != nil {
			t.Fatalf("OpenEntry(%q): %v", e.Name, err)
		}
		switch e.Name {
		case ".", "..":
			if _, ok := handle.(*Directory); !ok {
				t.Errorf("OpenEntry(%q) = %T, want *Directory", e.Name, handle)
			}
		case "regular.txt":
			if _, ok := handle.(*RegularFile); !ok {
				t.Errorf("OpenEntry(%q) = %T, want *RegularFile", e.Name, handle)
			}
		}
	}
}
