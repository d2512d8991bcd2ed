package ext2

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestSuperblockRoundTrip(t *testing.T) {
	sb := &Superblock{
		NumInodes:            512,
		NumBlocks:            4096,
		NumReservedBlocks:    10,
		NumUnallocatedBlocks: 4000,
		NumUnallocatedInodes: 500,
		FirstDataBlock:       1,
		LogBlockSize:         1, // block size 2048
		BlocksPerGroup:       8192,
		InodesPerGroup:       256,
		InodeSize:            128,
		RevLevel:             1,
		FirstInode:           11,
		FeatureCompat:        0,
		RequiredFeatures:     featureIncompatFiletype,
		ROCompatFeatures:     0,
		UUID:                 uuid.New(),
		VolumeName:           "testvol",
	}

	decoded, err := decodeSuperblock(sb.encode())
	if err != nil {
		t.Fatalf("decodeSuperblock: %v", err)
	}
	if !reflect.DeepEqual(sb, decoded) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, sb)
	}
	if decoded.BlockSize() != 2048 {
		t.Errorf("BlockSize() = %d, want 2048", decoded.BlockSize())
	}
	if !decoded.DirEntriesHaveType() {
		t.Error("DirEntriesHaveType() = false, want true")
	}
}

func TestSuperblockRejectsBadMagic(t *testing.T) {
	buf := make([]byte, superblockSize)
	if _, err := decodeSuperblock(buf); err == nil {
		t.Fatal("decodeSuperblock with zeroed buffer (bad magic): expected error, got nil")
	}
}

func TestGroupDescriptorRoundTrip(t *testing.T) {
	gd := GroupDescriptor{
		BlockUsageBitmapBlock:   3,
		InodeUsageBitmapBlock:   4,
		InodeTableStartingBlock: 5,
		NumUnallocatedBlocks:    1000,
		NumUnallocatedInodes:    200,
		NumDirectories:          7,
	}
	decoded := decodeGroupDescriptor(gd.encode())
	if decoded != gd {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, gd)
	}
}

func TestInodeRoundTrip(t *testing.T) {
	in := &Inode{
		TypeAndPerm:            uint16(TypeRegular) | 0o644,
		UserID:                 1000,
		ByteSizeLower:          123456,
		LastAccessTime:         1000,
		CreationTime:           2000,
		LastModificationTime:   3000,
		DeletionTime:           0,
		GroupID:                1000,
		NumHardLinks:           1,
		NumDiskSectors:         256,
		InodeFlags:             FlagAppendOnly | FlagNoAccessTimeUpdate,
		SinglyIndirectBlockPtr: 99,
		DoublyIndirectBlockPtr: 100,
		TriplyIndirectBlockPtr: 101,
		Generation:             1,
		ExtendedAttributeBlock: 0,
		ByteSizeUpperOrDirACL:  0,
		FragmentBlockAddress:   0,
	}
	for i := range in.DirectBlockPtr {
		in.DirectBlockPtr[i] = uint32(10 + i)
	}

	decoded, err := decodeInode(in.encode())
	if err != nil {
		t.Fatalf("decodeInode: %v", err)
	}
	if !reflect.DeepEqual(in, decoded) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", decoded, in)
	}
	if decoded.Type() != TypeRegular {
		t.Errorf("Type() = %v, want regular", decoded.Type())
	}
	if decoded.Perm() != Permissions(0o644) {
		t.Errorf("Perm() = %o, want %o", uint16(decoded.Perm()), 0o644)
	}
	if !decoded.InodeFlags.Has(FlagAppendOnly) {
		t.Error("InodeFlags.Has(FlagAppendOnly) = false, want true")
	}
}

func TestInodeLenDirectoryVsRegular(t *testing.T) {
	dir := &Inode{TypeAndPerm: uint16(TypeDirectory), ByteSizeLower: 4096, ByteSizeUpperOrDirACL: 0xFFFFFFFF}
	if dir.Len() != 4096 {
		t.Errorf("directory Len() = %d, want 4096 (upper field is dir_acl, not size)", dir.Len())
	}

	reg := &Inode{TypeAndPerm: uint16(TypeRegular), ByteSizeLower: 1, ByteSizeUpperOrDirACL: 1}
	want := uint64(1)<<32 | 1
	if reg.Len() != want {
		t.Errorf("regular Len() = %d, want %d", reg.Len(), want)
	}
}

func TestDirEntryRoundTripWithType(t *testing.T) {
	buf := make([]byte, 32)
	e := DirEntry{Inode: 42, TotalSize: 32, Type: DirTypeRegular, Name: "hi.txt"}
	encodeDirEntry(buf, e, true)

	decoded := decodeDirEntry(buf, 0, true)
	if decoded.Inode != e.Inode || decoded.TotalSize != e.TotalSize || decoded.Type != e.Type || decoded.Name != e.Name {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, e)
	}
}

func TestDirEntryRoundTripWithoutType(t *testing.T) {
	buf := make([]byte, 280)
	longName := make([]byte, 200)
	for i := range longName {
		longName[i] = 'a'
	}
	e := DirEntry{Inode: 7, TotalSize: 280, Name: string(longName)}
	encodeDirEntry(buf, e, false)

	decoded := decodeDirEntry(buf, 0, false)
	if decoded.Name != e.Name {
		t.Errorf("name round trip mismatch: got length %d, want %d", len(decoded.Name), len(e.Name))
	}
}

func TestBlockByteOffsetAgreesWithBgdtOffset(t *testing.T) {
	for _, blockSize := range []uint32{1024, 2048, 4096} {
		sb := &Superblock{LogBlockSize: uint32(0)}
		switch blockSize {
		case 2048:
			sb.LogBlockSize = 1
		case 4096:
			sb.LogBlockSize = 2
		}

		bgdtBlock := uint32(1)
		if blockSize == 1024 {
			bgdtBlock = 2
		}
		if got := blockByteOffset(bgdtBlock, blockSize); got != sb.bgdtOffset() {
			t.Errorf("block_size=%d: blockByteOffset(%d) = %d, want bgdtOffset() = %d", blockSize, bgdtBlock, got, sb.bgdtOffset())
		}
	}
}

func TestAlign4(t *testing.T) {
	cases := map[int]int{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 12: 12, 13: 16}
	for in, want := range cases {
		if got := align4(in); got != want {
			t.Errorf("align4(%d) = %d, want %d", in, got, want)
		}
	}
}
