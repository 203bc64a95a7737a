package node

import (
	"testing"

	"bptreedb/internal/row"
)

func TestCommonHeaderRoundTrip(t *testing.T) {
	page := make([]byte, PageSize)
	InitLeaf(page)

	SetNodeType(page, Internal)
	if got := NodeType(page); got != Internal {
		t.Fatalf("NodeType() = %v, want %v", got, Internal)
	}

	SetIsRoot(page, true)
	if !IsRoot(page) {
		t.Fatal("IsRoot() = false after SetIsRoot(true)")
	}
	SetIsRoot(page, false)
	if IsRoot(page) {
		t.Fatal("IsRoot() = true after SetIsRoot(false)")
	}

	SetParent(page, 42)
	if got := Parent(page); got != 42 {
		t.Fatalf("Parent() = %d, want 42", got)
	}
}

func TestLeafCells(t *testing.T) {
	page := make([]byte, PageSize)
	InitLeaf(page)

	if got := NumCells(page); got != 0 {
		t.Fatalf("NumCells() = %d, want 0", got)
	}

	r, err := row.New(7, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("row.New: %v", err)
	}

	SetNumCells(page, 1)
	SetLeafKey(page, 0, 7)
	row.Serialize(r, LeafValue(page, 0))

	if got := LeafKey(page, 0); got != 7 {
		t.Fatalf("LeafKey(0) = %d, want 7", got)
	}
	got := row.Deserialize(LeafValue(page, 0))
	if got != r {
		t.Fatalf("Deserialize(LeafValue(0)) = %+v, want %+v", got, r)
	}
	if got := MaxKeyLeaf(page); got != 7 {
		t.Fatalf("MaxKeyLeaf() = %d, want 7", got)
	}

	SetNextLeaf(page, 3)
	if got := NextLeaf(page); got != 3 {
		t.Fatalf("NextLeaf() = %d, want 3", got)
	}
}

func TestInternalCells(t *testing.T) {
	page := make([]byte, PageSize)
	InitInternal(page)

	SetNumKeys(page, 2)
	SetInternalChildAt(page, 0, 10)
	SetInternalKeyAt(page, 0, 100)
	SetInternalChildAt(page, 1, 11)
	SetInternalKeyAt(page, 1, 200)
	SetRightChild(page, 12)

	if got := Child(page, 0); got != 10 {
		t.Fatalf("Child(0) = %d, want 10", got)
	}
	if got := Child(page, 1); got != 11 {
		t.Fatalf("Child(1) = %d, want 11", got)
	}
	if got := Child(page, 2); got != 12 {
		t.Fatalf("Child(2) (right child) = %d, want 12", got)
	}
	if got := MaxKeyInternal(page); got != 200 {
		t.Fatalf("MaxKeyInternal() = %d, want 200", got)
	}
}

func TestChildOutOfBoundsPanics(t *testing.T) {
	page := make([]byte, PageSize)
	InitInternal(page)
	SetNumKeys(page, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("Child(i > NumKeys) did not panic")
		}
	}()
	Child(page, 2)
}

func TestConstantsMatchKnownLayout(t *testing.T) {
	// These numbers come directly from spec §3/§8 given ROW_SIZE=293
	// (4-byte id + 33-byte username slot + 256-byte email slot) and are
	// load-bearing: the REPL's `.constants` output and the split-size
	// math both depend on them staying exactly this value.
	if row.Size != 293 {
		t.Fatalf("row.Size = %d, want 293", row.Size)
	}
	if CommonHeaderSize != 6 {
		t.Fatalf("CommonHeaderSize = %d, want 6", CommonHeaderSize)
	}
	if LeafHeaderSize != 14 {
		t.Fatalf("LeafHeaderSize = %d, want 14", LeafHeaderSize)
	}
	if LeafCellSize != 297 {
		t.Fatalf("LeafCellSize = %d, want 297", LeafCellSize)
	}
	if LeafMaxCells != 13 {
		t.Fatalf("LeafMaxCells = %d, want 13", LeafMaxCells)
	}
	if LeftSplitCount+RightSplitCount != LeafMaxCells+1 {
		t.Fatalf("split counts %d+%d != LeafMaxCells+1 (%d)", LeftSplitCount, RightSplitCount, LeafMaxCells+1)
	}
}
