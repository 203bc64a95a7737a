package node

import "encoding/binary"

const (
	numCellsOffset = CommonHeaderSize
	numCellsSize   = 4
	nextLeafOffset = numCellsOffset + numCellsSize
	nextLeafSize   = 4

	// LeafHeaderSize is the width of a leaf node's header (common + num_cells + next_leaf).
	LeafHeaderSize = nextLeafOffset + nextLeafSize

	leafKeySize   = 4
	leafValueSize = RowSize
	// LeafCellSize is the width of one {key, row} leaf cell.
	LeafCellSize = leafKeySize + leafValueSize

	// LeafSpaceForCells is the number of bytes left in a page for cells after the header.
	LeafSpaceForCells = PageSize - LeafHeaderSize
	// LeafMaxCells is the maximum number of cells a leaf page can hold.
	LeafMaxCells = LeafSpaceForCells / LeafCellSize

	// RightSplitCount and LeftSplitCount describe how a full leaf's
	// LeafMaxCells+1 logical cells are distributed across the two leaves
	// produced by a split (spec §4.4: "Leaf split-and-insert").
	RightSplitCount = (LeafMaxCells + 1) / 2
	LeftSplitCount  = (LeafMaxCells + 1) - RightSplitCount
)

// InitLeaf zeroes page and initializes it as an empty, non-root leaf with no sibling.
func InitLeaf(page []byte) {
	clear(page)
	SetNodeType(page, Leaf)
	SetIsRoot(page, false)
	SetNumCells(page, 0)
	SetNextLeaf(page, 0)
}

// NumCells returns the number of cells currently stored in the leaf.
func NumCells(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[numCellsOffset : numCellsOffset+numCellsSize])
}

// SetNumCells writes the leaf's cell count.
func SetNumCells(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[numCellsOffset:numCellsOffset+numCellsSize], n)
}

// NextLeaf returns the sibling page number, or 0 if this is the last leaf.
func NextLeaf(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[nextLeafOffset : nextLeafOffset+nextLeafSize])
}

// SetNextLeaf writes the sibling page number.
func SetNextLeaf(page []byte, next uint32) {
	binary.LittleEndian.PutUint32(page[nextLeafOffset:nextLeafOffset+nextLeafSize], next)
}

// cellOffset returns the byte offset of cell i within page.
func cellOffset(i uint32) int {
	return LeafHeaderSize + int(i)*LeafCellSize
}

// Cell returns the raw {key, value} bytes for cell i.
func Cell(page []byte, i uint32) []byte {
	off := cellOffset(i)
	return page[off : off+LeafCellSize]
}

// LeafKey returns the key stored in cell i.
func LeafKey(page []byte, i uint32) uint32 {
	off := cellOffset(i)
	return binary.LittleEndian.Uint32(page[off : off+leafKeySize])
}

// SetLeafKey writes the key for cell i.
func SetLeafKey(page []byte, i uint32, key uint32) {
	off := cellOffset(i)
	binary.LittleEndian.PutUint32(page[off:off+leafKeySize], key)
}

// LeafValue returns the serialized row bytes for cell i.
func LeafValue(page []byte, i uint32) []byte {
	off := cellOffset(i) + leafKeySize
	return page[off : off+leafValueSize]
}

// MaxKeyLeaf returns the largest key stored in the leaf. The leaf must be non-empty.
func MaxKeyLeaf(page []byte) uint32 {
	return LeafKey(page, NumCells(page)-1)
}
