package node

import "encoding/binary"

const (
	numKeysOffset     = CommonHeaderSize
	numKeysSize       = 4
	rightChildOffset  = numKeysOffset + numKeysSize
	rightChildSize    = 4
	// InternalHeaderSize is the width of an internal node's header
	// (common + num_keys + right_child).
	InternalHeaderSize = rightChildOffset + rightChildSize

	internalChildSize = 4
	internalKeySize   = 4
	// InternalCellSize is the width of one {child, key} internal cell.
	InternalCellSize = internalChildSize + internalKeySize

	// InternalMaxCells is deliberately small (spec §3: "artificially small —
	// chosen to exercise splits quickly; keep this value for test
	// reproducibility"), not derived from PageSize the way LeafMaxCells is.
	InternalMaxCells = 3
)

// InitInternal zeroes page and initializes it as an empty, non-root internal node.
func InitInternal(page []byte) {
	clear(page)
	SetNodeType(page, Internal)
	SetIsRoot(page, false)
	SetNumKeys(page, 0)
	SetRightChild(page, 0)
}

// NumKeys returns the number of separator keys in the internal node.
func NumKeys(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[numKeysOffset : numKeysOffset+numKeysSize])
}

// SetNumKeys writes the internal node's key count.
func SetNumKeys(page []byte, n uint32) {
	binary.LittleEndian.PutUint32(page[numKeysOffset:numKeysOffset+numKeysSize], n)
}

// RightChild returns the rightmost child page number.
func RightChild(page []byte) uint32 {
	return binary.LittleEndian.Uint32(page[rightChildOffset : rightChildOffset+rightChildSize])
}

// SetRightChild writes the rightmost child page number.
func SetRightChild(page []byte, child uint32) {
	binary.LittleEndian.PutUint32(page[rightChildOffset:rightChildOffset+rightChildSize], child)
}

func internalCellOffset(i uint32) int {
	return InternalHeaderSize + int(i)*InternalCellSize
}

// InternalChildAt returns the child pointer stored in cell i.
func InternalChildAt(page []byte, i uint32) uint32 {
	off := internalCellOffset(i)
	return binary.LittleEndian.Uint32(page[off : off+internalChildSize])
}

// SetInternalChildAt writes the child pointer for cell i.
func SetInternalChildAt(page []byte, i uint32, child uint32) {
	off := internalCellOffset(i)
	binary.LittleEndian.PutUint32(page[off:off+internalChildSize], child)
}

// InternalKeyAt returns the separator key stored in cell i.
func InternalKeyAt(page []byte, i uint32) uint32 {
	off := internalCellOffset(i) + internalChildSize
	return binary.LittleEndian.Uint32(page[off : off+internalKeySize])
}

// SetInternalKeyAt writes the separator key for cell i.
func SetInternalKeyAt(page []byte, i uint32, key uint32) {
	off := internalCellOffset(i) + internalChildSize
	binary.LittleEndian.PutUint32(page[off:off+internalKeySize], key)
}

// Child returns the child page number for index i, where i == NumKeys(page)
// resolves to RightChild. i > NumKeys(page) is a programmer error.
func Child(page []byte, i uint32) uint32 {
	n := NumKeys(page)
	if i > n {
		panic("node: internal child index out of bounds")
	}
	if i == n {
		return RightChild(page)
	}
	return InternalChildAt(page, i)
}

// MaxKeyInternal returns the largest separator key in the internal node.
func MaxKeyInternal(page []byte) uint32 {
	return InternalKeyAt(page, NumKeys(page)-1)
}

// MaxKey returns the node's maximum key regardless of node type.
func MaxKey(page []byte) uint32 {
	if NodeType(page) == Leaf {
		return MaxKeyLeaf(page)
	}
	return MaxKeyInternal(page)
}
