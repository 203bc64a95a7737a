// Package btree implements the on-disk B+ tree described in spec §4.4: a
// single root page number, uniform key lookup through leaf and internal
// nodes, leaf splits with redistribution, and the deliberately unhandled
// internal-node overflow the original tutorial never finishes.
package btree

import (
	"fmt"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"bptreedb/internal/node"
	"bptreedb/internal/pager"
	"bptreedb/internal/row"
)

// Sentinel errors surfaced to the REPL layer (spec §6).
var (
	ErrDuplicateKey     = errors.New("Error: Duplicate key")
	ErrInternalNodeFull = errors.New("btree: internal node full, splitting internal nodes is not implemented")
	ErrTableFull        = errors.New("btree: table full, cannot allocate another page")
)

// Options configures a Tree beyond what Open's required arguments carry.
type Options struct {
	Logger *zap.SugaredLogger

	// ExperimentalInternalSplit is a named but unimplemented extension
	// point: spec Non-goals exclude internal-node splitting, but the
	// hook is declared here so a future CL can wire it in without
	// reshaping the public Insert path.
	ExperimentalInternalSplit bool
}

// Tree is a single-writer B+ tree over one table file.
type Tree struct {
	mu    sync.RWMutex
	pager *pager.Pager
	root  uint32

	opts  Options
	cache *rowCache
}

// Open opens (or creates) the table file at path and wires up the row cache.
func Open(path string, opts Options) (*Tree, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	p, err := pager.Open(path, pager.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}

	t := &Tree{
		pager: p,
		opts:  opts,
		cache: newRowCache(),
	}

	if p.NumPages() == 0 {
		page, err := p.GetPage(0)
		if err != nil {
			return nil, err
		}
		node.InitLeaf(page)
		node.SetIsRoot(page, true)
	}
	t.root = 0

	return t, nil
}

// Close flushes all dirty pages and releases the table file.
func (t *Tree) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Close()
	return t.pager.Close()
}

// Find descends from pageNum to the leaf that would contain key, following
// the same binary-search-and-recurse path for both leaf and internal nodes
// (spec §4.4 "Find"). It returns the leaf page number and the cell index
// key belongs at (whether or not it is already present there).
func (t *Tree) Find(pageNum uint32, key uint32) (uint32, uint32, error) {
	page, err := t.pager.GetPage(pageNum)
	if err != nil {
		return 0, 0, err
	}

	if node.NodeType(page) == node.Leaf {
		idx := leafFindIndex(page, key)
		return pageNum, idx, nil
	}
	return t.findInternal(pageNum, page, key)
}

func leafFindIndex(page []byte, key uint32) uint32 {
	numCells := node.NumCells(page)
	lo, hi := uint32(0), numCells
	for lo < hi {
		mid := (lo + hi) / 2
		midKey := node.LeafKey(page, mid)
		if key == midKey {
			return mid
		}
		if key < midKey {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func internalFindChildIndex(page []byte, key uint32) uint32 {
	numKeys := node.NumKeys(page)
	lo, hi := uint32(0), numKeys
	for lo < hi {
		mid := (lo + hi) / 2
		if node.InternalKeyAt(page, mid) >= key {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (t *Tree) findInternal(pageNum uint32, page []byte, key uint32) (uint32, uint32, error) {
	childIdx := internalFindChildIndex(page, key)
	childPage := node.Child(page, childIdx)
	return t.Find(childPage, key)
}

// Insert inserts row r, rejecting duplicate keys (spec §4.4, Open Question
// resolved in SPEC_FULL.md: duplicate inserts report ErrDuplicateKey rather
// than silently no-op-ing).
func (t *Tree) Insert(r row.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	leafPageNum, cellIdx, err := t.Find(t.root, r.ID)
	if err != nil {
		return err
	}

	leaf, err := t.pager.GetPage(leafPageNum)
	if err != nil {
		return err
	}

	numCells := node.NumCells(leaf)
	if cellIdx < numCells && node.LeafKey(leaf, cellIdx) == r.ID {
		return ErrDuplicateKey
	}

	if numCells >= node.LeafMaxCells {
		if err := t.splitLeafAndInsert(leafPageNum, cellIdx, r); err != nil {
			return err
		}
		t.cache.Invalidate()
		return nil
	}

	for i := numCells; i > cellIdx; i-- {
		copy(node.Cell(leaf, i), node.Cell(leaf, i-1))
	}
	node.SetNumCells(leaf, numCells+1)
	node.SetLeafKey(leaf, cellIdx, r.ID)
	row.Serialize(r, node.LeafValue(leaf, cellIdx))

	t.cache.Invalidate()
	return nil
}

// Cursor walks every row in the table in key order, following next-leaf
// pointers across page boundaries (spec §4.4 "Full table scan").
type Cursor struct {
	tree       *Tree
	pageNum    uint32
	cellNum    uint32
	endOfTable bool
}

// ScanStart returns a cursor positioned at the first row of the table.
func (t *Tree) ScanStart() (*Cursor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pageNum := t.root
	for {
		page, err := t.pager.GetPage(pageNum)
		if err != nil {
			return nil, err
		}
		if node.NodeType(page) == node.Leaf {
			break
		}
		pageNum = node.Child(page, 0)
	}

	page, err := t.pager.GetPage(pageNum)
	if err != nil {
		return nil, err
	}
	return &Cursor{tree: t, pageNum: pageNum, cellNum: 0, endOfTable: node.NumCells(page) == 0}, nil
}

// Valid reports whether the cursor is positioned on a row.
func (c *Cursor) Valid() bool { return !c.endOfTable }

// Row decodes the row at the cursor's current position.
func (c *Cursor) Row() (row.Row, error) {
	page, err := c.tree.pager.GetPage(c.pageNum)
	if err != nil {
		return row.Row{}, err
	}
	key := node.LeafKey(page, c.cellNum)
	if cached, ok := c.tree.cache.Get(c.pageNum, key); ok {
		return cached, nil
	}
	r := row.Deserialize(node.LeafValue(page, c.cellNum))
	c.tree.cache.Put(c.pageNum, key, r)
	return r, nil
}

// Advance moves the cursor to the next row, following next-leaf page
// pointers instead of stopping at the end of the current page: the
// original tutorial's select stops after the first leaf, which spec §9
// documents as a bug to fix rather than a deviation to preserve.
func (c *Cursor) Advance() error {
	page, err := c.tree.pager.GetPage(c.pageNum)
	if err != nil {
		return err
	}
	c.cellNum++
	if c.cellNum < node.NumCells(page) {
		return nil
	}

	next := node.NextLeaf(page)
	if next == 0 {
		c.endOfTable = true
		return nil
	}
	c.pageNum = next
	c.cellNum = 0
	nextPage, err := c.tree.pager.GetPage(next)
	if err != nil {
		return err
	}
	c.endOfTable = node.NumCells(nextPage) == 0
	return nil
}

// RenderTree writes a depth-first human-readable dump of the tree to w,
// mirroring the `.btree` meta-command's expected output (spec §6).
func (t *Tree) RenderTree(w io.Writer, pageNum uint32, indent int) error {
	page, err := t.pager.GetPage(pageNum)
	if err != nil {
		return err
	}

	pad := func(extra int) string {
		s := ""
		for i := 0; i < indent+extra; i++ {
			s += "  "
		}
		return s
	}

	if node.NodeType(page) == node.Leaf {
		n := node.NumCells(page)
		fmt.Fprintf(w, "%s- leaf (size %d)\n", pad(0), n)
		for i := uint32(0); i < n; i++ {
			fmt.Fprintf(w, "%s- %d\n", pad(1), node.LeafKey(page, i))
		}
		return nil
	}

	numKeys := node.NumKeys(page)
	fmt.Fprintf(w, "%s- internal (size %d)\n", pad(0), numKeys)
	for i := uint32(0); i < numKeys; i++ {
		if err := t.RenderTree(w, node.InternalChildAt(page, i), indent+1); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s- key %d\n", pad(1), node.InternalKeyAt(page, i))
	}
	return t.RenderTree(w, node.RightChild(page), indent+1)
}

// RootPageNum returns the current root page number, mainly for tests and
// the `.btree` meta-command.
func (t *Tree) RootPageNum() uint32 { return t.root }
