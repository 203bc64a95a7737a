package btree

import (
	"bptreedb/internal/node"
	"bptreedb/internal/row"
)

// splitLeafAndInsert splits the full leaf at oldPageNum, redistributing its
// LeafMaxCells existing cells plus the new row across two leaves per
// LeftSplitCount/RightSplitCount (spec §4.4 "Leaf split-and-insert"), then
// threads the new leaf into its parent.
func (t *Tree) splitLeafAndInsert(oldPageNum, insertIdx uint32, r row.Row) error {
	oldPage, err := t.pager.GetPage(oldPageNum)
	if err != nil {
		return err
	}

	newPageNum := t.pager.UnusedPageNum()
	newPage, err := t.pager.GetPage(newPageNum)
	if err != nil {
		return err
	}
	node.InitLeaf(newPage)
	node.SetParent(newPage, node.Parent(oldPage))
	node.SetNextLeaf(newPage, node.NextLeaf(oldPage))
	node.SetNextLeaf(oldPage, newPageNum)

	// Walk every logical cell position (0..LeafMaxCells inclusive of the
	// new row) from the highest index down, copying each into whichever
	// of the two leaves it belongs in.
	for i := int(node.LeafMaxCells); i >= 0; i-- {
		var dest []byte
		var destIdx uint32
		if uint32(i) >= node.LeftSplitCount {
			dest = newPage
			destIdx = uint32(i) - node.LeftSplitCount
		} else {
			dest = oldPage
			destIdx = uint32(i)
		}

		switch {
		case uint32(i) == insertIdx:
			node.SetLeafKey(dest, destIdx, r.ID)
			row.Serialize(r, node.LeafValue(dest, destIdx))
		case uint32(i) > insertIdx:
			copy(node.Cell(dest, destIdx), node.Cell(oldPage, uint32(i)-1))
		default:
			copy(node.Cell(dest, destIdx), node.Cell(oldPage, uint32(i)))
		}
	}

	node.SetNumCells(oldPage, node.LeftSplitCount)
	node.SetNumCells(newPage, node.RightSplitCount)

	if node.IsRoot(oldPage) {
		return t.createNewRoot(oldPageNum, newPageNum)
	}

	parentPageNum := node.Parent(oldPage)
	node.SetParent(newPage, parentPageNum)
	return t.insertIntoInternal(parentPageNum, oldPageNum, newPageNum)
}

// createNewRoot keeps rootPageNum as the tree's root page number (spec §6
// persisted-format invariant: "page 0 is always the root node"). The
// root's current contents are copied into a freshly allocated page, which
// becomes the new left child; the root page itself is then overwritten in
// place as an internal node pointing at that left child and rightPageNum.
func (t *Tree) createNewRoot(rootPageNum, rightPageNum uint32) error {
	root, err := t.pager.GetPage(rootPageNum)
	if err != nil {
		return err
	}
	rightChild, err := t.pager.GetPage(rightPageNum)
	if err != nil {
		return err
	}

	leftChildPageNum := t.pager.UnusedPageNum()
	leftChild, err := t.pager.GetPage(leftChildPageNum)
	if err != nil {
		return err
	}
	copy(leftChild, root)
	node.SetIsRoot(leftChild, false)

	node.InitInternal(root)
	node.SetIsRoot(root, true)
	node.SetNumKeys(root, 1)
	node.SetInternalChildAt(root, 0, leftChildPageNum)
	node.SetInternalKeyAt(root, 0, node.MaxKey(leftChild))
	node.SetRightChild(root, rightPageNum)

	node.SetParent(leftChild, rootPageNum)
	node.SetParent(rightChild, rootPageNum)

	return nil
}

// insertIntoInternal threads a just-split child's new right half N into
// parentPageNum, which still only knows about the old, now-shrunk left
// half O (spec §4.4 "Insert into internal node"). This is two distinct
// steps, not one: first O's existing separator entry is updated in place
// from its old max key to its new (post-split) max key — the child
// pointer doesn't move, so nothing shifts; then a fresh {N, max_key(N)}
// cell is inserted at the position right after O's entry, shifting any
// later cells right to make room. Internal-node splitting is an explicit
// Non-goal: if the parent is already full this returns ErrInternalNodeFull
// instead of silently corrupting the tree.
func (t *Tree) insertIntoInternal(parentPageNum, leftChildPageNum, rightChildPageNum uint32) error {
	parentPage, err := t.pager.GetPage(parentPageNum)
	if err != nil {
		return err
	}
	if node.NumKeys(parentPage) >= node.InternalMaxCells {
		return ErrInternalNodeFull
	}

	leftChildPage, err := t.pager.GetPage(leftChildPageNum)
	if err != nil {
		return err
	}
	leftMaxKey := node.MaxKey(leftChildPage)

	rightChildPage, err := t.pager.GetPage(rightChildPageNum)
	if err != nil {
		return err
	}
	rightMaxKey := node.MaxKey(rightChildPage)
	node.SetParent(rightChildPage, parentPageNum)

	numKeys := node.NumKeys(parentPage)

	if node.RightChild(parentPage) == leftChildPageNum {
		// O was the implicit rightmost subtree. It now needs an explicit
		// separator key of its own, and N becomes the new right child.
		node.SetInternalChildAt(parentPage, numKeys, leftChildPageNum)
		node.SetInternalKeyAt(parentPage, numKeys, leftMaxKey)
		node.SetRightChild(parentPage, rightChildPageNum)
		node.SetNumKeys(parentPage, numKeys+1)
		return nil
	}

	// O is referenced by an existing cell. Update its key in place, then
	// insert N's cell directly after it (every key of N is greater than
	// O's new max key and less than whatever separator followed O).
	childIdx := uint32(0)
	for childIdx < numKeys && node.InternalChildAt(parentPage, childIdx) != leftChildPageNum {
		childIdx++
	}
	node.SetInternalKeyAt(parentPage, childIdx, leftMaxKey)

	insertAt := childIdx + 1
	for i := numKeys; i > insertAt; i-- {
		node.SetInternalChildAt(parentPage, i, node.InternalChildAt(parentPage, i-1))
		node.SetInternalKeyAt(parentPage, i, node.InternalKeyAt(parentPage, i-1))
	}
	node.SetInternalChildAt(parentPage, insertAt, rightChildPageNum)
	node.SetInternalKeyAt(parentPage, insertAt, rightMaxKey)
	node.SetNumKeys(parentPage, numKeys+1)

	return nil
}
