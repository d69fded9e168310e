package spacemgr

import "github.com/garethgeorge/hybridspace/internal/arena"

type extentNode struct {
	FreeExtent
	next arena.Index
}

// extentChain is a singly linked list of free extents ordered by start. Nodes
// live in an arena and link to their successor by index.
type extentChain struct {
	nodes *arena.Arena[extentNode]
	head  arena.Index
}

func newExtentChain(sizeHint int) extentChain {
	return extentChain{
		nodes: arena.New[extentNode](sizeHint),
		head:  arena.Nil,
	}
}

func (c *extentChain) reset() {
	c.nodes.Reset()
	c.head = arena.Nil
}

func (c *extentChain) len() int {
	return c.nodes.Len()
}

func (c *extentChain) get(idx arena.Index) *extentNode {
	return c.nodes.Get(idx)
}

// insertAfter links a new node holding e after prev, or at the head when prev
// is arena.Nil.
func (c *extentChain) insertAfter(prev arena.Index, e FreeExtent) arena.Index {
	idx := c.nodes.Alloc(extentNode{FreeExtent: e, next: arena.Nil})
	node := c.nodes.Get(idx)
	if prev == arena.Nil {
		node.next = c.head
		c.head = idx
	} else {
		p := c.nodes.Get(prev)
		node.next = p.next
		p.next = idx
	}
	return idx
}

// unlink splices cur out of the chain and returns its successor. prev must be
// the node before cur, or arena.Nil when cur is the head.
func (c *extentChain) unlink(prev, cur arena.Index) arena.Index {
	next := c.nodes.Get(cur).next
	if prev == arena.Nil {
		c.head = next
	} else {
		c.nodes.Get(prev).next = next
	}
	c.nodes.Free(cur)
	return next
}

func (c *extentChain) all() func(yield func(FreeExtent) bool) {
	return func(yield func(FreeExtent) bool) {
		for cur := c.head; cur != arena.Nil; {
			node := c.nodes.Get(cur)
			if !yield(node.FreeExtent) {
				return
			}
			cur = node.next
		}
	}
}
