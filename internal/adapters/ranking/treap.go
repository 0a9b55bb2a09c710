package ranking

import "math/rand"

// Ordering: count DESC, then contributor id ASC. "before" means ranks
// earlier, so an in-order walk yields the leaderboard best to worst.

type node struct {
	id    string
	count int
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func before(aCount int, aID string, bCount int, bID string) bool {
	if aCount != bCount {
		return aCount > bCount
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, count int) *node {
	if n == nil {
		return &node{id: id, count: count, prio: rand.Uint64(), size: 1} //nolint:gosec // balance only
	}
	if before(count, id, n.count, n.id) {
		n.left = insert(n.left, id, count)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, count)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, count int) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.count == count:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, count)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, count)
		}
	case before(count, id, n.count, n.id):
		n.left = remove(n.left, id, count)
	default:
		n.right = remove(n.right, id, count)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have a count strictly greater than count.
func countAbove(n *node, count int) int {
	total := 0
	for n != nil {
		if n.count > count {
			total += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return total
}

// collect appends up to limit nodes in rank order.
func collect(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	collect(n.right, limit, out)
}
