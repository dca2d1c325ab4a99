package node

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || fn == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

// Find returns the first node with the given id.
func Find(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.ID == id && n.Kind == KindComponent {
			found = n
			return false
		}
		return true
	})
	return found
}

// Invocable pairs a node with one of its wired events.
type Invocable struct {
	Node  *Node
	Event string
}

// Invocables lists every wired event reachable in the tree, skipping hidden
// subtrees.
func Invocables(root *Node) []Invocable {
	var out []Invocable
	Walk(root, func(n *Node) bool {
		if n.Hidden() {
			return false
		}
		for _, event := range n.Events() {
			out = append(out, Invocable{Node: n, Event: event})
		}
		return true
	})
	return out
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	total := 0
	Walk(root, func(*Node) bool {
		total++
		return true
	})
	return total
}
