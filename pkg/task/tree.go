package task

// TreeTaskNode is a Task with parent/children links, used by the Scheduler
// to drive orchestrated multi-task work. A node's parent is a
// non-owning back-reference: the parent owns its children slice, not the
// other way around.
type TreeTaskNode struct {
	*Task

	parent   *TreeTaskNode
	children []*TreeTaskNode
	depth    int
}

// NewRoot builds a root TreeTaskNode (depth 0, no parent) wrapping a new Task.
func NewRoot(title, taskType, protocol string, input any, maxDepth, maxRetry int) (*TreeTaskNode, error) {
	t, err := New(title, taskType, protocol, input, maxDepth, maxRetry)
	if err != nil {
		return nil, err
	}
	return &TreeTaskNode{Task: t}, nil
}

// CurrentDepth returns the node's depth: 0 for a root, parent.CurrentDepth()+1 otherwise.
func (n *TreeTaskNode) CurrentDepth() int { return n.depth }

// IsRoot reports whether the node has no parent.
func (n *TreeTaskNode) IsRoot() bool { return n.parent == nil }

// IsLeaf reports whether the node has no children.
func (n *TreeTaskNode) IsLeaf() bool { return len(n.children) == 0 }

// GetParent returns the node's parent, or nil if it is a root.
func (n *TreeTaskNode) GetParent() *TreeTaskNode { return n.parent }

// GetSubTasks returns a copy of the node's children in insertion order.
func (n *TreeTaskNode) GetSubTasks() []*TreeTaskNode {
	out := make([]*TreeTaskNode, len(n.children))
	copy(out, n.children)
	return out
}

// isAncestorOf reports whether n is found anywhere in candidate's parent chain.
func (n *TreeTaskNode) isAncestorOf(candidate *TreeTaskNode) bool {
	for p := candidate.parent; p != nil; p = p.parent {
		if p == n {
			return true
		}
	}
	return false
}

// AddSubTask attaches child as the next (in insertion order) child of n.
// It fails with DepthLimitExceededError if the child's resulting depth would
// exceed the root's max depth, or with CycleInTreeError if child is already
// an ancestor of n (which would close a cycle).
func (n *TreeTaskNode) AddSubTask(child *TreeTaskNode) error {
	if child == n || child.isAncestorOf(n) {
		return &CycleInTreeError{ChildTitle: child.GetTitle(), ParentTitle: n.GetTitle()}
	}
	root := n
	for root.parent != nil {
		root = root.parent
	}
	newDepth := n.depth + 1
	if maxDepth := root.GetMaxDepth(); newDepth > maxDepth {
		return &DepthLimitExceededError{Depth: newDepth, Max: maxDepth}
	}

	if child.parent != nil {
		child.parent.RemoveSubTask(child)
	}
	child.parent = n
	child.depth = newDepth
	n.children = append(n.children, child)
	return nil
}

// RemoveSubTask detaches child from n. It returns silently (no error) if
// child is not currently a child of n.
func (n *TreeTaskNode) RemoveSubTask(child *TreeTaskNode) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			child.depth = 0
			return
		}
	}
}

// RemoveParent detaches n from its parent, resetting its depth to 0. It does
// not recursively adjust the depth of n's own descendants; callers that
// re-parent a whole subtree must walk it themselves if consistent depths
// matter afterward (this module never does, since detached subtrees are
// only produced when their parent finishes or goes back to CREATED to
// re-plan, and are not scheduled again afterward).
func (n *TreeTaskNode) RemoveParent() {
	if n.parent != nil {
		n.parent.RemoveSubTask(n)
	}
	n.parent = nil
	n.depth = 0
}
