package task

import "fmt"

// DepthLimitExceededError is returned by AddSubTask when attaching a child
// would push it beyond the root's configured max depth.
type DepthLimitExceededError struct {
	Depth int
	Max   int
}

func (e *DepthLimitExceededError) Error() string {
	return fmt.Sprintf("depth limit exceeded: %d > max %d", e.Depth, e.Max)
}

// CycleInTreeError is returned by AddSubTask when the candidate child is
// already an ancestor of the prospective parent.
type CycleInTreeError struct {
	ChildTitle  string
	ParentTitle string
}

func (e *CycleInTreeError) Error() string {
	return fmt.Sprintf("adding %q as a child of %q would create a cycle", e.ChildTitle, e.ParentTitle)
}
