package orchestrator

import "golang.org/x/sync/errgroup"

// TaskSet runs detached background tasks with a concurrency cap so stage and
// export work cannot starve request handling.
type TaskSet struct {
	g *errgroup.Group
}

// NewTaskSet creates a task set allowing up to limit concurrent tasks.
// limit <= 0 means unlimited.
func NewTaskSet(limit int) *TaskSet {
	g := &errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &TaskSet{g: g}
}

// Go schedules fn on the set, blocking while the set is at its limit.
func (t *TaskSet) Go(fn func()) {
	t.g.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until all scheduled tasks have finished.
func (t *TaskSet) Wait() {
	_ = t.g.Wait()
}
