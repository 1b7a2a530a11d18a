package coordinator

import "sync"

// Job is one unit of cooperatively-scheduled work pushed onto a
// worker's own queue from outside its goroutine: a step, a query, a
// shutdown notice. The worker's Run loop pops and executes these one at
// a time, so a job never races anything else touching that worker's
// private state.
type Job func()

// JobQueue is a single worker's pending-work queue: a mutex+condition
// pair guarding a slice. One JobQueue belongs to exactly one worker;
// fan-out across workers is errgroup's job, not this type's.
type JobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []Job
	closed bool
}

func NewJobQueue() *JobQueue {
	q := &JobQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues j to run as soon as a worker calls Pop.
func (q *JobQueue) Push(j Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.jobs = append(q.jobs, j)
	q.cond.Signal()
}

// Pop blocks until a job is available or the queue is closed. ok is
// false only once the queue has been closed and drained, the signal a
// worker's run loop uses to deallocate itself (spec.md §5's
// terminating-flag shutdown).
func (q *JobQueue) Pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.jobs) == 0 {
		return nil, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

// Close unblocks any pending Pop and causes every subsequent Pop to
// return immediately with ok=false.
func (q *JobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of jobs currently queued, for tests and
// diagnostics; never used for synchronization.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
