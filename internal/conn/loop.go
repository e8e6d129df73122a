package conn

import "sync"

// Loop is the connection's event-loop goroutine plus its lock.
//
// Events and jobs posted with Post run one at a time on the loop goroutine
// with the loop lock held. RunLocked lets any other goroutine execute at a
// safe point between dispatches; it must never be called from the loop
// goroutine itself (dispatched functions already hold the lock).
type Loop struct {
	mu sync.Mutex

	jobs chan func()
	done chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// jobQueueDepth bounds how many undispatched events may pile up before
// posting blocks. The simulated server produces events far slower than the
// loop drains them; the bound exists to surface a stuck loop instead of
// growing without limit.
const jobQueueDepth = 1024

// NewLoop starts the loop goroutine.
func NewLoop() *Loop {
	l := &Loop{
		jobs: make(chan func(), jobQueueDepth),
		done: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			// Drain whatever was already queued so teardown jobs posted
			// just before Close still run.
			for {
				select {
				case fn := <-l.jobs:
					l.dispatch(fn)
				default:
					return
				}
			}
		case fn := <-l.jobs:
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// Post queues fn for execution on the loop goroutine.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.jobs <- fn:
	}
}

// RunLocked executes fn under the loop lock, blocking the caller until the
// loop reaches a safe point.
func (l *Loop) RunLocked(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// Invoke runs fn on the loop goroutine and waits for it to complete.
func (l *Loop) Invoke(fn func()) {
	doneCh := make(chan struct{})
	l.Post(func() {
		defer close(doneCh)
		fn()
	})
	select {
	case <-doneCh:
	case <-l.done:
		// Loop shut down before the job ran; nothing left to wait for.
	}
}

// Close stops the loop after draining queued jobs and waits for the
// goroutine to exit.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}
