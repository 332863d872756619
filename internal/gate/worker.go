package gate

import "sync"

// worker is the dedicated single-goroutine executor owned by a Gate.
//
// Tasks run strictly one at a time, in submission order. The queue is
// unbounded so asynchronous dispatch never blocks the caller.
type worker struct {
	label string

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []func()
	closed bool

	// done is closed when the loop has drained the queue and exited.
	done chan struct{}
}

// newWorker starts the worker goroutine. The label identifies the worker in
// diagnostics and panic messages.
func newWorker(label string) *worker {
	w := &worker{
		label: label,
		done:  make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

// loop processes queued tasks until the worker is closed and the queue is
// empty. Pending tasks submitted before close still run.
func (w *worker) loop() {
	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 {
			w.mu.Unlock()
			close(w.done)
			return
		}
		task := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		task()
	}
}

// enqueue submits a task for later execution and returns immediately.
// Submitting to a closed worker is a programmer error.
func (w *worker) enqueue(task func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		panic("gate: dispatch on closed worker " + w.label)
	}
	w.queue = append(w.queue, task)
	w.cond.Signal()
}

// run submits a task and blocks until it has executed. It must not be
// called from the worker goroutine itself; that would deadlock, which is
// exactly what the gate's entitlement checks exist to prevent.
//
// A panic inside the task is re-raised on the calling goroutine, so
// contract violations detected on the worker surface at the call site
// instead of silently killing the worker.
func (w *worker) run(task func()) {
	ran := make(chan struct{})
	var panicked any
	w.enqueue(func() {
		defer close(ran)
		defer func() { panicked = recover() }()
		task()
	})
	<-ran
	if panicked != nil {
		panic(panicked)
	}
}

// close stops accepting new tasks. Pending tasks are drained first. When
// wait is true, close blocks until the loop has exited; callers already on
// the worker goroutine must pass false.
func (w *worker) close(wait bool) {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		w.cond.Signal()
	}
	w.mu.Unlock()

	if wait {
		<-w.done
	}
}
