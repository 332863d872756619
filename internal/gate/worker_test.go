package gate

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWorkerRunsTasksInOrder(t *testing.T) {
	w := newWorker("test")
	defer w.close(true)

	var mu sync.Mutex
	var order []int
	for i := 1; i <= 5; i++ {
		n := i
		w.enqueue(func() {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
		})
	}
	w.run(func() {}) // barrier: everything queued before has run

	mu.Lock()
	defer mu.Unlock()
	for i, n := range order {
		if n != i+1 {
			t.Fatalf("execution order = %v, want ascending submission order", order)
		}
	}
}

func TestWorkerRunBlocksUntilDone(t *testing.T) {
	w := newWorker("test")
	defer w.close(true)

	done := false
	w.run(func() {
		time.Sleep(10 * time.Millisecond)
		done = true
	})
	if !done {
		t.Error("run returned before the task finished")
	}
}

func TestWorkerRunRepanicsOnCaller(t *testing.T) {
	w := newWorker("test")
	defer w.close(true)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("panic in task did not surface on the caller")
		}
	}()
	w.run(func() { panic("contract violation") })
}

func TestWorkerSurvivesTaskPanic(t *testing.T) {
	w := newWorker("test")
	defer w.close(true)

	func() {
		defer func() { _ = recover() }()
		w.run(func() { panic("boom") })
	}()

	// The worker must still process subsequent tasks.
	ran := false
	w.run(func() { ran = true })
	if !ran {
		t.Error("worker dead after a recovered task panic")
	}
}

func TestWorkerCloseDrainsQueue(t *testing.T) {
	w := newWorker("test")

	var mu sync.Mutex
	count := 0
	for i := 0; i < 20; i++ {
		w.enqueue(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}
	w.close(true)

	mu.Lock()
	defer mu.Unlock()
	if count != 20 {
		t.Errorf("%d tasks ran before close completed, want 20", count)
	}
}

func TestWorkerEnqueueAfterClosePanics(t *testing.T) {
	w := newWorker("closed-worker")
	w.close(true)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("enqueue on closed worker did not panic")
		}
		if msg, ok := r.(string); !ok || !strings.Contains(msg, "closed-worker") {
			t.Errorf("panic = %v, want message naming the worker", r)
		}
	}()
	w.enqueue(func() {})
}
