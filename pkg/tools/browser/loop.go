package browser

import "sync"

// loop runs submitted tasks one at a time on a single goroutine, so no two
// browser operations of a session ever overlap.
type loop struct {
	tasks    chan func()
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func newLoop() *loop {
	l := &loop{
		tasks:   make(chan func()),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *loop) run() {
	defer close(l.stopped)
	for {
		select {
		case task := <-l.tasks:
			task()
		case <-l.quit:
			return
		}
	}
}

// do runs fn on the loop and blocks until it returns. A panic in fn is
// re-raised on the caller. It reports false if the loop stopped before
// accepting fn.
func (l *loop) do(fn func()) bool {
	done := make(chan struct{})
	var panicked interface{}

	task := func() {
		defer close(done)
		defer func() {
			panicked = recover()
		}()
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.stopped:
		return false
	}

	<-done
	if panicked != nil {
		panic(panicked)
	}
	return true
}

// stop ends the loop goroutine and waits for it to exit. It must not be
// called from a task.
func (l *loop) stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	<-l.stopped
}
