package memory

import (
	"reflect"
	"sync"
)

// listener delivers snapshots on its own goroutine, in the order they were offered.
type listener struct {
	eval    func() any
	deliver func(any)

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []any
	last    any
	hasLast bool
	stopped bool
	stopCtx func() bool

	onStop func()
	once   sync.Once
	done   chan struct{}
}

func newListener(eval func() any, deliver func(any)) *listener {
	l := &listener{
		eval:    eval,
		deliver: deliver,
		done:    make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// offer queues v unless it equals the last queued snapshot.
func (l *listener) offer(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	if l.hasLast && reflect.DeepEqual(l.last, v) {
		return
	}
	l.last, l.hasLast = v, true
	l.queue = append(l.queue, v)
	l.cond.Signal()
}

func (l *listener) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if l.stopped {
			l.mu.Unlock()
			return
		}
		v := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.deliver(v)
	}
}

// Stop must not be called from the listener's own handler.
func (l *listener) Stop() {
	l.once.Do(func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		stopCtx := l.stopCtx
		l.cond.Broadcast()
		l.mu.Unlock()

		if stopCtx != nil {
			stopCtx()
		}
		if l.onStop != nil {
			l.onStop()
		}
	})
	<-l.done
}
