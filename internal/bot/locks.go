package bot

import "sync"

// threadLocks serializes invocations per thread id. Two turns on the same
// thread must not interleave their load-mutate-save cycles; turns on
// different threads run fully concurrently.
type threadLocks struct {
	mu    sync.Mutex
	locks map[string]*threadLock
}

type threadLock struct {
	mu   sync.Mutex
	refs int
}

func newThreadLocks() *threadLocks {
	return &threadLocks{locks: make(map[string]*threadLock)}
}

// acquire blocks until the thread's lock is held and returns the release
// function. Entries are dropped once no invocation holds or waits on
// them, so the map does not grow with the number of threads ever seen.
func (t *threadLocks) acquire(threadID string) func() {
	t.mu.Lock()
	l, ok := t.locks[threadID]
	if !ok {
		l = &threadLock{}
		t.locks[threadID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, threadID)
		}
		t.mu.Unlock()
	}
}
