package browser

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// profileLocks serialises sessions that share a profile directory. Entries
// are reference counted and dropped once no session holds or waits on them.
type profileLocks struct {
	mu    sync.Mutex
	locks map[string]*profileLock
}

type profileLock struct {
	sem  *semaphore.Weighted
	refs int
}

func newProfileLocks() *profileLocks {
	return &profileLocks{locks: make(map[string]*profileLock)}
}

// acquire blocks until id is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (p *profileLocks) acquire(ctx context.Context, id string) (func(), error) {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &profileLock{sem: semaphore.NewWeighted(1)}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		p.unref(id, l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			p.unref(id, l)
		})
	}, nil
}

func (p *profileLocks) unref(id string, l *profileLock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(p.locks, id)
	}
}

// held reports how many profile ids currently have a holder or waiter.
func (p *profileLocks) held() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}
