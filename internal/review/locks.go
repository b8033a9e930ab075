package review

import "sync"

// cardLocks hands out one mutex per card ID. Entries are dropped once no
// goroutine holds or waits for them.
type cardLocks struct {
	mu    sync.Mutex
	locks map[int64]*cardLock
}

type cardLock struct {
	mu   sync.Mutex
	refs int
}

func newCardLocks() *cardLocks {
	return &cardLocks{locks: make(map[int64]*cardLock)}
}

// lock blocks until the card is free and returns the matching unlock.
func (c *cardLocks) lock(id int64) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &cardLock{}
		c.locks[id] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, id)
		}
		c.mu.Unlock()
	}
}
