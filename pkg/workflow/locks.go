package workflow

import "sync"

// instanceLocks serializes transitions per instance within this process.
// Acquisition never blocks: a busy instance rejects the second caller so
// the contention surfaces as ErrConcurrentTransition instead of queueing.
type instanceLocks struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newInstanceLocks() *instanceLocks {
	return &instanceLocks{inFlight: make(map[string]struct{})}
}

func (l *instanceLocks) tryAcquire(instanceID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.inFlight[instanceID]; busy {
		return false
	}

	l.inFlight[instanceID] = struct{}{}

	return true
}

func (l *instanceLocks) release(instanceID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.inFlight, instanceID)
}
