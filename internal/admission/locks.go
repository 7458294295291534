package admission

import (
	"context"
	"sync"
)

// MemoryLocker is an in-process Locker for single-instance deployments and tests.
// It has the same try-lock semantics as the Redis locker.
type MemoryLocker struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{owners: make(map[string]string)}
}

func dayLockKey(eventID, day string) string {
	return eventID + ":" + day
}

// LockDays takes every day or none of them.
func (l *MemoryLocker) LockDays(_ context.Context, eventID string, days []string, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, day := range days {
		if held, ok := l.owners[dayLockKey(eventID, day)]; ok && held != owner {
			return false, nil
		}
	}
	for _, day := range days {
		l.owners[dayLockKey(eventID, day)] = owner
	}
	return true, nil
}

// UnlockDays releases only the days still held by owner.
func (l *MemoryLocker) UnlockDays(_ context.Context, eventID string, days []string, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, day := range days {
		key := dayLockKey(eventID, day)
		if l.owners[key] == owner {
			delete(l.owners, key)
		}
	}
	return nil
}
