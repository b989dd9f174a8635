package service

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	locks := newKeyedMutex()
	id := uuid.New()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			defer unlock()
			current := counter
			counter = current + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 serialised increments, got %d", counter)
	}
	if locks.size() != 0 {
		t.Fatalf("expected entries to be released, %d left", locks.size())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := newKeyedMutex()
	unlockA := locks.Lock(uuid.New())
	unlockB := locks.Lock(uuid.New())
	if locks.size() != 2 {
		t.Fatalf("expected two live entries, got %d", locks.size())
	}
	unlockA()
	unlockB()
}
