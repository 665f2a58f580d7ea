package lockmgr

import (
	"sync"
	"testing"

	"github.com/ValentinKolb/dORM/lib/db"
	"github.com/ValentinKolb/dORM/lib/db/engines/birch"
	"github.com/ValentinKolb/dORM/lib/store/lstore"
)

func newTestManager() ILockManager {
	return NewLockManager(lstore.NewLocalStore(func() db.KVDB {
		return birch.NewBirchDB(nil)
	}))
}

func TestAcquireRelease(t *testing.T) {
	mgr := newTestManager()

	ok, ownerID, err := mgr.AcquireLock("lock-1", 0)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected to acquire uncontended lock")
	}
	if len(ownerID) == 0 {
		t.Fatal("Expected a non-empty owner id")
	}

	// a second acquire on the same key must fail
	ok, _, err = mgr.AcquireLock("lock-1", 0)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if ok {
		t.Fatal("Expected second acquire to fail while lock is held")
	}

	// release with the wrong owner id must fail
	ok, err = mgr.ReleaseLock("lock-1", []byte("not-the-owner"))
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if ok {
		t.Fatal("Expected release with foreign owner id to fail")
	}

	// release with the correct owner id succeeds
	ok, err = mgr.ReleaseLock("lock-1", ownerID)
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected release with correct owner id to succeed")
	}

	// the key is free again
	ok, _, err = mgr.AcquireLock("lock-1", 0)
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected to re-acquire lock after release")
	}
}

func TestReleaseNonexistent(t *testing.T) {
	mgr := newTestManager()

	ok, err := mgr.ReleaseLock("no-such-lock", []byte("whatever"))
	if err != nil {
		t.Fatalf("ReleaseLock failed: %v", err)
	}
	if !ok {
		t.Fatal("Releasing a nonexistent lock should succeed")
	}
}

func TestConcurrentAcquire(t *testing.T) {
	mgr := newTestManager()

	numWorkers := 16
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var mu sync.Mutex
	acquired := 0

	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			ok, _, err := mgr.AcquireLock("contended-lock", 0)
			if err != nil {
				t.Errorf("AcquireLock failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if acquired != 1 {
		t.Fatalf("Expected exactly one worker to acquire the lock, got %d", acquired)
	}
}
