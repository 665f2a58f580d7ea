package testing

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dORM/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("SetEIfUnset", func(t *testing.T) {
			testSetEIfUnset(t, factory())
		})

		t.Run("UpdateTTL", func(t *testing.T) {
			testUpdateTTL(t, factory())
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, factory())
		})

		t.Run("ManyExpiringKeys", func(t *testing.T) {
			testManyExpiringKeys(t, factory())
		})

		t.Run("Scan", func(t *testing.T) {
			testScan(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("CollisionHandling", func(t *testing.T) {
			testCollisionHandling(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// in returns an absolute unix-millisecond deadline d from now
func in(d time.Duration) uint64 {
	return uint64(time.Now().Add(d).UnixMilli())
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1, 0)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2, 0)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// Get must return a copy, not a reference to the stored value
	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	updatedValue := []byte("updated-value")
	database.Set(testKey, updatedValue, 0)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after update", testKey)
	}

	if !bytes.Equal(result, updatedValue) {
		t.Errorf("Expected updated value %s, got %s", updatedValue, result)
	}
}

func testKeyExpiry(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureHas)

	testKey := "expiring-key"
	testValue := []byte("expiring-value")

	// expire in 50ms, delete in 150ms
	database.SetE(testKey, testValue, 1, in(50*time.Millisecond), in(150*time.Millisecond))

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Key should still exist before the expiration deadline (get)")
	}
	if !bytes.Equal(result, testValue) {
		t.Errorf("Expected value %s, got %s", testValue, result)
	}
	if !database.Has(testKey) {
		t.Errorf("Key should still exist before the expiration deadline (has)")
	}

	time.Sleep(80 * time.Millisecond)

	if _, exists = database.Get(testKey); exists {
		t.Errorf("Key should have expired (get)")
	}
	if !database.Has(testKey) {
		t.Errorf("Expired key should still be findable with Has()")
	}

	time.Sleep(120 * time.Millisecond)

	if _, exists = database.Get(testKey); exists {
		t.Errorf("Key should have been deleted (get)")
	}
	if database.Has(testKey) {
		t.Errorf("Key should not exist after the deletion deadline (has)")
	}

	// deletion deadline only
	testKey2 := "test-key2"
	testValue2 := []byte("test-value2")

	database.SetE(testKey2, testValue2, 2, 0, in(50*time.Millisecond))

	result, exists = database.Get(testKey2)
	if !exists {
		t.Errorf("Key should still exist before the deletion deadline")
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	time.Sleep(80 * time.Millisecond)

	if _, exists = database.Get(testKey2); exists {
		t.Errorf("Key should have been deleted")
	}
	if database.Has(testKey2) {
		t.Errorf("Key should not exist after the deletion deadline")
	}

	// zero deadlines mean no expiry
	testKey3 := "not-expiring-key"
	testValue3 := []byte("not-expiring-value")

	database.SetE(testKey3, testValue3, 3, 0, 0)

	time.Sleep(50 * time.Millisecond)
	result, exists = database.Get(testKey3)
	if !exists {
		t.Errorf("Key with deadline 0 should never expire")
	}
	if !bytes.Equal(result, testValue3) {
		t.Errorf("Expected value %s, got %s", testValue3, result)
	}
	if !database.Has(testKey3) {
		t.Errorf("Key with deadline 0 should never expire")
	}
}

func testManyExpiringKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetE)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureHas)

	numKeys := 1000
	deadline := in(50 * time.Millisecond)

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expiring-key-%d", i)
		value := []byte(fmt.Sprintf("expiring-value-%d", i))
		database.SetE(key, value, uint64(i+1), deadline, deadline)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expiring-key-%d", i)
		if _, exists := database.Get(key); !exists {
			t.Fatalf("Key %s should exist before the deadline", key)
		}
	}

	time.Sleep(100 * time.Millisecond)

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("expiring-key-%d", i)
		if _, exists := database.Get(key); exists {
			t.Errorf("Key %s should have expired", key)
		}
		if database.Has(key) {
			t.Errorf("Key %s should have been deleted", key)
		}
	}
}

func testExpire(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureExpire)

	testKey := "expire-test-key"
	testValue := []byte("expire-test-value")

	database.Set(testKey, testValue, 0)

	_, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	database.Expire(testKey, 10)

	_, exists = database.Get(testKey)
	if exists {
		t.Errorf("Expected key %s to not exist after Expire", testKey)
	}

	if !database.Has(testKey) {
		t.Errorf("Expected key %s to exist after Expire", testKey)
	}

	// expiring a nonexistent key must not create it
	database.Expire("nonexistent-key", 0)
	if database.Has("nonexistent-key") {
		t.Errorf("Expire must not create a key")
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	testKey := "delete-test-key"
	testValue := []byte("delete-test-value")

	database.Set(testKey, testValue, 0)

	_, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	database.Delete(testKey, 10)

	_, exists = database.Get(testKey)
	if exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	if database.Has(testKey) {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	database.Delete("nonexistent-key", 0)
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureExpire)
	requireFeature(t, database, db.FeatureHas)

	testKey := "has-exists-test-key"
	testValue := []byte("has-exists-test-value")

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	database.Set(testKey, testValue, 0)

	if !database.Has(testKey) {
		t.Errorf("Expected Has to return true after Set")
	}

	database.Expire(testKey, 0)

	if !database.Has(testKey) {
		t.Errorf("Expected Has to return true after Expire (ledger retention)")
	}
}

func testSetEIfUnset(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSetEIfUnset)
	requireFeature(t, database, db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value")
	testValue2 := []byte("test-value2")

	database.SetEIfUnset(testKey, testValue1, 0, in(100*time.Millisecond), in(100*time.Millisecond))

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after SetEIfUnset", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	// a second SetEIfUnset must not overwrite the live entry
	database.SetEIfUnset(testKey, testValue2, 5, 0, 0)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after SetEIfUnset", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	time.Sleep(150 * time.Millisecond)
	if _, exists = database.Get(testKey); exists {
		t.Errorf("Expected key %s to not exist after ttl expired", testKey)
	}
}

func testUpdateTTL(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureUpdateTTL)
	requireFeature(t, database, db.FeatureGet)

	testKey := "ttl-test-key"
	testValue := []byte("ttl-test-value")

	// no deadline initially
	database.Set(testKey, testValue, 1)

	// add a deadline without touching the value
	database.UpdateTTL(testKey, 2, in(60*time.Millisecond), in(60*time.Millisecond))

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Key should still exist right after UpdateTTL")
	}
	if !bytes.Equal(result, testValue) {
		t.Errorf("UpdateTTL must not change the stored value")
	}

	// extend the deadline before it fires
	database.UpdateTTL(testKey, 3, in(300*time.Millisecond), in(300*time.Millisecond))

	time.Sleep(100 * time.Millisecond)
	if _, exists = database.Get(testKey); !exists {
		t.Errorf("Key should survive the original deadline after extension")
	}

	// UpdateTTL on a nonexistent key must not create it
	database.UpdateTTL("ttl-nonexistent", 4, in(time.Second), in(time.Second))
	if database.Has("ttl-nonexistent") {
		t.Errorf("UpdateTTL must not create a key")
	}
}

func testScan(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureScan)

	// interleave two prefixes, with increasing write indices
	numKeys := 50
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("scan/a/%04d", i), []byte(fmt.Sprintf("a-%d", i)), uint64(2*i+1))
		database.Set(fmt.Sprintf("scan/b/%04d", i), []byte(fmt.Sprintf("b-%d", i)), uint64(2*i+2))
	}

	// full prefix scan
	items := database.Scan("scan/")
	if len(items) != 2*numKeys {
		t.Fatalf("Expected %d items, got %d", 2*numKeys, len(items))
	}

	// results must be ordered by write index
	for i := 1; i < len(items); i++ {
		if items[i].Index < items[i-1].Index {
			t.Fatalf("Scan result not ordered by write index at position %d", i)
		}
	}

	// narrow prefix only returns matching keys
	items = database.Scan("scan/a/")
	if len(items) != numKeys {
		t.Fatalf("Expected %d items for prefix scan/a/, got %d", numKeys, len(items))
	}
	for _, item := range items {
		if item.Key[:7] != "scan/a/" {
			t.Errorf("Unexpected key %q in prefix scan", item.Key)
		}
	}

	// deleted and expired entries are not returned
	database.Delete("scan/a/0000", 1000)
	database.Expire("scan/a/0001", 1001)

	items = database.Scan("scan/a/")
	if len(items) != numKeys-2 {
		t.Errorf("Expected %d items after delete+expire, got %d", numKeys-2, len(items))
	}

	// non-matching prefix yields an empty result
	if items := database.Scan("other/"); len(items) != 0 {
		t.Errorf("Expected empty scan result, got %d items", len(items))
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory()
	database2 := factory()

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureSave)
	requireFeature(t, database, db.FeatureLoad)

	numEntries := 1000
	originalKeys := make([]string, numEntries)
	originalValues := make([][]byte, numEntries)

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		value := []byte(fmt.Sprintf("save-load-test-value-%d", i))
		originalKeys[i] = key
		originalValues[i] = value

		database.Set(key, value, 0)
	}

	var buf bytes.Buffer
	err := database.Save(&buf)
	if err != nil {
		t.Errorf("Unexpected error during Save: %v", err)
	}

	err = database2.Load(&buf)
	if err != nil {
		t.Errorf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		key := originalKeys[i]
		expectedValue := originalValues[i]

		actualValue, exists := database2.Get(key)
		if !exists {
			t.Errorf("Key %s not found after Load", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", key, expectedValue, actualValue)
		}
	}

	for i := 0; i < numEntries; i++ {
		key := originalKeys[i]
		expectedValue := originalValues[i]

		actualValue, exists := database.Get(key)
		if !exists {
			t.Errorf("Key %s not found in original database", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value mismatch in original database for key %s", key)
		}
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	database.Set(emptyKey, emptyKeyValue, 0)

	result, exists := database.Get(emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	emptyValueKey := "empty-value-key"
	var emptyValue []byte

	database.Set(emptyValueKey, emptyValue, 0)

	result, exists = database.Get(emptyValueKey)
	if !exists {
		t.Errorf("Key for empty value not found after Set")
	} else if !bytes.Equal(result, emptyValue) {
		t.Errorf("Empty value mismatch")
	}

	nilValueKey := "nil-value-key"
	var nilValue []byte = nil

	database.Set(nilValueKey, nilValue, 0)

	result, exists = database.Get(nilValueKey)
	if !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	if !t.Failed() {

		largeKey := string(make([]byte, 1000))
		largeKeyValue := []byte("value for large key")

		database.Set(largeKey, largeKeyValue, 0)

		result, exists = database.Get(largeKey)
		if !exists {
			t.Errorf("Large key not found after Set")
		} else if !bytes.Equal(result, largeKeyValue) {
			t.Errorf("Value mismatch for large key")
		}

		largeValueKey := "large-value-key"
		largeValue := make([]byte, 100*1024*1024)

		for i := range largeValue {
			largeValue[i] = byte(i % 256)
		}

		database.Set(largeValueKey, largeValue, 0)

		result, exists = database.Get(largeValueKey)
		if !exists {
			t.Errorf("Key for large value not found after Set")
		} else if !bytes.Equal(result, largeValue) {

			headMismatch := !bytes.Equal(result[:10], largeValue[:10])
			tailMismatch := !bytes.Equal(result[len(result)-10:], largeValue[len(largeValue)-10:])
			if headMismatch || tailMismatch || len(result) != len(largeValue) {
				t.Errorf("Large value mismatch: Head mismatch=%v, Tail mismatch=%v, Size mismatch=%v",
					headMismatch, tailMismatch, len(result) != len(largeValue))
			}
		}
	}
}

func testCollisionHandling(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	prefix := "collision-test-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		value := []byte(fmt.Sprintf("value-%d", i))

		database.Set(key, value, 0)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		expectedValue := []byte(fmt.Sprintf("value-%d", i))

		actualValue, exists := database.Get(key)
		if !exists {
			t.Errorf("Key %s not found", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value for key %s does not match: expected %s, got %s",
				key, expectedValue, actualValue)
		}
	}

	for i := 0; i < numKeys; i += 2 {
		key := fmt.Sprintf("%s%d", prefix, i)
		database.Delete(key, 10)
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		_, exists := database.Get(key)

		if i%2 == 0 {
			if exists {
				t.Errorf("Key %s should be deleted", key)
			}
		} else {
			if !exists {
				t.Errorf("Key %s should still exist", key)
			}
		}
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)
	requireFeature(t, database, db.FeatureGet)
	requireFeature(t, database, db.FeatureDelete)

	type operation struct {
		op    string
		key   string
		value []byte
	}

	numOperations := 10_000
	operations := make([]operation, numOperations)

	for i := 0; i < numOperations; i++ {
		var op string
		switch i % 10 {
		case 0, 1, 2, 3, 4, 5, 6:
			op = "set"
		case 7, 8:
			op = "get"
		case 9:
			op = "delete"
		}

		var key string
		if i%5 == 0 {
			key = fmt.Sprintf("hot-key-%d", i%50)
		} else {
			key = fmt.Sprintf("key-%d", i)
		}

		var value []byte
		if op == "set" {
			valueSize := 64
			if i%10 == 0 {
				valueSize = 1024
			}
			value = make([]byte, valueSize)

			for j := 0; j < valueSize; j++ {
				value[j] = byte((i + j) % 256)
			}
		}

		operations[i] = operation{op, key, value}
	}

	allKeys := make(map[string]bool)
	for _, op := range operations {
		allKeys[op.key] = true
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var errorCount int32

	opsPerWorker := numOperations / numWorkers

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			start := workerId * opsPerWorker
			end := start + opsPerWorker

			for i := start; i < end; i++ {
				op := operations[i]

				switch op.op {
				case "set":
					database.Set(op.key, op.value, 0)
				case "get":
					database.Get(op.key)
				case "delete":
					database.Delete(op.key, 0)
				}
			}
		}(w)
	}

	wg.Wait()

	if atomic.LoadInt32(&errorCount) > 0 {
		t.Fatalf("Test had %d errors during parallel operations", errorCount)
		return
	}

	var (
		dbMutex   sync.Mutex
		keyStatus = make(map[string]bool)
		keyValues = make(map[string][]byte)
		errorKeys = make(map[string]string)
	)

	var verifyWg sync.WaitGroup
	verifyWg.Add(len(allKeys))

	for key := range allKeys {
		go func(k string) {
			defer verifyWg.Done()

			_, exists := database.Get(k)

			dbMutex.Lock()
			defer dbMutex.Unlock()

			keyStatus[k] = exists

			if exists {

				value, ok := database.Get(k)
				if !ok {

					errorKeys[k] = "Key exists but Get returned false"
					return
				}

				keyValues[k] = value
			}
		}(key)
	}

	verifyWg.Wait()

	for key := range allKeys {
		_, exists := database.Get(key)

		if exists != keyStatus[key] {
			t.Errorf("Consistency error: Key %s existence changed during verification", key)
			continue
		}

		if exists {
			value, ok := database.Get(key)
			if !ok {
				t.Errorf("Consistency error: Key %s exists but could not be retrieved", key)
				continue
			}

			if !bytes.Equal(value, keyValues[key]) {
				t.Errorf("Value mismatch for key %s between verification passes", key)
			}
		}
	}

	for key, errMsg := range errorKeys {
		t.Errorf("Error for key %s: %s", key, errMsg)
	}
}
