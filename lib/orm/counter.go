package orm

import (
	"strconv"
)

// nextAutoIncrement advances the persisted high-water mark of a collection
// and returns the new value. The read-increment-write cycle runs under the
// collection's counter lock, so concurrent creates never observe the same
// value. The counter is monotonic across restarts and values are never
// reused, even after deletes.
func (e *engine) nextAutoIncrement(collection string) (int64, error) {
	var next int64
	err := e.withLock(lockKey(collection, "counter"), func() error {
		key := counterKey(collection)

		data, found, err := e.store.Get(key)
		if err != nil {
			return wrapConnErr(err, "failed to read counter of %q", collection)
		}

		var current int64
		if found {
			current, err = strconv.ParseInt(string(data), 10, 64)
			if err != nil {
				return newError(KindConnection, "corrupt counter value %q for collection %q", data, collection)
			}
		}

		next = current + 1
		if err := e.store.Set(key, []byte(strconv.FormatInt(next, 10))); err != nil {
			return wrapConnErr(err, "failed to advance counter of %q", collection)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
