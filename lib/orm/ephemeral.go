package orm

// The ephemeral entry store is independent of the record model: entries live
// in their own key namespace, need no collection definition and never touch
// the unique indexes. Expiry is handled natively by the store channel.

func (e *engine) SetEntry(collection, key string, value []byte, seconds uint64) error {
	if !codecSafe(collection) {
		return newError(KindValidation, "invalid collection name %q", collection)
	}
	if key == "" {
		return newError(KindValidation, "empty ephemeral key")
	}

	storeKey := ephemeralKey(collection, key)
	var err error
	if seconds == 0 {
		err = e.store.Set(storeKey, value)
	} else {
		err = e.store.SetE(storeKey, value, seconds, seconds)
	}
	if err != nil {
		return wrapConnErr(err, "failed to set ephemeral entry %q", storeKey)
	}
	return nil
}

func (e *engine) GetEntry(collection, key string) ([]byte, error) {
	storeKey := ephemeralKey(collection, key)
	value, found, err := e.store.Get(storeKey)
	if err != nil {
		return nil, wrapConnErr(err, "failed to read ephemeral entry %q", storeKey)
	}
	if !found {
		// "never set" and "expired" both surface as not found
		return nil, newError(KindNotFound, "ephemeral entry %q/%q not found", collection, key)
	}
	return value, nil
}

func (e *engine) UpdateEntryTTL(collection, key string, seconds uint64) error {
	storeKey := ephemeralKey(collection, key)

	// existence check first: UpdateTTL must never create the key. A delete
	// racing between check and update leaves the entry gone, which is the
	// same outcome the caller raced for.
	_, found, err := e.store.Get(storeKey)
	if err != nil {
		return wrapConnErr(err, "failed to check ephemeral entry %q", storeKey)
	}
	if !found {
		return newError(KindNotFound, "ephemeral entry %q/%q not found", collection, key)
	}

	if err := e.store.UpdateTTL(storeKey, seconds, seconds); err != nil {
		return wrapConnErr(err, "failed to update ttl of ephemeral entry %q", storeKey)
	}
	return nil
}

func (e *engine) RemoveEntry(collection, key string) error {
	storeKey := ephemeralKey(collection, key)
	if err := e.store.Delete(storeKey); err != nil {
		return wrapConnErr(err, "failed to remove ephemeral entry %q", storeKey)
	}
	return nil
}
