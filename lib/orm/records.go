package orm

import (
	"bytes"
)

// --------------------------------------------------------------------------
// Create
// --------------------------------------------------------------------------

func (e *engine) Create(collection string, data Record) (Record, error) {
	def, err := e.loadDefinition(collection)
	if err != nil {
		return nil, err
	}
	if err := validateRecordShape(&def, data); err != nil {
		return nil, err
	}

	rec := data.clone()

	// resolve the primary key: caller-supplied, or generated for
	// auto-increment keys
	pkAttr := def.PrimaryKey()
	if _, present := rec[pkAttr.Name]; !present {
		if !pkAttr.AutoIncrement {
			return nil, newError(KindValidation, "missing primary key %q for collection %q", pkAttr.Name, collection)
		}
		next, err := e.nextAutoIncrement(collection)
		if err != nil {
			return nil, err
		}
		rec[pkAttr.Name] = next
	}
	pk, err := canonicalValue(rec[pkAttr.Name])
	if err != nil {
		return nil, err
	}

	rev, err := newRev()
	if err != nil {
		return nil, err
	}

	// claim every unique index entry, then the record key itself. Each claim
	// is a SetEIfUnset followed by an ownership check on the stored rev
	// token; any collision triggers compensating deletion of the entries
	// claimed so far.
	var claimed []string
	fail := func(cause error) (Record, error) {
		ormErr, ok := cause.(*Error)
		if !ok {
			ormErr = wrapConnErr(cause, "create in collection %q failed", collection)
		}
		ormErr.CompensationFailed = !e.compensate(claimed)
		return nil, ormErr
	}

	for _, attr := range def.UniqueAttributes() {
		val, present := rec[attr.Name]
		if !present || val == nil {
			continue
		}
		canon, err := canonicalValue(val)
		if err != nil {
			return fail(err)
		}
		key := indexKey(collection, attr.Name, canon)

		owned, err := e.claimIndexEntry(key, rev, pk)
		if err != nil {
			return fail(err)
		}
		if !owned {
			return fail(newError(KindConstraint, "unique attribute %q of collection %q already has value %q", attr.Name, collection, canon))
		}
		claimed = append(claimed, key)
	}

	encoded, err := encodeRecord(rev, rec)
	if err != nil {
		return fail(err)
	}
	recKey := recordKey(collection, pk)
	if err := e.store.SetEIfUnset(recKey, encoded, 0, 0); err != nil {
		return fail(wrapConnErr(err, "failed to claim record %q", recKey))
	}
	stored, found, err := e.store.Get(recKey)
	if err != nil {
		return fail(wrapConnErr(err, "failed to verify record claim %q", recKey))
	}
	if !found {
		return fail(newError(KindConstraint, "primary key %q already exists in collection %q", pk, collection))
	}
	env, err := decodeRecord(stored)
	if err != nil {
		return fail(err)
	}
	if !bytes.Equal(env.Rev, rev) {
		return fail(newError(KindConstraint, "primary key %q already exists in collection %q", pk, collection))
	}

	return rec, nil
}

// claimIndexEntry attempts to claim a unique-index key for the given rev.
// Returns whether the claim is owned by this writer.
func (e *engine) claimIndexEntry(key string, rev []byte, pk string) (bool, error) {
	payload, err := encodeIndexEntry(rev, pk)
	if err != nil {
		return false, err
	}
	if err := e.store.SetEIfUnset(key, payload, 0, 0); err != nil {
		return false, wrapConnErr(err, "failed to claim index entry %q", key)
	}
	stored, found, err := e.store.Get(key)
	if err != nil {
		return false, wrapConnErr(err, "failed to verify index claim %q", key)
	}
	if !found {
		return false, nil
	}
	env, err := decodeIndexEntry(stored)
	if err != nil {
		return false, err
	}
	return bytes.Equal(env.Rev, rev), nil
}

// compensate removes the given claimed keys. Returns false when any removal
// fails, in which case the store may contain dangling index entries.
func (e *engine) compensate(keys []string) bool {
	ok := true
	for _, key := range keys {
		if err := e.store.Delete(key); err != nil {
			log.Errorf("compensation failed: could not delete %q: %v", key, err)
			ok = false
		}
	}
	return ok
}

// validateRecordShape rejects attributes the schema does not know.
func validateRecordShape(def *CollectionDefinition, data Record) error {
	for name := range data {
		if _, ok := def.Attribute(name); !ok {
			return newError(KindValidation, "unknown attribute %q for collection %q", name, def.Name)
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Find
// --------------------------------------------------------------------------

func (e *engine) Find(collection string, criteria Criteria) ([]Record, error) {
	def, err := e.loadDefinition(collection)
	if err != nil {
		return nil, err
	}
	if err := criteria.validate(&def); err != nil {
		return nil, err
	}

	matches, err := e.findMatches(collection, &def, &criteria)
	if err != nil {
		return nil, err
	}
	return criteria.shapeResults(matches), nil
}

// findMatches resolves the unshaped matching record set. Point lookups are
// used when the criteria pins the primary key or a unique attribute to a
// single value; everything else is a prefix scan with in-memory evaluation.
func (e *engine) findMatches(collection string, def *CollectionDefinition, criteria *Criteria) ([]Record, error) {
	pkAttr := def.PrimaryKey()

	// fast path: point lookup by primary key
	if val, ok := criteria.eqCondition(pkAttr.Name); ok {
		pk, err := canonicalValue(val)
		if err != nil {
			return nil, err
		}
		return e.pointLookup(collection, pk, criteria)
	}

	// fast path: unique-attribute equality resolves to a pk via the index
	for _, attr := range def.UniqueAttributes() {
		val, ok := criteria.eqCondition(attr.Name)
		if !ok {
			continue
		}
		canon, err := canonicalValue(val)
		if err != nil {
			return nil, err
		}
		data, found, err := e.store.Get(indexKey(collection, attr.Name, canon))
		if err != nil {
			return nil, wrapConnErr(err, "failed to read index of %q", collection)
		}
		if !found {
			return []Record{}, nil
		}
		env, err := decodeIndexEntry(data)
		if err != nil {
			return nil, err
		}
		return e.pointLookup(collection, env.PK, criteria)
	}

	// full-collection scan, results arrive in insertion order
	entries, err := e.store.Scan(recordPrefix(collection))
	if err != nil {
		return nil, wrapConnErr(err, "failed to scan collection %q", collection)
	}
	matches := []Record{}
	for _, entry := range entries {
		pk, ok := parseRecordKey(collection, entry.Key)
		if !ok {
			continue
		}
		env, err := decodeRecord(entry.Value)
		if err != nil {
			// earlier drift; the record is skipped, not fatal
			log.Warningf("skipping undecodable record %q of %q: %v", pk, collection, err)
			continue
		}
		rec := Record(env.Fields)
		if criteria.matches(rec) {
			matches = append(matches, rec)
		}
	}
	return matches, nil
}

func (e *engine) pointLookup(collection, pk string, criteria *Criteria) ([]Record, error) {
	data, found, err := e.store.Get(recordKey(collection, pk))
	if err != nil {
		return nil, wrapConnErr(err, "failed to read record %q of %q", pk, collection)
	}
	if !found {
		return []Record{}, nil
	}
	env, err := decodeRecord(data)
	if err != nil {
		return nil, err
	}
	rec := Record(env.Fields)
	// the remaining conditions still apply
	if !criteria.matches(rec) {
		return []Record{}, nil
	}
	return []Record{rec}, nil
}

// --------------------------------------------------------------------------
// Update
// --------------------------------------------------------------------------

func (e *engine) Update(collection string, criteria Criteria, values Record) ([]Record, error) {
	def, err := e.loadDefinition(collection)
	if err != nil {
		return nil, err
	}
	if err := criteria.validate(&def); err != nil {
		return nil, err
	}
	if err := validateRecordShape(&def, values); err != nil {
		return nil, err
	}

	matches, err := e.findMatches(collection, &def, &criteria)
	if err != nil {
		return nil, err
	}
	matches = criteria.shapeResults(matches)

	pkAttr := def.PrimaryKey()
	updated := []Record{}

	// each record's update is atomic with its own index adjustment; a
	// collision fails the remainder while earlier records stay committed
	for _, rec := range matches {
		pk, err := canonicalValue(rec[pkAttr.Name])
		if err != nil {
			return updated, err
		}

		if newPK, present := values[pkAttr.Name]; present {
			canon, err := canonicalValue(newPK)
			if err != nil {
				return updated, err
			}
			if canon != pk {
				return updated, newError(KindValidation, "primary key %q of collection %q cannot be changed", pkAttr.Name, collection)
			}
		}

		newRec, claimed, removed, err := e.applyUniqueChanges(collection, &def, rec, values, pk)
		if err != nil {
			return updated, err
		}

		rev, err := newRev()
		if err != nil {
			e.compensate(claimed)
			return updated, err
		}
		encoded, encodeErr := encodeRecord(rev, newRec)
		if encodeErr != nil {
			e.compensate(claimed)
			return updated, encodeErr
		}
		if err := e.store.Set(recordKey(collection, pk), encoded); err != nil {
			connErr := wrapConnErr(err, "failed to rewrite record %q of %q", pk, collection)
			connErr.CompensationFailed = !e.compensate(claimed)
			return updated, connErr
		}

		// the old index entries go away only after the record is rewritten.
		// The record itself is committed at this point, so a failed removal
		// is index drift and must be surfaced with the compensation flag,
		// never swallowed: the stale entry would block its value for every
		// future create.
		updated = append(updated, newRec)
		var staleErr *Error
		for _, key := range removed {
			if err := e.store.Delete(key); err != nil {
				log.Errorf("failed to remove stale index entry %q: %v", key, err)
				if staleErr == nil {
					staleErr = wrapConnErr(err, "failed to remove stale index entry %q of %q", key, collection)
					staleErr.CompensationFailed = true
				}
			}
		}
		if staleErr != nil {
			return updated, staleErr
		}
	}

	return updated, nil
}

// applyUniqueChanges claims index entries for changed unique values and
// returns the merged record, the newly claimed keys and the old keys to
// remove after the record rewrite. On a collision the claims made for this
// record are compensated before the error returns.
func (e *engine) applyUniqueChanges(collection string, def *CollectionDefinition, rec, values Record, pk string) (Record, []string, []string, error) {
	newRec := rec.clone()
	for name, val := range values {
		newRec[name] = val
	}

	var claimed, removed []string
	rev, err := newRev()
	if err != nil {
		return nil, nil, nil, err
	}

	for _, attr := range def.UniqueAttributes() {
		newVal, present := values[attr.Name]
		if !present {
			continue
		}

		oldVal, hadOld := rec[attr.Name]
		var oldCanon string
		if hadOld && oldVal != nil {
			oldCanon, err = canonicalValue(oldVal)
			if err != nil {
				e.compensate(claimed)
				return nil, nil, nil, err
			}
		}

		if newVal == nil {
			if oldCanon != "" {
				removed = append(removed, indexKey(collection, attr.Name, oldCanon))
			}
			continue
		}

		newCanon, err := canonicalValue(newVal)
		if err != nil {
			e.compensate(claimed)
			return nil, nil, nil, err
		}
		if newCanon == oldCanon {
			continue
		}

		key := indexKey(collection, attr.Name, newCanon)
		owned, err := e.claimIndexEntry(key, rev, pk)
		if err != nil {
			e.compensate(claimed)
			return nil, nil, nil, err
		}
		if !owned {
			e.compensate(claimed)
			return nil, nil, nil, newError(KindConstraint, "unique attribute %q of collection %q already has value %q", attr.Name, collection, newCanon)
		}
		claimed = append(claimed, key)
		if oldCanon != "" {
			removed = append(removed, indexKey(collection, attr.Name, oldCanon))
		}
	}

	return newRec, claimed, removed, nil
}

// --------------------------------------------------------------------------
// Destroy
// --------------------------------------------------------------------------

func (e *engine) Destroy(collection string, criteria Criteria) ([]Record, error) {
	def, err := e.loadDefinition(collection)
	if err != nil {
		return nil, err
	}
	if err := criteria.validate(&def); err != nil {
		return nil, err
	}

	matches, err := e.findMatches(collection, &def, &criteria)
	if err != nil {
		return nil, err
	}
	matches = criteria.shapeResults(matches)

	pkAttr := def.PrimaryKey()
	destroyed := []Record{}

	for _, rec := range matches {
		pk, err := canonicalValue(rec[pkAttr.Name])
		if err != nil {
			return destroyed, err
		}

		// index entries first so no index ever points at a removed record.
		// A missing entry signals earlier drift; tolerated, not fatal.
		for _, attr := range def.UniqueAttributes() {
			val, present := rec[attr.Name]
			if !present || val == nil {
				continue
			}
			canon, err := canonicalValue(val)
			if err != nil {
				return destroyed, err
			}
			key := indexKey(collection, attr.Name, canon)
			found, err := e.store.Has(key)
			if err != nil {
				return destroyed, wrapConnErr(err, "failed to check index entry %q", key)
			}
			if !found {
				log.Warningf("index entry %q missing while destroying record %q of %q", key, pk, collection)
				continue
			}
			if err := e.store.Delete(key); err != nil {
				return destroyed, wrapConnErr(err, "failed to delete index entry %q", key)
			}
		}

		if err := e.store.Delete(recordKey(collection, pk)); err != nil {
			return destroyed, wrapConnErr(err, "failed to delete record %q of %q", pk, collection)
		}
		destroyed = append(destroyed, rec)
	}

	return destroyed, nil
}
