package orm

import (
	"strconv"
	"strings"
)

// The flat key space of the store is partitioned into reserved namespaces per
// collection so records, unique-index entries, ephemeral entries, schema
// metadata, the auto-increment counter and internal locks can never collide:
//
//	c/<collection>/r/<pk>           record
//	c/<collection>/u/<attr>/<value> unique-index entry
//	c/<collection>/e/<key>          ephemeral entry
//	c/<collection>/m                schema metadata
//	c/<collection>/n                auto-increment high-water mark
//	c/<collection>/l/<name>         internal lock
//
// Collection and attribute names may not contain '/', so the mapping is
// injective per collection. Primary-key and indexed values are rendered
// canonically (see canonicalValue) before they enter a key.

func recordKey(collection, pk string) string {
	return "c/" + collection + "/r/" + pk
}

func recordPrefix(collection string) string {
	return "c/" + collection + "/r/"
}

func indexKey(collection, attr, value string) string {
	return "c/" + collection + "/u/" + attr + "/" + value
}

func indexPrefix(collection string) string {
	return "c/" + collection + "/u/"
}

func ephemeralKey(collection, key string) string {
	return "c/" + collection + "/e/" + key
}

func ephemeralPrefix(collection string) string {
	return "c/" + collection + "/e/"
}

func metaKey(collection string) string {
	return "c/" + collection + "/m"
}

func counterKey(collection string) string {
	return "c/" + collection + "/n"
}

func lockKey(collection, name string) string {
	return "c/" + collection + "/l/" + name
}

// parseRecordKey recovers the canonical primary-key rendering from a record
// store key. It is the inverse of recordKey and is used when scanning.
func parseRecordKey(collection, storeKey string) (pk string, ok bool) {
	prefix := recordPrefix(collection)
	if !strings.HasPrefix(storeKey, prefix) {
		return "", false
	}
	return storeKey[len(prefix):], true
}

// codecSafe reports whether a name may appear as a path segment of a store
// key. Empty names and names containing '/' would break injectivity.
func codecSafe(name string) bool {
	return name != "" && !strings.Contains(name, "/")
}

// canonicalValue renders a primary-key or indexed attribute value into its
// canonical string form. The rendering is injective per Go type family:
// integers decimal, floats in 'g' format, bools as true/false, strings raw.
func canonicalValue(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.FormatInt(int64(x), 10), nil
	case int8:
		return strconv.FormatInt(int64(x), 10), nil
	case int16:
		return strconv.FormatInt(int64(x), 10), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(x), 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 64), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", newError(KindValidation, "value of type %T cannot be used as key or indexed value", v)
	}
}
