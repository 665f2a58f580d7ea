package birch

import (
	"testing"

	"github.com/ValentinKolb/dORM/lib/db"
	dbtesting "github.com/ValentinKolb/dORM/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BirchDB", func() db.KVDB {
		return NewBirchDB(nil)
	})
}

func Benchmark(t *testing.B) {
	dbtesting.RunKVDBBenchmarks(t, "BirchDB", func() db.KVDB {
		return NewBirchDB(nil)
	})
}
