package match

import (
	"strconv"

	"github.com/datawithjack/windsurf-world-tour-stats-data-sub000/internal/model"
)

// BlockFunc derives a blocking key from a record. Returning ok=false means
// the record lacks the attribute and is excluded from this index; it still
// reaches stages that do not block on that attribute.
type BlockFunc func(r model.RawRecord) (key string, ok bool)

// Index buckets a record pool by a cheap blocking key so a stage compares
// only plausible pairs instead of the full cross product. Bucket order
// preserves input order, which keeps equal-score tie-breaks stable.
type Index struct {
	buckets map[string][]model.RawRecord
}

// NewIndex builds an index over pool using block.
func NewIndex(pool []model.RawRecord, block BlockFunc) *Index {
	idx := &Index{buckets: make(map[string][]model.RawRecord)}
	for _, r := range pool {
		key, ok := block(r)
		if !ok {
			continue
		}
		idx.buckets[key] = append(idx.buckets[key], r)
	}
	return idx
}

// Lookup returns the records sharing one blocking key.
func (idx *Index) Lookup(key string) []model.RawRecord {
	return idx.buckets[key]
}

// LookupAll returns the records under any of the given keys, in key order.
// Used for windowed blocks such as birth-year +/-1.
func (idx *Index) LookupAll(keys ...string) []model.RawRecord {
	var out []model.RawRecord
	for _, k := range keys {
		out = append(out, idx.buckets[k]...)
	}
	return out
}

// ByYearOfBirth blocks on the record's birth year.
func ByYearOfBirth(r model.RawRecord) (string, bool) {
	if r.YearOfBirth == 0 {
		return "", false
	}
	return yearKey(r.YearOfBirth), true
}

// ByCountry blocks on the normalized nationality.
func ByCountry(r model.RawRecord) (string, bool) {
	c := Normalize(r.Nationality)
	if c == "" {
		return "", false
	}
	return c, true
}

// BySailNumber blocks on the exact sail number.
func BySailNumber(r model.RawRecord) (string, bool) {
	if r.SailNumber == "" {
		return "", false
	}
	return r.SailNumber, true
}

func yearKey(year int) string {
	return strconv.Itoa(year)
}
