package core

import (
	"fmt"
	"io"
	"os"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/cast"
)

// Record is one company or team member entry. Fields other than "url" and
// "name" are passed to templates untouched.
type Record map[string]interface{}

func (r Record) Slug() string {
	return r.String("url")
}

func (r Record) Name() string {
	return r.String("name")
}

func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// RecordSource yields the current, ordered set of records.
type RecordSource interface {
	Records() ([]Record, error)
}

func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return DecodeRecords(f)
}

func DecodeRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Anything after the array is malformed.
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStore, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrMalformedStore)
	}

	records := make([]Record, 0, len(raw))
	for i, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is not an object", ErrMalformedStore, i)
		}
		records = append(records, Record(obj))
	}
	return records, nil
}

// Clone returns a shallow copy, so callers may add or drop keys without
// touching the stored record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = rec.Clone()
	}
	return out
}

// FindRecord returns the first record whose slug equals slug exactly, or an
// empty record when there is none.
func FindRecord(records []Record, slug string) Record {
	for _, rec := range records {
		if rec.Slug() == slug {
			return rec
		}
	}
	return Record{}
}

// DuplicateSlugs lists every slug that appears more than once, in the order
// the duplicates were first seen.
func DuplicateSlugs(records []Record) []string {
	seen := make(map[string]int, len(records))
	var dups []string
	for _, rec := range records {
		slug := rec.Slug()
		seen[slug]++
		if seen[slug] == 2 {
			dups = append(dups, slug)
		}
	}
	return dups
}
