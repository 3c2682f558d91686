package params

import (
	"fmt"

	"github.com/cepro/capacityplanner/sets"
)

// HourSite keys the capacity factor tables.
type HourSite struct {
	Hour int
	Site string
}

func (k HourSite) String() string { return fmt.Sprintf("%d,%s", k.Hour, k.Site) }

// SiteProperty keys the solar and wind site property tables.
type SiteProperty struct {
	Site     string
	Property string
}

func (k SiteProperty) String() string { return k.Site + "," + k.Property }

// StorageProperty keys the storage data table.
type StorageProperty struct {
	Property sets.StorageKey
	Tech     sets.StorageTech
}

func (k StorageProperty) String() string { return string(k.Property) + "," + string(k.Tech) }

// Table is a sparse mapping from a composite key to a value. Lookups of absent keys fail rather than default.
type Table[K comparable] struct {
	name   string
	values map[K]float64
}

func NewTable[K comparable](name string) *Table[K] {
	return &Table[K]{
		name:   name,
		values: make(map[K]float64),
	}
}

// Name returns the table name used in errors.
func (t *Table[K]) Name() string { return t.name }

// Set stores v under k, replacing any previous value.
func (t *Table[K]) Set(k K, v float64) {
	t.values[k] = v
}

// At returns the value stored under k, or a MissingParameterError.
func (t *Table[K]) At(k K) (float64, error) {
	v, ok := t.values[k]
	if !ok {
		return 0, &MissingParameterError{Table: t.name, Key: fmt.Sprint(k)}
	}
	return v, nil
}

// Has reports whether k is present.
func (t *Table[K]) Has(k K) bool {
	_, ok := t.values[k]
	return ok
}

func (t *Table[K]) Len() int { return len(t.values) }
