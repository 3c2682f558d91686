package params

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/cepro/capacityplanner/sets"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// readFrame reads a comma-separated table with a header row. Every column is read as text so that empty cells
// stay distinguishable from zeros.
func readFrame(r io.Reader, table string) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df, fmt.Errorf("read table %s: %w", table, df.Err)
	}
	if df.Ncol() < 2 {
		return df, fmt.Errorf("read table %s: expected an index column and at least one value column, got %d columns", table, df.Ncol())
	}
	return df, nil
}

// isEmptyCell reports whether a cell holds no value.
func isEmptyCell(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NA", "NaN":
		return true
	}
	return false
}

func parseValue(table string, line int, column, cell string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, fmt.Errorf("table %s line %d column %q: parse value %q: %w", table, line, column, cell, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("table %s line %d column %q: value %q is not finite", table, line, column, cell)
	}
	return v, nil
}

func parseHour(table string, line int, cell string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("table %s line %d: parse hour %q", table, line, cell)
	}
	return int(f), nil
}

// columnIndex returns the position of name in the header, or -1.
func columnIndex(names []string, name string) int {
	for i, n := range names {
		if strings.TrimSpace(n) == name {
			return i
		}
	}
	return -1
}

// ReadHourlySeries reads an hourly series: the first column is the hour index and `column` holds the values.
// Hours outside 1..numHours and repeated hours are errors; empty cells are left out and surface later as
// missing parameters.
func ReadHourlySeries(r io.Reader, table, column string, numHours int) (*Table[int], error) {
	df, err := readFrame(r, table)
	if err != nil {
		return nil, err
	}
	names := df.Names()
	if columnIndex(names, column) < 0 {
		return nil, fmt.Errorf("read table %s: no %q column in header %v", table, column, names)
	}

	hours := df.Col(names[0]).Records()
	values := df.Col(names[columnIndex(names, column)]).Records()

	out := NewTable[int](table)
	for i := range hours {
		line := i + 2 // header is line 1
		h, err := parseHour(table, line, hours[i])
		if err != nil {
			return nil, err
		}
		if h < 1 || h > numHours {
			return nil, fmt.Errorf("table %s line %d: hour %d outside 1..%d", table, line, h, numHours)
		}
		if out.Has(h) {
			return nil, fmt.Errorf("table %s line %d: hour %d repeated", table, line, h)
		}
		if isEmptyCell(values[i]) {
			continue
		}
		v, err := parseValue(table, line, column, values[i])
		if err != nil {
			return nil, err
		}
		out.Set(h, v)
	}
	return out, nil
}

// ReadCapacityFactors reads a capacity factor table laid out with one row per hour and one column per site.
// The number of (hour, site) entries over `sites` must be exactly len(hours) x len(sites); anything else is a
// RowCountMismatchError. Columns for sites outside `sites` are ignored.
func ReadCapacityFactors(r io.Reader, table string, numHours int, sites []string) (*Table[HourSite], error) {
	df, err := readFrame(r, table)
	if err != nil {
		return nil, err
	}
	names := df.Names()
	hours := df.Col(names[0]).Records()

	wanted := make(map[string]bool, len(sites))
	for _, site := range sites {
		wanted[site] = true
	}

	out := NewTable[HourSite](table)
	entries := 0
	for _, name := range names[1:] {
		site := strings.TrimSpace(name)
		if !wanted[site] {
			continue
		}
		cells := df.Col(name).Records()
		for i, cell := range cells {
			if isEmptyCell(cell) {
				continue
			}
			entries++
			line := i + 2
			h, err := parseHour(table, line, hours[i])
			if err != nil {
				return nil, err
			}
			if h < 1 || h > numHours {
				continue // counted above, so the row count check reports it
			}
			v, err := parseValue(table, line, site, cell)
			if err != nil {
				return nil, err
			}
			out.Set(HourSite{Hour: h, Site: site}, v)
		}
	}

	expected := numHours * len(sites)
	if entries != expected {
		return nil, &RowCountMismatchError{Table: table, Expected: expected, Actual: entries}
	}
	return out, nil
}

// ReadSiteProperties reads a site property table: one row per site, one column per property key. Only the given
// property columns are kept.
func ReadSiteProperties(r io.Reader, table string, properties []string) (*Table[SiteProperty], error) {
	df, err := readFrame(r, table)
	if err != nil {
		return nil, err
	}
	names := df.Names()
	siteIDs := df.Col(names[0]).Records()

	out := NewTable[SiteProperty](table)
	for _, prop := range properties {
		idx := columnIndex(names, prop)
		if idx < 0 {
			continue // reported per site by Validate if the property is required
		}
		cells := df.Col(names[idx]).Records()
		for i, cell := range cells {
			if isEmptyCell(cell) {
				continue
			}
			v, err := parseValue(table, i+2, prop, cell)
			if err != nil {
				return nil, err
			}
			out.Set(SiteProperty{Site: strings.TrimSpace(siteIDs[i]), Property: prop}, v)
		}
	}
	return out, nil
}

// ReadStorageData reads the storage technology table: one row per storage property, one column per technology.
func ReadStorageData(r io.Reader, techs []sets.StorageTech) (*Table[StorageProperty], error) {
	df, err := readFrame(r, TableStorageData)
	if err != nil {
		return nil, err
	}
	names := df.Names()
	keys := df.Col(names[0]).Records()

	known := make(map[sets.StorageKey]bool, len(sets.StorageKeys))
	for _, key := range sets.StorageKeys {
		known[key] = true
	}

	for _, k := range keys {
		if !known[sets.StorageKey(strings.TrimSpace(k))] {
			slog.Warn("Ignoring unknown storage property", "table", TableStorageData, "property", k)
		}
	}

	out := NewTable[StorageProperty](TableStorageData)
	for _, tech := range techs {
		idx := columnIndex(names, string(tech))
		if idx < 0 {
			continue // reported by Validate
		}
		cells := df.Col(names[idx]).Records()
		for i, cell := range cells {
			key := sets.StorageKey(strings.TrimSpace(keys[i]))
			if !known[key] {
				continue
			}
			if isEmptyCell(cell) {
				continue
			}
			v, err := parseValue(TableStorageData, i+2, string(tech), cell)
			if err != nil {
				return nil, err
			}
			out.Set(StorageProperty{Property: key, Tech: tech}, v)
		}
	}
	return out, nil
}
