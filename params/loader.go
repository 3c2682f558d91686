package params

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cepro/capacityplanner/sets"
)

// Files gives the paths of the CSV tables the store is loaded from.
type Files struct {
	Load            string
	Nuclear         string
	LargeHydro      string
	OtherRenewables string
	CFSolar         string
	CFWind          string
	SolarProperties string
	WindProperties  string
	StorageData     string
}

// Load reads every table, then validates the store against the registry.
func Load(files Files, reg *sets.Registry, scalars Scalars) (*Store, error) {
	s := NewStore(scalars)
	n := reg.NumHours()

	series := []struct {
		path   string
		column string
		dst    **Table[int]
	}{
		{files.Load, TableLoad, &s.Load},
		{files.Nuclear, TableNuclear, &s.Nuclear},
		{files.LargeHydro, TableLargeHydro, &s.LargeHydro},
		{files.OtherRenewables, TableOtherRenewables, &s.OtherRenewables},
	}
	for _, ser := range series {
		err := readFile(ser.path, func(r io.Reader) error {
			t, err := ReadHourlySeries(r, ser.column, ser.column, n)
			*ser.dst = t
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	err := readFile(files.CFSolar, func(r io.Reader) (err error) {
		s.CFSolar, err = ReadCapacityFactors(r, TableCFSolar, n, reg.SolarSites())
		return err
	})
	if err != nil {
		return nil, err
	}
	err = readFile(files.CFWind, func(r io.Reader) (err error) {
		s.CFWind, err = ReadCapacityFactors(r, TableCFWind, n, reg.WindSites())
		return err
	})
	if err != nil {
		return nil, err
	}

	err = readFile(files.SolarProperties, func(r io.Reader) (err error) {
		s.SolarProperties, err = ReadSiteProperties(r, TableSolarProperties, reg.Properties())
		return err
	})
	if err != nil {
		return nil, err
	}
	err = readFile(files.WindProperties, func(r io.Reader) (err error) {
		s.WindProperties, err = ReadSiteProperties(r, TableWindProperties, reg.Properties())
		return err
	})
	if err != nil {
		return nil, err
	}

	err = readFile(files.StorageData, func(r io.Reader) (err error) {
		s.StorageData, err = ReadStorageData(r, reg.StorageTechs())
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.Validate(reg); err != nil {
		return nil, fmt.Errorf("validate parameters: %w", err)
	}

	slog.Info("Loaded parameters", "tables", s.String())
	return s, nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open table %s: %w", path, err)
	}
	defer f.Close()

	if err := read(f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
