package params

import (
	"fmt"
	"math"

	"github.com/cepro/capacityplanner/sets"
)

// VRELifetimeYears is the economic life used to annualize solar, wind and gas-CC capital.
const VRELifetimeYears = 30

// Table names, as reported in errors.
const (
	TableLoad            = "Load"
	TableNuclear         = "Nuclear"
	TableLargeHydro      = "LargeHydro"
	TableOtherRenewables = "OtherRenewables"
	TableCFSolar         = "CFSolar"
	TableCFWind          = "CFWind"
	TableSolarProperties = "CapSolar"
	TableWindProperties  = "CapWind"
	TableStorageData     = "StorageData"
	tableScalars         = "Scalars"
)

// Store holds every exogenous input of the model. Nothing in it changes once Load returns.
type Store struct {
	Scalars Scalars

	Load            *Table[int]
	Nuclear         *Table[int]
	LargeHydro      *Table[int]
	OtherRenewables *Table[int]

	CFSolar *Table[HourSite]
	CFWind  *Table[HourSite]

	SolarProperties *Table[SiteProperty]
	WindProperties  *Table[SiteProperty]

	StorageData *Table[StorageProperty]
}

// NewStore returns a store with empty tables, for callers that fill the tables themselves.
func NewStore(scalars Scalars) *Store {
	return &Store{
		Scalars:         scalars,
		Load:            NewTable[int](TableLoad),
		Nuclear:         NewTable[int](TableNuclear),
		LargeHydro:      NewTable[int](TableLargeHydro),
		OtherRenewables: NewTable[int](TableOtherRenewables),
		CFSolar:         NewTable[HourSite](TableCFSolar),
		CFWind:          NewTable[HourSite](TableCFWind),
		SolarProperties: NewTable[SiteProperty](TableSolarProperties),
		WindProperties:  NewTable[SiteProperty](TableWindProperties),
		StorageData:     NewTable[StorageProperty](TableStorageData),
	}
}

// CapitalRecoveryFactor annualizes a capital cost over `lifetime` years at discount rate r.
func CapitalRecoveryFactor(r, lifetime float64) float64 {
	if r == 0 {
		return 1 / lifetime
	}
	growth := math.Pow(1+r, lifetime)
	return r * growth / (growth - 1)
}

// CRF returns the capital recovery factor of a storage technology, using its lifetime from the storage data.
func (s *Store) CRF(tech sets.StorageTech) (float64, error) {
	lifetime, err := s.StorageData.At(StorageProperty{Property: sets.Lifetime, Tech: tech})
	if err != nil {
		return 0, err
	}
	return CapitalRecoveryFactor(s.Scalars.DiscountRate, lifetime), nil
}

// FCRVRE is the fixed charge rate applied to solar and wind capital.
func (s *Store) FCRVRE() float64 {
	return CapitalRecoveryFactor(s.Scalars.DiscountRate, VRELifetimeYears)
}

// FCRGasCC is the fixed charge rate applied to gas-CC capital.
func (s *Store) FCRGasCC() float64 {
	return CapitalRecoveryFactor(s.Scalars.DiscountRate, VRELifetimeYears)
}

// MustRun returns the must-run generation included in the balance for hour h.
func (s *Store) MustRun(h int) (float64, error) {
	nuclear, err := s.Nuclear.At(h)
	if err != nil {
		return 0, err
	}
	hydro, err := s.LargeHydro.At(h)
	if err != nil {
		return 0, err
	}
	other, err := s.OtherRenewables.At(h)
	if err != nil {
		return 0, err
	}
	return s.Scalars.AlphaNuclear*nuclear + s.Scalars.AlphaLargeHydro*hydro + s.Scalars.AlphaOtherRenewables*other, nil
}

// CapCCUpperBound returns the largest residual load (load less must-run) over the year. Gas-CC capacity never
// needs to exceed it. A year with no residual load gives 0.
func (s *Store) CapCCUpperBound(reg *sets.Registry) (float64, error) {
	bound := 0.0
	for _, h := range reg.Hours() {
		load, err := s.Load.At(h)
		if err != nil {
			return 0, err
		}
		mustRun, err := s.MustRun(h)
		if err != nil {
			return 0, err
		}
		bound = math.Max(bound, load-mustRun)
	}
	return bound, nil
}

// Validate checks that every table covers the registry's index domains and that the values respect the data
// invariants.
func (s *Store) Validate(reg *sets.Registry) error {
	if err := s.Scalars.validate(); err != nil {
		return err
	}

	for _, series := range []*Table[int]{s.Load, s.Nuclear, s.LargeHydro, s.OtherRenewables} {
		for _, h := range reg.Hours() {
			if _, err := series.At(h); err != nil {
				return err
			}
		}
	}

	capacityFactors := []struct {
		table *Table[HourSite]
		sites []string
	}{
		{s.CFSolar, reg.SolarSites()},
		{s.CFWind, reg.WindSites()},
	}
	for _, cf := range capacityFactors {
		if err := checkCapacityFactors(cf.table, reg.Hours(), cf.sites); err != nil {
			return err
		}
	}

	siteProperties := []struct {
		table *Table[SiteProperty]
		sites []string
	}{
		{s.SolarProperties, reg.SolarSites()},
		{s.WindProperties, reg.WindSites()},
	}
	for _, sp := range siteProperties {
		for _, site := range sp.sites {
			for _, prop := range sets.RequiredSiteProperties {
				if _, err := sp.table.At(SiteProperty{Site: site, Property: prop}); err != nil {
					return err
				}
			}
		}
	}

	for _, tech := range reg.StorageTechs() {
		props, err := s.Storage(tech)
		if err != nil {
			return err
		}
		if err := props.validate(tech); err != nil {
			return err
		}
	}

	return nil
}

func checkCapacityFactors(table *Table[HourSite], hours []int, sites []string) error {
	for _, h := range hours {
		for _, site := range sites {
			k := HourSite{Hour: h, Site: site}
			cf, err := table.At(k)
			if err != nil {
				return err
			}
			if cf < 0 || cf > 1 {
				return &InvalidParameterError{Table: table.Name(), Key: k.String(), Value: cf, Reason: "capacity factor must be within [0,1]"}
			}
		}
	}
	return nil
}

func (sc Scalars) validate() error {
	checks := []struct {
		key    string
		value  float64
		ok     bool
		reason string
	}{
		{"DiscountRate", sc.DiscountRate, sc.DiscountRate >= 0, "must not be negative"},
		{"GenMixTarget", sc.GenMixTarget, sc.GenMixTarget >= 0 && sc.GenMixTarget <= 1, "must be within [0,1]"},
		{"AlphaNuclear", sc.AlphaNuclear, sc.AlphaNuclear == 0 || sc.AlphaNuclear == 1, "must be 0 or 1"},
		{"AlphaLargeHydro", sc.AlphaLargeHydro, sc.AlphaLargeHydro == 0 || sc.AlphaLargeHydro == 1, "must be 0 or 1"},
		{"AlphaOtherRenewables", sc.AlphaOtherRenewables, sc.AlphaOtherRenewables == 0 || sc.AlphaOtherRenewables == 1, "must be 0 or 1"},
		{"MaxCycles", sc.MaxCycles, sc.MaxCycles >= 0, "must not be negative"},
	}
	for _, c := range checks {
		if !c.ok || math.IsNaN(c.value) {
			return &InvalidParameterError{Table: tableScalars, Key: c.key, Value: c.value, Reason: c.reason}
		}
	}
	return nil
}

// String summarises the store for logging.
func (s *Store) String() string {
	return fmt.Sprintf("load=%d cfSolar=%d cfWind=%d solarProps=%d windProps=%d storage=%d",
		s.Load.Len(), s.CFSolar.Len(), s.CFWind.Len(), s.SolarProperties.Len(), s.WindProperties.Len(), s.StorageData.Len())
}
