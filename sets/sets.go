package sets

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// HoursPerYear is the length of the planning year.
const HoursPerYear = 8760

// StorageTech identifies an energy storage technology.
type StorageTech string

const (
	LiIon StorageTech = "Li-Ion"
	CAES  StorageTech = "CAES"
	PHS   StorageTech = "PHS"
	H2    StorageTech = "H2"
)

// DefaultStorageTechs lists every storage technology the model knows how to size.
var DefaultStorageTechs = []StorageTech{LiIon, CAES, PHS, H2}

// coupledTechs are the technologies with a single convertible power unit, so their charge and discharge power
// capacities must be equal.
var coupledTechs = map[StorageTech]bool{
	LiIon: true,
	PHS:   true,
}

// StorageKey is a property of a storage technology in the storage data table.
type StorageKey string

const (
	PCapex      StorageKey = "P_Capex"
	ECapex      StorageKey = "E_Capex"
	Eff         StorageKey = "Eff"
	MinDuration StorageKey = "Min_Duration"
	MaxDuration StorageKey = "Max_Duration"
	MaxP        StorageKey = "Max_P"
	FOM         StorageKey = "FOM"
	VOM         StorageKey = "VOM"
	Lifetime    StorageKey = "Lifetime"
	CostRatio   StorageKey = "CostRatio"
)

// StorageKeys is the complete set of storage properties, in table order.
var StorageKeys = []StorageKey{PCapex, ECapex, Eff, MinDuration, MaxDuration, MaxP, FOM, VOM, Lifetime, CostRatio}

// Site property keys the objective and the renewable balances read.
const (
	SiteCapacity     = "capacity"
	SiteCapex        = "CAPEX_M"
	SiteTransmission = "trans_cap_cost"
	SiteFOM          = "FOM_M"
)

// RequiredSiteProperties must all be present in the site property key list.
var RequiredSiteProperties = []string{SiteCapacity, SiteCapex, SiteTransmission, SiteFOM}

// Names of the sets, used in errors and logs.
const (
	SetHours        = "hours"
	SetSolarSites   = "solar sites"
	SetWindSites    = "wind sites"
	SetProperties   = "site properties"
	SetStorageTechs = "storage technologies"
)

// SetLoadError is returned when an index set can't be loaded: a list file is missing, empty, or holds duplicates.
type SetLoadError struct {
	Set    string
	Path   string
	Reason string
	Err    error
}

func (e *SetLoadError) Error() string {
	msg := fmt.Sprintf("load set %q", e.Set)
	if e.Path != "" {
		msg += fmt.Sprintf(" from %s", e.Path)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SetLoadError) Unwrap() error {
	return e.Err
}

// Registry holds the finite index domains every parameter and variable ranges over. It is immutable after New.
type Registry struct {
	hours        []int
	solarSites   []string
	windSites    []string
	properties   []string
	storageTechs []StorageTech
	coupled      []StorageTech
}

// Files gives the paths of the plain-text list files backing the registry.
type Files struct {
	SolarSites string
	WindSites  string
	Properties string
}

// Load reads the site and property lists from disk and builds a registry with `hours` hours and the given
// storage technologies.
func Load(files Files, hours int, techs []StorageTech) (*Registry, error) {
	solar, err := LoadList(files.SolarSites, SetSolarSites)
	if err != nil {
		return nil, err
	}
	wind, err := LoadList(files.WindSites, SetWindSites)
	if err != nil {
		return nil, err
	}
	props, err := LoadList(files.Properties, SetProperties)
	if err != nil {
		return nil, err
	}
	return New(hours, solar, wind, props, techs)
}

// New validates the given sets and returns a registry over them.
func New(hours int, solarSites, windSites, properties []string, techs []StorageTech) (*Registry, error) {
	if hours <= 0 {
		return nil, &SetLoadError{Set: SetHours, Reason: fmt.Sprintf("need at least one hour, got %d", hours)}
	}

	named := []struct {
		set    string
		values []string
	}{
		{SetSolarSites, solarSites},
		{SetWindSites, windSites},
		{SetProperties, properties},
	}
	for _, n := range named {
		if err := checkUnique(n.set, "", n.values); err != nil {
			return nil, err
		}
	}

	techNames := make([]string, len(techs))
	for i, tech := range techs {
		if !slices.Contains(DefaultStorageTechs, tech) {
			return nil, &SetLoadError{Set: SetStorageTechs, Reason: fmt.Sprintf("unknown technology %q", tech)}
		}
		techNames[i] = string(tech)
	}
	if err := checkUnique(SetStorageTechs, "", techNames); err != nil {
		return nil, err
	}

	for _, required := range RequiredSiteProperties {
		if !slices.Contains(properties, required) {
			return nil, &SetLoadError{Set: SetProperties, Reason: fmt.Sprintf("missing required property %q", required)}
		}
	}

	r := &Registry{
		hours:        make([]int, hours),
		solarSites:   append([]string(nil), solarSites...),
		windSites:    append([]string(nil), windSites...),
		properties:   append([]string(nil), properties...),
		storageTechs: append([]StorageTech(nil), techs...),
	}
	for i := range r.hours {
		r.hours[i] = i + 1
	}
	for _, tech := range techs {
		if coupledTechs[tech] {
			r.coupled = append(r.coupled, tech)
		}
	}
	return r, nil
}

// LoadList reads an identifier list file, one identifier per line.
func LoadList(path string, set string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SetLoadError{Set: set, Path: path, Reason: "open list file", Err: err}
	}
	defer f.Close()

	values, err := ReadList(f, set)
	if err != nil {
		if setErr, ok := err.(*SetLoadError); ok {
			setErr.Path = path
		}
		return nil, err
	}
	return values, nil
}

// ReadList reads identifiers, one per line. Lines are trimmed and blank lines ignored. An empty list or a
// duplicate identifier is a SetLoadError.
func ReadList(r io.Reader, set string) ([]string, error) {
	var values []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		values = append(values, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &SetLoadError{Set: set, Reason: "read list", Err: err}
	}
	if err := checkUnique(set, "", values); err != nil {
		return nil, err
	}
	return values, nil
}

func checkUnique(set, path string, values []string) error {
	if len(values) == 0 {
		return &SetLoadError{Set: set, Path: path, Reason: "list is empty"}
	}
	seen := make(map[string]int, len(values))
	for i, v := range values {
		if first, ok := seen[v]; ok {
			return &SetLoadError{Set: set, Path: path, Reason: fmt.Sprintf("duplicate identifier %q (entries %d and %d)", v, first+1, i+1)}
		}
		seen[v] = i
	}
	return nil
}

// Hours returns the ordered hours 1..N.
func (r *Registry) Hours() []int { return r.hours }

// NumHours returns N, the last hour of the year.
func (r *Registry) NumHours() int { return len(r.hours) }

func (r *Registry) SolarSites() []string { return r.solarSites }

func (r *Registry) WindSites() []string { return r.windSites }

// Properties returns the site property keys.
func (r *Registry) Properties() []string { return r.properties }

func (r *Registry) StorageTechs() []StorageTech { return r.storageTechs }

// Coupled returns the registered technologies whose charge and discharge power capacities must be equal.
func (r *Registry) Coupled() []StorageTech { return r.coupled }

// IsCoupled reports whether tech is one of the coupled technologies.
func (r *Registry) IsCoupled(tech StorageTech) bool {
	for _, b := range r.coupled {
		if b == tech {
			return true
		}
	}
	return false
}

// HasTech reports whether tech is part of the registry.
func (r *Registry) HasTech(tech StorageTech) bool {
	for _, j := range r.storageTechs {
		if j == tech {
			return true
		}
	}
	return false
}

// Pred returns the cyclic predecessor of hour h: the hour before the first hour is the last hour of the year.
func (r *Registry) Pred(h int) int {
	if h == 1 {
		return len(r.hours)
	}
	return h - 1
}
