package formulation

import (
	"fmt"
	"math"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/sets"
)

// Variable family names. Variables are named Family[index,...].
const (
	FamilyYpv      = "Ypv"
	FamilyYwind    = "Ywind"
	FamilyYstorage = "Ystorage"
	FamilyPC       = "PC"
	FamilyPD       = "PD"
	FamilySOC      = "SOC"
	FamilyPcha     = "Pcha"
	FamilyPdis     = "Pdis"
	FamilyEcap     = "Ecap"
	FamilyGenPV    = "GenPV"
	FamilyCurtPV   = "CurtPV"
	FamilyGenWind  = "GenWind"
	FamilyCurtWind = "CurtWind"
	FamilyGenCC    = "GenCC"
	FamilyCapCC    = "CapCC"
)

// HourTech indexes the per hour storage variables.
type HourTech struct {
	Hour int
	Tech sets.StorageTech
}

// Name is the variable name of k in family. Ystorage is indexed tech first, PC, PD and SOC hour first.
func (k HourTech) Name(family string) string {
	if family == FamilyYstorage {
		return VarName(family, k.Tech, k.Hour)
	}
	return VarName(family, k.Hour, k.Tech)
}

// Variables holds the handles of every decision variable, keyed by index.
type Variables struct {
	Ypv   map[string]milp.Var
	Ywind map[string]milp.Var

	// Ystorage is 1 when the technology may charge in the hour and 0 when it may discharge.
	Ystorage map[HourTech]milp.Var

	PC  map[HourTech]milp.Var
	PD  map[HourTech]milp.Var
	SOC map[HourTech]milp.Var

	Pcha map[sets.StorageTech]milp.Var
	Pdis map[sets.StorageTech]milp.Var
	Ecap map[sets.StorageTech]milp.Var

	GenPV    map[int]milp.Var
	CurtPV   map[int]milp.Var
	GenWind  map[int]milp.Var
	CurtWind map[int]milp.Var
	GenCC    map[int]milp.Var

	CapCC milp.Var
}

// declareVariables adds every variable to the model in schema order.
func declareVariables(m *milp.Model, reg *sets.Registry, capCCUpper float64) (*Variables, error) {
	inf := math.Inf(1)
	v := &Variables{
		Ypv:      make(map[string]milp.Var),
		Ywind:    make(map[string]milp.Var),
		Ystorage: make(map[HourTech]milp.Var),
		PC:       make(map[HourTech]milp.Var),
		PD:       make(map[HourTech]milp.Var),
		SOC:      make(map[HourTech]milp.Var),
		Pcha:     make(map[sets.StorageTech]milp.Var),
		Pdis:     make(map[sets.StorageTech]milp.Var),
		Ecap:     make(map[sets.StorageTech]milp.Var),
		GenPV:    make(map[int]milp.Var),
		CurtPV:   make(map[int]milp.Var),
		GenWind:  make(map[int]milp.Var),
		CurtWind: make(map[int]milp.Var),
		GenCC:    make(map[int]milp.Var),
	}

	var err error
	add := func(name string, lower, upper float64, kind milp.VarKind) milp.Var {
		if err != nil {
			return milp.Var{}
		}
		var handle milp.Var
		handle, err = m.AddVar(name, lower, upper, kind)
		return handle
	}

	for _, k := range reg.SolarSites() {
		v.Ypv[k] = add(VarName(FamilyYpv, k), 0, 1, milp.Continuous)
	}
	for _, w := range reg.WindSites() {
		v.Ywind[w] = add(VarName(FamilyYwind, w), 0, 1, milp.Continuous)
	}

	for _, j := range reg.StorageTechs() {
		for _, h := range reg.Hours() {
			k := HourTech{h, j}
			v.Ystorage[k] = add(k.Name(FamilyYstorage), 0, 1, milp.Binary)
		}
	}

	hourTech := []struct {
		family string
		dst    map[HourTech]milp.Var
	}{
		{FamilyPC, v.PC},
		{FamilyPD, v.PD},
		{FamilySOC, v.SOC},
	}
	for _, f := range hourTech {
		for _, h := range reg.Hours() {
			for _, j := range reg.StorageTechs() {
				k := HourTech{h, j}
				f.dst[k] = add(k.Name(f.family), 0, inf, milp.Continuous)
			}
		}
	}

	perTech := []struct {
		family string
		dst    map[sets.StorageTech]milp.Var
	}{
		{FamilyPcha, v.Pcha},
		{FamilyPdis, v.Pdis},
		{FamilyEcap, v.Ecap},
	}
	for _, f := range perTech {
		for _, j := range reg.StorageTechs() {
			f.dst[j] = add(VarName(f.family, j), 0, inf, milp.Continuous)
		}
	}

	hourly := []struct {
		family string
		dst    map[int]milp.Var
	}{
		{FamilyGenPV, v.GenPV},
		{FamilyCurtPV, v.CurtPV},
		{FamilyGenWind, v.GenWind},
		{FamilyCurtWind, v.CurtWind},
		{FamilyGenCC, v.GenCC},
	}
	for _, f := range hourly {
		for _, h := range reg.Hours() {
			f.dst[h] = add(VarName(f.family, h), 0, inf, milp.Continuous)
		}
	}

	v.CapCC = add(FamilyCapCC, 0, capCCUpper, milp.Continuous)

	if err != nil {
		return nil, fmt.Errorf("declare variables: %w", err)
	}
	return v, nil
}

// VarName formats the name of a variable or constraint: family[i1,i2,...], or just family without indices.
func VarName(family string, index ...interface{}) string {
	if len(index) == 0 {
		return family
	}
	name := family + "["
	for i, idx := range index {
		if i > 0 {
			name += ","
		}
		name += fmt.Sprint(idx)
	}
	return name + "]"
}
