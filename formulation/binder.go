package formulation

import (
	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/params"
	"github.com/cepro/capacityplanner/sets"
)

// binder gives rules read access to parameters and variables. The first failed lookup is kept in err and later
// lookups return zero values, so a rule can be written as straight-line arithmetic and checked once.
type binder struct {
	reg   *sets.Registry
	store *params.Store
	vars  *Variables
	rule  string
	err   error
}

func (b *binder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *binder) param(v float64, err error) float64 {
	if err != nil {
		b.fail(err)
		return 0
	}
	return v
}

func (b *binder) load(h int) float64 { return b.param(b.store.Load.At(h)) }

func (b *binder) mustRun(h int) float64 { return b.param(b.store.MustRun(h)) }

func (b *binder) cfSolar(h int, site string) float64 {
	return b.param(b.store.CFSolar.At(params.HourSite{Hour: h, Site: site}))
}

func (b *binder) cfWind(h int, site string) float64 {
	return b.param(b.store.CFWind.At(params.HourSite{Hour: h, Site: site}))
}

func (b *binder) solarProperty(site, prop string) float64 {
	return b.param(b.store.SolarProperties.At(params.SiteProperty{Site: site, Property: prop}))
}

func (b *binder) windProperty(site, prop string) float64 {
	return b.param(b.store.WindProperties.At(params.SiteProperty{Site: site, Property: prop}))
}

func (b *binder) storage(tech sets.StorageTech) params.StorageProperties {
	props, err := b.store.Storage(tech)
	if err != nil {
		b.fail(err)
	}
	return props
}

func (b *binder) crf(tech sets.StorageTech) float64 { return b.param(b.store.CRF(tech)) }

// variable looks up a handle and records an UnboundReferenceError when the index was never declared.
func variable[K comparable](b *binder, family string, m map[K]milp.Var, k K) milp.Var {
	v, ok := m[k]
	if !ok || v.IsZero() {
		b.fail(&milp.UnboundReferenceError{Context: b.rule, Name: indexName(family, k)})
		return milp.Var{}
	}
	return v
}

func indexName(family string, k interface{}) string {
	if ht, ok := k.(HourTech); ok {
		return ht.Name(family)
	}
	return VarName(family, k)
}

func (b *binder) pc(h int, j sets.StorageTech) milp.Var {
	return variable(b, FamilyPC, b.vars.PC, HourTech{h, j})
}

func (b *binder) pd(h int, j sets.StorageTech) milp.Var {
	return variable(b, FamilyPD, b.vars.PD, HourTech{h, j})
}

func (b *binder) soc(h int, j sets.StorageTech) milp.Var {
	return variable(b, FamilySOC, b.vars.SOC, HourTech{h, j})
}

func (b *binder) ystorage(h int, j sets.StorageTech) milp.Var {
	return variable(b, FamilyYstorage, b.vars.Ystorage, HourTech{h, j})
}

func (b *binder) pcha(j sets.StorageTech) milp.Var { return variable(b, FamilyPcha, b.vars.Pcha, j) }

func (b *binder) pdis(j sets.StorageTech) milp.Var { return variable(b, FamilyPdis, b.vars.Pdis, j) }

func (b *binder) ecap(j sets.StorageTech) milp.Var { return variable(b, FamilyEcap, b.vars.Ecap, j) }

func (b *binder) genPV(h int) milp.Var { return variable(b, FamilyGenPV, b.vars.GenPV, h) }

func (b *binder) curtPV(h int) milp.Var { return variable(b, FamilyCurtPV, b.vars.CurtPV, h) }

func (b *binder) genWind(h int) milp.Var { return variable(b, FamilyGenWind, b.vars.GenWind, h) }

func (b *binder) curtWind(h int) milp.Var { return variable(b, FamilyCurtWind, b.vars.CurtWind, h) }

func (b *binder) genCC(h int) milp.Var { return variable(b, FamilyGenCC, b.vars.GenCC, h) }

func (b *binder) ypv(site string) milp.Var { return variable(b, FamilyYpv, b.vars.Ypv, site) }

func (b *binder) ywind(site string) milp.Var { return variable(b, FamilyYwind, b.vars.Ywind, site) }

func (b *binder) capCC() milp.Var {
	if b.vars.CapCC.IsZero() {
		b.fail(&milp.UnboundReferenceError{Context: b.rule, Name: FamilyCapCC})
	}
	return b.vars.CapCC
}
