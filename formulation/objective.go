package formulation

import (
	"fmt"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/sets"
)

// Cost term names, in objective order.
const (
	CostSolar          = "solar"
	CostWind           = "wind"
	CostStorageCapital = "storage_capital"
	CostStorageFOM     = "storage_fixed_om"
	CostStorageVOM     = "storage_variable_om"
	CostGasCapital     = "gas_capital"
	CostGasFOM         = "gas_fixed_om"
	CostGasFuel        = "gas_fuel"
	CostGasVOM         = "gas_variable_om"
)

// kWPerMW converts the per kW capital and fixed O&M costs of the data tables to per MW.
const kWPerMW = 1000

// CostTerm is one component of the annualised system cost.
type CostTerm struct {
	Name string
	Expr milp.Expr
}

type costRule struct {
	name string
	rule func(b *binder) milp.Expr
}

var costRules = []costRule{
	{CostSolar, solarCost},
	{CostWind, windCost},
	{CostStorageCapital, storageCapitalCost},
	{CostStorageFOM, storageFixedOMCost},
	{CostStorageVOM, storageVariableOMCost},
	{CostGasCapital, gasCapitalCost},
	{CostGasFOM, gasFixedOMCost},
	{CostGasFuel, gasFuelCost},
	{CostGasVOM, gasVariableOMCost},
}

// CostNames lists the cost term names in objective order.
func CostNames() []string {
	names := make([]string, len(costRules))
	for i, c := range costRules {
		names[i] = c.name
	}
	return names
}

// siteCost is the annualised capital, transmission and fixed O&M cost of building a whole site.
func siteCost(fcr, capex, transmission, fom, capacity float64) float64 {
	return (fcr*(kWPerMW*capex+transmission) + kWPerMW*fom) * capacity
}

func solarCost(b *binder) milp.Expr {
	var e milp.Expr
	fcr := b.store.FCRVRE()
	for _, k := range b.reg.SolarSites() {
		c := siteCost(fcr,
			b.solarProperty(k, sets.SiteCapex),
			b.solarProperty(k, sets.SiteTransmission),
			b.solarProperty(k, sets.SiteFOM),
			b.solarProperty(k, sets.SiteCapacity))
		e.Add(c, b.ypv(k))
	}
	return e
}

func windCost(b *binder) milp.Expr {
	var e milp.Expr
	fcr := b.store.FCRVRE()
	for _, w := range b.reg.WindSites() {
		c := siteCost(fcr,
			b.windProperty(w, sets.SiteCapex),
			b.windProperty(w, sets.SiteTransmission),
			b.windProperty(w, sets.SiteFOM),
			b.windProperty(w, sets.SiteCapacity))
		e.Add(c, b.ywind(w))
	}
	return e
}

// storageCapitalCost splits the power capital cost between the charge and discharge sides by CostRatio.
func storageCapitalCost(b *binder) milp.Expr {
	var e milp.Expr
	for _, j := range b.reg.StorageTechs() {
		p := b.storage(j)
		crf := b.crf(j)
		e.Add(crf*kWPerMW*p.CostRatio*p.PCapex, b.pcha(j))
		e.Add(crf*kWPerMW*(1-p.CostRatio)*p.PCapex, b.pdis(j))
		e.Add(crf*kWPerMW*p.ECapex, b.ecap(j))
	}
	return e
}

func storageFixedOMCost(b *binder) milp.Expr {
	var e milp.Expr
	for _, j := range b.reg.StorageTechs() {
		p := b.storage(j)
		e.Add(kWPerMW*p.CostRatio*p.FOM, b.pcha(j))
		e.Add(kWPerMW*(1-p.CostRatio)*p.FOM, b.pdis(j))
	}
	return e
}

func storageVariableOMCost(b *binder) milp.Expr {
	var e milp.Expr
	for _, j := range b.reg.StorageTechs() {
		vom := b.storage(j).VOM
		for _, h := range b.reg.Hours() {
			e.Add(vom, b.pd(h, j))
		}
	}
	return e
}

func gasCapitalCost(b *binder) milp.Expr {
	var e milp.Expr
	e.Add(b.store.FCRGasCC()*kWPerMW*b.store.Scalars.CapexGasCC, b.capCC())
	return e
}

func gasFixedOMCost(b *binder) milp.Expr {
	var e milp.Expr
	e.Add(kWPerMW*b.store.Scalars.FOMGasCC, b.capCC())
	return e
}

func gasFuelCost(b *binder) milp.Expr {
	return perGasMWh(b, b.store.Scalars.GasPrice*b.store.Scalars.HeatRate)
}

func gasVariableOMCost(b *binder) milp.Expr {
	return perGasMWh(b, b.store.Scalars.VOMGasCC)
}

func perGasMWh(b *binder, cost float64) milp.Expr {
	var e milp.Expr
	for _, h := range b.reg.Hours() {
		e.Add(cost, b.genCC(h))
	}
	return e
}

// buildCosts evaluates every cost rule. The objective is the sum of the returned terms.
func buildCosts(bind func(rule string) *binder) ([]CostTerm, error) {
	costs := make([]CostTerm, 0, len(costRules))
	for _, c := range costRules {
		b := bind(c.name)
		e := c.rule(b)
		if b.err != nil {
			return nil, fmt.Errorf("build cost %s: %w", c.name, b.err)
		}
		costs = append(costs, CostTerm{Name: c.name, Expr: e})
	}
	return costs, nil
}
