package formulation

import (
	"fmt"

	"github.com/cepro/capacityplanner/milp"
	"github.com/cepro/capacityplanner/sets"
)

// Constraint family names. Instances are named family[hour,tech], family[hour], family[tech] or family.
const (
	PowerBalance           = "power_balance"
	RenewableTarget        = "renewable_target"
	SolarBalance           = "solar_balance"
	WindBalance            = "wind_balance"
	ChargeGate             = "charge_gate"
	DischargeGate          = "discharge_gate"
	MaxCharge              = "max_charge"
	MaxDischarge           = "max_discharge"
	MaxSOC                 = "max_soc"
	SOCBalance             = "soc_balance"
	SOCWrap                = "soc_wrap"
	ChargeCapacityLimit    = "charge_capacity_limit"
	DischargeCapacityLimit = "discharge_capacity_limit"
	CoupledCapacity        = "coupled_capacity"
	MinEnergy              = "min_energy"
	MaxEnergy              = "max_energy"
	BackupCapacity         = "backup_capacity"
	CycleLimit             = "cycle_limit"
)

// index identifies one instance of a constraint family. Hour 0 and an empty Tech mean the dimension is absent.
type index struct {
	hour int
	tech sets.StorageTech
}

func (i index) name(family string) string {
	switch {
	case i.hour > 0 && i.tech != "":
		return VarName(family, i.hour, i.tech)
	case i.hour > 0:
		return VarName(family, i.hour)
	case i.tech != "":
		return VarName(family, i.tech)
	}
	return family
}

// row is lhs sense rhs.
type row struct {
	lhs   milp.Expr
	sense milp.Sense
	rhs   float64
}

type family struct {
	name    string
	indices func(reg *sets.Registry) []index
	rule    func(b *binder, i index) row
}

var families = []family{
	{PowerBalance, perHour, powerBalance},
	{RenewableTarget, single, renewableTarget},
	{SolarBalance, perHour, solarBalance},
	{WindBalance, perHour, windBalance},
	{ChargeGate, perHourTech, chargeGate},
	{DischargeGate, perHourTech, dischargeGate},
	{MaxCharge, perHourTech, maxCharge},
	{MaxDischarge, perHourTech, maxDischarge},
	{MaxSOC, perHourTech, maxSOC},
	{SOCBalance, laterHourTech, socBalance},
	{SOCWrap, firstHourTech, socBalance},
	{ChargeCapacityLimit, perTech, chargeCapacityLimit},
	{DischargeCapacityLimit, perTech, dischargeCapacityLimit},
	{CoupledCapacity, perCoupled, coupledCapacity},
	{MinEnergy, perTech, minEnergy},
	{MaxEnergy, perTech, maxEnergy},
	{BackupCapacity, perHour, backupCapacity},
	{CycleLimit, liIonOnly, cycleLimit},
}

func single(*sets.Registry) []index { return []index{{}} }

func perHour(reg *sets.Registry) []index {
	out := make([]index, 0, reg.NumHours())
	for _, h := range reg.Hours() {
		out = append(out, index{hour: h})
	}
	return out
}

func perTech(reg *sets.Registry) []index {
	out := make([]index, 0, len(reg.StorageTechs()))
	for _, j := range reg.StorageTechs() {
		out = append(out, index{tech: j})
	}
	return out
}

func perCoupled(reg *sets.Registry) []index {
	var out []index
	for _, j := range reg.Coupled() {
		out = append(out, index{tech: j})
	}
	return out
}

func hourTech(reg *sets.Registry, keep func(h int) bool) []index {
	var out []index
	for _, h := range reg.Hours() {
		if !keep(h) {
			continue
		}
		for _, j := range reg.StorageTechs() {
			out = append(out, index{hour: h, tech: j})
		}
	}
	return out
}

func perHourTech(reg *sets.Registry) []index {
	return hourTech(reg, func(int) bool { return true })
}

func laterHourTech(reg *sets.Registry) []index {
	return hourTech(reg, func(h int) bool { return h > 1 })
}

func firstHourTech(reg *sets.Registry) []index {
	return hourTech(reg, func(h int) bool { return h == 1 })
}

func liIonOnly(reg *sets.Registry) []index {
	if !reg.HasTech(sets.LiIon) {
		return nil
	}
	return []index{{tech: sets.LiIon}}
}

// powerBalance: Load + sum PC - must-run - GenPV - GenWind - sum PD - GenCC = 0.
func powerBalance(b *binder, i index) row {
	var e milp.Expr
	for _, j := range b.reg.StorageTechs() {
		e.Add(1, b.pc(i.hour, j))
		e.Add(-1, b.pd(i.hour, j))
	}
	e.Add(-1, b.genPV(i.hour))
	e.Add(-1, b.genWind(i.hour))
	e.Add(-1, b.genCC(i.hour))
	e.AddConstant(b.load(i.hour) - b.mustRun(i.hour))
	return row{e, milp.Equal, 0}
}

// renewableTarget: sum GenCC <= (1 - target) * sum (Load + sum PC - sum PD).
func renewableTarget(b *binder, _ index) row {
	share := 1 - b.store.Scalars.GenMixTarget
	var e milp.Expr
	for _, h := range b.reg.Hours() {
		e.Add(1, b.genCC(h))
		for _, j := range b.reg.StorageTechs() {
			e.Add(-share, b.pc(h, j))
			e.Add(share, b.pd(h, j))
		}
		e.AddConstant(-share * b.load(h))
	}
	return row{e, milp.LessEqual, 0}
}

// solarBalance: GenPV + CurtPV = sum over sites of CF * capacity * Ypv.
func solarBalance(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.genPV(i.hour))
	e.Add(1, b.curtPV(i.hour))
	for _, k := range b.reg.SolarSites() {
		e.Add(-b.cfSolar(i.hour, k)*b.solarProperty(k, sets.SiteCapacity), b.ypv(k))
	}
	return row{e, milp.Equal, 0}
}

func windBalance(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.genWind(i.hour))
	e.Add(1, b.curtWind(i.hour))
	for _, w := range b.reg.WindSites() {
		e.Add(-b.cfWind(i.hour, w)*b.windProperty(w, sets.SiteCapacity), b.ywind(w))
	}
	return row{e, milp.Equal, 0}
}

// chargeGate: PC <= Max_P * Ystorage.
func chargeGate(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.pc(i.hour, i.tech))
	e.Add(-b.storage(i.tech).MaxP, b.ystorage(i.hour, i.tech))
	return row{e, milp.LessEqual, 0}
}

// dischargeGate: PD <= Max_P * (1 - Ystorage).
func dischargeGate(b *binder, i index) row {
	maxP := b.storage(i.tech).MaxP
	var e milp.Expr
	e.Add(1, b.pd(i.hour, i.tech))
	e.Add(maxP, b.ystorage(i.hour, i.tech))
	return row{e, milp.LessEqual, maxP}
}

func maxCharge(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.pc(i.hour, i.tech)).Add(-1, b.pcha(i.tech))
	return row{e, milp.LessEqual, 0}
}

func maxDischarge(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.pd(i.hour, i.tech)).Add(-1, b.pdis(i.tech))
	return row{e, milp.LessEqual, 0}
}

func maxSOC(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.soc(i.hour, i.tech)).Add(-1, b.ecap(i.tech))
	return row{e, milp.LessEqual, 0}
}

// socBalance: SOC[h] = SOC[pred(h)] + sqrt(Eff) * PC[h] - PD[h] / sqrt(Eff). The predecessor of the first hour is
// the last, closing the year into a loop.
func socBalance(b *binder, i index) row {
	p := b.storage(i.tech)
	var e milp.Expr
	e.Add(1, b.soc(i.hour, i.tech))
	e.Add(-1, b.soc(b.reg.Pred(i.hour), i.tech))
	e.Add(-p.ChargeEfficiency(), b.pc(i.hour, i.tech))
	e.Add(p.DischargeFactor(), b.pd(i.hour, i.tech))
	return row{e, milp.Equal, 0}
}

func chargeCapacityLimit(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.pcha(i.tech))
	return row{e, milp.LessEqual, b.storage(i.tech).MaxP}
}

func dischargeCapacityLimit(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.pdis(i.tech))
	return row{e, milp.LessEqual, b.storage(i.tech).MaxP}
}

func coupledCapacity(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.pcha(i.tech)).Add(-1, b.pdis(i.tech))
	return row{e, milp.Equal, 0}
}

// minEnergy: Ecap >= Min_Duration * Pdis / sqrt(Eff).
func minEnergy(b *binder, i index) row {
	p := b.storage(i.tech)
	var e milp.Expr
	e.Add(1, b.ecap(i.tech)).Add(-p.MinDuration*p.DischargeFactor(), b.pdis(i.tech))
	return row{e, milp.GreaterEqual, 0}
}

func maxEnergy(b *binder, i index) row {
	p := b.storage(i.tech)
	var e milp.Expr
	e.Add(1, b.ecap(i.tech)).Add(-p.MaxDuration*p.DischargeFactor(), b.pdis(i.tech))
	return row{e, milp.LessEqual, 0}
}

func backupCapacity(b *binder, i index) row {
	var e milp.Expr
	e.Add(1, b.capCC()).Add(-1, b.genCC(i.hour))
	return row{e, milp.GreaterEqual, 0}
}

// cycleLimit: annual discharge may not exceed Ecap times the full cycles allowed per year of life.
func cycleLimit(b *binder, i index) row {
	p := b.storage(i.tech)
	var e milp.Expr
	for _, h := range b.reg.Hours() {
		e.Add(1, b.pd(h, i.tech))
	}
	e.Add(-b.store.Scalars.MaxCycles/p.Lifetime, b.ecap(i.tech))
	return row{e, milp.LessEqual, 0}
}

// addConstraints instantiates every family over its index set.
func addConstraints(m *milp.Model, reg *sets.Registry, bind func(rule string) *binder) (map[string]int, error) {
	counts := make(map[string]int, len(families))
	for _, f := range families {
		for _, i := range f.indices(reg) {
			name := i.name(f.name)
			b := bind(name)
			r := f.rule(b, i)
			if b.err != nil {
				return nil, fmt.Errorf("build constraint %s: %w", name, b.err)
			}
			if err := m.AddConstraint(name, r.lhs, r.sense, r.rhs); err != nil {
				return nil, fmt.Errorf("add constraint %s: %w", name, err)
			}
			counts[f.name]++
		}
	}
	return counts, nil
}
