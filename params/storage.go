package params

import (
	"fmt"
	"math"

	"github.com/cepro/capacityplanner/sets"
	"github.com/mitchellh/mapstructure"
)

// StorageProperties is the typed view of one technology's column in the storage data table.
type StorageProperties struct {
	PCapex      float64 `mapstructure:"P_Capex"`      // power capital cost, $/kW
	ECapex      float64 `mapstructure:"E_Capex"`      // energy capital cost, $/kWh
	Eff         float64 `mapstructure:"Eff"`          // round-trip efficiency
	MinDuration float64 `mapstructure:"Min_Duration"` // h
	MaxDuration float64 `mapstructure:"Max_Duration"` // h
	MaxP        float64 `mapstructure:"Max_P"`        // MW
	FOM         float64 `mapstructure:"FOM"`          // $/kW-yr
	VOM         float64 `mapstructure:"VOM"`          // $/MWh
	Lifetime    float64 `mapstructure:"Lifetime"`     // years
	CostRatio   float64 `mapstructure:"CostRatio"`    // share of power cost carried by the charge side
}

// Storage decodes the storage data column for tech. Every storage property must be present.
func (s *Store) Storage(tech sets.StorageTech) (StorageProperties, error) {
	column := make(map[string]interface{}, len(sets.StorageKeys))
	for _, key := range sets.StorageKeys {
		v, err := s.StorageData.At(StorageProperty{Property: key, Tech: tech})
		if err != nil {
			return StorageProperties{}, err
		}
		column[string(key)] = v
	}

	var props StorageProperties
	err := mapstructure.Decode(column, &props)
	if err != nil {
		return StorageProperties{}, fmt.Errorf("decode storage properties for %s: %w", tech, err)
	}
	return props, nil
}

// ChargeEfficiency is the one-way efficiency applied when charging, so that charging then discharging loses
// exactly the round-trip efficiency.
func (p StorageProperties) ChargeEfficiency() float64 {
	return math.Sqrt(p.Eff)
}

// DischargeFactor is the energy drawn from storage per unit of discharged power.
func (p StorageProperties) DischargeFactor() float64 {
	return 1 / math.Sqrt(p.Eff)
}

func (p StorageProperties) validate(tech sets.StorageTech) error {
	invalid := func(key sets.StorageKey, value float64, reason string) error {
		return &InvalidParameterError{
			Table:  TableStorageData,
			Key:    StorageProperty{Property: key, Tech: tech}.String(),
			Value:  value,
			Reason: reason,
		}
	}

	switch {
	case !(p.Eff > 0 && p.Eff <= 1):
		return invalid(sets.Eff, p.Eff, "efficiency must be within (0,1]")
	case p.MinDuration < 0:
		return invalid(sets.MinDuration, p.MinDuration, "duration must not be negative")
	case p.MinDuration > p.MaxDuration:
		return invalid(sets.MinDuration, p.MinDuration, fmt.Sprintf("exceeds Max_Duration %g", p.MaxDuration))
	case !(p.CostRatio >= 0 && p.CostRatio <= 1):
		return invalid(sets.CostRatio, p.CostRatio, "cost ratio must be within [0,1]")
	case !(p.Lifetime > 0):
		return invalid(sets.Lifetime, p.Lifetime, "lifetime must be positive")
	case !(p.MaxP >= 0):
		return invalid(sets.MaxP, p.MaxP, "maximum power must not be negative")
	}
	return nil
}
