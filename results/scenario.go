package results

import (
	"fmt"
	"strconv"
	"strings"
)

// Scenario identifies one run: the region, whether nuclear output counts toward the balance, and the carbon-free
// generation target.
type Scenario struct {
	Region  string  `yaml:"region"`
	Nuclear bool    `yaml:"nuclear"`
	Target  float64 `yaml:"target"`
}

// Name formats the scenario as "<Region> Nuclear <0|1> Target <0.00>", e.g. "ERCOT Nuclear 1 Target 0.95".
func (s Scenario) Name() string {
	nuclear := 0
	if s.Nuclear {
		nuclear = 1
	}
	return fmt.Sprintf("%s Nuclear %d Target %.2f", s.Region, nuclear, s.Target)
}

func (s Scenario) String() string { return s.Name() }

// ParseScenarioName is the inverse of Name.
func ParseScenarioName(name string) (Scenario, error) {
	fields := strings.Fields(name)
	if len(fields) != 5 || fields[1] != "Nuclear" || fields[3] != "Target" {
		return Scenario{}, fmt.Errorf("parse scenario %q: want \"<Region> Nuclear <0|1> Target <fraction>\"", name)
	}

	var s Scenario
	s.Region = fields[0]
	switch fields[2] {
	case "0":
	case "1":
		s.Nuclear = true
	default:
		return Scenario{}, fmt.Errorf("parse scenario %q: nuclear flag %q is not 0 or 1", name, fields[2])
	}

	target, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %q: target: %w", name, err)
	}
	s.Target = target
	return s, nil
}
