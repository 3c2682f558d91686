package params

// Scalars holds the single-valued inputs of the model. Costs are in the units the data tables use: capital costs
// per kW (scaled by 1000 to per MW in the objective), fuel in $/MMBtu and heat rate in MMBtu/MWh.
type Scalars struct {
	DiscountRate         float64 `yaml:"discountRate"`
	CapexGasCC           float64 `yaml:"capexGasCC"`
	HeatRate             float64 `yaml:"heatRate"`
	GasPrice             float64 `yaml:"gasPrice"`
	FOMGasCC             float64 `yaml:"fomGasCC"`
	VOMGasCC             float64 `yaml:"vomGasCC"`
	GenMixTarget         float64 `yaml:"genMixTarget"`         // minimum carbon-free share of served energy, 0 to 1
	AlphaNuclear         float64 `yaml:"alphaNuclear"`         // 1 includes nuclear output in the balance, 0 excludes it
	AlphaLargeHydro      float64 `yaml:"alphaLargeHydro"`      // as AlphaNuclear, for large hydro
	AlphaOtherRenewables float64 `yaml:"alphaOtherRenewables"` // as AlphaNuclear, for other renewables
	MaxCycles            float64 `yaml:"maxCycles"`            // lifetime full cycles for Li-Ion
}

// DefaultScalars returns the reference-year values.
func DefaultScalars() Scalars {
	return Scalars{
		DiscountRate:         0.06,
		CapexGasCC:           940.6078576,
		HeatRate:             6.4005,
		GasPrice:             4.113894393,
		FOMGasCC:             13.2516707,
		VOMGasCC:             2.226321156,
		GenMixTarget:         1.00,
		AlphaNuclear:         1,
		AlphaLargeHydro:      1,
		AlphaOtherRenewables: 1,
		MaxCycles:            3250,
	}
}
