package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cepro/capacityplanner/params"
	"github.com/cepro/capacityplanner/results"
	"github.com/cepro/capacityplanner/sets"
	"github.com/cepro/capacityplanner/solver"
	"github.com/cepro/capacityplanner/solver/highs"
	"github.com/cepro/capacityplanner/solver/simplex"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Solver backends.
const (
	BackendHighs   = "highs"
	BackendSimplex = "simplex"
)

// SupabaseKeyEnv names the environment variable holding the Supabase API key.
const SupabaseKeyEnv = "SUPABASE_KEY"

// DataConfig names the input files. Relative paths are resolved against Dir.
type DataConfig struct {
	Dir             string `yaml:"dir"`
	SolarSites      string `yaml:"solarSites"`
	WindSites       string `yaml:"windSites"`
	Properties      string `yaml:"properties"`
	Load            string `yaml:"load"`
	Nuclear         string `yaml:"nuclear"`
	LargeHydro      string `yaml:"largeHydro"`
	OtherRenewables string `yaml:"otherRenewables"`
	CFSolar         string `yaml:"cfSolar"`
	CFWind          string `yaml:"cfWind"`
	SolarProperties string `yaml:"solarProperties"`
	WindProperties  string `yaml:"windProperties"`
	StorageData     string `yaml:"storageData"`
}

type SolverConfig struct {
	Backend    string         `yaml:"backend"`
	Executable string         `yaml:"executable"`
	WorkDir    string         `yaml:"workDir"`
	KeepFiles  bool           `yaml:"keepFiles"`
	MaxCells   int            `yaml:"maxCells"`
	Options    solver.Options `yaml:"options"`
}

type SupabaseConfig struct {
	Url string `yaml:"url"`
	// key is specified via env var
	Schema string `yaml:"schema"`
}

type DataPlatformConfig struct {
	Supabase SupabaseConfig `yaml:"supabase"`
	Table    string         `yaml:"table"`
}

type Config struct {
	Scenario     results.Scenario   `yaml:"scenario"`
	Hours        int                `yaml:"hours"`
	StorageTechs []sets.StorageTech `yaml:"storageTechs"`
	Data         DataConfig         `yaml:"data"`
	Scalars      params.Scalars     `yaml:"scalars"`
	Solver       SolverConfig       `yaml:"solver"`
	OutputDir    string             `yaml:"outputDir"`
	Database     string             `yaml:"database"`
	DataPlatform DataPlatformConfig `yaml:"dataPlatform"`
}

// Default returns a full-year run over every storage technology with the reference input file names.
func Default() Config {
	return Config{
		Scenario:     results.Scenario{Region: "CAISO", Nuclear: true, Target: 1},
		Hours:        8760,
		StorageTechs: append([]sets.StorageTech(nil), sets.DefaultStorageTechs...),
		Data: DataConfig{
			Dir:             ".",
			SolarSites:      "Set_k(SolarPV).txt",
			WindSites:       "Set_w(Wind).txt",
			Properties:      "Set_l(Properties).txt",
			Load:            "Load_hourly_2050.csv",
			Nuclear:         "Nucl_hourly_2019.csv",
			LargeHydro:      "lahy_hourly_2019.csv",
			OtherRenewables: "otre_hourly_2019.csv",
			CFSolar:         "CFSolar_2050.csv",
			CFWind:          "CFWind_2050.csv",
			SolarProperties: "CapSolar_2050.csv",
			WindProperties:  "CapWind_2050.csv",
			StorageData:     "StorageData_2050.csv",
		},
		Scalars: params.DefaultScalars(),
		Solver: SolverConfig{
			Backend:    BackendHighs,
			Executable: highs.DefaultExecutable,
			MaxCells:   simplex.DefaultMaxCells,
			Options:    solver.DefaultOptions(),
		},
		OutputDir: "results",
		Database:  "runs.db",
		DataPlatform: DataPlatformConfig{
			Supabase: SupabaseConfig{Schema: "public"},
		},
	}
}

// Read decodes the YAML file at path over the defaults. A relative data directory is taken relative to the
// config file.
func Read(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	config := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if !filepath.IsAbs(config.Data.Dir) {
		config.Data.Dir = filepath.Join(filepath.Dir(path), config.Data.Dir)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return config, nil
}

// Validate checks the settings that are not checked when the inputs are loaded.
func (c Config) Validate() error {
	if c.Scenario.Region == "" || strings.ContainsAny(c.Scenario.Region, " \t") {
		return fmt.Errorf("scenario region %q must be a single non-empty word", c.Scenario.Region)
	}
	if c.Scenario.Target < 0 || c.Scenario.Target > 1 {
		return fmt.Errorf("scenario target %v outside [0, 1]", c.Scenario.Target)
	}
	if c.Hours <= 0 {
		return fmt.Errorf("hours must be positive, got %d", c.Hours)
	}
	switch c.Solver.Backend {
	case BackendHighs, BackendSimplex:
	default:
		return fmt.Errorf("unknown solver backend %q, want %q or %q", c.Solver.Backend, BackendHighs, BackendSimplex)
	}
	if c.Solver.Options.RelativeGap < 0 {
		return fmt.Errorf("solver relative gap %v is negative", c.Solver.Options.RelativeGap)
	}
	return nil
}

func (c Config) dataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Data.Dir, name)
}

// SetFiles returns the paths of the set list files.
func (c Config) SetFiles() sets.Files {
	return sets.Files{
		SolarSites: c.dataPath(c.Data.SolarSites),
		WindSites:  c.dataPath(c.Data.WindSites),
		Properties: c.dataPath(c.Data.Properties),
	}
}

// ParamFiles returns the paths of the parameter tables.
func (c Config) ParamFiles() params.Files {
	return params.Files{
		Load:            c.dataPath(c.Data.Load),
		Nuclear:         c.dataPath(c.Data.Nuclear),
		LargeHydro:      c.dataPath(c.Data.LargeHydro),
		OtherRenewables: c.dataPath(c.Data.OtherRenewables),
		CFSolar:         c.dataPath(c.Data.CFSolar),
		CFWind:          c.dataPath(c.Data.CFWind),
		SolarProperties: c.dataPath(c.Data.SolarProperties),
		WindProperties:  c.dataPath(c.Data.WindProperties),
		StorageData:     c.dataPath(c.Data.StorageData),
	}
}

// ScenarioScalars returns the configured scalars with the scenario applied: the nuclear flag sets AlphaNuclear and
// the target sets GenMixTarget.
func (c Config) ScenarioScalars() params.Scalars {
	s := c.Scalars
	s.AlphaNuclear = 0
	if c.Scenario.Nuclear {
		s.AlphaNuclear = 1
	}
	s.GenMixTarget = c.Scenario.Target
	return s
}

// Registry loads the index sets.
func (c Config) Registry() (*sets.Registry, error) {
	return sets.Load(c.SetFiles(), c.Hours, c.StorageTechs)
}

// Store loads the parameter tables for reg.
func (c Config) Store(reg *sets.Registry) (*params.Store, error) {
	return params.Load(c.ParamFiles(), reg, c.ScenarioScalars())
}

// NewSolver returns the configured solver backend. The highs executable may carry leading arguments, quoted the
// way a shell would.
func (c Config) NewSolver() (solver.Solver, error) {
	switch c.Solver.Backend {
	case BackendSimplex:
		s := simplex.New()
		s.MaxCells = c.Solver.MaxCells
		return s, nil
	default:
		s, err := highs.NewCommand(c.Solver.Executable)
		if err != nil {
			return nil, err
		}
		s.WorkDir = c.Solver.WorkDir
		s.KeepFiles = c.Solver.KeepFiles
		return s, nil
	}
}

// LoadEnv sets environment variables from a .env file in dir, if there is one. Variables that are already set
// keep their values.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// SupabaseKey reads the Supabase API key from the environment.
func SupabaseKey() (string, error) {
	key := os.Getenv(SupabaseKeyEnv)
	if key == "" {
		return "", fmt.Errorf("environment variable %s is not set", SupabaseKeyEnv)
	}
	return key, nil
}
