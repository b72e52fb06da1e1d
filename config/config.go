package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del simulador.
type Config struct {
	Market  MarketConfig    `yaml:"market" toml:"market"`
	Buyers  GeneratorConfig `yaml:"buyers" toml:"buyers"`
	Sellers GeneratorConfig `yaml:"sellers" toml:"sellers"`
	Storage StorageConfig   `yaml:"storage" toml:"storage"`
	Report  ReportConfig    `yaml:"report" toml:"report"`
	Labels  LabelConfig     `yaml:"labels" toml:"labels"`
	Log     LogConfig       `yaml:"log" toml:"log"`
}

// MarketConfig controla el proceso de llegadas y el clearing.
type MarketConfig struct {
	Seed       uint64  `yaml:"seed" toml:"seed"`
	BuyerRate  float64 `yaml:"buyer_rate" toml:"buyer_rate"`   // llegadas por unidad de tiempo
	SellerRate float64 `yaml:"seller_rate" toml:"seller_rate"` // llegadas por unidad de tiempo
	Horizon    float64 `yaml:"horizon" toml:"horizon"`
	Strategy   string  `yaml:"strategy" toml:"strategy"` // linear | binary
	// FallbackOnDuplicates: con binary, reintentar con linear si hay valuaciones repetidas.
	FallbackOnDuplicates *bool `yaml:"fallback_on_duplicates" toml:"fallback_on_duplicates"`
}

// GeneratorConfig describe la distribución de valuaciones de un lado.
type GeneratorConfig struct {
	Kind   string    `yaml:"kind" toml:"kind"` // uniform | normal | lognormal | constant | sequence
	Min    float64   `yaml:"min" toml:"min"`
	Max    float64   `yaml:"max" toml:"max"`
	Mean   float64   `yaml:"mean" toml:"mean"`
	StdDev float64   `yaml:"stddev" toml:"stddev"`
	Mu     float64   `yaml:"mu" toml:"mu"`
	Sigma  float64   `yaml:"sigma" toml:"sigma"`
	Value  float64   `yaml:"value" toml:"value"`
	Values []float64 `yaml:"values" toml:"values"`
	Cycle  bool      `yaml:"cycle" toml:"cycle"`
}

// StorageConfig controla dónde se persisten las simulaciones.
type StorageConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"` // ruta SQLite, ":memory:" o postgres://...
}

// ReportConfig controla el output de consola.
type ReportConfig struct {
	Rows int `yaml:"rows" toml:"rows"` // filas de historia a mostrar
}

// LabelConfig da nombre a cada lado del mercado en los reportes
// (p.ej. recipients / donors en el mercado de trasplantes).
type LabelConfig struct {
	Buyers  string `yaml:"buyers" toml:"buyers"`
	Sellers string `yaml:"sellers" toml:"sellers"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // debug | info | warn | error
	Format string `yaml:"format" toml:"format"` // text | json
}

// Load carga la configuración desde un archivo YAML o TOML (según extensión)
// y el archivo .env si existe. Las variables de entorno sobreescriben al archivo.
// Con path vacío solo se aplican defaults y entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config.Load: parse TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}
	return nil
}

// FallbackEnabled devuelve el valor efectivo de fallback_on_duplicates.
func (c *Config) FallbackEnabled() bool {
	return c.Market.FallbackOnDuplicates == nil || *c.Market.FallbackOnDuplicates
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SIM_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config.Load: SIM_SEED %q: %w", v, err)
		}
		cfg.Market.Seed = seed
	}
	if v := os.Getenv("SIM_HORIZON"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config.Load: SIM_HORIZON %q: %w", v, err)
		}
		cfg.Market.Horizon = h
	}
	if v := os.Getenv("SIM_STRATEGY"); v != "" {
		cfg.Market.Strategy = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Las tasas a cero se respetan solo si el otro lado tiene llegadas.
func setDefaults(cfg *Config) {
	if cfg.Market.BuyerRate == 0 && cfg.Market.SellerRate == 0 {
		cfg.Market.BuyerRate = 1
		cfg.Market.SellerRate = 1
	}
	if cfg.Market.Horizon == 0 {
		cfg.Market.Horizon = 100
	}
	if cfg.Market.Strategy == "" {
		cfg.Market.Strategy = "linear"
	}
	defaultGenerator(&cfg.Buyers)
	defaultGenerator(&cfg.Sellers)
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "arrivalmarket.db"
	}
	if cfg.Report.Rows <= 0 {
		cfg.Report.Rows = 20
	}
	if cfg.Labels.Buyers == "" {
		cfg.Labels.Buyers = "buyers"
	}
	if cfg.Labels.Sellers == "" {
		cfg.Labels.Sellers = "sellers"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

func defaultGenerator(g *GeneratorConfig) {
	if g.Kind == "" {
		g.Kind = "uniform"
	}
	if g.Kind == "uniform" && g.Min == 0 && g.Max == 0 {
		g.Max = 1
	}
}
