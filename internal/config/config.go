package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/textbook-analytics/internal/platform/envutil"
)

// Config is the full run configuration. Values come from an optional YAML
// file with environment overrides on top; solver behavior (iteration caps,
// seed) is always explicit here, never ambient process state.
type Config struct {
	LogMode string `yaml:"log_mode"`

	DB struct {
		Driver string `yaml:"driver"` // sqlite|postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"db"`

	Solver struct {
		MaxIRLS    int     `yaml:"max_irls"`
		MaxProfile int     `yaml:"max_profile"`
		Tol        float64 `yaml:"tol"`
		Seed       int64   `yaml:"seed"`
	} `yaml:"solver"`

	Output struct {
		CSVPath string `yaml:"csv_path"`
	} `yaml:"output"`

	API struct {
		Addr        string   `yaml:"addr"`
		CORSOrigins []string `yaml:"cors_origins"`
		JWTSecret   string   `yaml:"jwt_secret"`
		AuthEnabled bool     `yaml:"auth_enabled"`
		RedisAddr   string   `yaml:"redis_addr"`
	} `yaml:"api"`
}

func defaults() Config {
	var c Config
	c.LogMode = "development"
	c.DB.Driver = "sqlite"
	c.DB.DSN = "textbook.db"
	c.Solver.MaxIRLS = 50
	c.Solver.MaxProfile = 400
	c.Solver.Tol = 1e-8
	c.Solver.Seed = 1
	c.Output.CSVPath = "heldout_predictions.csv"
	c.API.Addr = ":8080"
	c.API.AuthEnabled = true
	return c
}

// Load reads the YAML file at path (skipped when path is empty or absent)
// and then applies environment overrides.
func Load(path string) (Config, error) {
	c := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return c, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &c); err != nil {
			return c, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.LogMode = envutil.String("LOG_MODE", c.LogMode)
	c.DB.Driver = envutil.String("DB_DRIVER", c.DB.Driver)
	c.DB.DSN = envutil.String("DB_DSN", c.DB.DSN)
	c.Solver.MaxIRLS = envutil.Int("SOLVER_MAX_IRLS", c.Solver.MaxIRLS)
	c.Solver.MaxProfile = envutil.Int("SOLVER_MAX_PROFILE", c.Solver.MaxProfile)
	c.Solver.Tol = envutil.Float("SOLVER_TOL", c.Solver.Tol)
	c.Solver.Seed = envutil.Int64("SOLVER_SEED", c.Solver.Seed)
	c.Output.CSVPath = envutil.String("OUTPUT_CSV_PATH", c.Output.CSVPath)
	c.API.Addr = envutil.String("API_ADDR", c.API.Addr)
	c.API.JWTSecret = envutil.String("API_JWT_SECRET", c.API.JWTSecret)
	c.API.AuthEnabled = envutil.Bool("API_AUTH_ENABLED", c.API.AuthEnabled)
	c.API.RedisAddr = envutil.String("API_REDIS_ADDR", c.API.RedisAddr)

	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return c, fmt.Errorf("config: unknown db driver %q", c.DB.Driver)
	}
	return c, nil
}
