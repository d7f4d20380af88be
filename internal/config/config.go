package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root string `yaml:"root"`
		// Ignore lists directory names the crawler never enters.
		Ignore  []string `yaml:"ignore"`
		Workers int      `yaml:"workers"`
	} `yaml:"project"`
	Universe struct {
		// Catalogs are extra YAML type catalogs loaded on top of the built-in one.
		Catalogs []string `yaml:"catalogs"`
	} `yaml:"universe"`
	Storage struct {
		Path string `yaml:"path"`
		// KeepRuns bounds how many runs are retained; 0 keeps all.
		KeepRuns int `yaml:"keep_runs"`
	} `yaml:"storage"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Storage.Path = ".jresolve.db"
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads the YAML file at path over the defaults. A missing file
// is not an error when path is empty.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if root := os.Getenv("JRESOLVE_ROOT"); root != "" {
		c.Project.Root = root
	}
	if db := os.Getenv("JRESOLVE_DB"); db != "" {
		c.Storage.Path = db
	}
	if level := os.Getenv("JRESOLVE_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if catalogs := os.Getenv("JRESOLVE_CATALOGS"); catalogs != "" {
		c.Universe.Catalogs = splitList(catalogs)
	}
	if ignore := os.Getenv("JRESOLVE_IGNORE"); ignore != "" {
		c.Project.Ignore = splitList(ignore)
	}
	if workers := os.Getenv("JRESOLVE_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return errors.Wrap(err, "JRESOLVE_WORKERS")
		}
		c.Project.Workers = n
	}
	return nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Project.Workers < 0 {
		return errors.Errorf("project.workers must not be negative, got %d", c.Project.Workers)
	}
	if c.Storage.KeepRuns < 0 {
		return errors.Errorf("storage.keep_runs must not be negative, got %d", c.Storage.KeepRuns)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// ApplyLogging sets the global logrus level.
func (c *Config) ApplyLogging() {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
