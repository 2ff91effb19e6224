package core

import (
	"log"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

const (
	ReloadPerRequest = "request"
	ReloadAtStartup  = "startup"
	ReloadOnChange   = "watch"
)

type Config struct {
	OutputDir    string `yaml:"outputDir"`
	DataFile     string `yaml:"dataFile"`
	TemplatesDir string `yaml:"templatesDir"`
	PublicDir    string `yaml:"publicDir"`
	Reload       string `yaml:"reload"`
	DebugHeaders bool   `yaml:"debugHeaders"`
	DebugLogs    bool   `yaml:"debugLogs"`
}

func DefaultConfig() Config {
	return Config{
		OutputDir:    "./cache",
		DataFile:     "data/company.json",
		TemplatesDir: "templates",
		PublicDir:    "public",
		Reload:       ReloadPerRequest,
	}
}

// LoadConfig never fails: a missing or unreadable file yields the defaults,
// and any key left out of the file keeps its default value.
func LoadConfig(path string) Config {
	defaults := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Printf("[CONFIG] ignoring %s: %v", path, err)
		return defaults
	}

	if err := mergo.Merge(&cfg, defaults); err != nil {
		log.Printf("[CONFIG] applying defaults: %v", err)
		return defaults
	}

	switch cfg.Reload {
	case ReloadPerRequest, ReloadAtStartup, ReloadOnChange:
	default:
		log.Printf("[CONFIG] unknown reload mode %q, using %q", cfg.Reload, ReloadPerRequest)
		cfg.Reload = ReloadPerRequest
	}

	return cfg
}
