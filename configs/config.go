// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
)

// Global exposes the application configuration.
var Global AppConfig

// Possible values for Mode.
const (
	ModeCompose Mode = "compose"
	ModeServe   Mode = "serve"
)

// Mode selects what the binary does after loading its configuration.
type Mode string

// AppConfig holds the application configuration.
type AppConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Mode Mode   `env:"TILEMETRICS_MODE,overwrite" yaml:"mode"`
		Host string `env:"TILEMETRICS_HOST,overwrite" yaml:"host"`
		Port string `env:"TILEMETRICS_PORT,overwrite" yaml:"port"`
	} `yaml:"basic"`

	Fragment struct {
		// Resource is resolved against the live document's URL.
		Resource string `env:"TILEMETRICS_FRAGMENT,overwrite" yaml:"resource"`
	} `yaml:"fragment"`

	Compose struct {
		HostPage       string  `env:"TILEMETRICS_HOST_PAGE,overwrite" yaml:"hostPage"`
		RawOrigin      string  `env:"TILEMETRICS_ORIGIN,overwrite" yaml:"origin"`
		Origin         url.URL `yaml:"-"` // URL the host page is treated as served from
		Output         string  `env:"TILEMETRICS_OUTPUT,overwrite" yaml:"output"`
		ScriptManifest string  `env:"TILEMETRICS_SCRIPT_MANIFEST,overwrite" yaml:"scriptManifest"`
	} `yaml:"compose"`

	Serve struct {
		StaticDir         string  `env:"TILEMETRICS_STATIC_DIR,overwrite" yaml:"staticDir"`
		RawFragmentOrigin string  `env:"TILEMETRICS_FRAGMENT_ORIGIN,overwrite" yaml:"fragmentOrigin"`
		FragmentOrigin    url.URL `yaml:"-"` // zero value means the listener's loopback address
	} `yaml:"serve"`

	Limiter struct {
		Enabled bool    `env:"TILEMETRICS_LIMITER,overwrite" yaml:"enabled"`
		Rate    float64 `env:"TILEMETRICS_LIMITER_RATE,overwrite" yaml:"rate"`
		Burst   int     `env:"TILEMETRICS_LIMITER_BURST,overwrite" yaml:"burst"`
	} `yaml:"limiter"`

	Development struct {
		InDevelopment        bool   `env:"TILEMETRICS_DEV" yaml:"inDevelopment"`
		SaveResponses        bool   `env:"TILEMETRICS_SAVE_RESPONSES,overwrite" yaml:"saveResponses"`
		ResponseSaveLocation string `env:"TILEMETRICS_RESPONSE_SAVE_LOCATION,overwrite" yaml:"responseSaveLocation"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"TILEMETRICS_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"TILEMETRICS_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"TILEMETRICS_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *AppConfig) LoadConfig() error {
	parsedConfigFlagValue := parseCommandLineArgs()

	// Check if the -config flag was explicitly set by the user.
	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	var configFilePath string

	// Determine the config file path with the correct precedence:
	// 1. Command-line flag (-config)
	// 2. Environment variable (TILEMETRICS_CONFIGFILE)
	// 3. Default path with fallback check
	if configFlagUserSet {
		configFilePath = parsedConfigFlagValue
	} else if envVar := os.Getenv("TILEMETRICS_CONFIGFILE"); envVar != "" {
		configFilePath = envVar
	} else {
		configFilePath = parsedConfigFlagValue
		if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
			ymlPath := "./config.yml"
			if _, statErr := os.Stat(ymlPath); statErr == nil {
				configFilePath = ymlPath
			}
		}
	}

	if err := cfg.load(configFilePath); err != nil {
		return err
	}

	if err := cfg.setupAudit(); err != nil {
		return err
	}

	cfg.print()

	return nil
}

// load applies defaults, the YAML file, .env and the environment, then validates.
func (cfg *AppConfig) load(configFilePath string) error {
	cfg.SetDefaults()

	cfg.Build.load()

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	return nil
}
