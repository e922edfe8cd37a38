package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. PESTER_RUN_EXIT=true.
const EnvPrefix = "PESTER"

// Load reads a configuration file (YAML, JSON or TOML, by extension) and
// environment overrides, and decodes them with FromMap. An empty path reads
// the environment only.
func Load(path string, opts ...DecodeOption) (*Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, ns := range Default().sections() {
		for _, f := range ns.sec.fields() {
			if err := v.BindEnv(strings.ToLower(ns.name + "." + f.key)); err != nil {
				return nil, fmt.Errorf("binding env for %s.%s: %w", ns.name, f.key, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	settings := v.AllSettings()
	if path != "" {
		if err := restoreContainers(settings, path); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg, err := FromMap(settings, opts...)
	if err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// restoreContainers replaces Run.Container in settings with the value read
// straight from the file. Viper lowercases every map key, which would rename
// the keys of container data rows.
func restoreContainers(settings map[string]any, path string) error {
	if _, set := os.LookupEnv(EnvPrefix + "_RUN_CONTAINER"); set {
		return nil
	}
	raw, err := readRaw(path)
	if err != nil || raw == nil {
		return err
	}
	rawRun, ok := lookup(raw, "Run")
	if !ok {
		return nil
	}
	rawRunMap, ok := asMap(rawRun)
	if !ok {
		return nil
	}
	containers, ok := lookup(rawRunMap, "Container")
	if !ok {
		return nil
	}

	run, _ := asMap(settings["run"])
	if run == nil {
		run = map[string]any{}
		settings["run"] = run
	}
	run["container"] = containers
	return nil
}

// readRaw decodes the file without touching key case. Formats other than
// YAML, JSON and TOML return nil.
func readRaw(path string) (map[string]any, error) {
	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".json":
		unmarshal = json.Unmarshal
	case ".toml":
		unmarshal = toml.Unmarshal
	default:
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return m, nil
}
