package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk run configuration. Unset keys leave the
// environment value in place.
type fileConfig struct {
	Guacamole struct {
		URL        *string `toml:"url" yaml:"url"`
		Username   *string `toml:"username" yaml:"username"`
		Password   *string `toml:"password" yaml:"password"`
		DataSource *string `toml:"data_source" yaml:"data_source"`
		FileShim   *string `toml:"file_shim" yaml:"file_shim"`
		Timeout    *string `toml:"timeout" yaml:"timeout"`
		Retries    *int    `toml:"retries" yaml:"retries"`
	} `toml:"guacamole" yaml:"guacamole"`
	Guacd struct {
		Host       *string `toml:"host" yaml:"host"`
		Port       *int    `toml:"port" yaml:"port"`
		Encryption *string `toml:"encryption" yaml:"encryption"`
	} `toml:"guacd" yaml:"guacd"`
	Database struct {
		Driver *string `toml:"driver" yaml:"driver"`
		DSN    *string `toml:"dsn" yaml:"dsn"`
	} `toml:"database" yaml:"database"`
}

// LoadFile overlays the TOML or YAML file at path onto cfg. The format is
// chosen by extension.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return fmt.Errorf("parsing TOML config: %w", err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown config key %q", undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing YAML config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	return raw.apply(cfg)
}

func (f *fileConfig) apply(cfg *Config) error {
	g := f.Guacamole
	setString(&cfg.Guacamole.URL, g.URL)
	setString(&cfg.Guacamole.Username, g.Username)
	setString(&cfg.Guacamole.Password, g.Password)
	setString(&cfg.Guacamole.DataSource, g.DataSource)
	setString(&cfg.Guacamole.FileShim, g.FileShim)
	if g.Timeout != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*g.Timeout))
		if err != nil {
			return fmt.Errorf("parse guacamole.timeout: %w", err)
		}
		cfg.Guacamole.Timeout = d
	}
	if g.Retries != nil {
		cfg.Guacamole.Retries = *g.Retries
	}

	setString(&cfg.Guacd.Host, f.Guacd.Host)
	if f.Guacd.Port != nil {
		cfg.Guacd.Port = *f.Guacd.Port
	}
	setString(&cfg.Guacd.Encryption, f.Guacd.Encryption)

	setString(&cfg.Database.Driver, f.Database.Driver)
	setString(&cfg.Database.DSN, f.Database.DSN)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
