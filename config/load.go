package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ParseError reports a malformed settings file
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// fileSettings mirrors the on-disk section, pointer fields detect missing keys
type fileSettings struct {
	Shake      *bool     `toml:"shake" yaml:"shake"`
	ColorMode  *string   `toml:"colorMode" yaml:"colorMode"`
	Colors     *[]string `toml:"colors" yaml:"colors"`
	RequireWow *bool     `toml:"requireWow" yaml:"requireWow"`
}

// fileRoot is the document root, settings live under the powermode section
type fileRoot struct {
	PowerMode *fileSettings `toml:"powermode" yaml:"powermode"`
}

// Load reads settings from path, format chosen by extension (.toml, .yaml, .yml)
// A missing file yields Defaults() without error
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return Settings{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse decodes settings data, source names the input for errors and format detection
func Parse(source string, data []byte) (Settings, error) {
	var root fileRoot

	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &root); err != nil {
			return Settings{}, &ParseError{Path: source, Err: err}
		}
	default:
		if err := toml.Unmarshal(data, &root); err != nil {
			return Settings{}, &ParseError{Path: source, Err: err}
		}
	}

	return root.PowerMode.apply(source, Defaults())
}

// apply overlays present fields onto base, missing fields keep their default
func (f *fileSettings) apply(source string, base Settings) (Settings, error) {
	if f == nil {
		return base, nil
	}
	if f.Shake != nil {
		base.Shake = *f.Shake
	}
	if f.ColorMode != nil {
		mode, err := ParseColorMode(*f.ColorMode)
		if err != nil {
			return Settings{}, &ParseError{Path: source, Err: err}
		}
		base.ColorMode = mode
	}
	if f.Colors != nil {
		base.Colors = append([]string(nil), (*f.Colors)...)
	}
	if f.RequireWow != nil {
		base.RequireWow = *f.RequireWow
	}
	return base, nil
}
