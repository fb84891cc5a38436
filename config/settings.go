// Package config holds the overlay settings snapshot, its file loaders and live reload.
//
// Settings are immutable snapshots: Store hands out copies and replaces the whole
// snapshot on every change, so observers never see a partially updated value.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ColorMode selects the particle color source
type ColorMode uint8

const (
	ColorModeCursor ColorMode = iota // Current terminal cursor color
	ColorModeCustom                  // User supplied color list
	ColorModeRainbow                 // Fixed six-color rainbow
)

// ErrInvalidColorMode is returned when a color mode name is not recognized
var ErrInvalidColorMode = errors.New("invalid color mode")

// String returns the configuration name of the mode
func (m ColorMode) String() string {
	switch m {
	case ColorModeCursor:
		return "cursor"
	case ColorModeCustom:
		return "custom"
	case ColorModeRainbow:
		return "rainbow"
	default:
		return "unknown"
	}
}

// ParseColorMode resolves a configuration name, case-insensitive
func ParseColorMode(name string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cursor":
		return ColorModeCursor, nil
	case "custom":
		return ColorModeCustom, nil
	case "rainbow":
		return ColorModeRainbow, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidColorMode, name)
}

// Settings is the read-only snapshot consumed by the engine
type Settings struct {
	// Shake enables the screen shake on cursor movement
	Shake bool
	// ColorMode selects the palette source
	ColorMode ColorMode
	// Colors is the ordered custom palette (names or hex), used in custom mode
	Colors []string
	// RequireWow gates ColorMode behind wow mode: cursor color while wow mode is off
	RequireWow bool
}

// Defaults returns the built-in settings
func Defaults() Settings {
	return Settings{
		Shake:     false,
		ColorMode: ColorModeCursor,
		Colors:    []string{"red"},
	}
}

// Clone returns a deep copy so callers cannot mutate shared color slices
func (s Settings) Clone() Settings {
	s.Colors = slices.Clone(s.Colors)
	return s
}

// Equal compares two snapshots field by field
func (s Settings) Equal(other Settings) bool {
	return s.Shake == other.Shake &&
		s.ColorMode == other.ColorMode &&
		s.RequireWow == other.RequireWow &&
		slices.Equal(s.Colors, other.Colors)
}
