// Package palette resolves the ordered particle color sequence for a color mode.
package palette

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/lixenwraith/powermode/config"
	"github.com/lixenwraith/powermode/render"
)

// ErrUnknownColor is returned for color specs that are neither a CSS name nor hex
var ErrUnknownColor = errors.New("unknown color")

// DefaultColor is used when a custom palette is empty
const DefaultColor = "red"

// cssExtra holds CSS Color 4 names missing from the SVG 1.1 table
var cssExtra = map[string]render.RGB{
	"rebeccapurple": {R: 0x66, G: 0x33, B: 0x99},
}

// Rainbow is the fixed rainbow sequence, cycled in this order
var Rainbow = []render.RGB{
	{R: 0xfe, G: 0x00, B: 0x00},
	{R: 0xff, G: 0xa5, B: 0x00},
	{R: 0xff, G: 0xff, B: 0x00},
	{R: 0x00, G: 0xfb, B: 0x00},
	{R: 0x00, G: 0x9e, B: 0xff},
	{R: 0x65, G: 0x31, B: 0xff},
}

// Resolve returns the non-empty color sequence for mode
// cursorColor is consulted only in cursor mode, custom only in custom mode
func Resolve(mode config.ColorMode, custom []string, cursorColor string) ([]render.RGB, error) {
	switch mode {
	case config.ColorModeCursor:
		c, err := ParseColor(cursorColor)
		if err != nil {
			return nil, fmt.Errorf("cursor color: %w", err)
		}
		return []render.RGB{c}, nil

	case config.ColorModeRainbow:
		out := make([]render.RGB, len(Rainbow))
		copy(out, Rainbow)
		return out, nil

	case config.ColorModeCustom:
		if len(custom) == 0 {
			custom = []string{DefaultColor}
		}
		out := make([]render.RGB, 0, len(custom))
		for i, spec := range custom {
			c, err := ParseColor(spec)
			if err != nil {
				return nil, fmt.Errorf("custom color %d: %w", i, err)
			}
			out = append(out, c)
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %d", config.ErrInvalidColorMode, mode)
}

// ParseColor normalizes a CSS color name or #rgb/#rrggbb hex string to RGB
func ParseColor(spec string) (render.RGB, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return render.RGB{}, fmt.Errorf("%w: empty", ErrUnknownColor)
	}

	if named, ok := colornames.Map[s]; ok {
		return render.RGB{R: named.R, G: named.G, B: named.B}, nil
	}
	if named, ok := cssExtra[s]; ok {
		return named, nil
	}

	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return render.RGB{}, fmt.Errorf("%w: %q", ErrUnknownColor, spec)
		}
		return render.FromColorful(c), nil
	}

	return render.RGB{}, fmt.Errorf("%w: %q", ErrUnknownColor, spec)
}
